// Package transform holds the typed records describing what one layer
// contributes to one declaration.
package transform

import (
	"sort"

	"github.com/funvibe/weaver/internal/ast"
	"github.com/funvibe/weaver/internal/symbols"
)

type Kind int

const (
	KindIntroduce Kind = iota
	KindOverride
	KindRedirect
	KindProxyInterfaceMember
)

func (k Kind) String() string {
	switch k {
	case KindIntroduce:
		return "introduce"
	case KindOverride:
		return "override"
	case KindRedirect:
		return "redirect"
	case KindProxyInterfaceMember:
		return "proxy"
	}
	return "unknown"
}

// Body is a candidate body produced by the template expander.
type Body struct {
	Block *ast.Block
}

// Requests returns the invoke requests of the body in source order.
func (b *Body) Requests() []*ast.ProceedExpression {
	if b == nil || b.Block == nil {
		return nil
	}
	return ast.Proceeds(b.Block)
}

// Transformation is the closed set of edits a layer can request against a
// declaration. The weaver matches it exhaustively with a type switch over
// *Introduce, *Override, *Redirect and *ProxyInterfaceMember.
type Transformation interface {
	Kind() Kind
	Target() symbols.DeclID
	Layer() Layer
	// Accessors lists the accessors the transformation supplies a body for.
	Accessors() []symbols.AccessorKind
	isTransformation()
}

type IntroducePolicy int

const (
	PolicyDefault  IntroducePolicy = iota // Use the configured default
	PolicyFail                            // Report a conflict
	PolicyNew                             // Keep both, the introduced one under a new name
	PolicyOverride                        // Replace the existing member's behavior
	PolicyIgnore                          // Keep the existing member, drop the introduction
)

var policyNames = [...]string{"default", "fail", "new", "override", "ignore"}

func (p IntroducePolicy) String() string {
	if int(p) < len(policyNames) {
		return policyNames[p]
	}
	return "unknown"
}

func ParsePolicy(s string) (IntroducePolicy, bool) {
	if s == "" {
		return PolicyDefault, true
	}
	for i, n := range policyNames {
		if n == s {
			return IntroducePolicy(i), true
		}
	}
	return PolicyDefault, false
}

// Introduce adds a new member. Decl is the introduced declaration, registered
// in the compilation with Introduced set.
type Introduce struct {
	Decl   symbols.DeclID
	By     Layer
	Policy IntroducePolicy
	Bodies map[symbols.AccessorKind]*Body
}

func (t *Introduce) Kind() Kind                         { return KindIntroduce }
func (t *Introduce) Target() symbols.DeclID             { return t.Decl }
func (t *Introduce) Layer() Layer                       { return t.By }
func (t *Introduce) Accessors() []symbols.AccessorKind { return bodyKinds(t.Bodies) }
func (t *Introduce) isTransformation()                  {}

// Override replaces one or more accessors of an existing declaration.
// Accessors absent from Bodies pass through to the inner link.
type Override struct {
	Decl   symbols.DeclID
	By     Layer
	Bodies map[symbols.AccessorKind]*Body
}

func (t *Override) Kind() Kind                         { return KindOverride }
func (t *Override) Target() symbols.DeclID             { return t.Decl }
func (t *Override) Layer() Layer                       { return t.By }
func (t *Override) Accessors() []symbols.AccessorKind { return bodyKinds(t.Bodies) }
func (t *Override) isTransformation()                  {}

// Redirect makes the declaration forward to another member, on this or on
// Receiver. Links inner to a redirect are unreachable.
type Redirect struct {
	Decl     symbols.DeclID
	By       Layer
	To       symbols.DeclID
	Receiver ast.Expression
	Only     []symbols.AccessorKind // nil redirects every accessor
}

func (t *Redirect) Kind() Kind             { return KindRedirect }
func (t *Redirect) Target() symbols.DeclID { return t.Decl }
func (t *Redirect) Layer() Layer           { return t.By }
func (t *Redirect) Accessors() []symbols.AccessorKind {
	out := append([]symbols.AccessorKind(nil), t.Only...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
func (t *Redirect) isTransformation() {}

// Covers reports whether the redirect applies to accessor a.
func (t *Redirect) Covers(a symbols.AccessorKind) bool {
	if len(t.Only) == 0 {
		return true
	}
	for _, k := range t.Only {
		if k == a {
			return true
		}
	}
	return false
}

// ProxyInterfaceMember adds an explicit implementation of an interface member
// that forwards to Decl.
type ProxyInterfaceMember struct {
	Decl      symbols.DeclID
	By        Layer
	Interface string // Interface type name, e.g. "IDisposable"
	Member    string // Interface member name; defaults to the declaration's name
}

func (t *ProxyInterfaceMember) Kind() Kind                         { return KindProxyInterfaceMember }
func (t *ProxyInterfaceMember) Target() symbols.DeclID             { return t.Decl }
func (t *ProxyInterfaceMember) Layer() Layer                       { return t.By }
func (t *ProxyInterfaceMember) Accessors() []symbols.AccessorKind { return nil }
func (t *ProxyInterfaceMember) isTransformation()                  {}

func bodyKinds(bodies map[symbols.AccessorKind]*Body) []symbols.AccessorKind {
	out := make([]symbols.AccessorKind, 0, len(bodies))
	for k := range bodies {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
