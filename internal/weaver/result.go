package weaver

import (
	"github.com/google/uuid"

	"github.com/funvibe/weaver/internal/ast"
	"github.com/funvibe/weaver/internal/diagnostics"
	"github.com/funvibe/weaver/internal/symbols"
)

type Status int

const (
	StatusUnchanged Status = iota // No transformation applied
	StatusWoven                   // Members replaced by the woven ones
	StatusSkipped                 // Excluded by an error; the original members stay as they are
	StatusDropped                 // An introduction that was ignored or merged into an existing member
)

func (s Status) String() string {
	switch s {
	case StatusWoven:
		return "woven"
	case StatusSkipped:
		return "skipped"
	case StatusDropped:
		return "dropped"
	}
	return "unchanged"
}

type Role int

const (
	RolePrimary      Role = iota // The public member, carrying the outermost link
	RoleHelper                   // A link emitted on its own
	RoleBackingField             // Storage of a transformed auto-property or field-like event
	RoleProxy                    // Explicit interface implementation forwarding to the public member
)

func (r Role) String() string {
	switch r {
	case RoleHelper:
		return "helper"
	case RoleBackingField:
		return "field"
	case RoleProxy:
		return "proxy"
	}
	return "primary"
}

// EmittedMember is one member the emitter has to write into the declaring
// type.
type EmittedMember struct {
	Name       string
	Role       Role
	Kind       symbols.DeclKind
	Visibility string
	Static     bool
	Async      bool   // Declared async
	Override   bool   // Declared override (primary members only)
	Interface  string // Explicitly implemented interface, proxies only
	Layer      string // Layer whose link the member carries; empty for source links
	ReturnType string
	Params     []symbols.Parameter
	Bodies     map[symbols.AccessorKind]*ast.Block
}

// Accessors returns the member's bodies in canonical accessor order.
func (m *EmittedMember) Accessors() []symbols.AccessorKind {
	var out []symbols.AccessorKind
	for _, k := range []symbols.AccessorKind{symbols.AccessorBody, symbols.AccessorGet, symbols.AccessorSet, symbols.AccessorAdd, symbols.AccessorRemove} {
		if _, ok := m.Bodies[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// WeavingResult is the self-contained outcome for one declaration: the
// primary member first, then helpers outermost first, then fields and
// proxies. It holds no unresolved invoke requests.
type WeavingResult struct {
	Decl      symbols.DeclID
	Qualified string
	Type      string
	Status    Status
	Members   []*EmittedMember
	// SourceRenamedTo is set for partial declarations whose implementing part
	// the emitter must rename, because a link now calls it under that name.
	SourceRenamedTo string
	Layers          []string // Applied layers, outermost first
	Inlined         []string // Layers (or "source") spliced into their caller
	Diagnostics     []*diagnostics.DiagnosticError
	Fingerprint     uuid.UUID
}

// Primary returns the public member, or nil when nothing was emitted.
func (r *WeavingResult) Primary() *EmittedMember {
	for _, m := range r.Members {
		if m.Role == RolePrimary {
			return m
		}
	}
	return nil
}

// Member finds an emitted member by name.
func (r *WeavingResult) Member(name string) *EmittedMember {
	for _, m := range r.Members {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Output is the outcome of one weaving pass, results in declaration order.
type Output struct {
	Results     []*WeavingResult
	Diagnostics []*diagnostics.DiagnosticError
}

// Result returns the result for a declaration, or nil.
func (o *Output) Result(id symbols.DeclID) *WeavingResult {
	for _, r := range o.Results {
		if r.Decl == id {
			return r
		}
	}
	return nil
}

// Woven returns the results that replace members.
func (o *Output) Woven() []*WeavingResult {
	var out []*WeavingResult
	for _, r := range o.Results {
		if r.Status == StatusWoven {
			out = append(out, r)
		}
	}
	return out
}
