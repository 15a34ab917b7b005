// Package invoker binds the invoke requests of candidate bodies to concrete
// targets: a link of some declaration's chain, the public member, a base
// member, or nothing at all.
package invoker

import (
	"github.com/funvibe/weaver/internal/ast"
	"github.com/funvibe/weaver/internal/diagnostics"
	"github.com/funvibe/weaver/internal/symbols"
	"github.com/funvibe/weaver/internal/transform"
)

type TargetKind int

const (
	TargetLink  TargetKind = iota // Link Index of Decl's chain; 0 is the declaration itself
	TargetFinal                   // The public member, with virtual dispatch
	TargetBase                    // base.M, non-virtual call into the base type
	TargetNone                    // Nothing below: default value, or no statement
)

func (k TargetKind) String() string {
	switch k {
	case TargetLink:
		return "link"
	case TargetFinal:
		return "final"
	case TargetBase:
		return "base"
	}
	return "none"
}

// Target is a resolved invoke request.
type Target struct {
	Kind     TargetKind
	Decl     symbols.DeclID
	Accessor symbols.AccessorKind
	Index    int
	Static   string // Declaring type name when the member is static
	Explicit bool   // Receiver is an explicit instance expression
}

// Chains exposes the planned chains: for each declaration, the layers that
// own a link, outermost first, and what lies below the last one.
type Chains interface {
	Layers(decl symbols.DeclID) []transform.LayerID
	// HasSource reports whether the chain ends in a body of its own
	// (original, synthesized or introduced), at index len(Layers(decl)).
	HasSource(decl symbols.DeclID) bool
	// Inherited is the base member reachable through base. from the bottom of
	// the chain, or NoDecl.
	Inherited(decl symbols.DeclID) symbols.DeclID
	Rank(layer transform.LayerID) int
}

// Context locates the body a request appears in.
type Context struct {
	Decl      symbols.DeclID
	Accessor  symbols.AccessorKind
	Layer     transform.LayerID
	Qualified string // For diagnostics
	Bottom    bool   // The request sits in the body at the bottom of Decl's chain
}

type Resolver struct {
	comp   *symbols.Compilation
	chains Chains
}

func NewResolver(comp *symbols.Compilation, chains Chains) *Resolver {
	return &Resolver{comp: comp, chains: chains}
}

// Resolve binds one request. It never guesses: requests without a single
// documented interpretation are reported.
func (r *Resolver) Resolve(ctx Context, req *ast.ProceedExpression) (Target, *diagnostics.DiagnosticError) {
	layer := string(ctx.Layer)
	fail := func(code diagnostics.ErrorCode, format string, args ...interface{}) (Target, *diagnostics.DiagnosticError) {
		return Target{}, diagnostics.NewError(code, ctx.Qualified, layer, format, args...)
	}

	self := r.comp.Declaration(ctx.Decl)
	if self == nil {
		return fail(diagnostics.ErrW009, "unknown declaration %d", ctx.Decl)
	}
	memberID := req.Member
	if memberID == symbols.NoDecl {
		memberID = ctx.Decl
	}
	member := r.comp.Declaration(memberID)
	if member == nil {
		return fail(diagnostics.ErrW009, "invoke request targets unknown declaration %d", memberID)
	}
	own := memberID == ctx.Decl
	implicit := req.ImplicitReceiver()
	if _, isType := req.Receiver.(*ast.TypeName); isType {
		implicit = true
	}

	accessor := req.Accessor
	if accessor == symbols.AccessorBody && member.Kind != symbols.MethodDecl {
		if own {
			accessor = ctx.Accessor
		} else if member.Kind == symbols.PropertyDecl {
			accessor = symbols.AccessorGet
		}
	}
	if !member.HasAccessor(accessor) {
		return fail(diagnostics.ErrW011, "%s has no %s accessor", r.comp.QualifiedName(memberID), accessor)
	}
	if req.Args == nil && member.Kind == symbols.MethodDecl && len(member.Params) != len(self.Params) {
		return fail(diagnostics.ErrW011, "invoke of %s must pass its %d arguments explicitly",
			r.comp.QualifiedName(memberID), len(member.Params))
	}
	if member.Static && !implicit {
		return fail(diagnostics.ErrW011, "static member %s invoked on an instance", r.comp.QualifiedName(memberID))
	}

	sem := req.Semantics
	if sem == ast.SemanticsDefault {
		if own && implicit {
			sem = ast.SemanticsBase
		} else {
			sem = ast.SemanticsCurrent
		}
	}

	t := Target{Decl: memberID, Accessor: accessor, Explicit: !implicit}
	if member.Static {
		t.Static = r.typeName(member.Type)
	}

	related := r.comp.Related(self.Type, member.Type)
	if !related {
		switch {
		case sem == ast.SemanticsBase:
			return fail(diagnostics.ErrW003, "no base version of %s is reachable from %s",
				r.comp.QualifiedName(memberID), r.typeName(self.Type))
		case sem == ast.SemanticsCurrent && req.Semantics == ast.SemanticsCurrent:
			return fail(diagnostics.ErrW002, "current version of %s is not addressable from the unrelated type %s",
				r.comp.QualifiedName(memberID), r.typeName(self.Type))
		case implicit && !member.Static:
			return fail(diagnostics.ErrW002, "%s is declared on the unrelated type %s; an explicit receiver is required",
				r.comp.QualifiedName(memberID), r.typeName(member.Type))
		}
		t.Kind = TargetFinal
		return t, nil
	}

	rank := r.chains.Rank(ctx.Layer)
	switch sem {
	case ast.SemanticsFinal:
		t.Kind = TargetFinal
		if implicit {
			t.Decl = r.comp.MostDerivedVisible(self.Type, memberID)
		}
		return t, nil

	case ast.SemanticsCurrent:
		visible := memberID
		if implicit {
			visible = r.comp.MostDerivedVisible(self.Type, memberID)
		}
		t.Decl = visible
		if r.comp.Declaration(visible).Type != self.Type {
			t.Kind = TargetFinal
			return t, nil
		}
		return r.version(t, rank, true, who(ctx))

	default: // base
		if member.Type != self.Type {
			if !r.comp.IsSubtype(self.Type, member.Type) {
				return fail(diagnostics.ErrW003, "%s is declared on a derived type; base semantics cannot reach it",
					r.comp.QualifiedName(memberID))
			}
			visible := r.comp.MostDerivedVisible(self.Type, memberID)
			vd := r.comp.Declaration(visible)
			if visible == memberID || vd.Type != self.Type || r.comp.IsHiding(vd) || !implicit {
				if !implicit {
					return fail(diagnostics.ErrW003, "base version of %s cannot be invoked on another instance",
						r.comp.QualifiedName(memberID))
				}
				t.Kind = TargetBase
				t.Static = ""
				if member.Static {
					t.Static = r.typeName(member.Type)
				}
				return t, nil
			}
			// An override in this type occupies the same slot as the base member.
			t.Decl = visible
			memberID = visible
		}
		target, err := r.version(t, rank, false, who(ctx))
		if err != nil && own && req.Semantics == ast.SemanticsDefault {
			return Target{Kind: TargetNone, Decl: memberID, Accessor: accessor}, nil
		}
		if err == nil && target.Kind == TargetBase && !implicit {
			return fail(diagnostics.ErrW003, "base version of %s cannot be invoked on another instance",
				r.comp.QualifiedName(memberID))
		}
		return target, err
	}
}

type requester struct {
	decl      symbols.DeclID
	bottom    bool
	qualified string
	layer     string
}

func who(ctx Context) requester {
	return requester{decl: ctx.Decl, bottom: ctx.Bottom, qualified: ctx.Qualified, layer: string(ctx.Layer)}
}

// version picks the link of t.Decl visible at rank: the outermost link whose
// layer is inner to (or, when inclusive, equal to) the requesting layer.
func (r *Resolver) version(t Target, rank int, inclusive bool, req requester) (Target, *diagnostics.DiagnosticError) {
	layers := r.chains.Layers(t.Decl)
	for i, id := range layers {
		lr := r.chains.Rank(id)
		if lr > rank || (inclusive && lr == rank) {
			t.Kind = TargetLink
			t.Index = i
			return t, nil
		}
	}
	// The bottom body is not below itself.
	below := !(req.bottom && req.decl == t.Decl && !inclusive)
	if below && r.chains.HasSource(t.Decl) {
		t.Kind = TargetLink
		t.Index = len(layers)
		return t, nil
	}
	if inherited := r.chains.Inherited(t.Decl); inherited != symbols.NoDecl {
		t.Kind = TargetBase
		t.Decl = inherited
		return t, nil
	}
	what := "base"
	if inclusive {
		what = "current"
	}
	return Target{}, diagnostics.NewError(diagnostics.ErrW003, req.qualified, req.layer,
		"no %s implementation of %s exists below this layer", what, r.comp.QualifiedName(t.Decl))
}

func (r *Resolver) typeName(id symbols.TypeID) string {
	if t := r.comp.Type(id); t != nil {
		return t.Name
	}
	return ""
}
