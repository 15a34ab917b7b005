package invoker

import (
	"github.com/funvibe/weaver/internal/ast"
	"github.com/funvibe/weaver/internal/symbols"
)

// Namer names emitted members. MemberName is the public name of a
// declaration, which an introduction may have changed; LinkName(d, 0) equals
// MemberName(d).
type Namer interface {
	MemberName(decl symbols.DeclID) string
	LinkName(decl symbols.DeclID, index int) string
}

// Render turns a resolved target into the expression that performs the
// invocation. It returns nil for TargetNone on accessors without a value.
func (r *Resolver) Render(t Target, req *ast.ProceedExpression, from symbols.DeclID, names Namer) ast.Expression {
	d := r.comp.Declaration(t.Decl)
	if t.Kind == TargetNone {
		if d.ReturnsValue(t.Accessor) {
			return &ast.DefaultExpression{Type: d.ValueType(t.Accessor)}
		}
		return nil
	}

	name := names.MemberName(t.Decl)
	if t.Kind == TargetLink {
		name = names.LinkName(t.Decl, t.Index)
	}

	access := ast.Member(r.receiver(t, req), name)
	switch t.Accessor {
	case symbols.AccessorGet:
		return access
	case symbols.AccessorSet:
		return ast.Assign(access, "=", r.valueArg(req))
	case symbols.AccessorAdd:
		return ast.Assign(access, "+=", r.valueArg(req))
	case symbols.AccessorRemove:
		return ast.Assign(access, "-=", r.valueArg(req))
	}
	return ast.Call(access, r.args(req, from)...)
}

func (r *Resolver) receiver(t Target, req *ast.ProceedExpression) ast.Expression {
	switch {
	case t.Static != "":
		return &ast.TypeName{Name: t.Static}
	case t.Kind == TargetBase:
		return &ast.BaseExpression{}
	case t.Explicit:
		return ast.CloneExpression(req.Receiver)
	}
	return &ast.ThisExpression{}
}

func (r *Resolver) valueArg(req *ast.ProceedExpression) ast.Expression {
	if len(req.Args) > 0 {
		return ast.CloneExpression(req.Args[0])
	}
	return ast.Ident("value")
}

func (r *Resolver) args(req *ast.ProceedExpression, from symbols.DeclID) []ast.Expression {
	if req.Args != nil {
		out := make([]ast.Expression, len(req.Args))
		for i, a := range req.Args {
			out[i] = ast.CloneExpression(a)
		}
		return out
	}
	return ForwardedArgs(r.comp.Declaration(from))
}

// ForwardedArgs passes the declaration's own parameters through.
func ForwardedArgs(d *symbols.Declaration) []ast.Expression {
	out := make([]ast.Expression, len(d.Params))
	for i, p := range d.Params {
		out[i] = ast.Ident(p.Name)
	}
	return out
}

// Forwards reports whether the request passes exactly the declaration's own
// parameters (or the implicit value), which inlining requires.
func Forwards(req *ast.ProceedExpression, d *symbols.Declaration, a symbols.AccessorKind) bool {
	if req.Args == nil {
		return true
	}
	if a != symbols.AccessorBody {
		if len(req.Args) != 1 {
			return false
		}
		id, ok := req.Args[0].(*ast.Identifier)
		return ok && id.Name == "value" && id.Up == 0
	}
	if len(req.Args) != len(d.Params) {
		return false
	}
	for i, arg := range req.Args {
		id, ok := arg.(*ast.Identifier)
		if !ok || id.Name != d.Params[i].Name || id.Up != 0 {
			return false
		}
	}
	return true
}
