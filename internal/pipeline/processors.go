package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/funvibe/weaver/internal/diagnostics"
	"github.com/funvibe/weaver/internal/evaluator"
	"github.com/funvibe/weaver/internal/prettyprinter"
	"github.com/funvibe/weaver/internal/project"
	"github.com/funvibe/weaver/internal/symbols"
	"github.com/funvibe/weaver/internal/transform"
	"github.com/funvibe/weaver/internal/weaver"
)

// LoadProcessor decodes the model into a compilation and transformation sets.
type LoadProcessor struct{}

func (p *LoadProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Err != nil {
		return ctx
	}
	var (
		proj  *project.Project
		diags []*diagnostics.DiagnosticError
		err   error
	)
	if ctx.Source == nil {
		proj, diags, err = project.Load(ctx.FilePath)
	} else {
		proj, diags, err = project.Parse(ctx.Source, ctx.FilePath)
	}
	if err != nil {
		ctx.Err = err
		return ctx
	}
	ctx.Project = proj
	ctx.Errors = append(ctx.Errors, diags...)
	ctx.Logger.Debug("model loaded", zap.String("path", ctx.FilePath),
		zap.Int("declarations", len(proj.Compilation.Declarations())),
		zap.Int("sets", len(proj.Sets)))
	return ctx
}

// OrderProcessor opens the weaving session and orders every layer of the
// pass.
type OrderProcessor struct{}

func (p *OrderProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Err != nil || ctx.Project == nil {
		return ctx
	}
	ctx.Session = weaver.NewSession(ctx.Project.Compilation, ctx.Config, weaver.WithLogger(ctx.Logger))
	o := ctx.Session.Orderer(ctx.Project.Sets)

	seen := make(map[transform.LayerID]bool)
	var layers []transform.Layer
	for _, s := range ctx.Project.Sets {
		for _, l := range s.Layers() {
			if !seen[l.ID()] {
				seen[l.ID()] = true
				layers = append(layers, l)
			}
		}
	}
	ordered, err := o.Order(layers)
	if err != nil {
		// Layers of a cycle keep their rank; only declarations touching two
		// of them fail.
		ordered = layers
		sort.SliceStable(ordered, func(i, j int) bool { return o.Rank(ordered[i].ID()) < o.Rank(ordered[j].ID()) })
	}
	ctx.Layers = ordered
	ctx.Cycles = o.Cycles()
	for _, c := range ctx.Cycles {
		ctx.Logger.Debug("precedence cycle", zap.Strings("nodes", c))
	}
	return ctx
}

// WeaveProcessor runs the weaving pass.
type WeaveProcessor struct{}

func (p *WeaveProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Err != nil || ctx.Session == nil {
		return ctx
	}
	out, err := ctx.Session.Weave(ctx.Context, ctx.Project.Sets)
	if err != nil {
		ctx.Err = fmt.Errorf("weaving %s: %w", ctx.FilePath, err)
		return ctx
	}
	ctx.Output = out
	ctx.Errors = append(ctx.Errors, out.Diagnostics...)
	return ctx
}

// VerifyProcessor checks that the members emitted into each type do not
// collide with one another or with the members weaving leaves in place. A
// declaration whose members collide is skipped and keeps its original
// members.
type VerifyProcessor struct{}

func (p *VerifyProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Err != nil || ctx.Output == nil {
		return ctx
	}
	comp := ctx.Project.Compilation
	for _, t := range comp.Types() {
		owners := make(map[string]string)
		for _, id := range t.Members {
			d := comp.Declaration(id)
			if r := ctx.Output.Result(id); r != nil && (r.Status == weaver.StatusWoven || r.Status == weaver.StatusDropped) {
				continue
			}
			if d.Introduced {
				continue
			}
			owners[declKey(d)] = comp.QualifiedName(id)
		}
		for _, r := range ctx.Output.Woven() {
			if r.Type != t.Name {
				continue
			}
			keys := make([]string, 0, len(r.Members)+1)
			for _, m := range r.Members {
				keys = append(keys, memberKey(m))
			}
			if r.SourceRenamedTo != "" {
				d := comp.Declaration(r.Decl)
				keys = append(keys, signature(r.SourceRenamedTo, d.Kind, d.Params))
			}
			var collisions []*diagnostics.DiagnosticError
			for _, k := range keys {
				if other, ok := owners[k]; ok {
					collisions = append(collisions, diagnostics.NewError(diagnostics.ErrW013, r.Qualified, "",
						"emitted member %s collides with %s", k, other))
				}
			}
			if len(collisions) == 0 {
				for _, k := range keys {
					owners[k] = r.Qualified
				}
				continue
			}
			ctx.Errors = append(ctx.Errors, collisions...)
			r.Diagnostics = append(r.Diagnostics, collisions...)
			r.Members = nil
			r.SourceRenamedTo = ""
			r.Status = weaver.StatusSkipped
			if d := comp.Declaration(r.Decl); d != nil && !d.Introduced {
				owners[declKey(d)] = r.Qualified
			}
			ctx.Logger.Debug("declaration skipped", zap.String("declaration", r.Qualified), zap.Int("collisions", len(collisions)))
		}
	}
	diagnostics.Sort(ctx.Errors)
	return ctx
}

func declKey(d *symbols.Declaration) string {
	return signature(d.Name, d.Kind, d.Params)
}

func memberKey(m *weaver.EmittedMember) string {
	name := m.Name
	if m.Interface != "" {
		name = m.Interface + "." + name
	}
	if m.Role == weaver.RoleBackingField {
		return signature(name, symbols.PropertyDecl, nil)
	}
	return signature(name, m.Kind, m.Params)
}

// signature identifies a member among the members of its type. Only methods
// overload.
func signature(name string, kind symbols.DeclKind, params []symbols.Parameter) string {
	if kind != symbols.MethodDecl {
		return name
	}
	types := make([]string, len(params))
	for i, p := range params {
		types[i] = p.Type
	}
	return name + "(" + strings.Join(types, ",") + ")"
}

// EmitProcessor prints the woven members.
type EmitProcessor struct{}

func (p *EmitProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Err != nil || ctx.Output == nil {
		return ctx
	}
	ctx.Printed = prettyprinter.PrintOutput(ctx.Output)
	return ctx
}

// TraceProcessor runs the requested calls, each on a fresh evaluator.
type TraceProcessor struct{}

func (p *TraceProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Err != nil || ctx.Project == nil || len(ctx.Calls) == 0 {
		return ctx
	}
	out := ctx.Output
	if ctx.FromSource {
		out = nil
	} else if out == nil {
		return ctx
	}
	program := evaluator.NewProgram(ctx.Project.Compilation, ctx.Project.Sets, out)
	for _, c := range ctx.Calls {
		res, lines, err := evaluator.New(program).Call(ctx.Context, c.Member, c.Args...)
		ctx.Traces = append(ctx.Traces, Trace{Call: c, Result: res, Output: lines, Err: err})
		if err != nil {
			ctx.Logger.Debug("call failed", zap.String("call", c.Text), zap.Error(err))
		}
	}
	return ctx
}
