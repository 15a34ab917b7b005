// Package weaver merges the transformations of every declaration into a
// final implementation: one public member whose body chains the layers
// outermost first, plus the helper members for links that could not be
// inlined into their caller.
//
// A weaving pass has two stages. Planning and analysis run once for the
// whole compilation, because invoke requests may reach the chains of other
// declarations. Emission then runs per declaration, in parallel, over the
// immutable analysis.
package weaver

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/funvibe/weaver/internal/config"
	"github.com/funvibe/weaver/internal/diagnostics"
	"github.com/funvibe/weaver/internal/ordering"
	"github.com/funvibe/weaver/internal/symbols"
	"github.com/funvibe/weaver/internal/transform"
)

// Session is the explicit context of weaving passes over one compilation.
// It holds no state between passes, so concurrent Weave calls are safe.
type Session struct {
	comp        *symbols.Compilation
	cfg         *config.Config
	logger      *zap.Logger
	constraints []ordering.Constraint
}

type Option func(*Session)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConstraints adds precedence constraints to those of the configuration.
func WithConstraints(cs ...ordering.Constraint) Option {
	return func(s *Session) {
		s.constraints = append(s.constraints, cs...)
	}
}

func NewSession(comp *symbols.Compilation, cfg *config.Config, opts ...Option) *Session {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Session{comp: comp, cfg: cfg, logger: zap.NewNop()}
	for _, p := range cfg.Precedence {
		s.constraints = append(s.constraints, ordering.Constraint{Before: p.Before, After: p.After})
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Session) Compilation() *symbols.Compilation { return s.comp }

func (s *Session) Config() *config.Config { return s.cfg }

func (s *Session) Logger() *zap.Logger { return s.logger }

// Constraints returns the precedence constraints in effect.
func (s *Session) Constraints() []ordering.Constraint {
	return append([]ordering.Constraint(nil), s.constraints...)
}

// Orderer builds the precedence graph over every layer of sets.
func (s *Session) Orderer(sets []*transform.TransformationSet) *ordering.Orderer {
	return ordering.Build(collectLayers(sets), s.constraints)
}

// Weave weaves every set. Diagnostics never fail the pass: a declaration with
// errors is reported as skipped and keeps its original members. The returned
// error is non-nil only when ctx ends before the pass completes.
func (s *Session) Weave(ctx context.Context, sets []*transform.TransformationSet) (*Output, error) {
	p := newPass(s, sets)
	p.plan()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.analyze()

	results := make([]*WeavingResult, len(p.chains))
	limit := s.cfg.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, c := range p.chains {
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := p.emit(c)
			if err != nil {
				return fmt.Errorf("weaving %s: %w", c.qualified, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Output{Results: results}
	for _, r := range results {
		out.Diagnostics = append(out.Diagnostics, r.Diagnostics...)
		switch r.Status {
		case StatusSkipped:
			s.logger.Warn("declaration skipped", zap.String("declaration", r.Qualified),
				zap.Int("errors", countErrors(r.Diagnostics)))
		case StatusWoven:
			s.logger.Debug("declaration woven", zap.String("declaration", r.Qualified),
				zap.Int("members", len(r.Members)), zap.Strings("inlined", r.Inlined))
		}
	}
	out.Diagnostics = append(out.Diagnostics, p.globalDiags...)
	diagnostics.Sort(out.Diagnostics)
	return out, nil
}

// WeaveAll is a convenience for a single pass with a fresh session.
func WeaveAll(ctx context.Context, comp *symbols.Compilation, cfg *config.Config, sets []*transform.TransformationSet, opts ...Option) (*Output, error) {
	return NewSession(comp, cfg, opts...).Weave(ctx, sets)
}

func collectLayers(sets []*transform.TransformationSet) []transform.Layer {
	seen := make(map[transform.LayerID]bool)
	var out []transform.Layer
	for _, set := range sets {
		for _, l := range set.Layers() {
			if !seen[l.ID()] {
				seen[l.ID()] = true
				out = append(out, l)
			}
		}
	}
	return out
}

func countErrors(diags []*diagnostics.DiagnosticError) int {
	n := 0
	for _, d := range diags {
		if d.IsError() {
			n++
		}
	}
	return n
}
