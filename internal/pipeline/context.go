package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/funvibe/weaver/internal/config"
	"github.com/funvibe/weaver/internal/diagnostics"
	"github.com/funvibe/weaver/internal/project"
	"github.com/funvibe/weaver/internal/transform"
	"github.com/funvibe/weaver/internal/weaver"
)

// Processor is one stage of a pipeline.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// PipelineContext carries the inputs of a weaving pass and what each stage
// produces.
type PipelineContext struct {
	Context  context.Context
	FilePath string
	Source   []byte // Model content; read from FilePath when nil
	Config   *config.Config
	Logger   *zap.Logger

	Project *project.Project
	Session *weaver.Session
	Layers  []transform.Layer // Every layer of the pass, outermost first
	Cycles  [][]string        // Precedence cycles between layer nodes
	Output  *weaver.Output
	Printed string // Woven members as source

	Calls      []Call // Members to trace after weaving
	FromSource bool   // Trace the unwoven sources instead
	Traces     []Trace

	// Errors collects diagnostics of every stage.
	Errors []*diagnostics.DiagnosticError
	// Err is an infrastructure failure; later stages do nothing.
	Err error
}

func NewPipelineContext(path string, source []byte) *PipelineContext {
	return &PipelineContext{
		Context:  context.Background(),
		FilePath: path,
		Source:   source,
		Config:   config.Default(),
		Logger:   zap.NewNop(),
	}
}

// Failed reports whether the pass produced an error diagnostic or failed.
func (ctx *PipelineContext) Failed() bool {
	return ctx.Err != nil || diagnostics.HasErrors(ctx.Errors)
}
