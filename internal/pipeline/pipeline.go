// Package pipeline runs a weaving pass as a sequence of stages over a shared
// context: load the model, order its layers, weave, verify the result, emit
// source and run traces.
package pipeline

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Default is the full weaving pipeline.
func Default() *Pipeline {
	return New(
		&LoadProcessor{},
		&OrderProcessor{},
		&WeaveProcessor{},
		&VerifyProcessor{},
		&EmitProcessor{},
		&TraceProcessor{},
	)
}

// Run executes the pipeline.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
		// Continue on diagnostics so every stage can report its own; stages
		// skip themselves when what they need is missing.
	}
	return ctx
}
