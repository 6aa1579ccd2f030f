// Package pipeline chains source text through parsing and compilation into
// a runnable bytecode.Descriptor, grounded on funxy's own internal/pipeline
// package: a Pipeline runs a fixed list of Processor stages over a shared
// PipelineContext, continuing past a stage's errors rather than aborting
// (funxy's own doc note: "e.g. LSP needs both parse and semantic errors").
package pipeline

import (
	"github.com/ecmavm/engine/internal/ast"
	"github.com/ecmavm/engine/internal/bytecode"
	"github.com/ecmavm/engine/internal/compiler"
	"github.com/ecmavm/engine/internal/parser"
)

// PipelineContext threads a single compilation unit's state through every
// stage: source in, descriptor out, diagnostics accumulated along the way.
type PipelineContext struct {
	SourcePath string
	Source     string

	Program    *ast.Program
	Descriptor *bytecode.Descriptor

	Errors []error
}

// Processor is one pipeline stage. It must not mutate ctx's identity (it
// returns the context to allow a stage to swap in a wrapped/derived one,
// but every built-in stage here just mutates ctx's fields and returns it
// unchanged).
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline runs a fixed sequence of stages over one PipelineContext.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes every stage in order, continuing even after a stage appends
// errors to ctx.Errors so later stages (and their own diagnostics) still
// run — matching funxy's own Pipeline.Run.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
	}
	return ctx
}

// ParseStage turns ctx.Source into ctx.Program via the front end's parser.
type ParseStage struct{}

func (ParseStage) Process(ctx *PipelineContext) *PipelineContext {
	prog, errs := parser.Parse(ctx.Source)
	ctx.Program = prog
	for _, e := range errs {
		ctx.Errors = append(ctx.Errors, e)
	}
	return ctx
}

// CompileStage turns ctx.Program into ctx.Descriptor via the compiler.
// Skipped (not a failure) if an earlier stage left ctx.Program nil.
type CompileStage struct{}

func (CompileStage) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Program == nil {
		return ctx
	}
	desc, errs := compiler.Compile(ctx.Program)
	ctx.Descriptor = desc
	for _, e := range errs {
		ctx.Errors = append(ctx.Errors, e)
	}
	return ctx
}

// Standard is the parse-then-compile pipeline every front-end entry point
// (cmd/esrun, pkg/embed) runs a source string through.
func Standard() *Pipeline {
	return New(ParseStage{}, CompileStage{})
}

// CompileSource is the common-case one-shot helper: parse and compile src,
// returning the descriptor plus every diagnostic collected along the way.
func CompileSource(sourcePath, src string) (*bytecode.Descriptor, []error) {
	ctx := Standard().Run(&PipelineContext{SourcePath: sourcePath, Source: src})
	return ctx.Descriptor, ctx.Errors
}
