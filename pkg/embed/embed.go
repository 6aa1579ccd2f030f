// Package embed is the host embedding surface spec.md 6 names: create a
// context, initialize standard globals, compile a source string to a
// script, execute it in a scope, interrupt a running context, and register
// a host object onto the global scope. Grounded on funxy's own host-facing
// entry points in cmd/funxy/main.go (one process-wide VM, one global
// environment, a thin compile-then-run wrapper), generalized from a
// single-shot CLI invocation into a reusable, embeddable API.
package embed

import (
	"context"

	"github.com/ecmavm/engine/internal/bytecode"
	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/pipeline"
	"github.com/ecmavm/engine/internal/runtime"
	"github.com/ecmavm/engine/internal/vm"
)

// Context is one embedding session: a VM with its own Realm (global object,
// intrinsic prototypes, microtask queue), independent of any other Context
// in the same process. Spec.md 5's process-wide state (the Symbol registry,
// the shared regex proxy) is still shared across every Context, by design —
// only the Realm is per-context.
type Context struct {
	vm *vm.VM
}

// NewContext creates a context with standard globals already installed
// (internal/vm's bootstrapRealm wires internal/stdlib's Bootstrap in, so
// there is no separate "initialize standard globals" step to call here).
func NewContext() *Context {
	return &Context{vm: vm.New()}
}

// Interrupt arranges for the context's currently-running (or next) Run call
// to stop once ctx is done, via the VM's own opcode-budget cancellation
// check (spec.md 5's "check every N opcodes"/funxy's vm.Context field).
func (c *Context) Interrupt(ctx context.Context) {
	c.vm.SetContext(ctx)
}

// Script is a compiled, runnable unit: a parsed and compiled source string,
// kept separate from Context so one Script can be run against multiple
// contexts (or the same context repeatedly) without recompiling.
type Script struct {
	SourcePath string
	Descriptor *bytecode.Descriptor
}

// Compile parses and compiles src into a reusable Script. Parse/compile
// errors are returned as a single combined error; partial results are
// discarded, since a descriptor compiled from a program with errors isn't
// safe to hand to the VM (consistent with funxy's own "errors abort
// execution" CLI behavior, even though the front-end pipeline itself keeps
// going to collect every diagnostic for a host like an LSP).
func Compile(sourcePath, src string) (*Script, error) {
	desc, errs := pipeline.CompileSource(sourcePath, src)
	if len(errs) > 0 {
		return nil, combineErrors(errs)
	}
	return &Script{SourcePath: sourcePath, Descriptor: desc}, nil
}

// Run executes script against the context's global scope, returning the
// top-level completion value or a script-level thrown error.
func (c *Context) Run(script *Script) (object.Value, *runtime.EcmaError) {
	return c.vm.RunProgram(script.Descriptor)
}

// RegisterGlobal installs a host-provided value as a named global, the
// "register a host object" operation spec.md 6 names — e.g. exposing a Go
// function as a callable, or a struct-backed object as a namespace.
func (c *Context) RegisterGlobal(name string, v object.Value) {
	c.vm.Realm().Global.DefineRaw(object.StringKey(name), object.DataSlot(v, true, false, true))
}

// Realm exposes the underlying runtime.Realm for callers that need lower-
// level access (building a native function via runtime.NewNativeFunction
// before handing it to RegisterGlobal, for instance).
func (c *Context) Realm() *runtime.Realm {
	return c.vm.Realm()
}

type multiError struct {
	errs []error
}

func combineErrors(errs []error) error {
	return &multiError{errs: errs}
}

func (m *multiError) Error() string {
	if len(m.errs) == 1 {
		return m.errs[0].Error()
	}
	s := m.errs[0].Error()
	for _, e := range m.errs[1:] {
		s += "; " + e.Error()
	}
	return s
}

func (m *multiError) Unwrap() []error { return m.errs }
