// Package vm implements spec.md 4.E's interpreter engine: the stack-based
// dispatch loop that consumes an internal/bytecode.Descriptor and drives
// internal/runtime's semantic operations forward, the only layer that
// actually runs script code (it is the concrete internal/runtime.Invoker
// every coercion/getter/iterator call eventually bottoms out in). Grounded
// on funxy's internal/vm package split (vm.go's VM/CallFrame shape,
// vm_exec.go's fetch-decode-dispatch step loop, vm_calls.go's call
// sequence), generalized from funxy's slot-indexed locals and fixed
// Integer/Float/BigInt/Rational value set to this engine's name-based
// scope chain (internal/scope) and spec.md 4.A's tagged Value union.
package vm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ecmavm/engine/internal/bytecode"
	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/runtime"
	"github.com/ecmavm/engine/internal/scope"
)

// Initial/growth sizing for a Frame's operand stack, grounded on funxy's
// vm.go InitialStackSize/StackGrowthIncrement constants.
const (
	initialOperandStack = 64
	maxFrameDepth        = 4096
)

var errStackOverflow = fmt.Errorf("Maximum call stack size exceeded")

// pendingRegister holds the operand a REG_STR*/REG_IND*/REG_BIGINT2 opcode
// preloaded for the very next instruction, per spec.md 4.D's register-preload
// prefix family (internal/compiler's emitName/emitIndex/emitBigInt). Exactly
// one of these is populated at a time; the consuming opcode clears it after
// reading, so a malformed stream that never preloads a register for an
// opcode that needs one reads a zero value rather than stale state.
type pendingRegister struct {
	hasStr bool
	str    string
	hasInd bool
	ind    int
	hasBig bool
	big    *big.Int
}

// subEntry is one entry of a Frame's GOSUB/RETSUB stack (internal/compiler's
// compileTry), used both for a normal fallthrough into a finally block (an
// explicit OpGosub in the bytecode, resumed by jumping back to the return
// address) and for an exception-driven entry into a finally block (resumed
// by re-raising the pending throw once OpRetSub runs), per
// bytecode.Descriptor's own ExceptionHandler.IsFinally doc comment.
type subEntry struct {
	isThrow  bool
	thrown   object.Value
	returnTo int
}

// Frame is one function activation's execution state: the descriptor being
// run, the instruction pointer, the lexical scope chain (wrapped/unwrapped
// by OpPushBlockScope/OpPopBlockScope/OpEnterWith/OpLeaveWith as execution
// proceeds), and a private operand stack. Unlike funxy's single shared value
// stack sliced by frame.base (funxy's locals are stack slots), this engine
// resolves every binding by name through internal/scope, so a frame's
// operand stack only ever holds transient expression-evaluation values —
// there is no slot layout to share across frames, so each Frame owns its
// stack outright.
type Frame struct {
	desc  *bytecode.Descriptor
	ip    int
	scope scope.Scope

	stack []object.Value

	fn        *object.Object // the function object being executed, for HomeObject/super
	activation *scope.Activation

	reg pendingRegister

	// lastPopped is OpPopResult's destination — a "return register" an
	// expression statement's trailing discard can stash into for the
	// debugger/REPL to read back (declared but never emitted by the current
	// compiler, which uses plain OpPop; kept populated anyway so inspecting
	// it is never stale).
	lastPopped object.Value

	subStack []subEntry

	// perIterBase is not read by any opcode: COPY_PER_ITER_SCOPE clones
	// only the innermost block scope, directly from frame.scope.
	perIterBase scope.Scope

	// genCtx is non-nil only for the top frame of a generator body's
	// execution (generator.go's runGeneratorBody), letting OpYield/
	// OpYieldStar find their suspend/resume channel pair without threading
	// it through every call in between.
	genCtx *generatorContext
}

func (f *Frame) takeRegStr() (string, bool) {
	if !f.reg.hasStr {
		return "", false
	}
	s := f.reg.str
	f.reg.hasStr, f.reg.str = false, ""
	return s, true
}

func (f *Frame) takeRegInd() (int, bool) {
	if !f.reg.hasInd {
		return 0, false
	}
	n := f.reg.ind
	f.reg.hasInd, f.reg.ind = false, 0
	return n, true
}

func (f *Frame) takeRegBig() (*big.Int, bool) {
	if !f.reg.hasBig {
		return nil, false
	}
	b := f.reg.big
	f.reg.hasBig, f.reg.big = false, nil
	return b, true
}

func (f *Frame) isStrict() bool {
	return f.desc != nil && f.desc.IsStrict
}

// activationThis resolves `this` the way an arrow function's body must:
// through the nearest non-arrow activation in the scope chain, rather than
// this frame's own (possibly absent, for an arrow) activation.
func (f *Frame) activationThis() object.Value {
	act := scope.NearestNonArrowActivation(f.scope)
	if act == nil {
		return object.Undefined
	}
	return act.This
}

func newFrame(desc *bytecode.Descriptor, fn *object.Object, parentScope scope.Scope, act *scope.Activation) *Frame {
	var sc scope.Scope
	if act != nil {
		sc = scope.NewCallScope(parentScope, act)
	} else {
		sc = parentScope
	}
	return &Frame{
		desc:       desc,
		fn:         fn,
		scope:      sc,
		activation: act,
		stack:      make([]object.Value, 0, initialOperandStack),
	}
}

func (f *Frame) push(v object.Value) { f.stack = append(f.stack, v) }

func (f *Frame) pop() object.Value {
	n := len(f.stack)
	v := f.stack[n-1]
	f.stack = f.stack[:n-1]
	return v
}

func (f *Frame) peek(distance int) object.Value {
	return f.stack[len(f.stack)-1-distance]
}

func (f *Frame) popN(n int) []object.Value {
	out := make([]object.Value, n)
	copy(out, f.stack[len(f.stack)-n:])
	f.stack = f.stack[:len(f.stack)-n]
	return out
}

// VM is the interpreter engine of spec.md 4.E: an explicit frame stack driven
// by calls.go's invokeFunction, which recurses at the Go level once per
// nested script call (pushing a Frame, running it via runFrame, popping it
// before returning) — maxFrameDepth below is what actually turns a runaway
// script call chain into a script-observable RangeError rather than a Go
// stack overflow panic, since pushFrame checks it before every Go-level
// recursion. A Realm holds the intrinsic prototypes and global object, and
// checkBudget below implements the cancellation/budget hook spec.md 5 names.
type VM struct {
	frames []*Frame
	realm  *runtime.Realm

	ctx context.Context

	// OpBudget, when non-zero, is decremented on every dispatched
	// instruction; reaching zero raises a RangeError the same way Node's
	// --stack-size or a host timeout would, per spec.md 5's "opcode-budget
	// cancellation hook" — a cooperative yield point a host embedding can
	// use to bound a runaway script without OS-level thread interruption.
	OpBudget int64

	opsSinceCheck int

	// finalValue/lastReturn both hold "the value the frame step() just
	// finished (via RETURN or HALT) completed with" — finalValue is read
	// back by run() (the top-level script driver), lastReturn by runFrame
	// (calls.go's per-invocation driver). They are the same value under two
	// names read by two different callers; step() sets both on every frame
	// completion so whichever loop is waiting finds it under its own name.
	finalValue object.Value
	lastReturn object.Value

	// forceExit is generator.go's doYield's channel for a .return(value)
	// call: script try/finally cannot intercept it (per the documented
	// simplification on generatorContext), so rather than propagate it as
	// an *EcmaError subject to unwindException's ordinary catch-table
	// search, OpYield sets this and run()/runFrame() check it right after
	// step() returns, completing the frame immediately with this value.
	forceExit *object.Value
}

// New creates a VM with a freshly bootstrapped Realm (global object and
// intrinsic prototypes installed by globals.go's bootstrapRealm, grounded on
// funxy's vm.New()+RegisterFPTraits() split of "construct the VM" from
// "populate its global/trait tables").
func New() *VM {
	v := &VM{}
	v.realm = bootstrapRealm(v)
	return v
}

func (v *VM) Realm() *runtime.Realm { return v.realm }

func (v *VM) SetContext(ctx context.Context) { v.ctx = ctx }

func (v *VM) currentFrame() *Frame { return v.frames[len(v.frames)-1] }

func (v *VM) pushFrame(f *Frame) error {
	if len(v.frames) >= maxFrameDepth {
		return errStackOverflow
	}
	v.frames = append(v.frames, f)
	return nil
}

func (v *VM) popFrame() {
	v.frames = v.frames[:len(v.frames)-1]
}

// RunProgram executes a top-level script descriptor (internal/compiler's
// Compile output) against the VM's global scope, returning the completion
// value left on the implicit top-level "stack" by OpHalt, or a thrown
// EcmaError.
func (v *VM) RunProgram(desc *bytecode.Descriptor) (object.Value, *runtime.EcmaError) {
	global := scope.NewGlobalScope(v.realm.Global)
	frame := &Frame{
		desc:  desc,
		scope: global,
		stack: make([]object.Value, 0, initialOperandStack),
	}
	v.frames = []*Frame{frame}
	result, err := v.run()
	v.realm.DrainMicrotasks()
	return result, err
}

// run is the main fetch-decode-dispatch loop for the top-level script frame
// RunProgram pushed, grounded on funxy's executeWithDebugger's periodic-
// cancellation-check shape (vm.go). A *runtime.EcmaError surfacing from step
// is first offered to the current descriptor's exception table
// (unwindException); only once every frame has been asked does it become
// this call's return value. A nested script call (CALL/NEW/...) never
// leaves a second frame sitting on v.frames when control returns here: each
// dispatches through calls.go's invokeFunction, which drives its own pushed
// frame to completion with calls.go's runFrame and pops it before returning
// the Go value — so "step reports done" here always means the one-and-only
// top-level frame itself just completed via OpHalt.
func (v *VM) run() (object.Value, *runtime.EcmaError) {
	for {
		if err := v.checkBudget(); err != nil {
			return object.Undefined, err
		}
		frame := v.currentFrame()
		done, err := v.step(frame)
		if v.forceExit != nil {
			val := *v.forceExit
			v.forceExit = nil
			return val, nil
		}
		if err != nil {
			if resumed := v.unwindException(err); resumed {
				continue
			}
			return object.Undefined, err
		}
		if done {
			return v.finalValue, nil
		}
	}
}

func (v *VM) checkBudget() *runtime.EcmaError {
	if v.ctx != nil {
		v.opsSinceCheck++
		if v.opsSinceCheck >= 256 {
			v.opsSinceCheck = 0
			select {
			case <-v.ctx.Done():
				return v.realm.NewError("RangeError", "script execution cancelled")
			default:
			}
		}
	}
	if v.OpBudget != 0 {
		v.OpBudget--
		if v.OpBudget <= 0 {
			return v.realm.RangeError("script exceeded its opcode budget")
		}
	}
	return nil
}
