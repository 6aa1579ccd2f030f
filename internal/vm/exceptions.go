package vm

import (
	"github.com/ecmavm/engine/internal/runtime"
	"github.com/ecmavm/engine/internal/scope"
)

// unwindException implements the GOSUB/RETSUB two-row exception protocol
// internal/compiler/statements.go's compileTry documents: a thrown
// *runtime.EcmaError is offered to the current frame's exception table at
// the instruction that raised it. By the time a frame's own runFrame/run
// loop sees an error, every frame a nested call pushed has already been
// fully driven to completion and popped by that call's own invokeFunction/
// runFrame pair (calls.go) — v.currentFrame() here is always this loop's
// own frame, never a caller's or callee's — so there is exactly one
// exception table to consult, not a chain to walk. If it has no row
// guarding the faulting offset, the error is simply handed back to the
// caller as an ordinary Go return value (step -> runFrame -> invokeFunction
// -> doCall/Call -> the enclosing frame's own step), which is where that
// enclosing frame's own try/catch, if any, gets its turn via its own
// runFrame's own call to this same function. Returns true if a handler
// resumed execution (the frame's ip now points at a catch or finally entry
// and its stack holds whatever that handler expects).
func (v *VM) unwindException(err *runtime.EcmaError) bool {
	frame := v.currentFrame()
	handler := frame.desc.HandlerFor(frame.ip - 1)
	if handler == nil {
		return false
	}
	frame.ip = handler.Target
	frame.stack = frame.stack[:0]
	frame.scope = unwindToActivation(frame.scope)
	frame.subStack = nil
	if handler.IsFinally {
		frame.subStack = append(frame.subStack, subEntry{isThrow: true, thrown: err.Value})
	} else {
		frame.push(err.Value)
	}
	return true
}

// unwindToActivation discards every Block/With scope an exception leaves
// dangling (pushed inside the try body but never matched by its own
// OpPopBlockScope/OpLeaveWith because the throw skipped over it), stopping
// at the nearest Call or Global scope. This is a known simplification: a
// let/const binding from a sibling block declared earlier in the same
// enclosing block as the try statement is also discarded rather than just
// the try body's own nested scopes, since the VM does not separately track
// "how many scopes deep the try statement itself started at" — the
// catch/finally handler's own OpPushBlockScope (re-)establishes whatever
// bindings it needs immediately after resuming here.
func unwindToActivation(s scope.Scope) scope.Scope {
	for s != nil && (s.Kind() == scope.KindBlock || s.Kind() == scope.KindWith) {
		s = s.Parent()
	}
	return s
}
