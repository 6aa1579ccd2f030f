package vm

import (
	"fmt"

	"github.com/ecmavm/engine/internal/bytecode"
	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/runtime"
	"github.com/ecmavm/engine/internal/scope"
)

// VM implements runtime.Invoker: every getter, Array.prototype callback, or
// generator .next() that package runtime needs to run script code bottoms
// out in one of these two methods, grounded on funxy's vm_calls.go split of
// "the plumbing around a call" from "the actual frame-execution loop".

func (v *VM) Call(fn *object.Object, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
	if fn.Kind != object.KindFunction {
		return object.Undefined, v.realm.TypeError("%s is not a function", fn.ClassName)
	}
	if native, ok := runtime.AsNative(fn); ok {
		return native.Call(v.realm, this, args)
	}
	if fn.Function.IsGenerator {
		return object.FromObject(v.newGeneratorObject(fn, this, args)), nil
	}
	val, _, err := v.invokeFunction(fn, this, args, nil)
	return val, err
}

func (v *VM) Construct(fn *object.Object, args []object.Value, newTarget *object.Object) (object.Value, *runtime.EcmaError) {
	if fn.Kind != object.KindFunction || fn.Function.IsArrow {
		return object.Undefined, v.realm.TypeError("%s is not a constructor", fn.ClassName)
	}
	if native, ok := runtime.AsNative(fn); ok {
		return native.Construct(v.realm, args, newTarget)
	}
	data := fn.Function

	if data.SuperClass != nil {
		// Derived class: `this` stays in TDZ until the body's super() call
		// runs, per spec.md 4.F's derived-constructor instantiation order.
		// finalThis reflects whatever the body's SUPER_CALL assigned it to
		// (or leaves it in TDZ if super() was never reached), so the return
		// check below can tell a well-formed derived constructor from one
		// that fell through without calling super().
		instance := object.Undefined
		result, finalThis, err := v.invokeFunction(fn, instance, args, newTarget)
		if err != nil {
			return object.Undefined, err
		}
		if finalThis.IsTDZ() {
			if result.IsObject() {
				return result, nil
			}
			return object.Undefined, v.realm.ReferenceError("Must call super constructor in derived class before accessing 'this' or returning from derived constructor")
		}
		return runtime.ValidateConstructorReturn(result, finalThis), nil
	}

	instance := object.FromObject(runtime.NewInstance(v.realm, newTarget))
	if err := runtime.InitializeInstanceFields(v.realm, instance.AsObject(), fieldsOf(data)); err != nil {
		return object.Undefined, err
	}
	result, _, err := v.invokeFunction(fn, instance, args, newTarget)
	if err != nil {
		return object.Undefined, err
	}
	return runtime.ValidateConstructorReturn(result, instance), nil
}

func fieldsOf(data *object.FunctionData) []*runtime.FieldInitializer {
	out := make([]*runtime.FieldInitializer, 0, len(data.Fields))
	for _, f := range data.Fields {
		if fi, ok := f.(*runtime.FieldInitializer); ok {
			out = append(out, fi)
		}
	}
	return out
}

// invokeFunction builds a fresh activation for one call to fn, pre-populates
// its "%argN"/"%rest"/"this" bindings per the compiler's calling convention
// (internal/compiler/functions.go's compileParam/compileRestParam/`this`
// read-through-TDZ), pushes a new Frame, and runs it to completion (nested
// inside the same dispatch loop via a fresh runFrame() call, so a deep script
// call chain still bounds on maxFrameDepth rather than Go's own stack).
// invokeFunction's second return value is the activation's final This —
// for a derived constructor this reflects whatever super() assigned (or
// still object.TDZ if the body never called it), letting Construct's
// derived-class branch validate the class-instantiation invariant without
// reaching into the (already popped) frame itself.
func (v *VM) invokeFunction(fn *object.Object, this object.Value, args []object.Value, newTarget *object.Object) (object.Value, object.Value, *runtime.EcmaError) {
	data := fn.Function
	desc, _ := data.Descriptor.(*bytecode.Descriptor)
	parentScope, _ := data.Scope.(scope.Scope)

	strict := desc != nil && desc.IsStrict
	act := scope.NewActivation(fn, args, object.Undefined, strict, data.IsArrow, nearestParentActivation(parentScope))
	if data.SuperClass != nil {
		act.SuperBase = data.HomeObject
		act.NewTarget = nonNilValue(newTarget)
	} else if newTarget != nil {
		act.NewTarget = object.FromObject(newTarget)
	} else {
		act.NewTarget = object.Undefined
	}

	if !data.IsArrow {
		if data.SuperClass != nil {
			act.This = object.TDZ
		} else {
			act.This = runtime.PrepareThis(v.realm, strict, this)
		}
	}

	v.bindParams(act, desc, args)

	frame := newFrame(desc, fn, parentScope, act)
	if err := v.pushFrame(frame); err != nil {
		return object.Undefined, object.Undefined, v.realm.RangeError("%s", err.Error())
	}
	defer v.popFrame()

	val, err := v.runFrame()
	return val, act.This, err
}

// bindParams declares "%arg0".."%argN-1" and, if desc has one, "%rest" in
// act, per the compiler's calling convention (compileParam/
// compileRestParam read these synthetic names back out rather than using
// slot indices, matching this engine's name-based scope chain). Shared by
// invokeFunction's ordinary calls and generator.go's suspended-body setup,
// which cannot reuse invokeFunction itself since a generator's frame
// outlives the Go call that creates it.
func (v *VM) bindParams(act *scope.Activation, desc *bytecode.Descriptor, args []object.Value) {
	for i := 0; i < desc.ParamCount; i++ {
		var val object.Value
		if i < len(args) {
			val = args[i]
		} else {
			val = object.Undefined
		}
		act.Declare(argName(i), false, val)
	}
	if desc.HasRest {
		rest := args
		if len(rest) > desc.ParamCount {
			rest = args[desc.ParamCount:]
		} else {
			rest = nil
		}
		act.Declare("%rest", false, object.FromObject(runtime.NewArrayFromValues(v.realm, rest)))
	}
}

func nonNilValue(o *object.Object) object.Value {
	if o == nil {
		return object.Undefined
	}
	return object.FromObject(o)
}

func argName(i int) string {
	return fmt.Sprintf("%%arg%d", i)
}

func nearestParentActivation(s scope.Scope) *scope.Activation {
	return scope.NearestActivation(s)
}

// runFrame drives the dispatch loop for the frame invokeFunction just
// pushed until it completes (OpReturn or OpHalt), then pops it (via the
// caller's deferred popFrame) and hands the Go-level return value back.
// Mirrors run()'s loop exactly; the two exist separately only because one
// reads back v.finalValue and the other v.lastReturn — see vm.go's doc
// comment on why both names refer to the same per-completion value.
func (v *VM) runFrame() (object.Value, *runtime.EcmaError) {
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
			return v.lastReturn, nil
		}
	}
}

// doCall implements CALL/CALL_METHOD/CALL_SPREAD/NEW/NEW_SPREAD/SUPER_CALL/
// SUPER_CALL_SPREAD/CALL_ON_SUPER's shared "resolve callee, build args,
// invoke" tail, entered by dispatch.go once each opcode has popped its own
// stack shape into (callee, this, args).
func (v *VM) doCall(callee object.Value, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
	return runtime.Call(v.realm, callee, this, args)
}

func (v *VM) doConstruct(callee object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
	if !callee.IsObject() {
		return object.Undefined, v.realm.TypeError("%s is not a constructor", callee.TypeName())
	}
	return runtime.Construct(v.realm, callee, args, callee.AsObject())
}

// createClosure implements CLOSURE: build a function object capturing the
// current frame's live scope chain, per internal/compiler's compileClosure
// (emitIndex(childIdx); OpCreateClosure).
func (v *VM) createClosure(frame *Frame, childIdx int) object.Value {
	child := frame.desc.Children[childIdx]
	fn := object.NewFunction(v.realm.FunctionProto, child, frame.scope, child.Name, child.ParamCount)
	fn.Function.IsArrow = child.IsArrow
	fn.Function.IsGenerator = child.IsGenerator
	fn.Function.IsAsync = child.IsAsync
	fn.Function.IsClassCtor = child.IsClassCtor
	// Arrows have no own `this`/`arguments`/`super`; invokeFunction leaves
	// act.This at object.Undefined for them and every lookup instead resolves
	// through scope.NearestNonArrowActivation, so nothing extra is recorded here.
	fn.DefineRaw(object.StringKey("length"), object.DataSlot(object.Int32(int32(child.ParamCount)), false, false, true))
	fn.DefineRaw(object.StringKey("name"), object.DataSlot(object.String(child.Name), false, false, true))
	if !child.IsArrow && !child.IsClassCtor {
		proto := object.NewObject(v.realm.ObjectProto)
		proto.DefineRaw(object.StringKey("constructor"), object.DataSlot(object.FromObject(fn), true, false, true))
		fn.DefineRaw(object.StringKey("prototype"), object.DataSlot(object.FromObject(proto), true, false, false))
	}
	return object.FromObject(fn)
}
