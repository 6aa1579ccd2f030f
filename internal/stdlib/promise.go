package stdlib

import (
	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/runtime"
)

// promiseState is one of pending/fulfilled/rejected, per spec.md 4.B's
// Promise model. Stored on object.Object.Extra (see regexData for the same
// pattern) since package object can't hold a *reaction slice without
// importing runtime.
type promiseState int

const (
	promisePending promiseState = iota
	promiseFulfilled
	promiseRejected
)

// reaction is one then()/catch() registration: onFulfilled/onRejected may be
// nil (a bare .then(undefined, onRejected) or .catch() only registers one
// side), result is the derived promise those handlers resolve or reject.
type reaction struct {
	onFulfilled *object.Object
	onRejected  *object.Object
	result      *object.Object
}

type promiseData struct {
	state    promiseState
	value    object.Value
	handled  bool
	reactions []reaction
}

func promiseOf(v object.Value) (*object.Object, *promiseData, bool) {
	if !v.IsObject() || v.AsObject().Kind != object.KindPromise {
		return nil, nil, false
	}
	o := v.AsObject()
	pd, ok := o.Extra.(*promiseData)
	if !ok {
		return nil, nil, false
	}
	return o, pd, true
}

// newPromise allocates a fresh, pending promise object.
func newPromise(r *runtime.Realm) *object.Object {
	o := object.NewObjectWithKind(r.PromiseProto, object.KindPromise, "Promise")
	o.Extra = &promiseData{state: promisePending}
	return o
}

// settlePromise transitions a pending promise to fulfilled or rejected,
// scheduling every already-registered reaction's handler as a microtask, per
// spec.md 5's "micro-tasks (promise reactions) are drained after each
// top-level call completes, in FIFO order". A promise resolved with another
// thenable instead chains onto it rather than settling immediately, matching
// ECMA-262's resolution-procedure recursion.
func settlePromise(r *runtime.Realm, o *object.Object, pd *promiseData, rejected bool, v object.Value) {
	if pd.state != promisePending {
		return
	}
	if !rejected {
		if inner, innerPd, ok := promiseOf(v); ok && inner != o {
			chainPromise(r, inner, innerPd, o, pd)
			return
		}
		if v.IsObject() {
			if then := runtime.GetProperty(r, v, object.StringKey("then")); then.IsObject() && object.IsCallable(then.AsObject()) {
				adoptThenable(r, o, pd, v, then.AsObject())
				return
			}
		}
	}
	if rejected {
		pd.state = promiseRejected
	} else {
		pd.state = promiseFulfilled
	}
	pd.value = v
	reactions := pd.reactions
	pd.reactions = nil
	for _, rx := range reactions {
		scheduleReaction(r, pd, rx)
	}
	if rejected && !pd.handled && r.UnhandledRejection != nil {
		r.EnqueueMicrotask(func() {
			if !pd.handled {
				r.UnhandledRejection(v)
			}
		})
	}
}

// chainPromise makes target settle however src eventually settles, used when
// a resolve() call is handed another engine-native promise.
func chainPromise(r *runtime.Realm, src *object.Object, srcPd *promiseData, target *object.Object, targetPd *promiseData) {
	srcPd.handled = true
	onSettled := func(rejected bool, v object.Value) {
		settlePromise(r, target, targetPd, rejected, v)
	}
	if srcPd.state == promisePending {
		srcPd.reactions = append(srcPd.reactions, reaction{
			onFulfilled: wrapSettler(r, onSettled, false),
			onRejected:  wrapSettler(r, onSettled, true),
		})
		return
	}
	state, value := srcPd.state, srcPd.value
	r.EnqueueMicrotask(func() { onSettled(state == promiseRejected, value) })
}

// wrapSettler adapts a plain Go settle callback into a native function object
// so it can be stored in a reaction slot the same way a script-level
// then()/catch() handler is.
func wrapSettler(r *runtime.Realm, fn func(rejected bool, v object.Value), rejected bool) *object.Object {
	return runtime.NewNativeFunction(r.FunctionProto, "", 1, runtime.NativeFunc{
		Call: func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
			fn(rejected, arg(args, 0))
			return object.Undefined, nil
		},
	})
}

// adoptThenable resolves o by calling into an arbitrary thenable's then()
// method, per the Promise Resolution Procedure.
func adoptThenable(r *runtime.Realm, o *object.Object, pd *promiseData, thenable object.Value, then *object.Object) {
	settled := false
	resolveFn := runtime.NewNativeFunction(r.FunctionProto, "", 1, runtime.NativeFunc{
		Call: func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
			if settled {
				return object.Undefined, nil
			}
			settled = true
			settlePromise(rt, o, pd, false, arg(args, 0))
			return object.Undefined, nil
		},
	})
	rejectFn := runtime.NewNativeFunction(r.FunctionProto, "", 1, runtime.NativeFunc{
		Call: func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
			if settled {
				return object.Undefined, nil
			}
			settled = true
			settlePromise(rt, o, pd, true, arg(args, 0))
			return object.Undefined, nil
		},
	})
	r.EnqueueMicrotask(func() {
		_, err := r.Invoker.Call(then, thenable, []object.Value{object.FromObject(resolveFn), object.FromObject(rejectFn)})
		if err != nil && !settled {
			settled = true
			settlePromise(r, o, pd, true, err.Value)
		}
	})
}

// scheduleReaction enqueues the microtask that runs one then()/catch()
// handler pair against an already-settled promise, propagating the
// handler's return value (or a thrown error, or a passthrough when no
// handler was registered for that side) into rx.result.
func scheduleReaction(r *runtime.Realm, pd *promiseData, rx reaction) {
	r.EnqueueMicrotask(func() {
		var handler *object.Object
		if pd.state == promiseFulfilled {
			handler = rx.onFulfilled
		} else {
			handler = rx.onRejected
		}
		resultO, resultPd, hasResult := promiseOf(object.FromObject(rx.result))
		if handler == nil {
			if hasResult {
				settlePromise(r, resultO, resultPd, pd.state == promiseRejected, pd.value)
			}
			return
		}
		v, err := r.Invoker.Call(handler, object.Undefined, []object.Value{pd.value})
		if !hasResult {
			// A combinator reaction (Promise.all/race/any/allSettled): the
			// handler itself (wrapSettler) performs the aggregate bookkeeping
			// as a side effect, there is no derived promise to settle here.
			return
		}
		if err != nil {
			settlePromise(r, resultO, resultPd, true, err.Value)
			return
		}
		settlePromise(r, resultO, resultPd, false, v)
	})
}

// thenImpl backs Promise.prototype.then/catch: builds the derived promise,
// registers (or immediately schedules, if already settled) the reaction.
func thenImpl(r *runtime.Realm, this object.Value, onFulfilled, onRejected object.Value) (object.Value, *runtime.EcmaError) {
	_, pd, ok := promiseOf(this)
	if !ok {
		return object.Undefined, r.TypeError("Promise.prototype.then called on incompatible receiver")
	}
	pd.handled = true
	result := newPromise(r)
	rx := reaction{result: result}
	if onFulfilled.IsObject() && object.IsCallable(onFulfilled.AsObject()) {
		rx.onFulfilled = onFulfilled.AsObject()
	}
	if onRejected.IsObject() && object.IsCallable(onRejected.AsObject()) {
		rx.onRejected = onRejected.AsObject()
	}
	if pd.state == promisePending {
		pd.reactions = append(pd.reactions, rx)
	} else {
		scheduleReaction(r, pd, rx)
	}
	return object.FromObject(result), nil
}

func installPromiseProto(r *runtime.Realm, proto *object.Object) {
	method(r, proto, "then", 2, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return thenImpl(rt, this, arg(args, 0), arg(args, 1))
	})
	method(r, proto, "catch", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return thenImpl(rt, this, object.Undefined, arg(args, 0))
	})
	method(r, proto, "finally", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		cb := arg(args, 0)
		if !cb.IsObject() || !object.IsCallable(cb.AsObject()) {
			return thenImpl(rt, this, object.Undefined, object.Undefined)
		}
		fn := cb.AsObject()
		passthrough := func(rejected bool) *object.Object {
			return runtime.NewNativeFunction(rt.FunctionProto, "", 1, runtime.NativeFunc{
				Call: func(rt2 *runtime.Realm, this2 object.Value, args2 []object.Value) (object.Value, *runtime.EcmaError) {
					if _, err := rt2.Invoker.Call(fn, object.Undefined, nil); err != nil {
						return object.Undefined, err
					}
					v := arg(args2, 0)
					if rejected {
						return object.Undefined, &runtime.EcmaError{Value: v}
					}
					return v, nil
				},
			})
		}
		return thenImpl(rt, this, object.FromObject(passthrough(false)), object.FromObject(passthrough(true)))
	})
}

// installPromiseConstructor builds the global Promise function: new
// Promise(executor) plus the resolve/reject/all/allSettled/race/any statics.
func installPromiseConstructor(r *runtime.Realm, global *object.Object) {
	construct := func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		executor := arg(args, 0)
		if !executor.IsObject() || !object.IsCallable(executor.AsObject()) {
			return object.Undefined, rt.TypeError("Promise resolver is not a function")
		}
		o := newPromise(rt)
		pd := o.Extra.(*promiseData)
		resolveFn := runtime.NewNativeFunction(rt.FunctionProto, "resolve", 1, runtime.NativeFunc{
			Call: func(rt2 *runtime.Realm, this2 object.Value, args2 []object.Value) (object.Value, *runtime.EcmaError) {
				settlePromise(rt2, o, pd, false, arg(args2, 0))
				return object.Undefined, nil
			},
		})
		rejectFn := runtime.NewNativeFunction(rt.FunctionProto, "reject", 1, runtime.NativeFunc{
			Call: func(rt2 *runtime.Realm, this2 object.Value, args2 []object.Value) (object.Value, *runtime.EcmaError) {
				settlePromise(rt2, o, pd, true, arg(args2, 0))
				return object.Undefined, nil
			},
		})
		_, err := rt.Invoker.Call(executor.AsObject(), object.Undefined, []object.Value{object.FromObject(resolveFn), object.FromObject(rejectFn)})
		if err != nil {
			settlePromise(rt, o, pd, true, err.Value)
		}
		return object.FromObject(o), nil
	}
	call := func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return object.Undefined, rt.TypeError("Promise constructor cannot be invoked without 'new'")
	}
	ctor := newConstructor(r, "Promise", 1, call, construct, r.PromiseProto)

	method(r, ctor, "resolve", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		v := arg(args, 0)
		if _, _, ok := promiseOf(v); ok {
			return v, nil
		}
		o := newPromise(rt)
		pd := o.Extra.(*promiseData)
		settlePromise(rt, o, pd, false, v)
		return object.FromObject(o), nil
	})
	method(r, ctor, "reject", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		o := newPromise(rt)
		pd := o.Extra.(*promiseData)
		settlePromise(rt, o, pd, true, arg(args, 0))
		return object.FromObject(o), nil
	})
	method(r, ctor, "all", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return promiseCombinator(rt, arg(args, 0), combinatorAll)
	})
	method(r, ctor, "allSettled", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return promiseCombinator(rt, arg(args, 0), combinatorAllSettled)
	})
	method(r, ctor, "race", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return promiseCombinator(rt, arg(args, 0), combinatorRace)
	})
	method(r, ctor, "any", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return promiseCombinator(rt, arg(args, 0), combinatorAny)
	})

	global.DefineRaw(object.StringKey("Promise"), object.DataSlot(object.FromObject(ctor), true, false, true))
}

type combinatorKind int

const (
	combinatorAll combinatorKind = iota
	combinatorAllSettled
	combinatorRace
	combinatorAny
)

// promiseCombinator drains iterable into a slice of promises (coercing any
// non-promise value via Promise.resolve semantics) and wires each one's
// settlement into the appropriate aggregate result promise, implementing
// whichever of all/allSettled/race/any was asked for.
func promiseCombinator(r *runtime.Realm, iterable object.Value, kind combinatorKind) (object.Value, *runtime.EcmaError) {
	iter, ierr := runtime.GetIterator(r, iterable)
	if ierr != nil {
		return object.Undefined, ierr
	}
	var items []object.Value
	for {
		v, done, nerr := runtime.IteratorNext(r, iter)
		if nerr != nil {
			return object.Undefined, nerr
		}
		if done {
			break
		}
		items = append(items, v)
	}

	result := newPromise(r)
	resultPd := result.Extra.(*promiseData)

	if len(items) == 0 {
		switch kind {
		case combinatorAll, combinatorAllSettled:
			settlePromise(r, result, resultPd, false, object.FromObject(runtime.NewArrayFromValues(r, nil)))
		case combinatorAny:
			agg := r.NewError("AggregateError", "All promises were rejected")
			settlePromise(r, result, resultPd, true, agg.Value)
		}
		return object.FromObject(result), nil
	}

	values := make([]object.Value, len(items))
	errs := make([]object.Value, len(items))
	remaining := len(items)

	for idx, it := range items {
		i := idx
		var child *object.Object
		var childPd *promiseData
		if o, pd, ok := promiseOf(it); ok {
			child, childPd = o, pd
		} else {
			child = newPromise(r)
			childPd = child.Extra.(*promiseData)
			settlePromise(r, child, childPd, false, it)
		}
		onFulfilled := func(v object.Value) {
			switch kind {
			case combinatorRace:
				settlePromise(r, result, resultPd, false, v)
			case combinatorAny:
				settlePromise(r, result, resultPd, false, v)
			case combinatorAll:
				values[i] = v
				remaining--
				if remaining == 0 {
					settlePromise(r, result, resultPd, false, object.FromObject(runtime.NewArrayFromValues(r, values)))
				}
			case combinatorAllSettled:
				entry := object.NewObject(r.ObjectProto)
				entry.DefineRaw(object.StringKey("status"), object.DataSlot(object.String("fulfilled"), true, true, true))
				entry.DefineRaw(object.StringKey("value"), object.DataSlot(v, true, true, true))
				values[i] = object.FromObject(entry)
				remaining--
				if remaining == 0 {
					settlePromise(r, result, resultPd, false, object.FromObject(runtime.NewArrayFromValues(r, values)))
				}
			}
		}
		onRejected := func(v object.Value) {
			switch kind {
			case combinatorRace:
				settlePromise(r, result, resultPd, true, v)
			case combinatorAll:
				settlePromise(r, result, resultPd, true, v)
			case combinatorAny:
				errs[i] = v
				remaining--
				if remaining == 0 {
					agg := r.NewError("AggregateError", "All promises were rejected")
					agg.Value.AsObject().DefineRaw(object.StringKey("errors"), object.DataSlot(object.FromObject(runtime.NewArrayFromValues(r, errs)), true, false, true))
					settlePromise(r, result, resultPd, true, agg.Value)
				}
			case combinatorAllSettled:
				entry := object.NewObject(r.ObjectProto)
				entry.DefineRaw(object.StringKey("status"), object.DataSlot(object.String("rejected"), true, true, true))
				entry.DefineRaw(object.StringKey("reason"), object.DataSlot(v, true, true, true))
				values[i] = object.FromObject(entry)
				remaining--
				if remaining == 0 {
					settlePromise(r, result, resultPd, false, object.FromObject(runtime.NewArrayFromValues(r, values)))
				}
			}
		}
		rx := reaction{
			onFulfilled: wrapSettler(r, func(rejected bool, v object.Value) { onFulfilled(v) }, false),
			onRejected:  wrapSettler(r, func(rejected bool, v object.Value) { onRejected(v) }, true),
		}
		childPd.handled = true
		if childPd.state == promisePending {
			childPd.reactions = append(childPd.reactions, rx)
		} else {
			scheduleReaction(r, childPd, rx)
		}
	}

	return object.FromObject(result), nil
}
