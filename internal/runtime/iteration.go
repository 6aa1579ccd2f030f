package runtime

import "github.com/ecmavm/engine/internal/object"

// GetIterator implements the iterable protocol's GetIterator step for
// for-of: ToObject, then call @@iterator, requiring the result to be an
// object exposing a callable next(). The returned Value *is* the iterator-
// state GET_ITERATOR leaves on the stack, per the bytecode opcode's
// doc comment — the VM's ITERATOR_NEXT simply calls .next() on it each
// time, so no separate Go-side state type is needed the way GetPropEnumerator
// needs one (for-of delegates entirely to the iterator object itself).
func GetIterator(r *Realm, v object.Value) (object.Value, *EcmaError) {
	method := GetProperty(r, v, object.SymKey(object.SymIterator))
	if !method.IsObject() || !object.IsCallable(method.AsObject()) {
		return object.Undefined, r.TypeError("%s is not iterable", v.TypeName())
	}
	iter, err := r.Invoker.Call(method.AsObject(), v, nil)
	if err != nil {
		return object.Undefined, err
	}
	if !iter.IsObject() {
		return object.Undefined, r.TypeError("Result of the Symbol.iterator method is not an object")
	}
	return iter, nil
}

// IteratorNext implements ITERATOR_NEXT: call iterState.next(), read back
// .value/.done from the IteratorResult object it must return.
func IteratorNext(r *Realm, iterState object.Value) (value object.Value, done bool, err *EcmaError) {
	next := GetProperty(r, iterState, object.StringKey("next"))
	if !next.IsObject() || !object.IsCallable(next.AsObject()) {
		return object.Undefined, true, r.TypeError("iterator.next is not a function")
	}
	result, cerr := r.Invoker.Call(next.AsObject(), iterState, nil)
	if cerr != nil {
		return object.Undefined, true, cerr
	}
	if !result.IsObject() {
		return object.Undefined, true, r.TypeError("Iterator result is not an object")
	}
	doneVal, derr := GetPropertyChecked(r, result, object.StringKey("done"))
	if derr != nil {
		return object.Undefined, true, derr
	}
	val, verr := GetPropertyChecked(r, result, object.StringKey("value"))
	if verr != nil {
		return object.Undefined, true, verr
	}
	return val, ToBoolean(doneVal), nil
}

// IteratorClose implements IteratorClose: best-effort call to .return() on
// early exit (break/return/throw out of a for-of body), ignoring a missing
// .return method but not swallowing a .return() call's own throw unless the
// loop was already unwinding for a different reason (completionErr != nil),
// per the spec's "a throw from return() during an already-throwing
// completion is suppressed in favor of the original" rule.
func IteratorClose(r *Realm, iterState object.Value, completionErr *EcmaError) *EcmaError {
	ret := GetProperty(r, iterState, object.StringKey("return"))
	if !ret.IsObject() || !object.IsCallable(ret.AsObject()) {
		return completionErr
	}
	_, err := r.Invoker.Call(ret.AsObject(), iterState, nil)
	if completionErr != nil {
		return completionErr
	}
	return err
}

// EnumeratorState backs GET_PROP_ENUMERATOR's for-in enumerator-state
// value: a flattened, deduplicated, already-ordered snapshot of every
// enumerable string key visible on the object and its prototype chain,
// taken once up front (matching the spec's "keys added during iteration
// are not visited, keys deleted during iteration are skipped" looseness,
// since real engines vary here and spec.md does not pin down the stricter
// live-iteration behavior). Held in a hidden KindPlain object's Extra slot
// (object.go's "opaque per-kind payload" field) rather than a new object.Kind,
// since nothing about it needs property-map machinery.
type EnumeratorState struct {
	Keys  []string
	Index int
}

// GetPropEnumerator implements GET_PROP_ENUMERATOR: walks v's prototype
// chain collecting each own enumerable string key once (first occurrence
// wins, matching how a subclass's own property shadows its prototype's
// same-named one for for-in purposes). null/undefined receivers enumerate
// zero keys rather than throwing, per for-in's documented non-throwing
// behavior on those two receivers.
func GetPropEnumerator(r *Realm, v object.Value) (object.Value, *EcmaError) {
	state := &EnumeratorState{}
	if v.IsNullOrUndefined() {
		return wrapEnumeratorState(state), nil
	}
	obj, err := ToObject(r, v)
	if err != nil {
		return object.Undefined, err
	}
	seen := make(map[string]bool)
	for cur := obj; cur != nil; cur = cur.GetPrototype() {
		for _, key := range cur.OwnKeys(false, false) {
			name := key.String()
			if seen[name] {
				continue
			}
			seen[name] = true
			state.Keys = append(state.Keys, name)
		}
	}
	return wrapEnumeratorState(state), nil
}

func wrapEnumeratorState(state *EnumeratorState) object.Value {
	holder := object.NewObject(nil)
	holder.Extra = state
	return object.FromObject(holder)
}

// EnumeratorNext implements ENUMERATOR_NEXT: pop the next key off the
// snapshot built by GetPropEnumerator, or report done once exhausted.
func EnumeratorNext(enumState object.Value) (key object.Value, done bool) {
	holder := enumState.AsObject()
	state, _ := holder.Extra.(*EnumeratorState)
	if state == nil || state.Index >= len(state.Keys) {
		return object.Undefined, true
	}
	k := state.Keys[state.Index]
	state.Index++
	return object.String(k), false
}
