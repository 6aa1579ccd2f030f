package stdlib

import (
	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/runtime"
)

func thisCollection(r *runtime.Realm, this object.Value, wantMap bool, label string) (*object.CollectionData, *runtime.EcmaError) {
	if !this.IsObject() || this.AsObject().Collection == nil || this.AsObject().Collection.IsMap != wantMap {
		return nil, r.TypeError("%s method called on incompatible receiver", label)
	}
	return this.AsObject().Collection, nil
}

// installCollectionProtos implements Map/Set/WeakMap/WeakSet.prototype,
// grounded directly on object/object.go's CollectionData (an
// insertion-ordered entry list plus a SameValueZero index), which funxy
// has no analog for (funxy's map type is a plain Go map with no insertion-
// order or SameValueZero-key guarantee); WeakMap/WeakSet reuse the same
// shape and simply aren't iterated from script, per CollectionData's own
// doc comment on ephemeron GC being out of scope.
func installCollectionProtos(r *runtime.Realm) {
	installMapProto(r, r.MapProto)
	installSetProto(r, r.SetProto)
	installWeakMapProto(r, r.WeakMapProto)
	installWeakSetProto(r, r.WeakSetProto)
}

func installMapProto(r *runtime.Realm, proto *object.Object) {
	method(r, proto, "get", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		c, err := thisCollection(rt, this, true, "Map.prototype.get")
		if err != nil {
			return object.Undefined, err
		}
		if idx, ok := c.Find(arg(args, 0)); ok {
			return c.Values[idx], nil
		}
		return object.Undefined, nil
	})
	method(r, proto, "set", 2, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		c, err := thisCollection(rt, this, true, "Map.prototype.set")
		if err != nil {
			return object.Undefined, err
		}
		c.Put(arg(args, 0), arg(args, 1))
		return this, nil
	})
	method(r, proto, "has", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		c, err := thisCollection(rt, this, true, "Map.prototype.has")
		if err != nil {
			return object.Undefined, err
		}
		_, ok := c.Find(arg(args, 0))
		return object.Bool(ok), nil
	})
	method(r, proto, "delete", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		c, err := thisCollection(rt, this, true, "Map.prototype.delete")
		if err != nil {
			return object.Undefined, err
		}
		return object.Bool(c.Delete(arg(args, 0))), nil
	})
	method(r, proto, "clear", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		c, err := thisCollection(rt, this, true, "Map.prototype.clear")
		if err != nil {
			return object.Undefined, err
		}
		c.Keys = nil
		c.Values = nil
		*c = *object.NewCollectionData(true)
		return object.Undefined, nil
	})
	accessor(r, proto, "size", func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		c, err := thisCollection(rt, this, true, "Map.prototype.size")
		if err != nil {
			return object.Undefined, err
		}
		return object.Int32(int32(len(c.Keys))), nil
	})
	method(r, proto, "forEach", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		c, err := thisCollection(rt, this, true, "Map.prototype.forEach")
		if err != nil {
			return object.Undefined, err
		}
		cb, thisArg, cerr := callbackOf(rt, args)
		if cerr != nil {
			return object.Undefined, cerr
		}
		for i := range c.Keys {
			if _, err := rt.Invoker.Call(cb, thisArg, []object.Value{c.Values[i], c.Keys[i], this}); err != nil {
				return object.Undefined, err
			}
		}
		return object.Undefined, nil
	})
	symMethod(r, proto, object.SymIterator, "[Symbol.iterator]", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		c, err := thisCollection(rt, this, true, "Map.prototype[Symbol.iterator]")
		if err != nil {
			return object.Undefined, err
		}
		return newPairIterator(rt, c), nil
	})
}

func installSetProto(r *runtime.Realm, proto *object.Object) {
	method(r, proto, "add", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		c, err := thisCollection(rt, this, false, "Set.prototype.add")
		if err != nil {
			return object.Undefined, err
		}
		c.Put(arg(args, 0), object.Undefined)
		return this, nil
	})
	method(r, proto, "has", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		c, err := thisCollection(rt, this, false, "Set.prototype.has")
		if err != nil {
			return object.Undefined, err
		}
		_, ok := c.Find(arg(args, 0))
		return object.Bool(ok), nil
	})
	method(r, proto, "delete", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		c, err := thisCollection(rt, this, false, "Set.prototype.delete")
		if err != nil {
			return object.Undefined, err
		}
		return object.Bool(c.Delete(arg(args, 0))), nil
	})
	method(r, proto, "clear", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		c, err := thisCollection(rt, this, false, "Set.prototype.clear")
		if err != nil {
			return object.Undefined, err
		}
		*c = *object.NewCollectionData(false)
		return object.Undefined, nil
	})
	accessor(r, proto, "size", func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		c, err := thisCollection(rt, this, false, "Set.prototype.size")
		if err != nil {
			return object.Undefined, err
		}
		return object.Int32(int32(len(c.Keys))), nil
	})
	method(r, proto, "forEach", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		c, err := thisCollection(rt, this, false, "Set.prototype.forEach")
		if err != nil {
			return object.Undefined, err
		}
		cb, thisArg, cerr := callbackOf(rt, args)
		if cerr != nil {
			return object.Undefined, cerr
		}
		for i := range c.Keys {
			if _, err := rt.Invoker.Call(cb, thisArg, []object.Value{c.Keys[i], c.Keys[i], this}); err != nil {
				return object.Undefined, err
			}
		}
		return object.Undefined, nil
	})
	symMethod(r, proto, object.SymIterator, "[Symbol.iterator]", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		c, err := thisCollection(rt, this, false, "Set.prototype[Symbol.iterator]")
		if err != nil {
			return object.Undefined, err
		}
		return newValueIterator(rt, c), nil
	})
}

func installWeakMapProto(r *runtime.Realm, proto *object.Object) {
	method(r, proto, "get", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		c, err := thisCollection(rt, this, true, "WeakMap.prototype.get")
		if err != nil {
			return object.Undefined, err
		}
		if idx, ok := c.Find(arg(args, 0)); ok {
			return c.Values[idx], nil
		}
		return object.Undefined, nil
	})
	method(r, proto, "set", 2, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		c, err := thisCollection(rt, this, true, "WeakMap.prototype.set")
		if err != nil {
			return object.Undefined, err
		}
		if !arg(args, 0).IsObject() {
			return object.Undefined, rt.TypeError("Invalid value used as weak map key")
		}
		c.Put(arg(args, 0), arg(args, 1))
		return this, nil
	})
	method(r, proto, "has", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		c, err := thisCollection(rt, this, true, "WeakMap.prototype.has")
		if err != nil {
			return object.Undefined, err
		}
		_, ok := c.Find(arg(args, 0))
		return object.Bool(ok), nil
	})
	method(r, proto, "delete", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		c, err := thisCollection(rt, this, true, "WeakMap.prototype.delete")
		if err != nil {
			return object.Undefined, err
		}
		return object.Bool(c.Delete(arg(args, 0))), nil
	})
}

func installWeakSetProto(r *runtime.Realm, proto *object.Object) {
	method(r, proto, "add", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		c, err := thisCollection(rt, this, false, "WeakSet.prototype.add")
		if err != nil {
			return object.Undefined, err
		}
		if !arg(args, 0).IsObject() {
			return object.Undefined, rt.TypeError("Invalid value used in weak set")
		}
		c.Put(arg(args, 0), object.Undefined)
		return this, nil
	})
	method(r, proto, "has", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		c, err := thisCollection(rt, this, false, "WeakSet.prototype.has")
		if err != nil {
			return object.Undefined, err
		}
		_, ok := c.Find(arg(args, 0))
		return object.Bool(ok), nil
	})
	method(r, proto, "delete", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		c, err := thisCollection(rt, this, false, "WeakSet.prototype.delete")
		if err != nil {
			return object.Undefined, err
		}
		return object.Bool(c.Delete(arg(args, 0))), nil
	})
}

// newPairIterator/newValueIterator follow array.go's newArrayIterator
// pattern: a stateful native closure over a mutable Go index, since a
// host-native iterator needs no suspension machinery.
func newPairIterator(r *runtime.Realm, c *object.CollectionData) object.Value {
	it := object.NewObject(r.IteratorProto)
	i := 0
	method(r, it, "next", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		result := object.NewObject(rt.ObjectProto)
		if i >= len(c.Keys) {
			result.DefineRaw(object.StringKey("done"), object.DataSlot(object.True, true, true, true))
			result.DefineRaw(object.StringKey("value"), object.DataSlot(object.Undefined, true, true, true))
			return object.FromObject(result), nil
		}
		pair := object.NewArrayFromValues(rt, []object.Value{c.Keys[i], c.Values[i]})
		i++
		result.DefineRaw(object.StringKey("done"), object.DataSlot(object.False, true, true, true))
		result.DefineRaw(object.StringKey("value"), object.DataSlot(object.FromObject(pair), true, true, true))
		return object.FromObject(result), nil
	})
	return object.FromObject(it)
}

func newValueIterator(r *runtime.Realm, c *object.CollectionData) object.Value {
	it := object.NewObject(r.IteratorProto)
	i := 0
	method(r, it, "next", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		result := object.NewObject(rt.ObjectProto)
		if i >= len(c.Keys) {
			result.DefineRaw(object.StringKey("done"), object.DataSlot(object.True, true, true, true))
			result.DefineRaw(object.StringKey("value"), object.DataSlot(object.Undefined, true, true, true))
			return object.FromObject(result), nil
		}
		v := c.Keys[i]
		i++
		result.DefineRaw(object.StringKey("done"), object.DataSlot(object.False, true, true, true))
		result.DefineRaw(object.StringKey("value"), object.DataSlot(v, true, true, true))
		return object.FromObject(result), nil
	})
	return object.FromObject(it)
}

func installCollectionConstructors(r *runtime.Realm, global *object.Object) {
	buildCtor := func(name string, isMap bool, proto *object.Object) *object.Object {
		construct := func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
			o := object.NewObjectWithKind(proto, map[bool]object.Kind{true: object.KindMap, false: object.KindSet}[isMap], name)
			o.Collection = object.NewCollectionData(isMap)
			if len(args) > 0 && !args[0].IsNullOrUndefined() {
				iterState, ierr := runtime.GetIterator(rt, args[0])
				if ierr != nil {
					return object.Undefined, ierr
				}
				for {
					v, done, nerr := runtime.IteratorNext(rt, iterState)
					if nerr != nil {
						return object.Undefined, nerr
					}
					if done {
						break
					}
					if isMap {
						if !v.IsObject() {
							return object.Undefined, rt.TypeError("Iterator value %s is not an entry object", v.TypeName())
						}
						k := runtime.GetProperty(rt, v, object.IndexKey(0))
						val := runtime.GetProperty(rt, v, object.IndexKey(1))
						o.Collection.Put(k, val)
					} else {
						o.Collection.Put(v, object.Undefined)
					}
				}
			}
			return object.FromObject(o), nil
		}
		call := func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
			return object.Undefined, rt.TypeError("Constructor %s requires 'new'", name)
		}
		ctor := newConstructor(r, name, 0, call, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
			return construct(rt, this, args)
		}, proto)
		global.DefineRaw(object.StringKey(name), object.DataSlot(object.FromObject(ctor), true, false, true))
		return ctor
	}
	buildCtor("Map", true, r.MapProto)
	buildCtor("Set", false, r.SetProto)
	buildCtor("WeakMap", true, r.WeakMapProto)
	buildCtor("WeakSet", false, r.WeakSetProto)
}
