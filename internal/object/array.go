package object

// NewArray creates an empty Array object with the given prototype (normally
// the realm's Array.prototype). length is a magic accessor in spec terms,
// but is represented here directly as the ArrayLength internal slot for
// speed; runtime.GetProperty/SetProperty special-case the "length" key for
// KindArray objects to read/write this field instead of a property slot.
func NewArray(proto *Object) *Object {
	o := NewObjectWithKind(proto, KindArray, "Array")
	return o
}

// SetIndex stores v at index i, growing ArrayLength if necessary, and
// re-densifying holes below i is the caller's concern (sparse storage
// already handles that inside PropertyMap).
func (o *Object) SetIndex(i uint32, v Value) {
	o.DefineRaw(IndexKey(i), DataSlot(v, true, true, true))
}

// GetIndex returns the element at i, or NotFound if there is no own slot
// (the caller walks the prototype chain itself, as with any other Get).
func (o *Object) GetIndex(i uint32) Value {
	slot := o.GetOwn(IndexKey(i))
	if slot == nil || slot.IsAccessor {
		return NotFound
	}
	return slot.Value
}

// SetArrayLength implements the truncating side of the "length" magic
// property: shrinking length deletes every own index >= the new length
// (skipping non-configurable ones, as the spec's ArraySetLength algorithm
// requires — those stop the truncation and leave length at one past the
// surviving index).
func (o *Object) SetArrayLength(newLen uint32) bool {
	if newLen >= o.ArrayLength {
		o.ArrayLength = newLen
		return true
	}
	for idx := o.ArrayLength; idx > newLen; idx-- {
		key := IndexKey(idx - 1)
		slot := o.GetOwn(key)
		if slot == nil {
			continue
		}
		if !slot.Configurable {
			o.ArrayLength = idx
			return false
		}
		o.props.Delete(key)
	}
	o.ArrayLength = newLen
	return true
}
