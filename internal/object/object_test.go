package object

import "testing"

// TestOwnKeysOrder covers Testable Property 1: integer-index keys ascend,
// then string keys in insertion order, then symbol keys in insertion order.
func TestOwnKeysOrder(t *testing.T) {
	o := NewObject(nil)
	o.DefineRaw(StringKey("b"), DataSlot(String("1"), true, true, true))
	o.DefineRaw(StringKey("2"), DataSlot(String("two"), true, true, true))
	o.DefineRaw(StringKey("a"), DataSlot(String("2"), true, true, true))
	o.DefineRaw(StringKey("0"), DataSlot(String("zero"), true, true, true))
	sym := NewSymbol("tag")
	o.DefineRaw(SymKey(sym), DataSlot(True, true, true, true))

	keys := o.OwnKeys(true, true)
	want := []string{"0", "2", "b", "a", "tag"}
	if len(keys) != len(want) {
		t.Fatalf("got %d keys, want %d (%v)", len(keys), len(want), keys)
	}
	for i, k := range keys {
		if k.String() != want[i] {
			t.Errorf("key %d = %q, want %q", i, k.String(), want[i])
		}
	}
}

// TestFrozenImmutability covers Testable Property 2 at the object-model
// level: PreventExtensions clears the extensible flag, an existing
// non-writable slot stays non-writable, and a non-configurable slot cannot
// be deleted (rejecting new keys on a non-extensible object is enforced
// one layer up, in package runtime's property writes, since object.Object
// never raises script-visible errors).
func TestFrozenImmutability(t *testing.T) {
	o := NewObject(nil)
	o.DefineRaw(StringKey("x"), DataSlot(Int32(1), false, true, false))
	o.PreventExtensions()

	if o.IsExtensible() {
		t.Fatal("expected object to be non-extensible")
	}
	slot := o.GetOwn(StringKey("x"))
	if slot == nil || slot.Writable {
		t.Fatal("expected existing slot to remain non-writable")
	}
	if ok := o.Delete(StringKey("x")); ok {
		t.Fatal("expected delete of non-configurable slot to fail")
	}
}

// TestPrototypeAcyclicity covers Testable Property 3.
func TestPrototypeAcyclicity(t *testing.T) {
	a := NewObject(nil)
	b := NewObject(a)
	if ok := a.SetPrototype(b); ok {
		t.Fatal("expected setting a's prototype to b (which has a as prototype) to fail")
	}
	if a.GetPrototype() != nil {
		t.Fatal("rejected SetPrototype must not mutate the prototype link")
	}

	c := NewObject(nil)
	if ok := b.SetPrototype(c); !ok {
		t.Fatal("expected unrelated prototype assignment to succeed")
	}
}

func TestArrayLengthTruncates(t *testing.T) {
	a := NewArray(nil)
	a.SetIndex(0, Int32(1))
	a.SetIndex(1, Int32(2))
	a.SetIndex(2, Int32(3))
	if a.ArrayLength != 3 {
		t.Fatalf("length = %d, want 3", a.ArrayLength)
	}
	if ok := a.SetArrayLength(1); !ok {
		t.Fatal("expected length truncation to succeed")
	}
	if a.ArrayLength != 1 {
		t.Fatalf("length after truncate = %d, want 1", a.ArrayLength)
	}
	if slot := a.GetOwn(IndexKey(1)); slot != nil {
		t.Fatal("expected index 1 to be deleted by truncation")
	}
}

func TestBoundFunctionLengthAndName(t *testing.T) {
	fn := NewFunction(nil, nil, nil, "f", 3)
	bound := NewBoundFunction(nil, fn, Undefined, []Value{Int32(1)})
	if got := bound.BoundLength(); got != 2 {
		t.Fatalf("bound length = %d, want 2", got)
	}
	if got := bound.BoundName(); got != "bound f" {
		t.Fatalf("bound name = %q, want %q", got, "bound f")
	}

	overApplied := NewBoundFunction(nil, fn, Undefined, []Value{Int32(1), Int32(2), Int32(3), Int32(4)})
	if got := overApplied.BoundLength(); got != 0 {
		t.Fatalf("over-applied bound length = %d, want 0", got)
	}
}

func TestSymbolRegistryIdentity(t *testing.T) {
	reg := newSymbolRegistry()
	a := reg.For("shared")
	b := reg.For("shared")
	if a != b {
		t.Fatal("Symbol.for with the same key must return the same identity")
	}
	if key, ok := reg.KeyFor(a); !ok || key != "shared" {
		t.Fatalf("KeyFor = %q, %v; want \"shared\", true", key, ok)
	}
	fresh := NewSymbol("shared")
	if fresh == a {
		t.Fatal("NewSymbol must never collide with a registered symbol of the same description")
	}
}
