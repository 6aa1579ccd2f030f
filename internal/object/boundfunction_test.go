package object

import "testing"

// TestBoundFunctionLengthAndName covers Testable Property 7: for a function
// f with length n, bound with k args, the bound function's length is
// max(0, n-k) and its name is "bound " + f.name.
func TestBoundFunctionLengthAndName(t *testing.T) {
	proto := NewObject(nil)
	target := NewFunction(proto, nil, nil, "add", 3)

	cases := []struct {
		boundArgs  []Value
		wantLength int
	}{
		{nil, 3},
		{[]Value{Int32(1)}, 2},
		{[]Value{Int32(1), Int32(2)}, 1},
		{[]Value{Int32(1), Int32(2), Int32(3)}, 0},
		{[]Value{Int32(1), Int32(2), Int32(3), Int32(4)}, 0}, // more bound args than length: clamp at 0
	}
	for _, c := range cases {
		bound := NewBoundFunction(proto, target, Undefined, c.boundArgs)
		if got := FunctionLength(bound); got != c.wantLength {
			t.Errorf("BoundLength with %d bound args = %d, want %d", len(c.boundArgs), got, c.wantLength)
		}
		if got := FunctionName(bound); got != "bound add" {
			t.Errorf("BoundName = %q, want %q", got, "bound add")
		}
	}
}

// TestBoundFunctionIsCallable confirms a bound function is callable and,
// when its target is a constructor, itself usable with `new`.
func TestBoundFunctionIsCallable(t *testing.T) {
	proto := NewObject(nil)
	target := NewFunction(proto, nil, nil, "C", 0)
	bound := NewBoundFunction(proto, target, Undefined, nil)

	if !IsCallable(bound) {
		t.Fatal("expected a bound function to be callable")
	}
	if !IsConstructor(bound) {
		t.Fatal("expected a bound function whose target is a constructor to itself be a constructor")
	}
}
