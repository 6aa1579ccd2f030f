package bytecode

import (
	"math/big"
	"testing"
)

func buildSample() *Descriptor {
	d := NewDescriptor("f")
	d.ParamCount = 2
	d.IsStrict = true
	idx := d.AddString("x")
	d.EmitOp2(OpStr2, uint16(idx))
	d.EmitOp(OpReturn)
	d.AddInt(42)
	d.AddDouble(3.5)
	d.AddBigInt(big.NewInt(-7))
	d.Locals = append(d.Locals, LocalVar{Name: "x", SlotIdx: 0, IsParam: true})
	d.Exceptions = append(d.Exceptions, ExceptionHandler{Start: 0, End: 3, Target: 3, CatchVarIdx: -1})
	d.Lines = append(d.Lines, LineEntry{StartOffset: 0, Line: 1, Column: 1})
	d.UpvalueNames = append(d.UpvalueNames, "outer")
	d.Children = append(d.Children, NewDescriptor("inner"))
	return d
}

// TestDescriptorRoundTrip covers the protowire-based serialization format
// used to persist a compiled descriptor (e.g. a precompiled stdlib bundle).
func TestDescriptorRoundTrip(t *testing.T) {
	orig := buildSample()
	data := Marshal(orig)

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.Name != orig.Name || got.ParamCount != orig.ParamCount || got.IsStrict != orig.IsStrict {
		t.Fatalf("scalar fields mismatch: %+v vs %+v", got, orig)
	}
	if string(got.Code) != string(orig.Code) {
		t.Fatalf("code mismatch: %v vs %v", got.Code, orig.Code)
	}
	if len(got.Strings) != 1 || got.Strings[0] != "x" {
		t.Fatalf("strings mismatch: %v", got.Strings)
	}
	if len(got.Ints) != 1 || got.Ints[0] != 42 {
		t.Fatalf("ints mismatch: %v", got.Ints)
	}
	if len(got.Doubles) != 1 || got.Doubles[0] != 3.5 {
		t.Fatalf("doubles mismatch: %v", got.Doubles)
	}
	if len(got.BigInts) != 1 || got.BigInts[0].Cmp(big.NewInt(-7)) != 0 {
		t.Fatalf("bigints mismatch: %v", got.BigInts)
	}
	if len(got.Locals) != 1 || got.Locals[0].Name != "x" || !got.Locals[0].IsParam {
		t.Fatalf("locals mismatch: %+v", got.Locals)
	}
	if len(got.Exceptions) != 1 || got.Exceptions[0].End != 3 {
		t.Fatalf("exceptions mismatch: %+v", got.Exceptions)
	}
	if len(got.Lines) != 1 || got.Lines[0].Line != 1 {
		t.Fatalf("lines mismatch: %+v", got.Lines)
	}
	if len(got.UpvalueNames) != 1 || got.UpvalueNames[0] != "outer" {
		t.Fatalf("upvalue names mismatch: %v", got.UpvalueNames)
	}
	if len(got.Children) != 1 || got.Children[0].Name != "inner" {
		t.Fatalf("children mismatch: %+v", got.Children)
	}
}

func TestHandlerForInnermost(t *testing.T) {
	d := NewDescriptor("f")
	d.Exceptions = []ExceptionHandler{
		{Start: 0, End: 20, Target: 20, CatchVarIdx: -1},
		{Start: 5, End: 10, Target: 10, CatchVarIdx: -1},
	}
	h := d.HandlerFor(7)
	if h == nil || h.Start != 5 {
		t.Fatalf("expected innermost handler at offset 7, got %+v", h)
	}
	h = d.HandlerFor(15)
	if h == nil || h.Start != 0 {
		t.Fatalf("expected outer handler at offset 15, got %+v", h)
	}
}

func TestConstantPoolDedup(t *testing.T) {
	d := NewDescriptor("f")
	a := d.AddString("x")
	b := d.AddString("x")
	if a != b {
		t.Fatalf("expected AddString to dedup, got %d and %d", a, b)
	}
	if len(d.Strings) != 1 {
		t.Fatalf("expected 1 interned string, got %d", len(d.Strings))
	}
}
