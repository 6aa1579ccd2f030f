package scope

import (
	"testing"

	"github.com/ecmavm/engine/internal/object"
)

// TestBlockScopeTDZBinding covers half of Testable Property 4 (TDZ
// containment) at the scope layer: a hoisted let/const binding starts as
// object.TDZ and Get reports it as such, rather than as NotFound or any
// ordinary value, so the layer above (runtime.GetVarChecked) has something
// distinct to raise ReferenceError on.
func TestBlockScopeTDZBinding(t *testing.T) {
	bs := NewBlockScope(nil)
	bs.Declare("x", false, object.TDZ)

	b, ok := bs.Get("x")
	if !ok {
		t.Fatal("expected hoisted binding to be found")
	}
	if !b.Value.IsTDZ() {
		t.Fatalf("expected hoisted binding to read as TDZ, got %v", b.Value)
	}

	bs.Declare("x", false, object.Int32(1))
	b, _ = bs.Get("x")
	if b.Value.IsTDZ() {
		t.Fatal("expected re-declare (initializer running) to clear TDZ")
	}
}

// TestNearestNonArrowActivation covers the `this`/`arguments` read-through
// rule spec.md 4.C assigns to arrow functions: an arrow's CallScope must be
// skipped in favor of the nearest enclosing non-arrow activation.
func TestNearestNonArrowActivation(t *testing.T) {
	outer := NewActivation(nil, nil, object.FromObject(object.NewObject(nil)), false, false, nil)
	outerScope := NewCallScope(NewGlobalScope(object.NewObject(nil)), outer)

	arrow := NewActivation(nil, nil, object.Undefined, false, true, outer)
	arrowScope := NewCallScope(outerScope, arrow)

	got := NearestNonArrowActivation(arrowScope)
	if got != outer {
		t.Fatalf("expected arrow's this-lookup to resolve to the outer activation, got %+v", got)
	}

	got = NearestActivation(arrowScope)
	if got != arrow {
		t.Fatal("expected NearestActivation (no arrow-skipping) to return the arrow's own activation")
	}
}
