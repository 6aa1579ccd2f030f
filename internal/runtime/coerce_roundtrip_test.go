package runtime

import (
	"math"
	"testing"

	"github.com/ecmavm/engine/internal/object"
)

// TestNumericRoundTrip covers Testable Property 5: toNumber(toString(x)) ===
// x for every finite x, and toUint32(i) === i for every non-negative 32-bit
// integer i.
func TestNumericRoundTrip(t *testing.T) {
	r := &Realm{}
	cases := []float64{0, 1, -1, 0.5, -0.5, 3.14159, 1e21, -1e21, 9007199254740991, math.MaxInt32, -1234567.891}
	for _, x := range cases {
		s, err := ToString(r, object.Float64(x))
		if err != nil {
			t.Fatalf("ToString(%v): %v", x, err)
		}
		got, err := ToNumber(r, object.String(s))
		if err != nil {
			t.Fatalf("ToNumber(%q): %v", s, err)
		}
		if got != x {
			t.Errorf("round-trip broke: x=%v -> %q -> %v", x, s, got)
		}
	}
}

func TestToUint32RoundTrip(t *testing.T) {
	r := &Realm{}
	for _, i := range []uint32{0, 1, 42, 1 << 16, math.MaxInt32, math.MaxUint32} {
		got, err := ToUint32(r, object.Float64(float64(i)))
		if err != nil {
			t.Fatalf("ToUint32(%d): %v", i, err)
		}
		if got != i {
			t.Errorf("ToUint32(%d) = %d, want %d", i, got, i)
		}
	}
}
