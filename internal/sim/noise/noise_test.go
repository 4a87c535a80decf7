package noise

import (
	"math"
	"reflect"
	"testing"
)

func TestSampleIsPureAndInRange(t *testing.T) {
	for i := -50; i < 50; i++ {
		a := Sample(1337, i)
		if b := Sample(1337, i); a != b {
			t.Fatalf("Sample(1337,%d) not pure: %v vs %v", i, a, b)
		}
		if a < 0 || a >= 1 {
			t.Fatalf("Sample(1337,%d)=%v out of [0,1)", i, a)
		}
	}
	if Sample(1, 10) == Sample(2, 10) {
		t.Fatalf("seed does not change samples")
	}
}

func TestGenerateFieldDeterministic(t *testing.T) {
	a := GenerateField(42, 128, 0.05, 4, 8, DefaultPersistence)
	b := GenerateField(42, 128, 0.05, 4, 8, DefaultPersistence)
	if len(a) != 128 {
		t.Fatalf("len=%d want 128", len(a))
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced different fields")
	}
	if c := GenerateField(43, 128, 0.05, 4, 8, DefaultPersistence); reflect.DeepEqual(a, c) {
		t.Fatalf("different seeds produced the same field")
	}
}

func TestGenerateFieldAmplitudeBound(t *testing.T) {
	// Sum of amp * persistence^o for 3 octaves: 10 + 5 + 2.5.
	field := GenerateField(9, 200, 0.1, 3, 10, 0.5)
	for i, v := range field {
		if v < 0 || v >= 17.5 {
			t.Fatalf("field[%d]=%v out of [0,17.5)", i, v)
		}
	}
}

func TestGenerateFieldSingleOctaveHitsLattice(t *testing.T) {
	// With scale 1 every index lands on a lattice point.
	field := GenerateField(5, 10, 1, 1, 1, DefaultPersistence)
	for i, v := range field {
		if want := Sample(5, i); math.Abs(v-want) > 1e-12 {
			t.Fatalf("field[%d]=%v want %v", i, v, want)
		}
	}
}

func TestGenerateFieldEmpty(t *testing.T) {
	if f := GenerateField(1, 0, 0.1, 2, 1, DefaultPersistence); f != nil {
		t.Fatalf("zero length field=%v want nil", f)
	}
}

func TestFieldsDeterministic(t *testing.T) {
	for _, kind := range []string{"value", "simplex"} {
		f1 := NewField(kind, 77, 0.12, 3)
		f2 := NewField(kind, 77, 0.12, 3)
		for col := 0; col < 20; col++ {
			for row := 0; row < 20; row++ {
				v := f1.At(col, row)
				if v != f2.At(col, row) {
					t.Fatalf("%s: At(%d,%d) not deterministic", kind, col, row)
				}
				if v < 0 || v > 1 {
					t.Fatalf("%s: At(%d,%d)=%v out of [0,1]", kind, col, row, v)
				}
			}
		}
	}
}
