package smelting

import (
	"errors"
	"reflect"
	"testing"

	"tilecraft.ai/internal/sim/catalogs"
	"tilecraft.ai/internal/sim/world/terrain/store"
)

func loadCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load("../../../../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats
}

func item(t *testing.T, cats *catalogs.Catalogs, id string) catalogs.ItemKind {
	t.Helper()
	k, ok := cats.Items.Kind(id)
	if !ok {
		t.Fatalf("unknown item %s", id)
	}
	return k
}

func mustNil(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSingleSmeltCompletesAfterRecipeTime(t *testing.T) {
	cats := loadCatalogs(t)
	s := New(cats.Recipes.Smelting)
	cell := store.Cell{Col: 3, Row: 4}
	s.Open(cell)
	mustNil(t, s.InsertInput(cell, item(t, cats, "IRON_ORE"), 1))
	mustNil(t, s.InsertFuel(cell, item(t, cats, "COAL"), 1))

	const dt = 0.05
	var done []Completion
	for i := 0; i < 99; i++ {
		done = append(done, s.Tick(dt)...)
	}
	if len(done) != 0 {
		t.Fatalf("smelt finished before 5s: %+v", done)
	}
	st, _ := s.Get(cell)
	if st.Output != nil {
		t.Fatalf("output before completion: %+v", st.Output)
	}

	done = s.Tick(dt)
	if len(done) != 1 || done[0].Output.Item != item(t, cats, "IRON_INGOT") {
		t.Fatalf("completion=%+v want one IRON_INGOT", done)
	}

	st, _ = s.Get(cell)
	if st.Output == nil || st.Output.Count != 1 {
		t.Fatalf("output=%+v want 1", st.Output)
	}
	if st.Input != nil || st.Fuel != nil || st.Elapsed != 0 {
		t.Fatalf("station not drained: input=%+v fuel=%+v elapsed=%v", st.Input, st.Fuel, st.Elapsed)
	}

	for i := 0; i < 200; i++ {
		if got := s.Tick(dt); len(got) != 0 {
			t.Fatalf("idle station completed %+v", got)
		}
	}
	if st.Output.Count != 1 || st.Elapsed != 0 {
		t.Fatalf("idle station changed: output=%d elapsed=%v", st.Output.Count, st.Elapsed)
	}
}

func TestOneUnitPerInterval(t *testing.T) {
	cats := loadCatalogs(t)
	s := New(cats.Recipes.Smelting)
	cell := store.Cell{Col: 0, Row: 0}
	s.Open(cell)
	mustNil(t, s.InsertInput(cell, item(t, cats, "COBBLESTONE"), 3))
	mustNil(t, s.InsertFuel(cell, item(t, cats, "PLANK"), 2))

	// 4s recipe; two fuel units allow two smelts.
	for i := 0; i < 20*12; i++ {
		s.Tick(0.05)
	}
	st, _ := s.Get(cell)
	if st.Output == nil || st.Output.Count != 2 {
		t.Fatalf("output=%+v want 2", st.Output)
	}
	if st.Input == nil || st.Input.Count != 1 {
		t.Fatalf("input=%+v want 1 left", st.Input)
	}
	if st.Fuel != nil {
		t.Fatalf("fuel=%+v want spent", st.Fuel)
	}
}

func TestStationsSkipWithoutRecipeOrFuel(t *testing.T) {
	cats := loadCatalogs(t)
	s := New(cats.Recipes.Smelting)

	noRecipe := store.Cell{Col: 1, Row: 0}
	s.Open(noRecipe)
	mustNil(t, s.InsertInput(noRecipe, item(t, cats, "DIRT"), 1))
	mustNil(t, s.InsertFuel(noRecipe, item(t, cats, "COAL"), 1))

	noFuel := store.Cell{Col: 2, Row: 0}
	s.Open(noFuel)
	mustNil(t, s.InsertInput(noFuel, item(t, cats, "IRON_ORE"), 1))

	badFuel := store.Cell{Col: 3, Row: 0}
	s.Open(badFuel)
	mustNil(t, s.InsertInput(badFuel, item(t, cats, "GOLD_ORE"), 1))
	mustNil(t, s.InsertFuel(badFuel, item(t, cats, "PLANK"), 1))

	for i := 0; i < 400; i++ {
		if got := s.Tick(0.05); len(got) != 0 {
			t.Fatalf("tick %d completed %+v", i, got)
		}
	}
	for _, c := range []store.Cell{noRecipe, noFuel, badFuel} {
		st, _ := s.Get(c)
		if st.Elapsed != 0 || st.Output != nil {
			t.Fatalf("station %+v advanced: elapsed=%v output=%+v", c, st.Elapsed, st.Output)
		}
	}
}

func TestOutputOfAnotherKindBlocks(t *testing.T) {
	cats := loadCatalogs(t)
	s := New(cats.Recipes.Smelting)
	cell := store.Cell{Col: 0, Row: 0}
	s.Put(Station{
		Cell:   cell,
		Input:  &Stack{Item: item(t, cats, "IRON_ORE"), Count: 1},
		Fuel:   &Stack{Item: item(t, cats, "COAL"), Count: 1},
		Output: &Stack{Item: item(t, cats, "STONE"), Count: 2},
	})
	for i := 0; i < 200; i++ {
		if got := s.Tick(0.05); len(got) != 0 {
			t.Fatalf("blocked station completed %+v", got)
		}
	}
	out, err := s.TakeOutput(cell)
	mustNil(t, err)
	if out.Count != 2 {
		t.Fatalf("took %d want 2", out.Count)
	}
	if got := s.Tick(5); len(got) != 1 {
		t.Fatalf("unblocked station completions=%d want 1", len(got))
	}
}

func TestInsertAndTakeErrors(t *testing.T) {
	cats := loadCatalogs(t)
	s := New(cats.Recipes.Smelting)
	cell := store.Cell{Col: 5, Row: 5}
	if err := s.InsertInput(cell, item(t, cats, "IRON_ORE"), 1); !errors.Is(err, ErrNoStation) {
		t.Fatalf("insert without station: %v", err)
	}

	s.Open(cell)
	mustNil(t, s.InsertInput(cell, item(t, cats, "IRON_ORE"), 1))
	mustNil(t, s.InsertInput(cell, item(t, cats, "IRON_ORE"), 2))
	if err := s.InsertInput(cell, item(t, cats, "GOLD_ORE"), 1); !errors.Is(err, ErrStackMismatch) {
		t.Fatalf("mismatched insert: %v", err)
	}
	if _, err := s.TakeOutput(cell); !errors.Is(err, ErrEmpty) {
		t.Fatalf("take from empty output: %v", err)
	}

	st, _ := s.Get(cell)
	if st.Input.Count != 3 {
		t.Fatalf("input=%d want 3", st.Input.Count)
	}

	left := s.Remove(cell)
	want := []catalogs.ItemCount{{Item: item(t, cats, "IRON_ORE"), Count: 3}}
	if !reflect.DeepEqual(left, want) {
		t.Fatalf("remove returned %v want %v", left, want)
	}
	if s.Len() != 0 {
		t.Fatalf("len=%d after remove", s.Len())
	}
}
