package movement

import (
	"testing"

	"tilecraft.ai/internal/sim/world/terrain/store"
)

func TestDetourStepPicksDeterministicSideStep(t *testing.T) {
	g := testGrid{cols: 5, rows: 5, walls: map[store.Cell]bool{{Col: 2, Row: 2}: true}}
	solid := func(c store.Cell) bool { return g.Solid(c.Col, c.Row) }

	step, ok := DetourStep(store.Cell{Col: 1, Row: 2}, store.Cell{Col: 3, Row: 2}, 4, solid)
	if !ok {
		t.Fatalf("expected a detour step")
	}
	if step != (store.Cell{Col: 1, Row: 1}) && step != (store.Cell{Col: 1, Row: 3}) {
		t.Fatalf("unexpected step %+v", step)
	}
	again, _ := DetourStep(store.Cell{Col: 1, Row: 2}, store.Cell{Col: 3, Row: 2}, 4, solid)
	if again != step {
		t.Fatalf("detour not deterministic: %+v vs %+v", step, again)
	}
}

func TestDetourStepFailsWhenEnclosed(t *testing.T) {
	g := testGrid{cols: 3, rows: 3, walls: map[store.Cell]bool{
		{Col: 0, Row: 1}: true, {Col: 2, Row: 1}: true, {Col: 1, Row: 0}: true, {Col: 1, Row: 2}: true,
	}}
	solid := func(c store.Cell) bool { return g.Solid(c.Col, c.Row) }
	if _, ok := DetourStep(store.Cell{Col: 1, Row: 1}, store.Cell{Col: 2, Row: 2}, 3, solid); ok {
		t.Fatalf("expected no detour from an enclosed cell")
	}
	if _, ok := DetourStep(store.Cell{Col: 1, Row: 1}, store.Cell{Col: 2, Row: 2}, 0, solid); ok {
		t.Fatalf("maxDepth 0 must fail")
	}
}
