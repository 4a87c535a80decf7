package world

import (
	"testing"

	"tilecraft.ai/internal/sim/catalogs"
	"tilecraft.ai/internal/sim/tuning"
	"tilecraft.ai/internal/sim/world/terrain/store"
)

func testConfig(seed int64) WorldConfig {
	t := tuning.Defaults()
	t.World.Cols = 64
	t.World.Rows = 48
	return WorldConfig{ID: "test", Seed: seed, Tuning: t}
}

func newTestWorld(t *testing.T, seed int64) *World {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	w, err := New(testConfig(seed), cats)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	return w
}

// quietWorld has no mobs and a player standing far from the test cells.
func quietWorld(t *testing.T) *World {
	t.Helper()
	w := newTestWorld(t, 7)
	if err := w.mobs.Restore(nil, w.mobs.NextID()); err != nil {
		t.Fatalf("clear mobs: %v", err)
	}
	return w
}

func block(t *testing.T, w *World, id string) catalogs.BlockKind {
	t.Helper()
	k, ok := w.catalogs.Blocks.Kind(id)
	if !ok {
		t.Fatalf("missing block %s", id)
	}
	return k
}

func itemKind(t *testing.T, w *World, id string) catalogs.ItemKind {
	t.Helper()
	k, ok := w.catalogs.Items.Kind(id)
	if !ok {
		t.Fatalf("missing item %s", id)
	}
	return k
}

func give(t *testing.T, w *World, id string, n int) {
	t.Helper()
	w.player.GrantItems([]catalogs.ItemCount{{Item: itemKind(t, w, id), Count: n}})
}

func setCell(w *World, col, row int, b catalogs.BlockKind) store.Cell {
	c := store.Cell{Col: col, Row: row}
	w.grid.SetCell(c, b)
	return c
}

func stepN(w *World, n int) {
	for i := 0; i < n; i++ {
		w.StepOnce(nil)
	}
}

func hasEvent(w *World, typ string) bool {
	for _, e := range w.events {
		if e.Type == typ {
			return true
		}
	}
	return false
}
