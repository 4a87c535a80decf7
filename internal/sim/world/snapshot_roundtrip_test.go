package world

import (
	"bytes"
	"errors"
	"testing"

	"tilecraft.ai/internal/persistence/snapshot"
)

func TestSnapshotRoundTrip_DigestAndContinuation(t *testing.T) {
	w := newTestWorld(t, 99)
	c := setCell(w, 2, 2, 0)
	give(t, w, "FURNACE", 1)
	give(t, w, "IRON_ORE", 2)
	w.StepOnce([]Action{
		{Kind: ActPlace, Col: c.Col, Row: c.Row, Item: "FURNACE"},
		{Kind: ActFurnaceInput, Col: c.Col, Row: c.Row, Item: "IRON_ORE", Count: 2},
		{Kind: ActFurnaceFuel, Col: c.Col, Row: c.Row, Item: "COAL", Count: 2},
	})
	stepN(w, 30)

	snap := w.ExportSnapshot(w.CurrentTick() - 1)
	var buf bytes.Buffer
	if err := snapshot.Encode(&buf, snap); err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := snapshot.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	w2, err := NewFromSnapshot(testConfig(0), w.catalogs, decoded)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if w2.CurrentTick() != w.CurrentTick() {
		t.Fatalf("tick=%d want %d", w2.CurrentTick(), w.CurrentTick())
	}
	if !w2.grid.Equal(w.grid) {
		t.Fatalf("grid differs after import")
	}
	if w2.StateDigest() != w.StateDigest() {
		t.Fatalf("digest differs after import")
	}

	for i := 0; i < 250; i++ {
		_, d1 := w.StepOnce(nil)
		_, d2 := w2.StepOnce(nil)
		if d1 != d2 {
			t.Fatalf("digest diverged %d ticks after import", i)
		}
	}
	st, ok := w2.stations.Get(c)
	if !ok || st.Output == nil || st.Output.Count != 2 {
		t.Fatalf("imported furnace did not finish smelting: %+v", st)
	}
}

func TestImportSnapshot_MalformedLeavesWorld(t *testing.T) {
	w := newTestWorld(t, 5)
	stepN(w, 3)
	before := w.StateDigest()
	tick := w.CurrentTick()

	cases := map[string]func(*snapshot.SnapshotV1){
		"short cells": func(s *snapshot.SnapshotV1) { s.Grid.Cells = s.Grid.Cells[1:] },
		"unknown block": func(s *snapshot.SnapshotV1) {
			s.Grid.Palette = append([]string(nil), s.Grid.Palette...)
			s.Grid.Palette[len(s.Grid.Palette)-1] = "NOT_A_BLOCK"
		},
		"unknown inventory item": func(s *snapshot.SnapshotV1) {
			s.Player.Inventory = map[string]int{"NOT_AN_ITEM": 1}
		},
		"selected out of range": func(s *snapshot.SnapshotV1) { s.Player.Selected = 5 },
		"bad version":           func(s *snapshot.SnapshotV1) { s.Header.Version = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := w.ExportSnapshot(w.CurrentTick() - 1)
			mutate(&s)
			err := w.ImportSnapshot(s)
			if !errors.Is(err, snapshot.ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
			if w.StateDigest() != before || w.CurrentTick() != tick {
				t.Fatalf("failed import changed the world")
			}
		})
	}
}

func TestSnapshotSink_EveryN(t *testing.T) {
	cfg := testConfig(3)
	cfg.Tuning.SnapshotEveryTicks = 5
	w, err := New(cfg, newTestWorld(t, 3).catalogs)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	sink := make(chan snapshot.SnapshotV1, 8)
	w.SetSnapshotSink(sink)
	stepN(w, 11)

	var ticks []uint64
	for len(sink) > 0 {
		s := <-sink
		ticks = append(ticks, s.Header.Tick)
		if s.Header.SnapshotID == "" {
			t.Fatalf("snapshot id missing")
		}
	}
	if len(ticks) != 2 || ticks[0] != 5 || ticks[1] != 10 {
		t.Fatalf("snapshot ticks=%v want [5 10]", ticks)
	}
}
