package world

import (
	"time"

	"github.com/google/uuid"

	"tilecraft.ai/internal/persistence/snapshot"
	"tilecraft.ai/internal/sim/world/feature/work/smelting"
	"tilecraft.ai/internal/sim/world/terrain/store"
)

// ExportSnapshot must be called from the world loop goroutine.
func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	now := time.Now().UnixMilli()
	return snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version:            snapshot.Version,
			WorldID:            w.cfg.ID,
			SnapshotID:         uuid.NewString(),
			Tick:               nowTick,
			SavedAtEpochMillis: now,
		},
		Seed:           w.cfg.Seed,
		TickRate:       w.cfg.Tuning.TickRateHz,
		DaySeconds:     w.cfg.Tuning.DaySeconds,
		ElapsedSeconds: w.elapsed,
		RNG:            snapshot.RNGV1{Seed: w.rng.Seed, N: w.rng.N},

		Grid:     store.ExportGrid(w.grid),
		Mobs:     w.exportMobs(),
		Stations: w.exportStations(),
		Player:   w.exportPlayer(),

		Counters: snapshot.CountersV1{NextMob: w.mobs.NextID()},

		SavedAtEpochMillis: now,
	}
}

func (w *World) exportMobs() []snapshot.MobV1 {
	ms := w.mobs.Mobs()
	out := make([]snapshot.MobV1, 0, len(ms))
	for _, m := range ms {
		mv := snapshot.MobV1{
			ID:          m.ID,
			Kind:        m.Kind,
			Disposition: string(m.Disposition),
			Pos:         [2]float64{m.Pos.X(), m.Pos.Y()},
			Vel:         [2]float64{m.Vel.X(), m.Vel.Y()},
			Health:      m.Health,
			MaxHealth:   m.MaxHealth,
			Grounded:    m.Grounded,
			PathTimer:   m.PathTimer,
		}
		for _, c := range m.Path {
			mv.Path = append(mv.Path, [2]int{c.Col, c.Row})
		}
		out = append(out, mv)
	}
	return out
}

func (w *World) exportStack(s *smelting.Stack) *snapshot.StackV1 {
	if s == nil || s.Count <= 0 {
		return nil
	}
	return &snapshot.StackV1{Item: w.catalogs.Items.Name(s.Item), Count: s.Count}
}

func (w *World) exportStations() map[string]snapshot.StationV1 {
	out := map[string]snapshot.StationV1{}
	for _, c := range w.stations.Cells() {
		st, _ := w.stations.Get(c)
		out[snapshot.StationKey(c.Col, c.Row)] = snapshot.StationV1{
			Col:     c.Col,
			Row:     c.Row,
			Input:   w.exportStack(st.Input),
			Fuel:    w.exportStack(st.Fuel),
			Output:  w.exportStack(st.Output),
			Elapsed: st.Elapsed,
		}
	}
	return out
}

func (w *World) exportPlayer() *snapshot.PlayerV1 {
	p := w.player
	if p == nil {
		return nil
	}
	inv := make(map[string]int, len(p.Inventory))
	for k, n := range p.Inventory {
		if n > 0 {
			inv[w.catalogs.Items.Name(k)] = n
		}
	}
	out := &snapshot.PlayerV1{
		Pos:       [2]float64{p.Pos.X(), p.Pos.Y()},
		Health:    p.Health,
		MaxHealth: p.MaxHealth,
		XP:        p.XP,
		Inventory: inv,
		Selected:  p.Selected,
		HurtTimer: p.HurtTimer,
	}
	if p.Armor != 0 {
		out.Armor = w.catalogs.Items.Name(p.Armor)
	}
	for _, t := range p.Tools {
		out.Tools = append(out.Tools, snapshot.ToolV1{Item: w.catalogs.Items.Name(t.Item), Durability: t.Durability})
	}
	return out
}
