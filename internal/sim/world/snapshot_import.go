package world

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"tilecraft.ai/internal/persistence/snapshot"
	"tilecraft.ai/internal/sim/catalogs"
	"tilecraft.ai/internal/sim/tuning"
	"tilecraft.ai/internal/sim/world/feature/entities/mobs"
	"tilecraft.ai/internal/sim/world/feature/work/mining"
	"tilecraft.ai/internal/sim/world/feature/work/smelting"
	"tilecraft.ai/internal/sim/world/logic/mathx"
	"tilecraft.ai/internal/sim/world/terrain/store"
)

// NewFromSnapshot builds a world directly from a snapshot, without generating
// terrain first.
func NewFromSnapshot(cfg WorldConfig, cats *catalogs.Catalogs, s snapshot.SnapshotV1) (*World, error) {
	cfg.Tuning.ApplyDefaults()
	w := newWorld(cfg, cats)
	if err := w.ImportSnapshot(s); err != nil {
		return nil, err
	}
	return w, nil
}

// ImportSnapshot restores grid, mobs, stations and player together. Every part
// is rebuilt off to the side first; the world is only touched once all of them
// decode, so a malformed snapshot leaves it unchanged.
func (w *World) ImportSnapshot(s snapshot.SnapshotV1) error {
	if err := snapshot.Validate(s); err != nil {
		return err
	}
	cats := w.catalogs

	grid, err := store.ImportGrid(&cats.Blocks, s.Grid)
	if err != nil {
		return fmt.Errorf("%w: %v", snapshot.ErrMalformed, err)
	}
	rng := &mathx.Source{Seed: s.RNG.Seed, N: s.RNG.N}

	t := w.cfg.Tuning
	if s.TickRate > 0 {
		t.TickRateHz = s.TickRate
	}
	if s.DaySeconds > 0 {
		t.DaySeconds = s.DaySeconds
	}
	t.World.Cols, t.World.Rows = grid.Cols, grid.Rows

	dir := mobs.NewDirectory(grid, &cats.Mobs, t.Mobs, rng)
	if err := dir.Restore(w.importMobs(s.Mobs), s.Counters.NextMob); err != nil {
		return fmt.Errorf("%w: %v", snapshot.ErrMalformed, err)
	}

	stations := smelting.New(cats.Recipes.Smelting)
	for key, sv := range s.Stations {
		st, err := w.importStation(sv)
		if err != nil {
			return fmt.Errorf("%w: station %s: %v", snapshot.ErrMalformed, key, err)
		}
		stations.Put(st)
	}

	var player *Player
	if s.Player != nil {
		player, err = w.importPlayer(t, *s.Player)
		if err != nil {
			return fmt.Errorf("%w: player: %v", snapshot.ErrMalformed, err)
		}
	} else {
		player, err = newPlayer(t.Player, &cats.Items)
		if err != nil {
			return err
		}
	}

	// Commit.
	if w.cfg.ID == "" {
		w.cfg.ID = s.Header.WorldID
	}
	w.cfg.Seed = s.Seed
	w.cfg.Tuning = t
	w.grid = grid
	w.rng = rng
	w.mining = mining.NewModel(grid, mining.Factors{
		WrongTool: t.Mining.WrongToolFactor,
		NoTool:    t.Mining.NoToolFactor,
	}, rng)
	w.stations = stations
	w.mobs = dir
	w.player = player
	if s.Player == nil {
		player.Pos = w.spawnPos(player)
	}
	w.mineTarget = nil
	w.elapsed = s.ElapsedSeconds
	w.tick.Store(s.Header.Tick + 1)
	return nil
}

func (w *World) importMobs(in []snapshot.MobV1) []mobs.Mob {
	out := make([]mobs.Mob, 0, len(in))
	for _, mv := range in {
		def := w.catalogs.Mobs.ByID[mv.Kind]
		m := mobs.Mob{
			ID:          mv.ID,
			Kind:        mv.Kind,
			Disposition: def.Disposition,
			Pos:         mgl64.Vec2{mv.Pos[0], mv.Pos[1]},
			Vel:         mgl64.Vec2{mv.Vel[0], mv.Vel[1]},
			Width:       def.Width,
			Height:      def.Height,
			Health:      mv.Health,
			MaxHealth:   mv.MaxHealth,
			Grounded:    mv.Grounded,
			PathTimer:   mv.PathTimer,
		}
		for _, c := range mv.Path {
			m.Path = append(m.Path, store.Cell{Col: c[0], Row: c[1]})
		}
		out = append(out, m)
	}
	return out
}

func (w *World) importStack(s *snapshot.StackV1) (*smelting.Stack, error) {
	if s == nil || s.Count == 0 {
		return nil, nil
	}
	k, ok := w.catalogs.Items.Kind(s.Item)
	if !ok {
		return nil, fmt.Errorf("unknown item %q", s.Item)
	}
	return &smelting.Stack{Item: k, Count: s.Count}, nil
}

func (w *World) importStation(sv snapshot.StationV1) (smelting.Station, error) {
	st := smelting.Station{Cell: store.Cell{Col: sv.Col, Row: sv.Row}, Elapsed: sv.Elapsed}
	var err error
	if st.Input, err = w.importStack(sv.Input); err != nil {
		return st, err
	}
	if st.Fuel, err = w.importStack(sv.Fuel); err != nil {
		return st, err
	}
	if st.Output, err = w.importStack(sv.Output); err != nil {
		return st, err
	}
	return st, nil
}

func (w *World) importPlayer(t tuning.Tuning, pv snapshot.PlayerV1) (*Player, error) {
	items := &w.catalogs.Items
	p, err := newPlayer(t.Player, items)
	if err != nil {
		return nil, err
	}
	p.Pos = mgl64.Vec2{pv.Pos[0], pv.Pos[1]}
	p.Health = pv.Health
	p.MaxHealth = pv.MaxHealth
	p.XP = pv.XP
	p.HurtTimer = pv.HurtTimer

	// gob decodes an empty map as nil; starter items never survive a restore.
	p.Inventory = map[catalogs.ItemKind]int{}
	p.Tools = nil
	for id, n := range pv.Inventory {
		k, ok := items.Kind(id)
		if !ok {
			return nil, fmt.Errorf("unknown item %q", id)
		}
		if n > 0 {
			p.Inventory[k] = n
		}
	}
	if pv.Armor != "" {
		k, ok := items.Kind(pv.Armor)
		if !ok {
			return nil, fmt.Errorf("unknown armor %q", pv.Armor)
		}
		p.Armor = k
	}
	for _, tv := range pv.Tools {
		k, ok := items.Kind(tv.Item)
		if !ok {
			return nil, fmt.Errorf("unknown tool %q", tv.Item)
		}
		def, _ := items.Def(k)
		ts, ok := mining.NewToolState(def)
		if !ok {
			return nil, fmt.Errorf("%s is not a tool", tv.Item)
		}
		ts.Durability = tv.Durability
		p.Tools = append(p.Tools, ts)
	}
	if pv.Selected < -1 || pv.Selected >= len(p.Tools) {
		return nil, fmt.Errorf("selected slot %d out of range", pv.Selected)
	}
	p.Selected = pv.Selected
	return p, nil
}
