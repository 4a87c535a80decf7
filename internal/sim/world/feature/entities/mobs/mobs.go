// Package mobs owns mob entities: spawning, physics against the grid, wander
// and pursuit AI, and the death sweep.
package mobs

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"tilecraft.ai/internal/sim/catalogs"
	"tilecraft.ai/internal/sim/tuning"
	"tilecraft.ai/internal/sim/world/feature/work/mining"
	"tilecraft.ai/internal/sim/world/logic/movement"
	"tilecraft.ai/internal/sim/world/terrain/store"
)

const eps = 1e-6

// Mob positions are in tiles; Pos is the top-left corner of the body.
type Mob struct {
	ID          uint64
	Kind        string
	Disposition catalogs.Disposition
	Pos         mgl64.Vec2
	Vel         mgl64.Vec2
	Width       float64
	Height      float64
	Health      int
	MaxHealth   int
	Grounded    bool
	Path        []store.Cell
	PathTimer   float64
}

func (m *Mob) Center() mgl64.Vec2 {
	return m.Pos.Add(mgl64.Vec2{m.Width / 2, m.Height / 2})
}

// Feet is the cell holding the bottom centre of the body.
func (m *Mob) Feet() store.Cell {
	return store.Cell{
		Col: int(math.Floor(m.Pos.X() + m.Width/2)),
		Row: int(math.Floor(m.Pos.Y() + m.Height - eps)),
	}
}

// Player is the collaborator mobs interact with. It owns damage policy and
// inventory; the directory only reports what happened.
type Player interface {
	Position() mgl64.Vec2
	Size() mgl64.Vec2
	TakeDamage(amount int) int
	GrantXP(xp int)
	GrantItems(items []catalogs.ItemCount)
}

// Death is reported once per mob removed by the sweep.
type Death struct {
	ID    uint64
	Kind  string
	XP    int
	Drops []catalogs.ItemCount
}

type Report struct {
	Spawned []uint64
	Hits    int
	Deaths  []Death
}

type Directory struct {
	grid   *store.Grid
	defs   *catalogs.MobCatalog
	cfg    tuning.Mobs
	rng    mining.Roller
	mobs   []*Mob
	nextID uint64
}

func NewDirectory(grid *store.Grid, defs *catalogs.MobCatalog, cfg tuning.Mobs, rng mining.Roller) *Directory {
	return &Directory{
		grid:   grid,
		defs:   defs,
		cfg:    cfg,
		rng:    rng,
		nextID: 1,
	}
}

// Rebind points the directory at a restored grid and random source.
func (d *Directory) Rebind(grid *store.Grid, rng mining.Roller) {
	d.grid = grid
	d.rng = rng
}

func (d *Directory) Len() int            { return len(d.mobs) }
func (d *Directory) NextID() uint64      { return d.nextID }
func (d *Directory) Mobs() []*Mob        { return d.mobs }
func (d *Directory) Config() tuning.Mobs { return d.cfg }

func (d *Directory) Get(id uint64) (*Mob, bool) {
	i := sort.Search(len(d.mobs), func(i int) bool { return d.mobs[i].ID >= id })
	if i < len(d.mobs) && d.mobs[i].ID == id {
		return d.mobs[i], true
	}
	return nil, false
}

// Restore replaces every mob. IDs must be unique and below nextID.
func (d *Directory) Restore(ms []Mob, nextID uint64) error {
	out := make([]*Mob, 0, len(ms))
	seen := map[uint64]bool{}
	for i := range ms {
		m := ms[i]
		if _, ok := d.defs.ByID[m.Kind]; !ok {
			return fmt.Errorf("mob %d: unknown kind %q", m.ID, m.Kind)
		}
		if seen[m.ID] || m.ID >= nextID {
			return fmt.Errorf("mob %d: invalid id", m.ID)
		}
		seen[m.ID] = true
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	d.mobs = out
	d.nextID = nextID
	return nil
}

// Spawn creates a mob of kind with its top-left corner at pos.
func (d *Directory) Spawn(kind string, pos mgl64.Vec2) (*Mob, error) {
	def, ok := d.defs.ByID[kind]
	if !ok {
		return nil, fmt.Errorf("unknown mob kind %q", kind)
	}
	m := &Mob{
		ID:          d.nextID,
		Kind:        def.ID,
		Disposition: def.Disposition,
		Pos:         pos,
		Width:       def.Width,
		Height:      def.Height,
		Health:      def.Health,
		MaxHealth:   def.Health,
	}
	d.nextID++
	d.mobs = append(d.mobs, m)
	return m, nil
}

// surfacePos rests a body of the given size on top of the surface at col.
func (d *Directory) surfacePos(col int, w, h float64) mgl64.Vec2 {
	row := d.grid.FindSurfaceRow(col)
	x := float64(col) + (1-w)/2
	if row >= d.grid.Rows {
		return mgl64.Vec2{x, 0}
	}
	return mgl64.Vec2{x, float64(row) - h}
}

// SeedPassive places count passive mobs at random surface columns.
func (d *Directory) SeedPassive(count int) ([]uint64, error) {
	def, ok := d.defs.ByID[d.cfg.PassiveKind]
	if !ok {
		return nil, fmt.Errorf("unknown passive kind %q", d.cfg.PassiveKind)
	}
	var ids []uint64
	for i := 0; i < count; i++ {
		col := d.rng.Intn(d.grid.Cols)
		m, err := d.Spawn(def.ID, d.surfacePos(col, def.Width, def.Height))
		if err != nil {
			return ids, err
		}
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// Damage lowers a mob's health. Removal happens in the next death sweep.
func (d *Directory) Damage(id uint64, amount int) bool {
	m, ok := d.Get(id)
	if !ok || amount <= 0 || m.Health <= 0 {
		return false
	}
	m.Health -= amount
	return true
}

func (d *Directory) hostiles() int {
	n := 0
	for _, m := range d.mobs {
		if m.Disposition == catalogs.Hostile {
			n++
		}
	}
	return n
}

// Update runs one tick: night spawning, then per mob physics and AI in ID
// order, then the death sweep.
func (d *Directory) Update(dt, cycle float64, p Player) Report {
	var rep Report
	night := d.cfg.NightActive(cycle)
	if night {
		if id, ok := d.maybeSpawnHostile(p); ok {
			rep.Spawned = append(rep.Spawned, id)
		}
	}
	for _, m := range d.mobs {
		if m.Health <= 0 {
			continue
		}
		def := d.defs.ByID[m.Kind]
		d.applyGravity(m, dt)
		blocked := false
		switch m.Disposition {
		case catalogs.Passive:
			if d.rng.Float64() < d.cfg.WanderChance {
				m.Vel[0] = (d.rng.Float64() - 0.5) * 2 * d.cfg.WanderSpeed
			}
			blocked = d.moveHorizontal(m, dt)
			if blocked {
				d.hop(m)
			}
		case catalogs.Hostile:
			if !night {
				m.Vel[0] = 0
				m.Path = nil
				m.PathTimer = 0
				continue
			}
			d.pursue(m, def, dt, p)
			d.moveHorizontal(m, dt)
			if d.inMelee(m, p) {
				p.TakeDamage(def.Damage)
				rep.Hits++
			}
		}
	}
	rep.Deaths = d.sweep(p)
	return rep
}

func (d *Directory) maybeSpawnHostile(p Player) (uint64, bool) {
	if d.cfg.MaxHostiles > 0 && d.hostiles() >= d.cfg.MaxHostiles {
		return 0, false
	}
	if d.rng.Float64() >= d.cfg.HostileSpawnChance {
		return 0, false
	}
	def, ok := d.defs.ByID[d.cfg.HostileKind]
	if !ok {
		return 0, false
	}
	offset := d.cfg.SpawnOffsetX
	if d.rng.Float64() < 0.5 {
		offset = -offset
	}
	pos := p.Position().Add(mgl64.Vec2{offset, -d.cfg.SpawnOffsetY})
	col := int(math.Floor(pos.X() + def.Width/2))
	if col < 0 || col >= d.grid.Cols {
		return 0, false
	}
	if d.bodyBlocked(pos, def.Width, def.Height) {
		pos = d.surfacePos(col, def.Width, def.Height)
	}
	m, err := d.Spawn(def.ID, pos)
	if err != nil {
		return 0, false
	}
	return m.ID, true
}

func (d *Directory) bodyBlocked(pos mgl64.Vec2, w, h float64) bool {
	c0, c1 := int(math.Floor(pos.X()+eps)), int(math.Floor(pos.X()+w-eps))
	r0, r1 := int(math.Floor(pos.Y()+eps)), int(math.Floor(pos.Y()+h-eps))
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			if d.grid.Solid(c, r) {
				return true
			}
		}
	}
	return false
}

// applyGravity integrates vertical motion. Falling bodies snap onto the first
// solid cell under the feet column; rising bodies stop under a solid ceiling.
func (d *Directory) applyGravity(m *Mob, dt float64) {
	m.Vel[1] += d.cfg.Gravity * dt
	col := m.Feet().Col
	oldY := m.Pos.Y()
	newY := oldY + m.Vel.Y()*dt

	if m.Vel.Y() >= 0 {
		first := int(math.Floor(oldY+m.Height-eps)) + 1
		last := int(math.Floor(newY + m.Height - eps))
		for r := first; r <= last; r++ {
			if d.grid.Solid(col, r) {
				m.Pos[1] = float64(r) - m.Height
				m.Vel[1] = 0
				m.Grounded = true
				return
			}
		}
		// Resting exactly on a solid cell stays grounded.
		if last < first && d.grid.Solid(col, first) && math.Abs(oldY+m.Height-float64(first)) < eps {
			m.Pos[1] = float64(first) - m.Height
			m.Vel[1] = 0
			m.Grounded = true
			return
		}
		m.Pos[1] = newY
		m.Grounded = false
		return
	}

	for r := int(math.Floor(oldY - eps)); r >= int(math.Floor(newY)); r-- {
		if d.grid.Solid(col, r) {
			m.Pos[1] = float64(r + 1)
			m.Vel[1] = 0
			m.Grounded = false
			return
		}
	}
	m.Pos[1] = newY
	m.Grounded = false
}

// moveHorizontal applies Vel.X, stopping flush against solid cells. It
// reports whether the body was blocked.
func (d *Directory) moveHorizontal(m *Mob, dt float64) bool {
	vx := m.Vel.X()
	if vx == 0 {
		return false
	}
	newX := m.Pos.X() + vx*dt
	r0 := int(math.Floor(m.Pos.Y() + eps))
	r1 := int(math.Floor(m.Pos.Y() + m.Height - eps))
	var lead int
	if vx > 0 {
		lead = int(math.Floor(newX + m.Width - eps))
	} else {
		lead = int(math.Floor(newX + eps))
	}
	for r := r0; r <= r1; r++ {
		if !d.grid.Solid(lead, r) {
			continue
		}
		if vx > 0 {
			m.Pos[0] = float64(lead) - m.Width
		} else {
			m.Pos[0] = float64(lead + 1)
		}
		return true
	}
	m.Pos[0] = newX
	return false
}

// hop lets a blocked wanderer jump when a short detour leads upward.
func (d *Directory) hop(m *Mob) {
	if !m.Grounded {
		return
	}
	feet := m.Feet()
	dir := 1
	if m.Vel.X() < 0 {
		dir = -1
	}
	target := store.Cell{Col: feet.Col + 4*dir, Row: feet.Row}
	solid := func(c store.Cell) bool { return d.grid.Solid(c.Col, c.Row) }
	step, ok := movement.DetourStep(feet, target, 4, solid)
	if !ok {
		m.Vel[0] = 0
		return
	}
	if step.Row < feet.Row {
		m.Vel[1] = -d.cfg.JumpVelocity
		m.Grounded = false
	}
}

// pursue refreshes the path on its timer or when it runs dry, then steers
// toward the next waypoint.
func (d *Directory) pursue(m *Mob, def catalogs.MobDef, dt float64, p Player) {
	feet := m.Feet()
	m.PathTimer -= dt
	if len(m.Path) == 0 || m.PathTimer <= 0 {
		m.PathTimer = d.cfg.PathRefreshSeconds
		goal := playerFeet(p)
		path, ok := movement.FindPath(d.grid, feet, goal)
		if ok && len(path) > 0 && path[0] == feet {
			path = path[1:]
		}
		if ok {
			m.Path = path
		} else {
			m.Path = nil
		}
	}
	if len(m.Path) == 0 {
		m.Vel[0] = 0
		return
	}
	next := m.Path[0]
	if next.Row == feet.Row-1 && m.Grounded {
		m.Vel[1] = -d.cfg.JumpVelocity
		m.Grounded = false
	}
	dx := float64(next.Col) + 0.5 - m.Center().X()
	if math.Abs(dx) < d.cfg.WaypointThreshold {
		m.Path = m.Path[1:]
		m.Vel[0] = 0
		return
	}
	speed := def.Speed
	if dx < 0 {
		speed = -speed
	}
	m.Vel[0] = speed
}

func playerFeet(p Player) store.Cell {
	pos, size := p.Position(), p.Size()
	return store.Cell{
		Col: int(math.Floor(pos.X() + size.X()/2)),
		Row: int(math.Floor(pos.Y() + size.Y() - eps)),
	}
}

func (d *Directory) inMelee(m *Mob, p Player) bool {
	pc := p.Position().Add(p.Size().Mul(0.5))
	mc := m.Center()
	return math.Abs(pc.X()-mc.X()) < d.cfg.MeleeRange && math.Abs(pc.Y()-mc.Y()) < m.Height
}

// sweep removes dead mobs, granting XP and drops exactly once per mob.
func (d *Directory) sweep(p Player) []Death {
	var deaths []Death
	kept := d.mobs[:0]
	for _, m := range d.mobs {
		if m.Health > 0 {
			kept = append(kept, m)
			continue
		}
		def := d.defs.ByID[m.Kind]
		drops := mining.ResolveDrops(def.Drops, d.rng)
		p.GrantXP(def.XP)
		p.GrantItems(drops)
		deaths = append(deaths, Death{ID: m.ID, Kind: m.Kind, XP: def.XP, Drops: drops})
	}
	for i := len(kept); i < len(d.mobs); i++ {
		d.mobs[i] = nil
	}
	d.mobs = kept
	return deaths
}
