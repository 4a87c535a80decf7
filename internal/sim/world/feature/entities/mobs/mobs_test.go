package mobs

import (
	"math"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"tilecraft.ai/internal/sim/catalogs"
	"tilecraft.ai/internal/sim/tuning"
	"tilecraft.ai/internal/sim/world/terrain/store"
)

type fixedRoller struct{ f float64 }

func (r fixedRoller) Float64() float64 { return r.f }
func (r fixedRoller) Intn(n int) int   { return 0 }

type fakePlayer struct {
	pos    mgl64.Vec2
	damage int
	xp     int
	items  []catalogs.ItemCount
}

func (p *fakePlayer) Position() mgl64.Vec2 { return p.pos }
func (p *fakePlayer) Size() mgl64.Vec2     { return mgl64.Vec2{0.8, 1} }
func (p *fakePlayer) TakeDamage(n int) int { p.damage += n; return n }
func (p *fakePlayer) GrantXP(n int)        { p.xp += n }
func (p *fakePlayer) GrantItems(items []catalogs.ItemCount) {
	p.items = append(p.items, items...)
}

const (
	day   = 0.2
	night = 0.6
	dt    = 0.05
)

// flatWorld is 20x10 with solid stone from row 8 down.
func flatWorld(t *testing.T, roll float64) (*catalogs.Catalogs, *store.Grid, *Directory) {
	t.Helper()
	cats, err := catalogs.Load("../../../../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	grid := store.NewGrid(20, 10, &cats.Blocks)
	stone := cats.Blocks.Index["STONE"]
	for col := 0; col < 20; col++ {
		grid.Set(col, 8, stone)
		grid.Set(col, 9, stone)
	}
	d := NewDirectory(grid, &cats.Mobs, tuning.Defaults().Mobs, fixedRoller{f: roll})
	return cats, grid, d
}

func spawn(t *testing.T, d *Directory, kind string, pos mgl64.Vec2) *Mob {
	t.Helper()
	m, err := d.Spawn(kind, pos)
	if err != nil {
		t.Fatalf("spawn %s: %v", kind, err)
	}
	return m
}

func TestGravityRestsOnFirstSolidCell(t *testing.T) {
	_, _, d := flatWorld(t, 0.99)
	m := spawn(t, d, "SHEEP", mgl64.Vec2{5.05, 0})
	p := &fakePlayer{pos: mgl64.Vec2{15, 7}}

	for i := 0; i < 40; i++ {
		d.Update(dt, day, p)
	}
	if !m.Grounded {
		t.Fatalf("expected grounded")
	}
	if got := m.Pos.Y() + m.Height; math.Abs(got-8) > 1e-9 {
		t.Fatalf("feet y: got %v want 8", got)
	}
	if m.Vel.Y() != 0 {
		t.Fatalf("vel y: got %v want 0", m.Vel.Y())
	}
	if got, want := m.Feet(), (store.Cell{Col: 5, Row: 7}); got != want {
		t.Fatalf("feet: got %+v want %+v", got, want)
	}
}

func TestSeedPassiveRestsOnSurface(t *testing.T) {
	_, _, d := flatWorld(t, 0.99)
	ids, err := d.SeedPassive(3)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("ids: got %d want 3", len(ids))
	}
	for _, m := range d.Mobs() {
		if m.Disposition != catalogs.Passive {
			t.Fatalf("mob %d: disposition %v", m.ID, m.Disposition)
		}
		if got := m.Pos.Y() + m.Height; math.Abs(got-8) > 1e-9 {
			t.Fatalf("mob %d feet y: got %v want 8", m.ID, got)
		}
	}
}

func TestPassiveWanderSetsVelocity(t *testing.T) {
	_, _, still := flatWorld(t, 0.99)
	s := spawn(t, still, "SHEEP", mgl64.Vec2{5.05, 7.1})
	p := &fakePlayer{pos: mgl64.Vec2{15, 7}}
	still.Update(dt, day, p)
	if s.Vel.X() != 0 {
		t.Fatalf("roll above wander chance: vel x %v want 0", s.Vel.X())
	}

	// A zero roll passes the wander check and then picks the far left of
	// the speed range.
	_, _, d := flatWorld(t, 0)
	m := spawn(t, d, "SHEEP", mgl64.Vec2{5.05, 7.1})
	d.Update(dt, day, p)
	want := -d.Config().WanderSpeed
	if math.Abs(m.Vel.X()-want) > 1e-9 {
		t.Fatalf("vel x: got %v want %v", m.Vel.X(), want)
	}
	if got := 5.05 + want*dt; math.Abs(m.Pos.X()-got) > 1e-9 {
		t.Fatalf("pos x: got %v want %v", m.Pos.X(), got)
	}
}

func TestHostileSpawnsOnlyAtNight(t *testing.T) {
	_, _, d := flatWorld(t, 0)
	// A zero roll puts the spawn on the left, 15.625 tiles away.
	p := &fakePlayer{pos: mgl64.Vec2{16, 7}}

	rep := d.Update(dt, day, p)
	if len(rep.Spawned) != 0 || d.Len() != 0 {
		t.Fatalf("day spawn: spawned=%v len=%d", rep.Spawned, d.Len())
	}

	rep = d.Update(dt, night, p)
	if len(rep.Spawned) != 1 {
		t.Fatalf("night spawn: got %v", rep.Spawned)
	}
	m, ok := d.Get(rep.Spawned[0])
	if !ok {
		t.Fatalf("spawned mob %d missing", rep.Spawned[0])
	}
	if m.Kind != "ZOMBIE" || m.Disposition != catalogs.Hostile {
		t.Fatalf("spawned %s/%v, want hostile ZOMBIE", m.Kind, m.Disposition)
	}
}

func TestHostilePursuesAndStrikes(t *testing.T) {
	_, _, d := flatWorld(t, 0.99)
	z := spawn(t, d, "ZOMBIE", mgl64.Vec2{2.05, 8 - 1.4})
	p := &fakePlayer{pos: mgl64.Vec2{12, 7}}

	startX := z.Pos.X()
	for i := 0; i < 20; i++ {
		d.Update(dt, night, p)
	}
	if z.Pos.X() <= startX+1 {
		t.Fatalf("zombie x: got %v want > %v", z.Pos.X(), startX+1)
	}
	if p.damage != 0 {
		t.Fatalf("damage before contact: %d", p.damage)
	}

	p.pos = mgl64.Vec2{z.Pos.X() + 0.5, 7}
	rep := d.Update(dt, night, p)
	if rep.Hits != 1 || p.damage != 2 {
		t.Fatalf("strike: hits=%d damage=%d want 1/2", rep.Hits, p.damage)
	}
}

func TestHostileJumpsOntoStep(t *testing.T) {
	cats, grid, d := flatWorld(t, 0.99)
	grid.Set(6, 7, cats.Blocks.Index["STONE"])
	z := spawn(t, d, "ZOMBIE", mgl64.Vec2{2.05, 8 - 1.4})
	p := &fakePlayer{pos: mgl64.Vec2{12, 7}}

	jumped := false
	for i := 0; i < 200; i++ {
		d.Update(dt, night, p)
		if z.Vel.Y() < 0 {
			jumped = true
		}
	}
	if !jumped {
		t.Fatalf("zombie never jumped")
	}
	if got, want := z.Feet(), (store.Cell{Col: 12, Row: 7}); got != want {
		t.Fatalf("feet: got %+v want %+v (x=%v)", got, want, z.Pos.X())
	}
	if dx := math.Abs(z.Center().X() - 12.5); dx >= d.Config().WaypointThreshold {
		t.Fatalf("center x off waypoint by %v", dx)
	}
}

func TestHostilePopsReachedWaypoint(t *testing.T) {
	_, _, d := flatWorld(t, 0.99)
	z := spawn(t, d, "ZOMBIE", mgl64.Vec2{2.05, 8 - 1.4})
	p := &fakePlayer{pos: mgl64.Vec2{12, 7}}
	z.Path = []store.Cell{{Col: 2, Row: 7}, {Col: 3, Row: 7}}
	z.PathTimer = 10

	d.Update(dt, night, p)
	if want := []store.Cell{{Col: 3, Row: 7}}; !reflect.DeepEqual(z.Path, want) {
		t.Fatalf("path: got %v want %v", z.Path, want)
	}
	if z.Vel.X() != 0 {
		t.Fatalf("vel x on pop: got %v want 0", z.Vel.X())
	}
}

func TestHostileKeepsPathUntilRefresh(t *testing.T) {
	_, _, d := flatWorld(t, 0.99)
	z := spawn(t, d, "ZOMBIE", mgl64.Vec2{10.05, 8 - 1.4})
	p := &fakePlayer{pos: mgl64.Vec2{18, 7}}
	// A stale waypoint behind the zombie, away from the player.
	stale := []store.Cell{{Col: 2, Row: 7}}
	z.Path = stale
	z.PathTimer = d.Config().PathRefreshSeconds

	for i := 0; i < 10; i++ {
		d.Update(dt, night, p)
	}
	if !reflect.DeepEqual(z.Path, stale) {
		t.Fatalf("path replaced before refresh: %v", z.Path)
	}
	if z.Vel.X() >= 0 {
		t.Fatalf("vel x: got %v want toward stale waypoint", z.Vel.X())
	}

	for i := 0; i < 15; i++ {
		d.Update(dt, night, p)
	}
	if len(z.Path) == 0 || z.Path[len(z.Path)-1] != (store.Cell{Col: 18, Row: 7}) {
		t.Fatalf("path after refresh: %v", z.Path)
	}
	if z.Vel.X() <= 0 {
		t.Fatalf("vel x after refresh: got %v want toward player", z.Vel.X())
	}
}

func TestHostileIdlesByDayAndWithoutPath(t *testing.T) {
	cats, grid, d := flatWorld(t, 0.99)
	z := spawn(t, d, "ZOMBIE", mgl64.Vec2{2.05, 8 - 1.4})
	p := &fakePlayer{pos: mgl64.Vec2{12, 7}}

	d.Update(dt, day, p)
	if z.Vel.X() != 0 || z.Path != nil {
		t.Fatalf("day: vel x %v path %v", z.Vel.X(), z.Path)
	}

	// Wall the zombie in completely.
	stone := cats.Blocks.Index["STONE"]
	for row := 0; row < 8; row++ {
		grid.Set(1, row, stone)
		grid.Set(3, row, stone)
	}
	grid.Set(2, 0, stone)
	d.Update(dt, night, p)
	if z.Vel.X() != 0 || len(z.Path) != 0 {
		t.Fatalf("walled in: vel x %v path %v", z.Vel.X(), z.Path)
	}
}

func TestDeathSweepGrantsOnce(t *testing.T) {
	cats, _, d := flatWorld(t, 0)
	s := spawn(t, d, "SHEEP", mgl64.Vec2{5.05, 7.1})
	p := &fakePlayer{pos: mgl64.Vec2{15, 7}}

	if !d.Damage(s.ID, 4) {
		t.Fatalf("first hit rejected")
	}
	if s.Health != 6 {
		t.Fatalf("health: got %d want 6", s.Health)
	}
	if !d.Damage(s.ID, 6) {
		t.Fatalf("killing hit rejected")
	}
	if d.Damage(s.ID, 1) {
		t.Fatalf("dead mobs take no more damage")
	}

	rep := d.Update(dt, day, p)
	if len(rep.Deaths) != 1 || rep.Deaths[0].ID != s.ID {
		t.Fatalf("deaths: got %+v", rep.Deaths)
	}
	if p.xp != 1 {
		t.Fatalf("xp: got %d want 1", p.xp)
	}
	want := []catalogs.ItemCount{{Item: cats.Items.Index["MUTTON"], Count: 1}}
	if !reflect.DeepEqual(p.items, want) {
		t.Fatalf("drops: got %v want %v", p.items, want)
	}
	if d.Len() != 0 {
		t.Fatalf("len after sweep: %d", d.Len())
	}

	rep = d.Update(dt, day, p)
	if len(rep.Deaths) != 0 || p.xp != 1 {
		t.Fatalf("second sweep: deaths %+v xp %d", rep.Deaths, p.xp)
	}
}

func TestRestoreValidates(t *testing.T) {
	_, _, d := flatWorld(t, 0.99)
	bad := [][]Mob{
		{{ID: 1, Kind: "DRAGON"}},
		{{ID: 1, Kind: "SHEEP"}, {ID: 1, Kind: "SHEEP"}},
		{{ID: 7, Kind: "SHEEP"}},
	}
	for _, ms := range bad {
		if err := d.Restore(ms, 5); err == nil {
			t.Fatalf("restore %+v: expected error", ms)
		}
	}

	if err := d.Restore([]Mob{{ID: 3, Kind: "SHEEP"}, {ID: 1, Kind: "ZOMBIE"}}, 5); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := d.Mobs()[0].ID; got != 1 {
		t.Fatalf("first id: got %d want 1", got)
	}
	if d.NextID() != 5 {
		t.Fatalf("next id: got %d want 5", d.NextID())
	}
	m := spawn(t, d, "SHEEP", mgl64.Vec2{})
	if m.ID != 5 {
		t.Fatalf("spawned id: got %d want 5", m.ID)
	}
}
