package world

import (
	"math"
	"testing"
)

func TestCraft_PlanksFromWood(t *testing.T) {
	w := quietWorld(t)
	give(t, w, "WOOD", 1)
	plank := itemKind(t, w, "PLANK")
	before := w.player.Count(plank)

	w.StepOnce([]Action{{Kind: ActCraft, Grid: []string{"WOOD", "", "", ""}, Size: 2}})
	if got := w.player.Count(plank); got != before+4 {
		t.Fatalf("planks=%d want %d", got, before+4)
	}
	if got := w.player.Count(itemKind(t, w, "WOOD")); got != 0 {
		t.Fatalf("wood not consumed: %d", got)
	}

	// Same shape without the wood fails and leaves the inventory alone.
	w.StepOnce([]Action{{Kind: ActCraft, Grid: []string{"WOOD", "", "", ""}, Size: 2}})
	if !hasEvent(w, "ACTION_REJECTED") {
		t.Fatalf("craft without materials should be rejected")
	}
	if got := w.player.Count(plank); got != before+4 {
		t.Fatalf("failed craft changed planks: %d", got)
	}
}

func TestCraft_ToolBecomesToolState(t *testing.T) {
	w := quietWorld(t)
	give(t, w, "STICK", 2)
	give(t, w, "PLANK", 3)
	w.StepOnce([]Action{{Kind: ActCraft, Size: 3, Grid: []string{
		"PLANK", "PLANK", "PLANK",
		"", "STICK", "",
		"", "STICK", "",
	}}})
	if len(w.player.Tools) != 1 {
		t.Fatalf("tools=%d want 1", len(w.player.Tools))
	}
	if w.player.Tools[0].Item != itemKind(t, w, "PICKAXE_WOOD") || w.player.Tools[0].Durability != 60 {
		t.Fatalf("unexpected tool %+v", w.player.Tools[0])
	}
	w.StepOnce([]Action{{Kind: ActSelectTool, Slot: 0}})
	if w.player.Tier() != 1 {
		t.Fatalf("tier=%d want 1", w.player.Tier())
	}
	w.StepOnce([]Action{{Kind: ActSelectTool, Slot: 3}})
	if !hasEvent(w, "ACTION_REJECTED") || w.player.Selected != 0 {
		t.Fatalf("out of range slot must be rejected")
	}
}

func TestPlace_RejectsSolidAndBody(t *testing.T) {
	w := quietWorld(t)
	stone := block(t, w, "STONE")
	c := setCell(w, 2, 2, stone)
	plank := itemKind(t, w, "PLANK")
	before := w.player.Count(plank)

	w.StepOnce([]Action{{Kind: ActPlace, Col: c.Col, Row: c.Row, Item: "PLANK"}})
	if w.grid.GetCell(c) != stone || w.player.Count(plank) != before {
		t.Fatalf("placement into stone went through")
	}

	p := w.player
	feet := setCell(w, int(math.Floor(p.Pos.X()+p.Width/2)), int(math.Floor(p.Pos.Y()+p.Height-1e-6)), 0)
	w.StepOnce([]Action{{Kind: ActPlace, Col: feet.Col, Row: feet.Row, Item: "PLANK"}})
	if w.grid.GetCell(feet) != 0 {
		t.Fatalf("placed a block inside the player")
	}
}

func TestMove_RejectsSolidAndOutside(t *testing.T) {
	w := quietWorld(t)
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			setCell(w, c, r, 0)
		}
	}
	setCell(w, 1, 1, block(t, w, "STONE"))

	w.StepOnce([]Action{{Kind: ActMove, X: 0.9, Y: 0.5}})
	if !hasEvent(w, "ACTION_REJECTED") {
		t.Fatalf("move into stone should be rejected")
	}
	w.StepOnce([]Action{{Kind: ActMove, X: -1, Y: 0}})
	if !hasEvent(w, "ACTION_REJECTED") {
		t.Fatalf("move outside should be rejected")
	}
	w.StepOnce([]Action{{Kind: ActMove, X: 2.1, Y: 0}})
	if got := w.player.Pos; got.X() != 2.1 || got.Y() != 0 {
		t.Fatalf("pos=%v", got)
	}
}

func TestAttack_KillsAndGrantsOnce(t *testing.T) {
	w := quietWorld(t)
	m, err := w.mobs.Spawn("SHEEP", w.player.Pos)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	xp := w.player.XP
	mutton := itemKind(t, w, "MUTTON")
	before := w.player.Count(mutton)

	// Sheep have 10 health and the default attack deals 4.
	for i := 0; i < 3; i++ {
		w.StepOnce([]Action{{Kind: ActAttack, MobID: m.ID}})
	}
	if _, ok := w.mobs.Get(m.ID); ok {
		t.Fatalf("sheep survived three hits")
	}
	if w.player.XP != xp+1 {
		t.Fatalf("xp=%d want %d", w.player.XP, xp+1)
	}
	if got := w.player.Count(mutton); got < before+1 || got > before+2 {
		t.Fatalf("mutton=%d want one or two more than %d", got, before)
	}
	w.StepOnce([]Action{{Kind: ActAttack, MobID: m.ID}})
	if !hasEvent(w, "ACTION_REJECTED") {
		t.Fatalf("attacking a removed mob should be rejected")
	}
}

func TestPlayer_DamagePolicy(t *testing.T) {
	w := quietWorld(t)
	p := w.player
	if got := p.TakeDamage(3); got != 3 || p.Health != p.MaxHealth-3 {
		t.Fatalf("dealt=%d health=%d", got, p.Health)
	}
	if got := p.TakeDamage(3); got != 0 {
		t.Fatalf("hurt cooldown ignored: %d", got)
	}
	p.tickTimers(0.6)
	give(t, w, "HELMET_IRON", 1)
	if err := p.Equip(itemKind(t, w, "HELMET_IRON")); err != nil {
		t.Fatalf("equip: %v", err)
	}
	if got := p.TakeDamage(2); got != 1 {
		t.Fatalf("armor floor: dealt %d want 1", got)
	}
}

func TestPlayer_RespawnsOnDeath(t *testing.T) {
	w := quietWorld(t)
	spawn := w.player.Pos
	w.player.Pos = spawn.Mul(0.5)
	w.player.Health = 1
	w.player.TakeDamage(5)
	w.StepOnce(nil)
	if !hasEvent(w, "PLAYER_DIED") {
		t.Fatalf("expected PLAYER_DIED")
	}
	if w.player.Health != w.player.MaxHealth || w.player.Pos != spawn || w.player.Deaths() != 1 {
		t.Fatalf("respawn state %+v", w.player)
	}
}

func TestDayCycle(t *testing.T) {
	if got := CycleFraction(900, 600); got != 0.5 {
		t.Fatalf("fraction=%v want 0.5", got)
	}
	if LightLevel(0.25) <= LightLevel(0.75) {
		t.Fatalf("noon must be brighter than midnight")
	}
	if l := LightLevel(0.75); l < 0.2-1e-9 {
		t.Fatalf("light below floor: %v", l)
	}
}
