package world

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"tilecraft.ai/internal/sim/catalogs"
	"tilecraft.ai/internal/sim/tuning"
	"tilecraft.ai/internal/sim/world/feature/work/mining"
)

// Player is the single local actor. It owns inventory, tools and the damage
// policy; the sim components only report what they did to it.
type Player struct {
	Pos       mgl64.Vec2 // top-left corner, in tiles
	Width     float64
	Height    float64
	Health    int
	MaxHealth int
	XP        int
	Armor     catalogs.ItemKind
	Inventory map[catalogs.ItemKind]int
	Tools     []mining.ToolState
	Selected  int // index into Tools, -1 for bare hands
	HurtTimer float64

	items    *catalogs.ItemCatalog
	cooldown float64
	deaths   int
}

func newPlayer(cfg tuning.Player, items *catalogs.ItemCatalog) (*Player, error) {
	p := &Player{
		Width:     cfg.Width,
		Height:    cfg.Height,
		Health:    cfg.MaxHealth,
		MaxHealth: cfg.MaxHealth,
		Inventory: map[catalogs.ItemKind]int{},
		Selected:  -1,
		items:     items,
		cooldown:  cfg.HurtCooldown,
	}
	ids := make([]string, 0, len(cfg.StarterItems))
	for id := range cfg.StarterItems {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		k, ok := items.Kind(id)
		if !ok {
			return nil, fmt.Errorf("starter item %q not in catalog", id)
		}
		p.GrantItems([]catalogs.ItemCount{{Item: k, Count: cfg.StarterItems[id]}})
	}
	return p, nil
}

func (p *Player) Position() mgl64.Vec2 { return p.Pos }

func (p *Player) Size() mgl64.Vec2 { return mgl64.Vec2{p.Width, p.Height} }

func (p *Player) Deaths() int { return p.deaths }

// Tool returns the selected tool, or nil for bare hands.
func (p *Player) Tool() *mining.ToolState {
	if p.Selected < 0 || p.Selected >= len(p.Tools) {
		return nil
	}
	return &p.Tools[p.Selected]
}

// Tier is the mining tier of the selected tool while it is usable.
func (p *Player) Tier() int {
	if t := p.Tool(); t.Usable() {
		return t.Tier
	}
	return 0
}

func (p *Player) Count(item catalogs.ItemKind) int { return p.Inventory[item] }

// Take removes count of item, or nothing if there are not enough.
func (p *Player) Take(item catalogs.ItemKind, count int) bool {
	if count <= 0 || p.Inventory[item] < count {
		return false
	}
	p.Inventory[item] -= count
	if p.Inventory[item] == 0 {
		delete(p.Inventory, item)
	}
	return true
}

// TakeAll removes every counted item, or nothing if any is short.
func (p *Player) TakeAll(need map[catalogs.ItemKind]int) bool {
	for item, n := range need {
		if p.Inventory[item] < n {
			return false
		}
	}
	for item, n := range need {
		p.Take(item, n)
	}
	return true
}

// GrantItems adds drops. Tool items become individual tool states with full
// durability; everything else stacks.
func (p *Player) GrantItems(items []catalogs.ItemCount) {
	for _, ic := range items {
		if ic.Item == catalogs.NoItem || ic.Count <= 0 {
			continue
		}
		def, ok := p.items.Def(ic.Item)
		if !ok {
			continue
		}
		if ts, ok := mining.NewToolState(def); ok {
			for i := 0; i < ic.Count; i++ {
				p.Tools = append(p.Tools, ts)
			}
			continue
		}
		p.Inventory[ic.Item] += ic.Count
	}
}

func (p *Player) GrantXP(xp int) {
	if xp > 0 {
		p.XP += xp
	}
}

// TakeDamage applies armor and the hurt cooldown and returns the damage dealt.
// Armor never reduces a hit below 1.
func (p *Player) TakeDamage(amount int) int {
	if amount <= 0 || p.HurtTimer > 0 || p.Health <= 0 {
		return 0
	}
	dmg := amount
	if def, ok := p.items.Def(p.Armor); ok {
		dmg -= def.Defense
	}
	if dmg < 1 {
		dmg = 1
	}
	if dmg > p.Health {
		dmg = p.Health
	}
	p.Health -= dmg
	p.HurtTimer = p.cooldown
	return dmg
}

// Equip wears an armor item from the inventory, returning the old piece.
func (p *Player) Equip(item catalogs.ItemKind) error {
	def, ok := p.items.Def(item)
	if !ok || def.Class != "ARMOR" {
		return fmt.Errorf("%s is not armor", p.items.Name(item))
	}
	if !p.Take(item, 1) {
		return fmt.Errorf("no %s in inventory", def.ID)
	}
	if p.Armor != catalogs.NoItem {
		p.Inventory[p.Armor]++
	}
	p.Armor = item
	return nil
}

func (p *Player) tickTimers(dt float64) {
	if p.HurtTimer > 0 {
		p.HurtTimer -= dt
		if p.HurtTimer < 0 {
			p.HurtTimer = 0
		}
	}
}

// dropBrokenTools removes tools whose durability is spent, keeping the
// selection on the same tool when it survives.
func (p *Player) dropBrokenTools() {
	kept := p.Tools[:0]
	sel := -1
	for i, t := range p.Tools {
		if t.Durability <= 0 {
			continue
		}
		if i == p.Selected {
			sel = len(kept)
		}
		kept = append(kept, t)
	}
	p.Tools = kept
	p.Selected = sel
}
