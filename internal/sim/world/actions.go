package world

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"tilecraft.ai/internal/sim/catalogs"
	"tilecraft.ai/internal/sim/world/feature/entities/runtime"
	"tilecraft.ai/internal/sim/world/feature/work/crafting"
	"tilecraft.ai/internal/sim/world/terrain/store"
)

type ActionKind string

const (
	ActMineStart    ActionKind = "MINE_START"
	ActMineStop     ActionKind = "MINE_STOP"
	ActPlace        ActionKind = "PLACE"
	ActCraft        ActionKind = "CRAFT"
	ActFurnaceOpen  ActionKind = "FURNACE_OPEN"
	ActFurnaceInput ActionKind = "FURNACE_INPUT"
	ActFurnaceFuel  ActionKind = "FURNACE_FUEL"
	ActFurnaceTake  ActionKind = "FURNACE_TAKE"
	ActAttack       ActionKind = "ATTACK"
	ActMove         ActionKind = "MOVE"
	ActSelectTool   ActionKind = "SELECT_TOOL"
	ActEquip        ActionKind = "EQUIP"
)

// Action is one input from the local controller. Fields are read per kind;
// item names are catalog ids.
type Action struct {
	Kind ActionKind `json:"kind"`

	Col int `json:"col,omitempty"`
	Row int `json:"row,omitempty"`

	Item  string `json:"item,omitempty"`
	Count int    `json:"count,omitempty"`

	// CRAFT: row-major grid of item ids, "" for an empty slot.
	Grid []string `json:"grid,omitempty"`
	Size int      `json:"size,omitempty"`

	MobID uint64 `json:"mob_id,omitempty"`

	// MOVE: new top-left position in tiles.
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`

	Slot int `json:"slot,omitempty"`
}

func (a Action) cell() store.Cell { return store.Cell{Col: a.Col, Row: a.Row} }

// Event is a per-tick outcome surfaced to observers.
type Event struct {
	Tick   uint64 `json:"tick"`
	Type   string `json:"type"`
	Col    int    `json:"col,omitempty"`
	Row    int    `json:"row,omitempty"`
	Item   string `json:"item,omitempty"`
	Count  int    `json:"count,omitempty"`
	MobID  uint64 `json:"mob_id,omitempty"`
	Reason string `json:"reason,omitempty"`
}

var (
	errUnknownItem = errors.New("unknown item")
	errNotFurnace  = errors.New("not a furnace")
	errNoItems     = errors.New("not enough items")
)

func (w *World) emit(e Event) {
	e.Tick = w.tick.Load()
	w.events = append(w.events, e)
}

func (w *World) reject(a Action, err error) {
	w.emit(Event{Type: "ACTION_REJECTED", Col: a.Col, Row: a.Row, Item: a.Item, MobID: a.MobID, Reason: fmt.Sprintf("%s: %v", a.Kind, err)})
}

func (w *World) item(id string) (catalogs.ItemDef, error) {
	k, ok := w.catalogs.Items.Kind(id)
	if !ok {
		return catalogs.ItemDef{}, fmt.Errorf("%w %q", errUnknownItem, id)
	}
	def, ok := w.catalogs.Items.Def(k)
	if !ok {
		return catalogs.ItemDef{}, fmt.Errorf("%w %q", errUnknownItem, id)
	}
	return def, nil
}

// applyAction runs one action. Failures are reported as events and never stop
// the tick.
func (w *World) applyAction(a Action) {
	var err error
	switch a.Kind {
	case ActMineStart:
		err = w.actMineStart(a)
	case ActMineStop:
		w.stopMining()
	case ActPlace:
		err = w.actPlace(a)
	case ActCraft:
		err = w.actCraft(a)
	case ActFurnaceOpen:
		err = w.actFurnaceOpen(a)
	case ActFurnaceInput, ActFurnaceFuel:
		err = w.actFurnaceInsert(a)
	case ActFurnaceTake:
		err = w.actFurnaceTake(a)
	case ActAttack:
		err = w.actAttack(a)
	case ActMove:
		err = w.actMove(a)
	case ActSelectTool:
		err = w.actSelectTool(a)
	case ActEquip:
		err = w.actEquip(a)
	default:
		err = fmt.Errorf("unknown action kind")
	}
	if err != nil {
		w.reject(a, err)
	}
}

// actMineStart switches the break target. Progress on the previous cell is
// dropped.
func (w *World) actMineStart(a Action) error {
	c := a.cell()
	if w.mineTarget != nil && *w.mineTarget != c {
		w.mining.Cancel(*w.mineTarget)
	}
	if !w.mining.StartBreak(c) {
		w.mineTarget = nil
		return fmt.Errorf("cell %d,%d cannot be broken", c.Col, c.Row)
	}
	w.mineTarget = &c
	return nil
}

func (w *World) stopMining() {
	if w.mineTarget != nil {
		w.mining.Cancel(*w.mineTarget)
		w.mineTarget = nil
	}
}

func (w *World) actPlace(a Action) error {
	def, err := w.item(a.Item)
	if err != nil {
		return err
	}
	if w.player.Count(def.Kind) < 1 {
		return errNoItems
	}
	p := w.player
	bodies := []runtime.Body{{MinX: p.Pos.X(), MinY: p.Pos.Y(), W: p.Width, H: p.Height}}
	for _, m := range w.mobs.Mobs() {
		bodies = append(bodies, runtime.Body{MinX: m.Pos.X(), MinY: m.Pos.Y(), W: m.Width, H: m.Height})
	}
	c := a.cell()
	b, err := runtime.CheckPlacement(w.grid, c, def, bodies)
	if err != nil {
		return err
	}
	from := w.grid.GetCell(c)
	p.Take(def.Kind, 1)
	w.grid.SetCell(c, b)
	name := w.catalogs.Blocks.Name(b)
	if runtime.EffectsForPlacedBlock(name).OpenStation {
		w.stations.Open(c)
	}
	w.audit(AuditEntry{Tick: w.tick.Load(), Action: "PLACE", Pos: [2]int{c.Col, c.Row}, From: w.catalogs.Blocks.Name(from), To: name})
	w.emit(Event{Type: "PLACED", Col: c.Col, Row: c.Row, Item: def.ID})
	return nil
}

func (w *World) actCraft(a Action) error {
	grid := make([]catalogs.ItemKind, len(a.Grid))
	for i, id := range a.Grid {
		if id == "" {
			continue
		}
		k, ok := w.catalogs.Items.Kind(id)
		if !ok {
			return fmt.Errorf("%w %q", errUnknownItem, id)
		}
		grid[i] = k
	}
	r, ok := crafting.Match(w.catalogs.Recipes.Crafting, grid, a.Size)
	if !ok {
		return fmt.Errorf("no recipe matches")
	}
	if !w.player.TakeAll(crafting.Consumption(grid)) {
		return errNoItems
	}
	w.player.GrantItems([]catalogs.ItemCount{r.Output})
	w.emit(Event{Type: "CRAFTED", Item: w.catalogs.Items.Name(r.Output.Item), Count: r.Output.Count, Reason: r.ID})
	return nil
}

func (w *World) isFurnace(c store.Cell) bool {
	return w.catalogs.Blocks.Name(w.grid.GetCell(c)) == "FURNACE"
}

func (w *World) actFurnaceOpen(a Action) error {
	c := a.cell()
	if !w.isFurnace(c) {
		return errNotFurnace
	}
	w.stations.Open(c)
	return nil
}

// actFurnaceInsert moves Count items from the inventory into a slot. Nothing
// moves unless the slot accepts the whole amount.
func (w *World) actFurnaceInsert(a Action) error {
	c := a.cell()
	if !w.isFurnace(c) {
		return errNotFurnace
	}
	def, err := w.item(a.Item)
	if err != nil {
		return err
	}
	n := a.Count
	if n <= 0 {
		n = 1
	}
	if w.player.Count(def.Kind) < n {
		return errNoItems
	}
	w.stations.Open(c)
	if a.Kind == ActFurnaceInput {
		err = w.stations.InsertInput(c, def.Kind, n)
	} else {
		err = w.stations.InsertFuel(c, def.Kind, n)
	}
	if err != nil {
		return err
	}
	w.player.Take(def.Kind, n)
	return nil
}

func (w *World) actFurnaceTake(a Action) error {
	c := a.cell()
	out, err := w.stations.TakeOutput(c)
	if err != nil {
		return err
	}
	w.player.GrantItems([]catalogs.ItemCount{out})
	w.emit(Event{Type: "FURNACE_TAKEN", Col: c.Col, Row: c.Row, Item: w.catalogs.Items.Name(out.Item), Count: out.Count})
	return nil
}

func (w *World) actAttack(a Action) error {
	if !w.mobs.Damage(a.MobID, w.cfg.Tuning.Player.AttackDamage) {
		return fmt.Errorf("mob %d cannot be hit", a.MobID)
	}
	return nil
}

// actMove teleports the player body. The new body must lie inside the grid
// and overlap no solid cell.
func (w *World) actMove(a Action) error {
	p := w.player
	if math.IsNaN(a.X) || math.IsNaN(a.Y) {
		return fmt.Errorf("bad position")
	}
	if a.X < 0 || a.Y < 0 || a.X+p.Width > float64(w.grid.Cols) || a.Y+p.Height > float64(w.grid.Rows) {
		return fmt.Errorf("position outside world")
	}
	const eps = 1e-6
	for r := int(math.Floor(a.Y + eps)); r <= int(math.Floor(a.Y+p.Height-eps)); r++ {
		for c := int(math.Floor(a.X + eps)); c <= int(math.Floor(a.X+p.Width-eps)); c++ {
			if w.grid.Solid(c, r) {
				return fmt.Errorf("position blocked at %d,%d", c, r)
			}
		}
	}
	p.Pos = mgl64.Vec2{a.X, a.Y}
	return nil
}

func (w *World) actSelectTool(a Action) error {
	if a.Slot < -1 || a.Slot >= len(w.player.Tools) {
		return fmt.Errorf("slot %d out of range", a.Slot)
	}
	w.player.Selected = a.Slot
	return nil
}

func (w *World) actEquip(a Action) error {
	def, err := w.item(a.Item)
	if err != nil {
		return err
	}
	return w.player.Equip(def.Kind)
}
