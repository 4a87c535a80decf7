package runtime

import (
	"errors"
	"math"

	"tilecraft.ai/internal/sim/catalogs"
	"tilecraft.ai/internal/sim/world/terrain/store"
)

var (
	ErrNotPlaceable = errors.New("item is not placeable")
	ErrCellOccupied = errors.New("cell is not open")
	ErrBodyOverlap  = errors.New("cell overlaps a body")
)

// PlacementEffects lists the runtime state a block brings with it when placed
// or that must be torn down when it is mined.
type PlacementEffects struct {
	OpenStation bool
}

func EffectsForPlacedBlock(blockName string) PlacementEffects {
	switch blockName {
	case "FURNACE":
		return PlacementEffects{OpenStation: true}
	default:
		return PlacementEffects{}
	}
}

// Body is an axis-aligned box in tile units; Min is the top-left corner.
type Body struct {
	MinX, MinY float64
	W, H       float64
}

func (b Body) Overlaps(c store.Cell) bool {
	const eps = 1e-6
	c0, c1 := int(math.Floor(b.MinX+eps)), int(math.Floor(b.MinX+b.W-eps))
	r0, r1 := int(math.Floor(b.MinY+eps)), int(math.Floor(b.MinY+b.H-eps))
	return c.Col >= c0 && c.Col <= c1 && c.Row >= r0 && c.Row <= r1
}

// CheckPlacement resolves the block item places into cell. The cell must be in
// bounds and open, and no listed body may cover it.
func CheckPlacement(grid *store.Grid, cell store.Cell, item catalogs.ItemDef, bodies []Body) (catalogs.BlockKind, error) {
	if !item.Placeable {
		return 0, ErrNotPlaceable
	}
	if !grid.InBounds(cell.Col, cell.Row) || !grid.Open(cell.Col, cell.Row) {
		return 0, ErrCellOccupied
	}
	for _, b := range bodies {
		if b.Overlaps(cell) {
			return 0, ErrBodyOverlap
		}
	}
	return item.PlaceAs, nil
}
