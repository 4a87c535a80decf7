package store

import (
	"sort"

	"tilecraft.ai/internal/sim/catalogs"
)

func (g *Grid) InBounds(col, row int) bool {
	return col >= 0 && row >= 0 && col < g.Cols && row < g.Rows
}

// Get never fails: out-of-range reads return the bedrock sentinel.
func (g *Grid) Get(col, row int) catalogs.BlockKind {
	if !g.InBounds(col, row) {
		return g.blocks.Bedrock
	}
	return g.Cells[g.index(col, row)]
}

// Set is a no-op outside the grid.
func (g *Grid) Set(col, row int, b catalogs.BlockKind) {
	if !g.InBounds(col, row) {
		return
	}
	i := g.index(col, row)
	if g.Cells[i] == b {
		return
	}
	g.Cells[i] = b
	g.dirty = true
	g.changed[Cell{Col: col, Row: row}] = struct{}{}
}

func (g *Grid) GetCell(c Cell) catalogs.BlockKind    { return g.Get(c.Col, c.Row) }
func (g *Grid) SetCell(c Cell, b catalogs.BlockKind) { g.Set(c.Col, c.Row, b) }
func (g *Grid) Def(col, row int) catalogs.BlockDef   { return g.blocks.Def(g.Get(col, row)) }
func (g *Grid) Solid(col, row int) bool              { return g.Def(col, row).Solid() }
func (g *Grid) Open(col, row int) bool               { return g.Def(col, row).Open() }

// FindSurfaceRow returns the topmost non-open row of col, scanning down from
// row 0, or Rows when the whole column is open.
func (g *Grid) FindSurfaceRow(col int) int {
	if col < 0 || col >= g.Cols {
		return g.Rows
	}
	for row := 0; row < g.Rows; row++ {
		if !g.Open(col, row) {
			return row
		}
	}
	return g.Rows
}

// DrainChanges returns cells written since the last drain, sorted row-major.
func (g *Grid) DrainChanges() []Cell {
	if len(g.changed) == 0 {
		return nil
	}
	out := make([]Cell, 0, len(g.changed))
	for c := range g.changed {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	g.changed = map[Cell]struct{}{}
	return out
}
