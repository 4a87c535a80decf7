package store

import (
	"crypto/sha256"
	"encoding/binary"

	"tilecraft.ai/internal/sim/catalogs"
)

type Cell struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// Grid is the cols x rows block grid, row-major. Every cell always holds a
// palette kind; reads outside the grid return the bedrock sentinel.
type Grid struct {
	Cols, Rows int
	Cells      []catalogs.BlockKind

	blocks  *catalogs.BlockCatalog
	changed map[Cell]struct{}
	dirty   bool
	hash    [32]byte
}

func NewGrid(cols, rows int, blocks *catalogs.BlockCatalog) *Grid {
	if cols < 0 {
		cols = 0
	}
	if rows < 0 {
		rows = 0
	}
	return &Grid{
		Cols:    cols,
		Rows:    rows,
		Cells:   make([]catalogs.BlockKind, cols*rows),
		blocks:  blocks,
		changed: map[Cell]struct{}{},
		dirty:   true,
	}
}

func (g *Grid) Blocks() *catalogs.BlockCatalog { return g.blocks }

func (g *Grid) index(col, row int) int {
	return row*g.Cols + col
}

func (g *Grid) Digest() [32]byte {
	if g.dirty || g.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [8]byte
		binary.LittleEndian.PutUint32(tmp[:4], uint32(g.Cols))
		binary.LittleEndian.PutUint32(tmp[4:], uint32(g.Rows))
		h.Write(tmp[:])
		for _, v := range g.Cells {
			binary.LittleEndian.PutUint16(tmp[:2], uint16(v))
			h.Write(tmp[:2])
		}
		copy(g.hash[:], h.Sum(nil))
		g.dirty = false
	}
	return g.hash
}

// Clone copies cells into a grid with no pending changes.
func (g *Grid) Clone() *Grid {
	c := NewGrid(g.Cols, g.Rows, g.blocks)
	copy(c.Cells, g.Cells)
	return c
}

func (g *Grid) Equal(o *Grid) bool {
	if g.Cols != o.Cols || g.Rows != o.Rows {
		return false
	}
	for i := range g.Cells {
		if g.Cells[i] != o.Cells[i] {
			return false
		}
	}
	return true
}
