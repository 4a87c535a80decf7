package store

import (
	"fmt"

	snapv1 "tilecraft.ai/internal/persistence/snapshot"
	"tilecraft.ai/internal/sim/catalogs"
)

// ExportGrid converts the grid into its snapshot form, carrying the palette so
// that a reordered catalog can still restore it.
func ExportGrid(g *Grid) snapv1.GridV1 {
	palette := make([]string, len(g.blocks.Palette))
	copy(palette, g.blocks.Palette)
	cells := make([]uint16, len(g.Cells))
	for i, c := range g.Cells {
		cells[i] = uint16(c)
	}
	return snapv1.GridV1{
		Cols:    g.Cols,
		Rows:    g.Rows,
		Palette: palette,
		Cells:   cells,
	}
}

// ImportGrid rebuilds a grid from snapshot form, remapping palette names onto
// the loaded catalog.
func ImportGrid(blocks *catalogs.BlockCatalog, in snapv1.GridV1) (*Grid, error) {
	if in.Cols <= 0 || in.Rows <= 0 {
		return nil, fmt.Errorf("snapshot grid dimensions %dx%d", in.Cols, in.Rows)
	}
	if len(in.Cells) != in.Cols*in.Rows {
		return nil, fmt.Errorf("snapshot grid cells length mismatch: got %d want %d", len(in.Cells), in.Cols*in.Rows)
	}
	remap := make([]catalogs.BlockKind, len(in.Palette))
	for i, name := range in.Palette {
		k, ok := blocks.Kind(name)
		if !ok {
			return nil, fmt.Errorf("snapshot grid palette: unknown block %q", name)
		}
		remap[i] = k
	}
	g := NewGrid(in.Cols, in.Rows, blocks)
	for i, c := range in.Cells {
		if int(c) >= len(remap) {
			return nil, fmt.Errorf("snapshot grid cell %d: kind %d outside palette", i, c)
		}
		g.Cells[i] = remap[c]
	}
	_ = g.Digest()
	return g, nil
}
