// Package crafting matches a crafting grid against the recipe table.
package crafting

import "tilecraft.ai/internal/sim/catalogs"

// Match scans recipes in table order and returns the first whose size and
// shape equal the grid exactly, cell for cell in row-major order. NoItem in
// the grid and in a shape both mean an empty cell. There is no rotation,
// mirroring or shifting.
func Match(recipes []catalogs.Recipe, grid []catalogs.ItemKind, size int) (*catalogs.Recipe, bool) {
	for i := range recipes {
		r := &recipes[i]
		if r.Size != size || len(r.Shape) != len(grid) {
			continue
		}
		if shapeEqual(r.Shape, grid) {
			return r, true
		}
	}
	return nil, false
}

func shapeEqual(shape, grid []catalogs.ItemKind) bool {
	for i := range shape {
		if shape[i] != grid[i] {
			return false
		}
	}
	return true
}

// Consumption counts the items a grid uses, one per occupied cell.
func Consumption(grid []catalogs.ItemKind) map[catalogs.ItemKind]int {
	out := map[catalogs.ItemKind]int{}
	for _, k := range grid {
		if k != catalogs.NoItem {
			out[k]++
		}
	}
	return out
}
