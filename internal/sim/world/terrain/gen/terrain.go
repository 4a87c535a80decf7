package gen

import (
	"fmt"
	"math"

	"tilecraft.ai/internal/sim/catalogs"
	"tilecraft.ai/internal/sim/noise"
	"tilecraft.ai/internal/sim/tuning"
	"tilecraft.ai/internal/sim/world/logic/mathx"
	"tilecraft.ai/internal/sim/world/terrain/store"
)

type palette struct {
	air, water, bedrock   catalogs.BlockKind
	grass, dirt           catalogs.BlockKind
	stone, deep           catalogs.BlockKind
	wood, leaves          catalogs.BlockKind
	brick, chest, spawner catalogs.BlockKind
	ores                  []catalogs.BlockKind
}

func resolvePalette(blocks *catalogs.BlockCatalog, cfg tuning.WorldGen) (palette, error) {
	p := palette{air: catalogs.Air, bedrock: blocks.Bedrock}
	need := []struct {
		id  string
		dst *catalogs.BlockKind
	}{
		{"WATER", &p.water},
		{"GRASS", &p.grass},
		{"DIRT", &p.dirt},
		{"STONE", &p.stone},
		{"DEEPSLATE", &p.deep},
		{"WOOD", &p.wood},
		{"LEAVES", &p.leaves},
		{"MOSSY_BRICK", &p.brick},
		{"CHEST", &p.chest},
		{"SPAWNER", &p.spawner},
	}
	for _, n := range need {
		k, ok := blocks.Kind(n.id)
		if !ok {
			return p, fmt.Errorf("worldgen: block %s missing from catalog", n.id)
		}
		*n.dst = k
	}
	for _, ore := range cfg.Ores {
		k, ok := blocks.Kind(ore.Block)
		if !ok {
			return p, fmt.Errorf("worldgen: ore block %s missing from catalog", ore.Block)
		}
		p.ores = append(p.ores, k)
	}
	return p, nil
}

// Generator builds the initial grid. It holds no state between calls; all
// randomness is hashed from Seed so the same inputs reproduce the same grid.
type Generator struct {
	Seed   int64
	Cfg    tuning.WorldGen
	Blocks *catalogs.BlockCatalog
}

// Generate is a convenience wrapper around Generator.Generate.
func Generate(seed int64, cols, rows int, cfg tuning.WorldGen, blocks *catalogs.BlockCatalog) (*store.Grid, error) {
	g := Generator{Seed: seed, Cfg: cfg, Blocks: blocks}
	return g.Generate(cols, rows)
}

func (g Generator) Generate(cols, rows int) (*store.Grid, error) {
	if cols <= 0 || rows < 4 {
		return nil, fmt.Errorf("worldgen: grid %dx%d too small", cols, rows)
	}
	p, err := resolvePalette(g.Blocks, g.Cfg)
	if err != nil {
		return nil, err
	}
	grid := store.NewGrid(cols, rows, g.Blocks)
	surface := g.columns(grid, p)
	g.trees(grid, p, surface)
	g.dungeons(grid, p, surface)
	// Generation writes are not player changes.
	grid.DrainChanges()
	return grid, nil
}

// SurfaceRows returns the per-column surface row the column pass would produce.
func (g Generator) SurfaceRows(cols, rows int) []int {
	cfg := g.Cfg
	heights := noise.GenerateField(g.Seed+saltHeight, cols, cfg.HeightScale, cfg.HeightOctaves, cfg.HeightAmplitude, cfg.HeightPersistence)
	base := float64(rows) * cfg.SurfaceBaseFraction
	out := make([]int, cols)
	for col := range out {
		s := int(math.Floor(base - heights[col]))
		if s < 1 {
			s = 1
		}
		if s > rows-2 {
			s = rows - 2
		}
		out[col] = s
	}
	return out
}

func (g Generator) columns(grid *store.Grid, p palette) []int {
	cfg := g.Cfg
	cols, rows := grid.Cols, grid.Rows
	surface := g.SurfaceRows(cols, rows)
	caves := noise.NewField(cfg.CaveNoise, g.Seed+saltCave, cfg.CaveScale, cfg.CaveOctaves)
	deepRow := int(float64(rows) * cfg.DeepRockFraction)

	for col := 0; col < cols; col++ {
		s := surface[col]
		for row := 0; row < rows; row++ {
			var b catalogs.BlockKind
			switch {
			case row == rows-1:
				b = p.bedrock
			case row < s:
				b = p.air
				if row >= s-cfg.WaterBand && mathx.Permille(mathx.Hash3(g.Seed+saltWater, col, row, 0), ClampPermille(cfg.WaterPermille)) {
					b = p.water
				}
			case row == s:
				b = p.grass
			case row <= s+cfg.SubSoilDepth:
				b = p.dirt
			case caves.At(col, row) < cfg.CaveThreshold:
				b = p.air
			default:
				b = p.stone
				if row >= deepRow {
					b = p.deep
				}
				if ore, ok := g.ore(p, col, row, s, rows); ok {
					b = ore
				}
			}
			grid.Set(col, row, b)
		}
	}
	return surface
}

// ore rolls the bands deepest first; each band has its own independent roll.
func (g Generator) ore(p palette, col, row, surface, rows int) (catalogs.BlockKind, bool) {
	depth := float64(row-surface) / float64(rows-surface)
	for i := len(g.Cfg.Ores) - 1; i >= 0; i-- {
		band := g.Cfg.Ores[i]
		if depth < band.MinDepth {
			continue
		}
		h := mathx.Hash3(g.Seed+saltOre+int64(i), col, row, i)
		if mathx.Permille(h, ClampPermille(band.Permille)) {
			return p.ores[i], true
		}
	}
	return 0, false
}

func (g Generator) trees(grid *store.Grid, p palette, surface []int) {
	cfg := g.Cfg
	r := cfg.CanopyRadius
	spawnCol := grid.Cols / 2
	for col := r; col < grid.Cols-r; col++ {
		if WithinSpawnClear(col-spawnCol, cfg.SpawnClearRadius) {
			continue
		}
		s := surface[col]
		if grid.Get(col, s) != p.grass {
			continue
		}
		h := mathx.Hash2(g.Seed+saltTree, col, 0)
		permille := ScalePermille(cfg.TreePermille, treeScalePermille(BiomeAt(g.Seed, col, cfg.BiomeWidth)))
		if !mathx.Permille(h, permille) {
			continue
		}
		span := cfg.TreeMaxTrunk - cfg.TreeMinTrunk + 1
		if span < 1 {
			span = 1
		}
		trunk := cfg.TreeMinTrunk + int((h>>16)%uint64(span))
		g.placeTree(grid, p, col, s, trunk, r)
	}
}

type write struct {
	col, row int
	b        catalogs.BlockKind
}

// placeTree checks the whole footprint before writing anything. Every cell must
// be in bounds and plain air.
func (g Generator) placeTree(grid *store.Grid, p palette, col, surface, trunk, r int) bool {
	top := surface - trunk
	var writes []write
	for row := surface - 1; row >= top; row-- {
		writes = append(writes, write{col, row, p.wood})
	}
	for row := top - r; row <= top; row++ {
		for c := col - r; c <= col+r; c++ {
			if c == col && row == top {
				continue
			}
			if mathx.AbsInt(c-col) == r && row == top-r {
				continue
			}
			writes = append(writes, write{c, row, p.leaves})
		}
	}
	if !footprintClear(grid, writes, func(b catalogs.BlockKind) bool { return b == p.air }) {
		return false
	}
	for _, w := range writes {
		grid.Set(w.col, w.row, w.b)
	}
	return true
}

func (g Generator) dungeons(grid *store.Grid, p palette, surface []int) {
	cfg := g.Cfg
	if cfg.DungeonEveryCols <= 0 {
		return
	}
	top := int(float64(grid.Rows)*cfg.DungeonRowFraction) - cfg.DungeonHeight/2
	for left := cfg.DungeonEveryCols / 2; left+cfg.DungeonWidth <= grid.Cols; left += cfg.DungeonEveryCols {
		if !mathx.Permille(mathx.Hash2(g.Seed+saltDungeon, left, 0), ClampPermille(cfg.DungeonPermille)) {
			continue
		}
		g.placeDungeon(grid, p, surface, left, top)
	}
}

// placeDungeon carves a hollow outlined with brick and seeds one chest and one
// spawner on its floor. The room must sit fully inside the grid above the
// bottom row, below every column's sub-soil, and clear of liquid.
func (g Generator) placeDungeon(grid *store.Grid, p palette, surface []int, left, top int) bool {
	w, h := g.Cfg.DungeonWidth, g.Cfg.DungeonHeight
	if w < 4 || h < 3 {
		return false
	}
	right, bottom := left+w-1, top+h-1
	if left < 0 || top < 0 || right >= grid.Cols || bottom >= grid.Rows-1 {
		return false
	}
	for c := left; c <= right; c++ {
		if top <= surface[c]+g.Cfg.SubSoilDepth {
			return false
		}
	}
	var writes []write
	for row := top; row <= bottom; row++ {
		for c := left; c <= right; c++ {
			b := p.air
			if row == top || row == bottom || c == left || c == right {
				b = p.brick
			}
			writes = append(writes, write{c, row, b})
		}
	}
	dry := func(b catalogs.BlockKind) bool { return g.Blocks.Def(b).Type != catalogs.BlockTypeLiquid }
	if !footprintClear(grid, writes, dry) {
		return false
	}
	for _, wr := range writes {
		grid.Set(wr.col, wr.row, wr.b)
	}
	floor := bottom - 1
	grid.Set(left+1, floor, p.chest)
	grid.Set(left+w/2, floor, p.spawner)
	return true
}

func footprintClear(grid *store.Grid, writes []write, ok func(catalogs.BlockKind) bool) bool {
	for _, w := range writes {
		if !grid.InBounds(w.col, w.row) || !ok(grid.Get(w.col, w.row)) {
			return false
		}
	}
	return true
}
