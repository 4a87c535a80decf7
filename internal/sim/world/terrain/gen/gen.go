package gen

import "tilecraft.ai/internal/sim/world/logic/mathx"

// Salts keep the per-pass hash streams independent of each other.
const (
	saltHeight  = 0
	saltCave    = 11
	saltWater   = 101
	saltOre     = 201
	saltBiome   = 301
	saltTree    = 401
	saltDungeon = 501
)

const (
	BiomePlains = "PLAINS"
	BiomeForest = "FOREST"
	BiomeSteppe = "STEPPE"
)

func BiomeFrom(noise uint64) string {
	switch noise % 3 {
	case 0:
		return BiomePlains
	case 1:
		return BiomeForest
	default:
		return BiomeSteppe
	}
}

// BiomeAt groups columns into regions of regionWidth and picks one biome per region.
func BiomeAt(seed int64, col, regionWidth int) string {
	if regionWidth <= 0 {
		regionWidth = 1
	}
	return BiomeFrom(mathx.Hash2(seed+saltBiome, mathx.FloorDiv(col, regionWidth), 0))
}

// treeScalePermille scales tree density per biome.
func treeScalePermille(biome string) int {
	switch biome {
	case BiomeForest:
		return 2000
	case BiomeSteppe:
		return 250
	default:
		return 1000
	}
}

func WithinSpawnClear(dCol, radius int) bool {
	if radius <= 0 {
		return false
	}
	return mathx.AbsInt(dCol) <= radius
}

func ClampPermille(v int) int {
	if v < 0 {
		return 0
	}
	if v > 1000 {
		return 1000
	}
	return v
}

func ScalePermille(base int, scalePermille int) int {
	if scalePermille <= 0 {
		scalePermille = 1000
	}
	return ClampPermille((base*scalePermille + 500) / 1000)
}
