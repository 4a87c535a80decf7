package movement

import (
	"tilecraft.ai/internal/sim/world/logic/mathx"
	"tilecraft.ai/internal/sim/world/terrain/store"
)

func manhattan(a, b store.Cell) int {
	return mathx.AbsInt(a.Col-b.Col) + mathx.AbsInt(a.Row-b.Row)
}

// neighbours is the fixed expansion order shared by A* and the detour search.
var neighbours = []store.Cell{{Col: 1}, {Col: -1}, {Row: 1}, {Row: -1}}

// DetourStep finds a passable neighbour of start that leads, within maxDepth
// steps, to a cell strictly closer to target. The search is a small BFS with a
// fixed neighbour order, so the same inputs always pick the same step.
func DetourStep(start, target store.Cell, maxDepth int, solid func(store.Cell) bool) (store.Cell, bool) {
	if maxDepth <= 0 {
		return store.Cell{}, false
	}
	startDist := manhattan(start, target)

	type qItem struct {
		c     store.Cell
		depth int
		first store.Cell
	}

	visited := make(map[store.Cell]bool, 64)
	visited[start] = true

	queue := make([]qItem, 0, 64)
	for _, d := range neighbours {
		n := store.Cell{Col: start.Col + d.Col, Row: start.Row + d.Row}
		if solid(n) {
			continue
		}
		visited[n] = true
		queue = append(queue, qItem{c: n, depth: 1, first: n})
	}

	bestDist, bestDepth := startDist, 0
	var bestFirst store.Cell
	found := false

	better := func(dist, depth int, first store.Cell) bool {
		if !found {
			return true
		}
		if dist != bestDist {
			return dist < bestDist
		}
		if depth != bestDepth {
			return depth < bestDepth
		}
		if first.Col != bestFirst.Col {
			return first.Col < bestFirst.Col
		}
		return first.Row < bestFirst.Row
	}

	for head := 0; head < len(queue); head++ {
		it := queue[head]
		if d := manhattan(it.c, target); d < startDist && better(d, it.depth, it.first) {
			found = true
			bestDist, bestDepth, bestFirst = d, it.depth, it.first
		}
		if it.depth >= maxDepth {
			continue
		}
		for _, d := range neighbours {
			n := store.Cell{Col: it.c.Col + d.Col, Row: it.c.Row + d.Row}
			if visited[n] || solid(n) {
				continue
			}
			visited[n] = true
			queue = append(queue, qItem{c: n, depth: it.depth + 1, first: it.first})
		}
	}
	if !found {
		return store.Cell{}, false
	}
	return bestFirst, true
}
