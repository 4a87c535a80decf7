// Package movement holds grid navigation: A* for mob pursuit and a short
// detour search for local obstacle hops.
package movement

import (
	"container/heap"

	"tilecraft.ai/internal/sim/world/terrain/store"
)

// Grid is the read view pathfinding needs. Out-of-range cells must report solid.
type Grid interface {
	Solid(col, row int) bool
}

type node struct {
	cell  store.Cell
	g, f  int
	seq   int
	index int
}

// openSet orders by f, then by insertion sequence. The sequence makes ties
// deterministic for a fixed input.
type openSet []*node

func (s openSet) Len() int { return len(s) }
func (s openSet) Less(i, j int) bool {
	if s[i].f != s[j].f {
		return s[i].f < s[j].f
	}
	return s[i].seq < s[j].seq
}
func (s openSet) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
	s[i].index = i
	s[j].index = j
}
func (s *openSet) Push(x any) {
	n := x.(*node)
	n.index = len(*s)
	*s = append(*s, n)
}
func (s *openSet) Pop() any {
	old := *s
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*s = old[:len(old)-1]
	n.index = -1
	return n
}

// MaxExpanded bounds the nodes one search may close.
const MaxExpanded = 1 << 16

// FindPath runs 4-neighbour A* with unit step cost and a Manhattan heuristic.
// The returned path starts at start and ends at goal. A solid goal or an
// exhausted open set yields no path.
func FindPath(grid Grid, start, goal store.Cell) ([]store.Cell, bool) {
	if grid.Solid(goal.Col, goal.Row) {
		return nil, false
	}
	if start == goal {
		return []store.Cell{start}, true
	}

	seq := 0
	open := &openSet{}
	nodes := map[store.Cell]*node{}
	parent := map[store.Cell]store.Cell{}
	closed := map[store.Cell]bool{}

	first := &node{cell: start, g: 0, f: manhattan(start, goal), seq: seq}
	nodes[start] = first
	heap.Push(open, first)

	for open.Len() > 0 {
		cur := heap.Pop(open).(*node)
		if cur.cell == goal {
			return reconstruct(parent, start, goal), true
		}
		closed[cur.cell] = true
		if len(closed) > MaxExpanded {
			return nil, false
		}

		for _, d := range neighbours {
			next := store.Cell{Col: cur.cell.Col + d.Col, Row: cur.cell.Row + d.Row}
			if closed[next] || grid.Solid(next.Col, next.Row) {
				continue
			}
			g := cur.g + 1
			if n, ok := nodes[next]; ok {
				if g >= n.g {
					continue
				}
				n.g = g
				n.f = g + manhattan(next, goal)
				parent[next] = cur.cell
				heap.Fix(open, n.index)
				continue
			}
			seq++
			n := &node{cell: next, g: g, f: g + manhattan(next, goal), seq: seq}
			nodes[next] = n
			parent[next] = cur.cell
			heap.Push(open, n)
		}
	}
	return nil, false
}

func reconstruct(parent map[store.Cell]store.Cell, start, goal store.Cell) []store.Cell {
	path := []store.Cell{goal}
	for c := goal; c != start; {
		c = parent[c]
		path = append(path, c)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
