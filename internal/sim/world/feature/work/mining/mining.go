// Package mining tracks in-progress block breaking and resolves finished
// breaks into drops.
package mining

import (
	"sort"

	"tilecraft.ai/internal/sim/catalogs"
	"tilecraft.ai/internal/sim/world/terrain/store"
)

type Status int

const (
	// Idle means no break is in progress on the cell; the call did nothing.
	Idle Status = iota
	Breaking
	Completed
	Rejected
)

func (s Status) String() string {
	switch s {
	case Breaking:
		return "BREAKING"
	case Completed:
		return "COMPLETED"
	case Rejected:
		return "REJECTED"
	default:
		return "IDLE"
	}
}

// Outcome is the result of one Tick. Rejected carries Reason "too_tough".
type Outcome struct {
	Status   Status
	Cell     store.Cell
	Block    catalogs.BlockKind
	Progress float64
	Drops    []catalogs.ItemCount
	Reason   string
}

// ToolState is the caller's tool, passed in and out. Tick decrements
// Durability in place before it returns; nothing is deferred.
type ToolState struct {
	Item       catalogs.ItemKind
	Kind       catalogs.ToolKind
	Efficiency float64
	Durability int
	Tier       int
}

func NewToolState(def catalogs.ItemDef) (ToolState, bool) {
	if def.Tool == nil {
		return ToolState{}, false
	}
	return ToolState{
		Item:       def.Kind,
		Kind:       def.Tool.Kind,
		Efficiency: def.Tool.Efficiency,
		Durability: def.Tool.MaxDurability,
		Tier:       def.Tool.Tier,
	}, true
}

// Usable reports whether the tool still counts as a tool.
func (t *ToolState) Usable() bool {
	return t != nil && t.Kind != catalogs.ToolNone && t.Durability > 0
}

type Factors struct {
	WrongTool float64
	NoTool    float64
}

// Roller is the random source drops are drawn from.
type Roller interface {
	Float64() float64
	Intn(n int) int
}

const (
	Complete = 100.0
	epsilon  = 1e-6
)

// Model holds break progress per cell. Progress is never persisted.
type Model struct {
	grid    *store.Grid
	factors Factors
	roller  Roller
	breaks  map[store.Cell]float64
}

func NewModel(grid *store.Grid, factors Factors, roller Roller) *Model {
	if factors.WrongTool <= 0 {
		factors.WrongTool = 2
	}
	if factors.NoTool <= 0 {
		factors.NoTool = 5
	}
	return &Model{
		grid:    grid,
		factors: factors,
		roller:  roller,
		breaks:  map[store.Cell]float64{},
	}
}

// Rebind points the model at a replacement grid and drops all progress.
func (m *Model) Rebind(grid *store.Grid, roller Roller) {
	m.grid = grid
	m.roller = roller
	m.breaks = map[store.Cell]float64{}
}

// StartBreak begins breaking cell. Open and unbreakable cells are ignored, and
// restarting a cell already in progress keeps its progress.
func (m *Model) StartBreak(cell store.Cell) bool {
	if !m.grid.InBounds(cell.Col, cell.Row) {
		return false
	}
	def := m.grid.Def(cell.Col, cell.Row)
	if def.Open() || !def.Breakable {
		return false
	}
	if _, ok := m.breaks[cell]; !ok {
		m.breaks[cell] = 0
	}
	return true
}

func (m *Model) Cancel(cell store.Cell) {
	delete(m.breaks, cell)
}

func (m *Model) Progress(cell store.Cell) (float64, bool) {
	p, ok := m.breaks[cell]
	return p, ok
}

// BreakTime is the seconds needed to break def with tool. It also reports
// whether the tool was the matching one, which is when durability is spent.
func (m *Model) BreakTime(def catalogs.BlockDef, tool *ToolState) (float64, bool) {
	t := def.Hardness
	switch {
	case def.BestTool == catalogs.ToolNone:
		return t, false
	case !tool.Usable():
		return t * m.factors.NoTool, false
	case tool.Kind == def.BestTool:
		return t * tool.Efficiency, true
	default:
		return t * m.factors.WrongTool, false
	}
}

func (m *Model) Tick(cell store.Cell, tool *ToolState, actorTier int, dt float64) Outcome {
	progress, ok := m.breaks[cell]
	if !ok {
		return Outcome{Status: Idle, Cell: cell}
	}
	kind := m.grid.GetCell(cell)
	def := m.grid.Blocks().Def(kind)
	out := Outcome{Cell: cell, Block: kind}

	if def.Open() || !def.Breakable {
		// The block changed under the break; nothing left to mine.
		delete(m.breaks, cell)
		return Outcome{Status: Idle, Cell: cell, Block: kind}
	}
	if def.RequiredTier > actorTier {
		delete(m.breaks, cell)
		out.Status = Rejected
		out.Progress = progress
		out.Reason = "too_tough"
		return out
	}

	t, matched := m.BreakTime(def, tool)
	if matched {
		tool.Durability--
	}
	if t <= 0 {
		progress = Complete
	} else {
		progress += (Complete / t) * dt
	}
	if progress < Complete-epsilon {
		m.breaks[cell] = progress
		out.Status = Breaking
		out.Progress = progress
		return out
	}

	m.grid.SetCell(cell, catalogs.Air)
	delete(m.breaks, cell)
	out.Status = Completed
	out.Progress = Complete
	out.Drops = ResolveDrops(def.Drops, m.roller)
	return out
}

// Entry is one in-progress break, for renderers.
type Entry struct {
	Cell  store.Cell `json:"cell"`
	Ratio float64    `json:"ratio"`
}

// Active lists in-progress breaks sorted row-major.
func (m *Model) Active() []Entry {
	out := make([]Entry, 0, len(m.breaks))
	for c, p := range m.breaks {
		out = append(out, Entry{Cell: c, Ratio: p / Complete})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cell.Row != out[j].Cell.Row {
			return out[i].Cell.Row < out[j].Cell.Row
		}
		return out[i].Cell.Col < out[j].Cell.Col
	})
	return out
}

// ResolveDrops rolls each entry's chance independently and draws its count in
// [Count, Max]. Chance 1 never consumes a roll; chance 0 never drops.
func ResolveDrops(drops []catalogs.Drop, r Roller) []catalogs.ItemCount {
	var out []catalogs.ItemCount
	for _, d := range drops {
		if d.Chance <= 0 {
			continue
		}
		if d.Chance < 1 && r.Float64() >= d.Chance {
			continue
		}
		n := d.Count
		if d.Max > d.Count {
			n += r.Intn(d.Max - d.Count + 1)
		}
		if n <= 0 {
			continue
		}
		out = append(out, catalogs.ItemCount{Item: d.Item, Count: n})
	}
	return out
}
