package world

import (
	"encoding/json"
	"sort"

	"tilecraft.ai/internal/observerproto"
	"tilecraft.ai/internal/sim/encoding"
	"tilecraft.ai/internal/sim/world/terrain/store"
)

// ObserverJoinRequest registers a read-only observer session. Frames go to
// TickOut; slow readers only ever see the latest frame.
type ObserverJoinRequest struct {
	SessionID string
	TickOut   chan []byte
	FullGrid  bool
}

type observerClient struct {
	id       string
	tickOut  chan []byte
	needGrid bool
}

func (w *World) ObserverJoin() chan<- ObserverJoinRequest { return w.observerJoin }
func (w *World) ObserverLeave() chan<- string             { return w.observerLeave }

func (w *World) handleObserverJoin(req ObserverJoinRequest) {
	if req.SessionID == "" || req.TickOut == nil {
		return
	}
	if old := w.observers[req.SessionID]; old != nil {
		close(old.tickOut)
	}
	w.observers[req.SessionID] = &observerClient{
		id:       req.SessionID,
		tickOut:  req.TickOut,
		needGrid: req.FullGrid,
	}
}

func (w *World) handleObserverLeave(id string) {
	if c := w.observers[id]; c != nil {
		close(c.tickOut)
		delete(w.observers, id)
	}
}

func (w *World) stepObservers(nowTick uint64, changed []store.Cell) {
	if len(w.observers) == 0 {
		return
	}
	frame := w.buildFrame(nowTick, changed)
	b, err := json.Marshal(frame)
	if err != nil {
		return
	}

	ids := make([]string, 0, len(w.observers))
	for id := range w.observers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		c := w.observers[id]
		if !c.needGrid {
			sendLatest(c.tickOut, b)
			continue
		}
		full := frame
		full.GridRLE = encoding.EncodeGrid(w.grid.Cols, w.grid.Rows, w.grid.Cells)
		fb, err := json.Marshal(full)
		if err != nil {
			continue
		}
		// A dropped full frame is retried next tick.
		select {
		case c.tickOut <- fb:
			c.needGrid = false
		default:
		}
	}
}

// BuildFrame renders the read-only view of the current state. Changed lists
// grid cells written since the last frame.
func (w *World) BuildFrame(changed []store.Cell) observerproto.FrameMsg {
	return w.buildFrame(w.tick.Load(), changed)
}

func (w *World) buildFrame(nowTick uint64, changed []store.Cell) observerproto.FrameMsg {
	cats := w.catalogs
	cycle := w.Cycle()
	f := observerproto.FrameMsg{
		Type:            "FRAME",
		ProtocolVersion: observerproto.Version,
		Tick:            nowTick,
		Cycle:           cycle,
		Light:           LightLevel(cycle),
		Mobs:            []observerproto.MobState{},
	}
	for _, c := range changed {
		f.Cells = append(f.Cells, observerproto.CellPatch{Col: c.Col, Row: c.Row, Block: uint16(w.grid.GetCell(c))})
	}
	for _, e := range w.mining.Active() {
		f.Breaking = append(f.Breaking, observerproto.BreakState{Col: e.Cell.Col, Row: e.Cell.Row, Ratio: e.Ratio})
	}
	for _, m := range w.mobs.Mobs() {
		f.Mobs = append(f.Mobs, observerproto.MobState{ID: m.ID, Kind: m.Kind, Pos: [2]float64{m.Pos.X(), m.Pos.Y()}, Health: m.Health})
	}
	for _, c := range w.stations.Cells() {
		st, _ := w.stations.Get(c)
		ss := observerproto.StationState{Col: c.Col, Row: c.Row}
		if st.Output != nil {
			ss.Output = cats.Items.Name(st.Output.Item)
			ss.Count = st.Output.Count
		}
		if r, ok := w.stations.Recipe(st); ok && r.TimeSeconds > 0 {
			ss.Progress = clamp01(st.Elapsed / r.TimeSeconds)
		}
		f.Stations = append(f.Stations, ss)
	}

	p := w.player
	ps := observerproto.PlayerState{
		Pos:       [2]float64{p.Pos.X(), p.Pos.Y()},
		Health:    p.Health,
		MaxHealth: p.MaxHealth,
		XP:        p.XP,
		Inventory: map[string]int{},
	}
	if p.Armor != 0 {
		ps.Armor = cats.Items.Name(p.Armor)
	}
	if t := p.Tool(); t != nil {
		ps.Tool = cats.Items.Name(t.Item)
	}
	for k, n := range p.Inventory {
		ps.Inventory[cats.Items.Name(k)] = n
	}
	f.Player = ps

	for _, e := range w.events {
		f.Events = append(f.Events, observerproto.EventState{
			Type:   e.Type,
			Col:    e.Col,
			Row:    e.Row,
			Item:   e.Item,
			Count:  e.Count,
			MobID:  e.MobID,
			Reason: e.Reason,
		})
	}
	return f
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// ActionFromWire converts an observer ACT payload.
func ActionFromWire(a observerproto.ActionState) Action {
	return Action{
		Kind:  ActionKind(a.Kind),
		Col:   a.Col,
		Row:   a.Row,
		Item:  a.Item,
		Count: a.Count,
		Grid:  a.Grid,
		Size:  a.Size,
		MobID: a.MobID,
		X:     a.X,
		Y:     a.Y,
		Slot:  a.Slot,
	}
}
