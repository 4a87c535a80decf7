package world

import (
	"time"

	"tilecraft.ai/internal/sim/world/feature/work/mining"
)

// stepInternal advances one tick. Player actions mutate the grid first, then
// mining, smelting and mobs run in that order, so mob pathing always sees
// this tick's blocks.
func (w *World) stepInternal(actions []Action) {
	stepStart := time.Now()
	nowTick := w.tick.Load()
	dt := w.cfg.Dt()
	w.events = w.events[:0]

	// Apply actions in submission order (the inbox order).
	recorded := make([]Action, 0, len(actions))
	for _, a := range actions {
		recorded = append(recorded, a)
		w.applyAction(a)
	}

	w.systemMining(nowTick, dt)
	w.systemSmelting(dt)
	w.systemMobs(dt)
	w.systemPlayer(dt)
	w.elapsed += dt

	changed := w.grid.DrainChanges()
	w.stepObservers(nowTick, changed)

	// Snapshot every N ticks, starting after tick 0, when a sink is attached.
	// Break progress is not persisted, so an exported tick ends the current
	// break and tells the controller to start it again.
	if every := w.cfg.Tuning.SnapshotEveryTicks; w.snapshotSink != nil && nowTick != 0 && every > 0 && nowTick%uint64(every) == 0 {
		if c := w.mineTarget; c != nil {
			w.emit(Event{Type: "MINE_CANCELLED", Col: c.Col, Row: c.Row, Reason: "snapshot"})
			w.stopMining()
		}
		snap := w.ExportSnapshot(nowTick)
		select {
		case w.snapshotSink <- snap:
		default:
			// Drop snapshot if sink is backed up.
		}
	}

	digest := w.stateDigest(nowTick)
	if w.tickLogger != nil {
		_ = w.tickLogger.WriteTick(TickLogEntry{Tick: nowTick, Actions: recorded, Digest: digest})
	}

	nextTick := w.tick.Add(1)
	w.metrics.Store(WorldMetrics{
		Tick:      nextTick,
		Mobs:      w.mobs.Len(),
		Stations:  w.stations.Len(),
		Observers: len(w.observers),
		QueueDepths: QueueDepths{
			Inbox: len(w.inbox),
		},
		StepMS:       float64(time.Since(stepStart).Microseconds()) / 1000.0,
		Cycle:        w.Cycle(),
		PlayerHealth: w.player.Health,
	})
}

func (w *World) systemMining(nowTick uint64, dt float64) {
	if w.mineTarget == nil {
		return
	}
	c := *w.mineTarget
	p := w.player
	from := w.grid.GetCell(c)
	out := w.mining.Tick(c, p.Tool(), p.Tier(), dt)
	p.dropBrokenTools()
	switch out.Status {
	case mining.Idle:
		w.mineTarget = nil
	case mining.Rejected:
		w.mineTarget = nil
		w.emit(Event{Type: "MINE_REJECTED", Col: c.Col, Row: c.Row, Reason: out.Reason})
	case mining.Completed:
		w.mineTarget = nil
		p.GrantItems(out.Drops)
		// A mined furnace gives back whatever it still held.
		if contents := w.stations.Remove(c); len(contents) > 0 {
			p.GrantItems(contents)
		}
		w.audit(AuditEntry{Tick: nowTick, Action: "MINE", Pos: [2]int{c.Col, c.Row}, From: w.catalogs.Blocks.Name(from), To: w.catalogs.Blocks.Name(w.grid.GetCell(c))})
		w.emit(Event{Type: "MINED", Col: c.Col, Row: c.Row, Item: w.catalogs.Blocks.Name(from)})
	}
}

func (w *World) systemSmelting(dt float64) {
	for _, done := range w.stations.Tick(dt) {
		w.emit(Event{Type: "SMELTED", Col: done.Cell.Col, Row: done.Cell.Row, Item: w.catalogs.Items.Name(done.Output.Item), Count: done.Output.Count})
	}
}

func (w *World) systemMobs(dt float64) {
	rep := w.mobs.Update(dt, w.Cycle(), w.player)
	for _, id := range rep.Spawned {
		w.emit(Event{Type: "MOB_SPAWNED", MobID: id})
	}
	for _, d := range rep.Deaths {
		w.emit(Event{Type: "MOB_DIED", MobID: d.ID, Item: d.Kind, Count: d.XP})
	}
}

// systemPlayer ticks timers and respawns a dead player at the spawn column
// with full health. Inventory is kept.
func (w *World) systemPlayer(dt float64) {
	p := w.player
	p.tickTimers(dt)
	if p.Health > 0 {
		return
	}
	p.deaths++
	p.Health = p.MaxHealth
	p.HurtTimer = 0
	p.Pos = w.spawnPos(p)
	w.stopMining()
	w.emit(Event{Type: "PLAYER_DIED"})
}
