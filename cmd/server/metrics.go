package main

import (
	"fmt"
	"io"

	"tilecraft.ai/internal/sim/world"
)

// writeMetrics renders world and index gauges in Prometheus text format.
func writeMetrics(out io.Writer, worldID string, w *world.World, idx runtimeIndex) {
	m := w.Metrics()
	tick := w.CurrentTick()
	if m.Tick != 0 {
		tick = m.Tick
	}

	gauge := func(name, help string, format string, v any) {
		fmt.Fprintf(out, "# HELP %s %s\n", name, help)
		fmt.Fprintf(out, "# TYPE %s gauge\n", name)
		fmt.Fprintf(out, "%s{world=%q} "+format+"\n", name, worldID, v)
	}
	gauge("tilecraft_world_tick", "Current world tick.", "%d", tick)
	gauge("tilecraft_world_mobs", "Live mobs.", "%d", m.Mobs)
	gauge("tilecraft_world_stations", "Open smelting stations.", "%d", m.Stations)
	gauge("tilecraft_world_observers", "Connected observer sessions.", "%d", m.Observers)
	gauge("tilecraft_world_inbox_depth", "Actions waiting for the next tick.", "%d", m.QueueDepths.Inbox)
	gauge("tilecraft_world_step_ms", "Last tick step duration in milliseconds.", "%.3f", m.StepMS)
	gauge("tilecraft_world_cycle", "Day cycle fraction.", "%.6f", m.Cycle)
	gauge("tilecraft_player_health", "Player health.", "%d", m.PlayerHealth)

	if idx == nil {
		return
	}
	s := idx.Stats()
	gauge("tilecraft_index_queue_depth", "Index writer backlog.", "%d", s.QueueDepth)
	fmt.Fprintf(out, "# HELP tilecraft_index_dropped_total Index rows dropped on a full queue.\n")
	fmt.Fprintf(out, "# TYPE tilecraft_index_dropped_total counter\n")
	fmt.Fprintf(out, "tilecraft_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "tick", s.DropTickTotal)
	fmt.Fprintf(out, "tilecraft_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "audit", s.DropAuditTotal)
	fmt.Fprintf(out, "tilecraft_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "snapshot", s.DropSnapshotTotal)
}
