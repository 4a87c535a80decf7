package world

import (
	"context"
	"time"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingActions []Action

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.observerJoin:
			w.handleObserverJoin(req)
		case id := <-w.observerLeave:
			w.handleObserverLeave(id)
		case a := <-w.inbox:
			pendingActions = append(pendingActions, a)
		case <-ticker.C:
			w.stepInternal(pendingActions)
			pendingActions = pendingActions[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// Inbox accepts actions for the next tick while Run is active.
func (w *World) Inbox() chan<- Action { return w.inbox }

// StepOnce advances the world by a single tick using the same ordering
// semantics as Run. It is intended for deterministic replays and tests.
func (w *World) StepOnce(actions []Action) (tick uint64, digest string) {
	tick = w.tick.Load()
	w.stepInternal(actions)
	return tick, w.stateDigest(tick)
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
