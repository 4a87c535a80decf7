package log

import (
	"errors"
	"fmt"
	"path/filepath"

	"tilecraft.ai/internal/persistence/snapshot"
	"tilecraft.ai/internal/sim/world"
)

// ErrStop ends a ScanFile early.
var ErrStop = errors.New("stop scan")

// ErrDigestMismatch is returned when a replayed tick hashes differently from
// its log entry.
var ErrDigestMismatch = errors.New("digest mismatch")

type ReplayOptions struct {
	// VerifyFrom is the first tick whose digest is compared. Zero means the
	// world's current tick.
	VerifyFrom uint64
	// ToTick stops after this tick when non-zero.
	ToTick uint64
}

type ReplayResult struct {
	Stepped  uint64
	Checked  uint64
	LastTick uint64
}

// Replay re-applies logged actions to w, which is normally freshly imported
// from a snapshot. Entries older than the world's tick are skipped; after that
// every entry must name exactly the tick the world is about to step.
//
// Logs come from a run that exported snapshots, and an exported tick ends the
// current break. A world without a sink gets one that discards, so those
// ticks replay the same way.
func Replay(w *world.World, files []string, opts ReplayOptions) (ReplayResult, error) {
	var res ReplayResult
	if !w.HasSnapshotSink() {
		w.SetSnapshotSink(make(chan snapshot.SnapshotV1))
	}
	start := w.CurrentTick()
	verifyFrom := opts.VerifyFrom
	if verifyFrom == 0 {
		verifyFrom = start
	}
	for _, path := range files {
		err := ScanFile(path, func(e world.TickLogEntry) error {
			if e.Tick < start {
				return nil
			}
			if opts.ToTick != 0 && e.Tick > opts.ToTick {
				return ErrStop
			}
			if e.Tick != w.CurrentTick() {
				return fmt.Errorf("tick gap: want %d got %d (%s)", w.CurrentTick(), e.Tick, filepath.Base(path))
			}
			tick, digest := w.StepOnce(e.Actions)
			res.Stepped++
			res.LastTick = tick
			if tick >= verifyFrom {
				res.Checked++
				if digest != e.Digest {
					return fmt.Errorf("%w at tick %d: got %s want %s", ErrDigestMismatch, tick, digest, e.Digest)
				}
			}
			return nil
		})
		if err != nil {
			return res, err
		}
		if opts.ToTick != 0 && w.CurrentTick() > opts.ToTick {
			break
		}
	}
	return res, nil
}
