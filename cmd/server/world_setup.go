package main

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"tilecraft.ai/internal/persistence/archive"
	"tilecraft.ai/internal/persistence/snapshot"
	"tilecraft.ai/internal/sim/catalogs"
	"tilecraft.ai/internal/sim/tuning"
	"tilecraft.ai/internal/sim/world"
)

type worldSetup struct {
	WorldID  string
	Seed     int64
	WorldDir string
	// Explicit snapshot path. Empty means search for the latest one.
	Snapshot   string
	LoadLatest bool
	Tuning     tuning.Tuning
}

func snapshotDir(worldDir string) string { return filepath.Join(worldDir, "snapshots") }

func snapshotPath(worldDir string, tick uint64) string {
	return filepath.Join(snapshotDir(worldDir), strconv.FormatUint(tick, 10)+".snap.zst")
}

// resolveSnapshot picks the snapshot to resume from: the explicit path, the
// index's latest row when that file still exists, or the highest tick file on
// disk.
func resolveSnapshot(ctx context.Context, cfg worldSetup, idx runtimeIndex) string {
	if p := strings.TrimSpace(cfg.Snapshot); p != "" {
		return p
	}
	if !cfg.LoadLatest {
		return ""
	}
	if idx != nil {
		if rec, ok, err := idx.LatestSnapshot(ctx, cfg.WorldID); err == nil && ok {
			if _, err := os.Stat(rec.Path); err == nil {
				return rec.Path
			}
		}
	}
	return latestSnapshot(cfg.WorldDir)
}

// openWorld resumes from a snapshot when one is found and generates a fresh
// world otherwise. A malformed snapshot falls back to a fresh world; any other
// failure is returned.
func openWorld(ctx context.Context, cfg worldSetup, cats *catalogs.Catalogs, idx runtimeIndex, logger *log.Logger) (*world.World, error) {
	wc := world.WorldConfig{ID: cfg.WorldID, Seed: cfg.Seed, Tuning: cfg.Tuning}

	if path := resolveSnapshot(ctx, cfg, idx); path != "" {
		snap, err := snapshot.ReadSnapshot(path)
		if err == nil && snap.Header.WorldID != "" && snap.Header.WorldID != cfg.WorldID {
			return nil, errors.New("snapshot world id mismatch: flag=" + cfg.WorldID + " snap=" + snap.Header.WorldID)
		}
		if err == nil {
			var w *world.World
			w, err = world.NewFromSnapshot(wc, cats, snap)
			if err == nil {
				logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(path), w.CurrentTick())
				return w, nil
			}
		}
		if !errors.Is(err, snapshot.ErrMalformed) {
			return nil, err
		}
		logger.Printf("snapshot %s unusable (%v); generating a fresh world", filepath.Base(path), err)
	}

	w, err := world.New(wc, cats)
	if err != nil {
		return nil, err
	}
	logger.Printf("generated world=%s seed=%d size=%dx%d", cfg.WorldID, cfg.Seed, w.Grid().Cols, w.Grid().Rows)
	return w, nil
}

func latestSnapshot(worldDir string) string {
	files, err := archive.ListSnapshots(snapshotDir(worldDir))
	if err != nil || len(files) == 0 {
		return ""
	}
	return files[len(files)-1].Path
}

// snapshotWriter persists snapshots handed over by the world loop, records
// each in the index, archives the first one of every in-game day and prunes
// old files.
type snapshotWriter struct {
	WorldDir string
	Keep     int
	Archive  bool
	Index    runtimeIndex
	Logger   *log.Logger
}

// runBackground starts the world loop and the snapshot writer. The returned
// channel closes once both have returned; the loggers and the index must stay
// open until then.
func runBackground(ctx context.Context, w *world.World, sw snapshotWriter, snaps <-chan snapshot.SnapshotV1) <-chan struct{} {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sw.run(ctx, snaps)
	}()
	go func() {
		defer wg.Done()
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			sw.Logger.Printf("world stopped: %v", err)
		}
	}()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

func (sw snapshotWriter) run(ctx context.Context, in <-chan snapshot.SnapshotV1) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-in:
			if err := sw.persist(snap); err != nil {
				sw.Logger.Printf("snapshot tick=%d: %v", snap.Header.Tick, err)
			}
		}
	}
}

func (sw snapshotWriter) persist(snap snapshot.SnapshotV1) error {
	path := snapshotPath(sw.WorldDir, snap.Header.Tick)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return err
	}
	if sw.Index != nil {
		sw.Index.RecordSnapshot(path, snap)
	}
	if sw.Archive {
		if day, dst, ok, err := archive.ArchiveDaySnapshot(sw.WorldDir, path, snap); err != nil {
			sw.Logger.Printf("archive day=%d: %v", day, err)
		} else if ok {
			sw.Logger.Printf("archived day=%d snapshot=%s", day, filepath.Base(dst))
		}
	}
	removed, err := archive.PruneSnapshots(snapshotDir(sw.WorldDir), sw.Keep)
	if err != nil {
		return err
	}
	if len(removed) > 0 {
		sw.Logger.Printf("pruned %d old snapshots", len(removed))
	}
	return nil
}
