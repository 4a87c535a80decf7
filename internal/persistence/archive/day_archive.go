package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"tilecraft.ai/internal/persistence/snapshot"
)

const snapSuffix = ".snap.zst"

type DayArchiveMeta struct {
	Day            int     `json:"day"`
	Tick           uint64  `json:"tick"`
	Seed           int64   `json:"seed"`
	Snapshot       string  `json:"snapshot"`
	CreatedAt      string  `json:"created_at"`
	DaySeconds     float64 `json:"day_seconds"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// DayOf is the zero-based in-game day a snapshot was taken on.
func DayOf(snap snapshot.SnapshotV1) int {
	if snap.DaySeconds <= 0 || snap.ElapsedSeconds < 0 {
		return 0
	}
	return int(math.Floor(snap.ElapsedSeconds / snap.DaySeconds))
}

func dayDir(worldDir string, day int) string {
	return filepath.Join(worldDir, "archives", fmt.Sprintf("day_%04d", day))
}

// ArchiveDaySnapshot keeps the first snapshot of each in-game day under
// `worldDir/archives/day_<NNNN>/`. Later snapshots of a day that is already
// archived are skipped.
func ArchiveDaySnapshot(worldDir, snapshotPath string, snap snapshot.SnapshotV1) (day int, archivedPath string, archived bool, err error) {
	day = DayOf(snap)
	dir := dayDir(worldDir, day)
	if _, err := os.Stat(filepath.Join(dir, "meta.json")); err == nil {
		return day, "", false, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return day, "", false, err
	}

	dst := filepath.Join(dir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return day, "", false, err
	}

	meta := DayArchiveMeta{
		Day:            day,
		Tick:           snap.Header.Tick,
		Seed:           snap.Seed,
		Snapshot:       filepath.Base(dst),
		CreatedAt:      time.Now().UTC().Format(time.RFC3339Nano),
		DaySeconds:     snap.DaySeconds,
		ElapsedSeconds: snap.ElapsedSeconds,
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return day, "", false, err
	}
	// meta.json goes last; its presence marks the day as done.
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644); err != nil {
		return day, "", false, err
	}
	return day, dst, true, nil
}

// SnapshotFile is one `<tick>.snap.zst` file in a snapshot directory.
type SnapshotFile struct {
	Tick uint64
	Path string
}

// ListSnapshots returns the snapshot files in dir ordered by tick. Files that
// do not follow the naming scheme are ignored; a missing dir is empty.
func ListSnapshots(dir string) ([]SnapshotFile, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []SnapshotFile
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), snapSuffix) {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(e.Name(), snapSuffix), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, SnapshotFile{Tick: tick, Path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tick < out[j].Tick })
	return out, nil
}

// PruneSnapshots deletes all but the newest keep snapshots in dir and returns
// the removed paths. keep <= 0 disables pruning.
func PruneSnapshots(dir string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	files, err := ListSnapshots(dir)
	if err != nil || len(files) <= keep {
		return nil, err
	}
	var removed []string
	for _, f := range files[:len(files)-keep] {
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		removed = append(removed, f.Path)
	}
	return removed, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
