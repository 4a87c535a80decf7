package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

// ErrMalformed marks a snapshot that cannot be restored. Loading it is fatal for
// that attempt only; callers fall back to a freshly generated world.
var ErrMalformed = errors.New("malformed snapshot")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

type Header struct {
	Version            int    `json:"version"`
	WorldID            string `json:"world_id"`
	SnapshotID         string `json:"snapshot_id"`
	Tick               uint64 `json:"tick"`
	SavedAtEpochMillis int64  `json:"saved_at_epoch_millis"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed           int64   `json:"seed"`
	TickRate       int     `json:"tick_rate_hz"`
	DaySeconds     float64 `json:"day_seconds"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	RNG            RNGV1   `json:"rng"`

	Grid     GridV1               `json:"grid"`
	Mobs     []MobV1              `json:"mobs"`
	Stations map[string]StationV1 `json:"stations"`
	Player   *PlayerV1            `json:"player,omitempty"`

	Counters CountersV1 `json:"counters"`

	SavedAtEpochMillis int64 `json:"saved_at_epoch_millis"`
}

type RNGV1 struct {
	Seed int64  `json:"seed"`
	N    uint64 `json:"n"`
}

type GridV1 struct {
	Cols    int      `json:"cols"`
	Rows    int      `json:"rows"`
	Palette []string `json:"palette"`
	Cells   []uint16 `json:"cells"`
}

type MobV1 struct {
	ID          uint64     `json:"id"`
	Kind        string     `json:"kind"`
	Disposition string     `json:"disposition"`
	Pos         [2]float64 `json:"pos"`
	Vel         [2]float64 `json:"vel"`
	Health      int        `json:"health"`
	MaxHealth   int        `json:"max_health"`
	Grounded    bool       `json:"grounded"`
	Path        [][2]int   `json:"path,omitempty"`
	PathTimer   float64    `json:"path_timer"`
}

type StackV1 struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

type StationV1 struct {
	Col     int      `json:"col"`
	Row     int      `json:"row"`
	Input   *StackV1 `json:"input,omitempty"`
	Fuel    *StackV1 `json:"fuel,omitempty"`
	Output  *StackV1 `json:"output,omitempty"`
	Elapsed float64  `json:"elapsed"`
}

type ToolV1 struct {
	Item       string `json:"item"`
	Durability int    `json:"durability"`
}

type PlayerV1 struct {
	Pos       [2]float64     `json:"pos"`
	Health    int            `json:"health"`
	MaxHealth int            `json:"max_health"`
	XP        int            `json:"xp"`
	Armor     string         `json:"armor,omitempty"`
	Inventory map[string]int `json:"inventory"`
	Tools     []ToolV1       `json:"tools,omitempty"`
	Selected  int            `json:"selected"`
	HurtTimer float64        `json:"hurt_timer"`
}

type CountersV1 struct {
	NextMob uint64 `json:"next_mob"`
}

// StationKey formats the station map key for a cell.
func StationKey(col, row int) string {
	return strconv.Itoa(col) + "," + strconv.Itoa(row)
}

func ParseStationKey(key string) (col, row int, ok bool) {
	parts := strings.Split(key, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	c, err1 := strconv.Atoi(parts[0])
	r, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return c, r, true
}

// Validate checks the structural invariants every loader relies on.
func Validate(snap SnapshotV1) error {
	if snap.Header.Version != Version {
		return malformed("version %d, want %d", snap.Header.Version, Version)
	}
	g := snap.Grid
	if g.Cols <= 0 || g.Rows <= 0 {
		return malformed("grid dimensions %dx%d", g.Cols, g.Rows)
	}
	if len(g.Cells) != g.Cols*g.Rows {
		return malformed("grid cells length %d, want %d", len(g.Cells), g.Cols*g.Rows)
	}
	if len(g.Palette) == 0 {
		return malformed("grid palette empty")
	}
	for i, c := range g.Cells {
		if int(c) >= len(g.Palette) {
			return malformed("grid cell %d holds kind %d outside palette of %d", i, c, len(g.Palette))
		}
	}
	seen := map[uint64]bool{}
	for _, m := range snap.Mobs {
		if m.Kind == "" {
			return malformed("mob %d missing kind", m.ID)
		}
		if seen[m.ID] {
			return malformed("duplicate mob id %d", m.ID)
		}
		seen[m.ID] = true
		if m.ID >= snap.Counters.NextMob {
			return malformed("mob id %d not below next_mob %d", m.ID, snap.Counters.NextMob)
		}
	}
	for key, st := range snap.Stations {
		col, row, ok := ParseStationKey(key)
		if !ok {
			return malformed("station key %q", key)
		}
		if col != st.Col || row != st.Row {
			return malformed("station key %q does not match cell %d,%d", key, st.Col, st.Row)
		}
		if col < 0 || row < 0 || col >= g.Cols || row >= g.Rows {
			return malformed("station %q outside grid", key)
		}
		for _, s := range []*StackV1{st.Input, st.Fuel, st.Output} {
			if s != nil && (s.Item == "" || s.Count < 0) {
				return malformed("station %q has an invalid stack", key)
			}
		}
	}
	return nil
}

func Encode(w io.Writer, snap SnapshotV1) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// Decode reads and validates a snapshot. Any failure wraps ErrMalformed.
func Decode(r io.Reader) (SnapshotV1, error) {
	var snap SnapshotV1
	dec, err := zstd.NewReader(r)
	if err != nil {
		return snap, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The header line is duplicated inside the gob body; it exists for cheap peeking.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("%w: gob decode: %v", ErrMalformed, err)
	}
	if err := Validate(snap); err != nil {
		return snap, err
	}
	return snap, nil
}

// ReadHeader returns only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()
	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	return h, nil
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := Encode(f, snap); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	f, err := os.Open(path)
	if err != nil {
		return SnapshotV1{}, err
	}
	defer f.Close()
	return Decode(f)
}
