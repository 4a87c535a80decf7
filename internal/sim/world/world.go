package world

import (
	"fmt"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"

	"tilecraft.ai/internal/persistence/snapshot"
	"tilecraft.ai/internal/sim/catalogs"
	"tilecraft.ai/internal/sim/tuning"
	"tilecraft.ai/internal/sim/world/feature/entities/mobs"
	"tilecraft.ai/internal/sim/world/feature/work/mining"
	"tilecraft.ai/internal/sim/world/feature/work/smelting"
	"tilecraft.ai/internal/sim/world/logic/mathx"
	"tilecraft.ai/internal/sim/world/terrain/gen"
	"tilecraft.ai/internal/sim/world/terrain/store"
)

type WorldConfig struct {
	ID     string
	Seed   int64
	Tuning tuning.Tuning
}

func (c WorldConfig) TickRateHz() int { return c.Tuning.TickRateHz }

// Dt is the simulated time one tick covers, in seconds.
func (c WorldConfig) Dt() float64 { return 1 / float64(c.Tuning.TickRateHz) }

// World is the single-threaded authoritative simulation. It owns the grid and
// every component that mutates it. All state must be accessed only from the
// goroutine driving Run or StepOnce.
type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs

	tick    atomic.Uint64
	elapsed float64
	rng     *mathx.Source

	grid     *store.Grid
	mining   *mining.Model
	stations *smelting.Stations
	mobs     *mobs.Directory
	player   *Player

	// Cell the player is currently breaking, if any.
	mineTarget *store.Cell

	inbox         chan Action
	observerJoin  chan ObserverJoinRequest
	observerLeave chan string
	stop          chan struct{}

	observers map[string]*observerClient
	events    []Event

	// Optional loggers (may be nil). Implemented in internal/persistence/log.
	tickLogger  TickLogger
	auditLogger AuditLogger

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	metrics atomic.Value
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type TickLogEntry struct {
	Tick    uint64   `json:"tick"`
	Actions []Action `json:"actions,omitempty"`
	Digest  string   `json:"digest"`
}

// AuditEntry records one grid mutation made by the player.
type AuditEntry struct {
	Tick   uint64 `json:"tick"`
	Action string `json:"action"` // "MINE" or "PLACE"
	Pos    [2]int `json:"pos"`
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}

// New generates a fresh world from cfg.Seed.
func New(cfg WorldConfig, cats *catalogs.Catalogs) (*World, error) {
	cfg.Tuning.ApplyDefaults()
	tw := cfg.Tuning.World
	grid, err := gen.Generate(cfg.Seed, tw.Cols, tw.Rows, cfg.Tuning.WorldGen, &cats.Blocks)
	if err != nil {
		return nil, err
	}
	w := newWorld(cfg, cats)
	w.install(grid, mathx.NewSource(cfg.Seed))

	p, err := newPlayer(cfg.Tuning.Player, &cats.Items)
	if err != nil {
		return nil, err
	}
	p.Pos = w.spawnPos(p)
	w.player = p

	if _, err := w.mobs.SeedPassive(cfg.Tuning.Mobs.PassiveInitial); err != nil {
		return nil, fmt.Errorf("seed passive mobs: %w", err)
	}
	return w, nil
}

func newWorld(cfg WorldConfig, cats *catalogs.Catalogs) *World {
	return &World{
		cfg:           cfg,
		catalogs:      cats,
		inbox:         make(chan Action, 1024),
		observerJoin:  make(chan ObserverJoinRequest, 16),
		observerLeave: make(chan string, 16),
		stop:          make(chan struct{}),
		observers:     map[string]*observerClient{},
	}
}

// install binds every component to grid and rng.
func (w *World) install(grid *store.Grid, rng *mathx.Source) {
	t := w.cfg.Tuning
	w.grid = grid
	w.rng = rng
	w.mining = mining.NewModel(grid, mining.Factors{
		WrongTool: t.Mining.WrongToolFactor,
		NoTool:    t.Mining.NoToolFactor,
	}, rng)
	w.stations = smelting.New(w.catalogs.Recipes.Smelting)
	w.mobs = mobs.NewDirectory(grid, &w.catalogs.Mobs, t.Mobs, rng)
	w.mineTarget = nil
}

// spawnPos stands the player on the surface of the middle column.
func (w *World) spawnPos(p *Player) mgl64.Vec2 {
	col := w.grid.Cols / 2
	row := w.grid.FindSurfaceRow(col)
	x := float64(col) + (1-p.Width)/2
	if row >= w.grid.Rows {
		return mgl64.Vec2{x, 0}
	}
	return mgl64.Vec2{x, float64(row) - p.Height}
}

func (w *World) Config() WorldConfig {
	if w == nil {
		return WorldConfig{}
	}
	return w.cfg
}

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) Catalogs() *catalogs.Catalogs { return w.catalogs }

func (w *World) Grid() *store.Grid { return w.grid }

func (w *World) Player() *Player { return w.player }

func (w *World) Mobs() *mobs.Directory { return w.mobs }

func (w *World) Stations() *smelting.Stations { return w.stations }

func (w *World) Mining() *mining.Model { return w.mining }

func (w *World) BlockPalette() []string {
	if w == nil || w.catalogs == nil {
		return nil
	}
	p := w.catalogs.Blocks.Palette
	out := make([]string, len(p))
	copy(out, p)
	return out
}

func (w *World) ItemPalette() []string {
	if w == nil || w.catalogs == nil {
		return nil
	}
	p := w.catalogs.Items.Palette
	out := make([]string, len(p))
	copy(out, p)
	return out
}

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetAuditLogger(l AuditLogger)                  { w.auditLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) HasSnapshotSink() bool { return w.snapshotSink != nil }

func (w *World) audit(entry AuditEntry) {
	if w.auditLogger != nil {
		_ = w.auditLogger.WriteAudit(entry)
	}
}
