package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz         int     `yaml:"tick_rate_hz"`
	DaySeconds         float64 `yaml:"day_seconds"`
	SnapshotEveryTicks int     `yaml:"snapshot_every_ticks"`

	World    World    `yaml:"world"`
	WorldGen WorldGen `yaml:"worldgen"`
	Mining   Mining   `yaml:"mining"`
	Mobs     Mobs     `yaml:"mobs"`
	Player   Player   `yaml:"player"`
}

type World struct {
	Cols int `yaml:"cols"`
	Rows int `yaml:"rows"`
}

type WorldGen struct {
	// Surface shape.
	SurfaceBaseFraction float64 `yaml:"surface_base_fraction"`
	HeightScale         float64 `yaml:"height_scale"`
	HeightOctaves       int     `yaml:"height_octaves"`
	HeightAmplitude     float64 `yaml:"height_amplitude"`
	HeightPersistence   float64 `yaml:"height_persistence"`
	SubSoilDepth        int     `yaml:"sub_soil_depth"`
	DeepRockFraction    float64 `yaml:"deep_rock_fraction"`
	BiomeWidth          int     `yaml:"biome_width"`
	SpawnClearRadius    int     `yaml:"spawn_clear_radius"`

	// Caves: "value" (default) or "simplex".
	CaveNoise     string  `yaml:"cave_noise"`
	CaveScale     float64 `yaml:"cave_scale"`
	CaveOctaves   int     `yaml:"cave_octaves"`
	CaveThreshold float64 `yaml:"cave_threshold"`

	WaterBand     int `yaml:"water_band"`
	WaterPermille int `yaml:"water_permille"`

	// Ore bands, shallowest first.
	Ores []OreBand `yaml:"ores"`

	TreePermille int `yaml:"tree_permille"`
	TreeMinTrunk int `yaml:"tree_min_trunk"`
	TreeMaxTrunk int `yaml:"tree_max_trunk"`
	CanopyRadius int `yaml:"canopy_radius"`

	DungeonEveryCols   int     `yaml:"dungeon_every_cols"`
	DungeonPermille    int     `yaml:"dungeon_permille"`
	DungeonRowFraction float64 `yaml:"dungeon_row_fraction"`
	DungeonWidth       int     `yaml:"dungeon_width"`
	DungeonHeight      int     `yaml:"dungeon_height"`
}

type OreBand struct {
	Block    string  `yaml:"block"`
	MinDepth float64 `yaml:"min_depth"`
	Permille int     `yaml:"permille"`
}

type Mining struct {
	WrongToolFactor float64 `yaml:"wrong_tool_factor"`
	NoToolFactor    float64 `yaml:"no_tool_factor"`
}

type Mobs struct {
	Gravity            float64 `yaml:"gravity"`
	JumpVelocity       float64 `yaml:"jump_velocity"`
	NightStart         float64 `yaml:"night_start"`
	NightEnd           float64 `yaml:"night_end"`
	HostileSpawnChance float64 `yaml:"hostile_spawn_chance"`
	HostileKind        string  `yaml:"hostile_kind"`
	SpawnOffsetX       float64 `yaml:"spawn_offset_x"`
	SpawnOffsetY       float64 `yaml:"spawn_offset_y"`
	PassiveKind        string  `yaml:"passive_kind"`
	PassiveInitial     int     `yaml:"passive_initial"`
	WanderChance       float64 `yaml:"wander_chance"`
	WanderSpeed        float64 `yaml:"wander_speed"`
	PathRefreshSeconds float64 `yaml:"path_refresh_seconds"`
	WaypointThreshold  float64 `yaml:"waypoint_threshold"`
	MeleeRange         float64 `yaml:"melee_range"`
	MaxHostiles        int     `yaml:"max_hostiles"`
}

type Player struct {
	MaxHealth    int            `yaml:"max_health"`
	HurtCooldown float64        `yaml:"hurt_cooldown_seconds"`
	AttackDamage int            `yaml:"attack_damage"`
	Width        float64        `yaml:"width"`
	Height       float64        `yaml:"height"`
	StarterItems map[string]int `yaml:"starter_items"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.ApplyDefaults()
	return t, nil
}

func Defaults() Tuning {
	var t Tuning
	t.ApplyDefaults()
	return t
}

// ApplyDefaults fills zero values only.
func (t *Tuning) ApplyDefaults() {
	if t.TickRateHz <= 0 {
		t.TickRateHz = 20
	}
	if t.DaySeconds <= 0 {
		t.DaySeconds = 600
	}
	if t.SnapshotEveryTicks <= 0 {
		t.SnapshotEveryTicks = 1200
	}
	if t.World.Cols <= 0 {
		t.World.Cols = 256
	}
	if t.World.Rows <= 0 {
		t.World.Rows = 96
	}

	g := &t.WorldGen
	if g.SurfaceBaseFraction <= 0 {
		g.SurfaceBaseFraction = 0.4
	}
	if g.HeightScale <= 0 {
		g.HeightScale = 0.05
	}
	if g.HeightOctaves <= 0 {
		g.HeightOctaves = 4
	}
	if g.HeightAmplitude <= 0 {
		g.HeightAmplitude = 8
	}
	if g.HeightPersistence <= 0 {
		g.HeightPersistence = 0.5
	}
	if g.SubSoilDepth <= 0 {
		g.SubSoilDepth = 4
	}
	if g.DeepRockFraction <= 0 {
		g.DeepRockFraction = 0.75
	}
	if g.BiomeWidth <= 0 {
		g.BiomeWidth = 32
	}
	if g.SpawnClearRadius <= 0 {
		g.SpawnClearRadius = 3
	}
	if g.CaveNoise == "" {
		g.CaveNoise = "value"
	}
	if g.CaveScale <= 0 {
		g.CaveScale = 0.12
	}
	if g.CaveOctaves <= 0 {
		g.CaveOctaves = 3
	}
	if g.CaveThreshold <= 0 {
		g.CaveThreshold = 0.3
	}
	if g.WaterBand <= 0 {
		g.WaterBand = 2
	}
	if g.WaterPermille <= 0 {
		g.WaterPermille = 15
	}
	if len(g.Ores) == 0 {
		g.Ores = []OreBand{
			{Block: "COAL_ORE", MinDepth: 0.05, Permille: 60},
			{Block: "IRON_ORE", MinDepth: 0.2, Permille: 35},
			{Block: "GOLD_ORE", MinDepth: 0.4, Permille: 15},
			{Block: "DIAMOND_ORE", MinDepth: 0.7, Permille: 6},
		}
	}
	if g.TreePermille <= 0 {
		g.TreePermille = 80
	}
	if g.TreeMinTrunk <= 0 {
		g.TreeMinTrunk = 3
	}
	if g.TreeMaxTrunk < g.TreeMinTrunk {
		g.TreeMaxTrunk = g.TreeMinTrunk + 2
	}
	if g.CanopyRadius <= 0 {
		g.CanopyRadius = 2
	}
	if g.DungeonEveryCols <= 0 {
		g.DungeonEveryCols = 48
	}
	if g.DungeonPermille <= 0 {
		g.DungeonPermille = 500
	}
	if g.DungeonRowFraction <= 0 {
		g.DungeonRowFraction = 0.8
	}
	if g.DungeonWidth <= 0 {
		g.DungeonWidth = 7
	}
	if g.DungeonHeight <= 0 {
		g.DungeonHeight = 5
	}

	if t.Mining.WrongToolFactor <= 0 {
		t.Mining.WrongToolFactor = 2
	}
	if t.Mining.NoToolFactor <= 0 {
		t.Mining.NoToolFactor = 5
	}

	m := &t.Mobs
	if m.Gravity <= 0 {
		m.Gravity = 25
	}
	if m.JumpVelocity <= 0 {
		m.JumpVelocity = 8
	}
	if m.NightStart <= 0 {
		m.NightStart = 0.5
	}
	if m.NightEnd <= 0 {
		m.NightEnd = 0.95
	}
	if m.HostileSpawnChance <= 0 {
		m.HostileSpawnChance = 0.005
	}
	if m.HostileKind == "" {
		m.HostileKind = "ZOMBIE"
	}
	if m.SpawnOffsetX <= 0 {
		m.SpawnOffsetX = 15.625
	}
	if m.SpawnOffsetY <= 0 {
		m.SpawnOffsetY = 3.125
	}
	if m.PassiveKind == "" {
		m.PassiveKind = "SHEEP"
	}
	if m.PassiveInitial <= 0 {
		m.PassiveInitial = 5
	}
	if m.WanderChance <= 0 {
		m.WanderChance = 0.01
	}
	if m.WanderSpeed <= 0 {
		m.WanderSpeed = 0.78
	}
	if m.PathRefreshSeconds <= 0 {
		m.PathRefreshSeconds = 1
	}
	if m.WaypointThreshold <= 0 {
		m.WaypointThreshold = 0.2
	}
	if m.MeleeRange <= 0 {
		m.MeleeRange = 1.5625
	}
	if m.MaxHostiles <= 0 {
		m.MaxHostiles = 12
	}

	if t.Player.MaxHealth <= 0 {
		t.Player.MaxHealth = 20
	}
	if t.Player.HurtCooldown <= 0 {
		t.Player.HurtCooldown = 0.5
	}
	if t.Player.AttackDamage <= 0 {
		t.Player.AttackDamage = 4
	}
	if t.Player.Width <= 0 {
		t.Player.Width = 0.75
	}
	if t.Player.Height <= 0 {
		t.Player.Height = 1.75
	}
	if t.Player.StarterItems == nil {
		t.Player.StarterItems = map[string]int{
			"PLANK": 4,
			"COAL":  2,
		}
	}
}

// NightActive reports whether fraction lies in the configured night window.
func (m Mobs) NightActive(fraction float64) bool {
	return fraction > m.NightStart && fraction < m.NightEnd
}
