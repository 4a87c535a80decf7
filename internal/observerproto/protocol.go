package observerproto

// Version is the observer protocol version.
const Version = "1.0"

// Client -> Server. First message on the observer WS connection.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// Send a full grid in the first FRAME instead of only changes.
	FullGrid bool `json:"full_grid,omitempty"`
}

// Client -> Server. Forwards one action from the local controller into the
// world inbox.
type ActMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Action          ActionState `json:"action"`
}

// ActionState mirrors the world action shape on the wire.
type ActionState struct {
	Kind  string   `json:"kind"`
	Col   int      `json:"col,omitempty"`
	Row   int      `json:"row,omitempty"`
	Item  string   `json:"item,omitempty"`
	Count int      `json:"count,omitempty"`
	Grid  []string `json:"grid,omitempty"`
	Size  int      `json:"size,omitempty"`
	MobID uint64   `json:"mob_id,omitempty"`
	X     float64  `json:"x,omitempty"`
	Y     float64  `json:"y,omitempty"`
	Slot  int      `json:"slot,omitempty"`
}

// HTTP response for GET /observer/bootstrap.
type BootstrapResponse struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	WorldID         string      `json:"world_id"`
	Tick            uint64      `json:"tick"`
	WorldParams     WorldParams `json:"world_params"`
	BlockPalette    []string    `json:"block_palette"`
	ItemPalette     []string    `json:"item_palette"`
}

type WorldParams struct {
	TickRateHz int     `json:"tick_rate_hz"`
	DaySeconds float64 `json:"day_seconds"`
	Cols       int     `json:"cols"`
	Rows       int     `json:"rows"`
	Seed       int64   `json:"seed"`
}

// Server -> Client. Sent every tick. GridRLE is set only on a session's first
// frame when it asked for the full grid (see encoding.EncodeGrid); Cells
// carries this tick's changes.
type FrameMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`

	Cycle float64 `json:"cycle"`
	Light float64 `json:"light"`

	GridRLE  string         `json:"grid_rle,omitempty"`
	Cells    []CellPatch    `json:"cells,omitempty"`
	Breaking []BreakState   `json:"breaking,omitempty"`
	Mobs     []MobState     `json:"mobs"`
	Stations []StationState `json:"stations,omitempty"`
	Player   PlayerState    `json:"player"`
	Events   []EventState   `json:"events,omitempty"`
}

type CellPatch struct {
	Col   int    `json:"col"`
	Row   int    `json:"row"`
	Block uint16 `json:"block"`
}

type BreakState struct {
	Col   int     `json:"col"`
	Row   int     `json:"row"`
	Ratio float64 `json:"ratio"`
}

type MobState struct {
	ID     uint64     `json:"id"`
	Kind   string     `json:"kind"`
	Pos    [2]float64 `json:"pos"`
	Health int        `json:"health"`
}

type StationState struct {
	Col    int    `json:"col"`
	Row    int    `json:"row"`
	Output string `json:"output,omitempty"`
	Count  int    `json:"count"`
	// Progress toward the current smelt in [0,1].
	Progress float64 `json:"progress"`
}

type PlayerState struct {
	Pos       [2]float64     `json:"pos"`
	Health    int            `json:"health"`
	MaxHealth int            `json:"max_health"`
	XP        int            `json:"xp"`
	Armor     string         `json:"armor,omitempty"`
	Tool      string         `json:"tool,omitempty"`
	Inventory map[string]int `json:"inventory"`
}

type EventState struct {
	Type   string `json:"type"`
	Col    int    `json:"col,omitempty"`
	Row    int    `json:"row,omitempty"`
	Item   string `json:"item,omitempty"`
	Count  int    `json:"count,omitempty"`
	MobID  uint64 `json:"mob_id,omitempty"`
	Reason string `json:"reason,omitempty"`
}
