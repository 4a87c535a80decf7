package observerproto_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"tilecraft.ai/internal/observerproto"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	s, err := jsonschema.Compile(filepath.Join("..", "..", "schemas", name))
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

// asJSON round-trips v through encoding/json so the validator sees wire form.
func asJSON(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestSchemas_ValidateMessages(t *testing.T) {
	cases := []struct {
		schema string
		msg    any
	}{
		{"subscribe.schema.json", observerproto.SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: observerproto.Version, FullGrid: true}},
		{"act.schema.json", observerproto.ActMsg{
			Type:            "ACT",
			ProtocolVersion: observerproto.Version,
			Action:          observerproto.ActionState{Kind: "CRAFT", Grid: []string{"WOOD", "", "", ""}, Size: 2},
		}},
		{"bootstrap.schema.json", observerproto.BootstrapResponse{
			Type:            "BOOTSTRAP",
			ProtocolVersion: observerproto.Version,
			WorldID:         "w",
			WorldParams:     observerproto.WorldParams{TickRateHz: 20, DaySeconds: 600, Cols: 4, Rows: 4, Seed: 1},
			BlockPalette:    []string{"AIR", "STONE"},
			ItemPalette:     []string{"", "STONE"},
		}},
		{"frame.schema.json", observerproto.FrameMsg{
			Type:            "FRAME",
			ProtocolVersion: observerproto.Version,
			Tick:            9,
			Cycle:           0.25,
			Light:           1,
			GridRLE:         "AgIAAgEC",
			Cells:           []observerproto.CellPatch{{Col: 1, Row: 0, Block: 1}},
			Breaking:        []observerproto.BreakState{{Col: 1, Row: 1, Ratio: 0.5}},
			Mobs:            []observerproto.MobState{{ID: 1, Kind: "SHEEP", Pos: [2]float64{1.5, 2}, Health: 10}},
			Stations:        []observerproto.StationState{{Col: 2, Row: 2, Output: "IRON_INGOT", Count: 1, Progress: 0.2}},
			Player:          observerproto.PlayerState{Pos: [2]float64{3, 4}, Health: 20, MaxHealth: 20, Inventory: map[string]int{"PLANK": 4}},
			Events:          []observerproto.EventState{{Type: "MINED", Col: 1, Row: 1, Item: "STONE"}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.schema, func(t *testing.T) {
			if err := compile(t, tc.schema).Validate(asJSON(t, tc.msg)); err != nil {
				t.Fatalf("validate: %v", err)
			}
		})
	}
}

func TestSchemas_RejectBadMessages(t *testing.T) {
	var unknownKind any
	_ = json.Unmarshal([]byte(`{"type":"ACT","protocol_version":"1.0","action":{"kind":"FLY"}}`), &unknownKind)
	if err := compile(t, "act.schema.json").Validate(unknownKind); err == nil {
		t.Fatalf("unknown action kind accepted")
	}

	var badLight any
	_ = json.Unmarshal([]byte(`{"type":"FRAME","protocol_version":"1.0","tick":1,"cycle":0.5,"light":2,"mobs":[],
		"player":{"pos":[0,0],"health":1,"max_health":20,"xp":0,"inventory":{}}}`), &badLight)
	if err := compile(t, "frame.schema.json").Validate(badLight); err == nil {
		t.Fatalf("light above 1 accepted")
	}

	var extra any
	_ = json.Unmarshal([]byte(`{"type":"SUBSCRIBE","protocol_version":"1.0","chunk_radius":6}`), &extra)
	if err := compile(t, "subscribe.schema.json").Validate(extra); err == nil {
		t.Fatalf("unknown subscribe field accepted")
	}
}
