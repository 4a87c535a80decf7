package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// BlockKind indexes BlockCatalog.Defs. AIR is always 0.
type BlockKind uint16

// ItemKind indexes ItemCatalog.Defs. 0 is the empty slot.
type ItemKind uint16

const (
	Air    BlockKind = 0
	NoItem ItemKind  = 0
)

type BlockType string

const (
	BlockTypeAir          BlockType = "AIR"
	BlockTypeLiquid       BlockType = "LIQUID"
	BlockTypeBlock        BlockType = "BLOCK"
	BlockTypeInteractable BlockType = "INTERACTABLE"
)

type ToolKind int

const (
	ToolNone ToolKind = iota
	ToolPickaxe
	ToolAxe
	ToolShovel
)

func ParseToolKind(s string) (ToolKind, error) {
	switch strings.TrimSpace(s) {
	case "":
		return ToolNone, nil
	case "PICKAXE":
		return ToolPickaxe, nil
	case "AXE":
		return ToolAxe, nil
	case "SHOVEL":
		return ToolShovel, nil
	default:
		return ToolNone, fmt.Errorf("unknown tool kind %q", s)
	}
}

func (k ToolKind) String() string {
	switch k {
	case ToolPickaxe:
		return "PICKAXE"
	case ToolAxe:
		return "AXE"
	case ToolShovel:
		return "SHOVEL"
	default:
		return ""
	}
}

type Catalogs struct {
	Blocks  BlockCatalog
	Items   ItemCatalog
	Recipes RecipeCatalog
	Mobs    MobCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]BlockKind
	Defs          []BlockDef
	Bedrock       BlockKind
	PaletteDigest string
	DefsDigest    string
}

type BlockDef struct {
	ID           string
	Kind         BlockKind
	Type         BlockType
	Hardness     float64
	BestTool     ToolKind
	RequiredTier int
	Breakable    bool
	Drops        []Drop
	// Item is the item with the same id, if any.
	Item  ItemKind
	Smelt *SmeltRecipe
}

// Solid blocks stop movement and path expansion.
func (d BlockDef) Solid() bool {
	return d.Type == BlockTypeBlock || d.Type == BlockTypeInteractable
}

// Open cells are ones a block can be placed into and mining ignores.
func (d BlockDef) Open() bool {
	return d.Type == BlockTypeAir || d.Type == BlockTypeLiquid
}

type Drop struct {
	Item   ItemKind
	Count  int
	Max    int
	Chance float64
}

type ItemCatalog struct {
	Palette       []string
	Index         map[string]ItemKind
	Defs          []ItemDef
	PaletteDigest string
	DefsDigest    string
}

type ItemDef struct {
	ID        string
	Kind      ItemKind
	Class     string // "BLOCK","TOOL","MATERIAL","FOOD","ARMOR"
	Placeable bool
	PlaceAs   BlockKind
	Tool      *ToolDef
	EdibleHP  int
	Defense   int
}

type ToolDef struct {
	Kind          ToolKind
	Efficiency    float64
	MaxDurability int
	Tier          int
}

type ItemCount struct {
	Item  ItemKind
	Count int
}

type RecipeCatalog struct {
	// Crafting keeps file order; the first matching recipe wins.
	Crafting []Recipe
	Smelting map[ItemKind]SmeltRecipe
	Digest   string
}

type Recipe struct {
	ID     string
	Name   string
	Size   int
	Shape  []ItemKind
	Output ItemCount
}

type SmeltRecipe struct {
	ID          string
	Input       ItemKind
	Fuels       []ItemKind
	Output      ItemCount
	TimeSeconds float64
}

func (r SmeltRecipe) AcceptsFuel(k ItemKind) bool {
	for _, f := range r.Fuels {
		if f == k {
			return true
		}
	}
	return false
}

type Disposition string

const (
	Passive Disposition = "PASSIVE"
	Hostile Disposition = "HOSTILE"
)

type MobCatalog struct {
	ByID   map[string]MobDef
	IDs    []string
	Digest string
}

type MobDef struct {
	ID          string
	Disposition Disposition
	Health      int
	Damage      int
	XP          int
	Width       float64
	Height      float64
	Speed       float64
	Drops       []Drop
}

// Raw file shapes.

type blockJSON struct {
	ID           string     `json:"id"`
	Type         string     `json:"type"`
	Hardness     float64    `json:"hardness"`
	BestTool     string     `json:"best_tool,omitempty"`
	RequiredTier int        `json:"required_tier,omitempty"`
	Breakable    *bool      `json:"breakable,omitempty"`
	Drops        []dropJSON `json:"drops,omitempty"`
}

type dropJSON struct {
	Item   string   `json:"item"`
	Count  int      `json:"count"`
	Max    int      `json:"max,omitempty"`
	Chance *float64 `json:"chance,omitempty"`
}

type itemJSON struct {
	ID       string    `json:"id"`
	Class    string    `json:"class"`
	PlaceAs  string    `json:"place_as,omitempty"`
	Tool     *toolJSON `json:"tool,omitempty"`
	EdibleHP int       `json:"edible_hp,omitempty"`
	Defense  int       `json:"defense,omitempty"`
}

type toolJSON struct {
	Kind          string  `json:"kind"`
	Efficiency    float64 `json:"efficiency"`
	MaxDurability int     `json:"max_durability"`
	Tier          int     `json:"tier"`
}

type itemCountJSON struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

type recipesJSON struct {
	Crafting []craftJSON `json:"crafting"`
	Smelting []smeltJSON `json:"smelting"`
}

type craftJSON struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Size   int           `json:"size"`
	Shape  []*string     `json:"shape"`
	Output itemCountJSON `json:"output"`
}

type smeltJSON struct {
	ID          string        `json:"id"`
	Input       string        `json:"input"`
	Fuels       []string      `json:"fuels"`
	Output      itemCountJSON `json:"output"`
	TimeSeconds float64       `json:"time_seconds"`
}

type mobJSON struct {
	ID          string     `json:"id"`
	Disposition string     `json:"disposition"`
	Health      int        `json:"health"`
	Damage      int        `json:"damage,omitempty"`
	XP          int        `json:"xp,omitempty"`
	Width       float64    `json:"width"`
	Height      float64    `json:"height"`
	Speed       float64    `json:"speed,omitempty"`
	Drops       []dropJSON `json:"drops,omitempty"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	blocksRaw, err := readValidated(filepath.Join(configDir, "blocks.json"), "blocks.schema.json")
	if err != nil {
		return nil, err
	}
	itemsRaw, err := readValidated(filepath.Join(configDir, "items.json"), "items.schema.json")
	if err != nil {
		return nil, err
	}
	var blocks []blockJSON
	if err := json.Unmarshal(blocksRaw, &blocks); err != nil {
		return nil, fmt.Errorf("blocks.json: %w", err)
	}
	var items []itemJSON
	if err := json.Unmarshal(itemsRaw, &items); err != nil {
		return nil, fmt.Errorf("items.json: %w", err)
	}

	// Both palettes exist before either table is resolved: drops name items, items name blocks.
	if err := buildBlockPalette(blocks, &c.Blocks); err != nil {
		return nil, err
	}
	if err := buildItemPalette(items, &c.Items); err != nil {
		return nil, err
	}
	c.Blocks.DefsDigest = sha256Hex(blocksRaw)
	c.Items.DefsDigest = sha256Hex(itemsRaw)

	if err := resolveItems(items, &c); err != nil {
		return nil, err
	}
	if err := resolveBlocks(blocks, &c); err != nil {
		return nil, err
	}

	recipesRaw, err := readValidated(filepath.Join(configDir, "recipes.json"), "recipes.schema.json")
	if err != nil {
		return nil, err
	}
	if err := loadRecipes(recipesRaw, &c); err != nil {
		return nil, err
	}
	for i := range c.Blocks.Defs {
		d := &c.Blocks.Defs[i]
		if d.Item == NoItem {
			continue
		}
		if r, ok := c.Recipes.Smelting[d.Item]; ok {
			r := r
			d.Smelt = &r
		}
	}

	mobsRaw, err := readValidated(filepath.Join(configDir, "mobs.json"), "mobs.schema.json")
	if err != nil {
		return nil, err
	}
	if err := loadMobs(mobsRaw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func readValidated(path, schema string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := validateAgainst(schema, raw); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return raw, nil
}

func buildBlockPalette(defs []blockJSON, out *BlockCatalog) error {
	seen := map[string]bool{}
	ids := make([]string, 0, len(defs))
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("blocks.json: empty id")
		}
		if seen[d.ID] {
			return fmt.Errorf("blocks.json: duplicate id %q", d.ID)
		}
		seen[d.ID] = true
		if d.ID != "AIR" {
			ids = append(ids, d.ID)
		}
	}
	sort.Strings(ids)

	// Ensure AIR exists and is palette id 0.
	if !seen["AIR"] {
		return fmt.Errorf("blocks.json: missing AIR")
	}
	if !seen["BEDROCK"] {
		return fmt.Errorf("blocks.json: missing BEDROCK")
	}
	ids = append([]string{"AIR"}, ids...)

	out.Palette = ids
	out.Index = make(map[string]BlockKind, len(ids))
	for i, id := range ids {
		out.Index[id] = BlockKind(i)
	}
	out.Bedrock = out.Index["BEDROCK"]
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func buildItemPalette(defs []itemJSON, out *ItemCatalog) error {
	seen := map[string]bool{}
	ids := make([]string, 0, len(defs)+1)
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		if seen[d.ID] {
			return fmt.Errorf("items.json: duplicate id %q", d.ID)
		}
		seen[d.ID] = true
		ids = append(ids, d.ID)
	}
	sort.Strings(ids)
	ids = append([]string{""}, ids...)

	out.Palette = ids
	out.Index = make(map[string]ItemKind, len(ids))
	for i, id := range ids {
		if i == 0 {
			continue
		}
		out.Index[id] = ItemKind(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func resolveItems(defs []itemJSON, c *Catalogs) error {
	c.Items.Defs = make([]ItemDef, len(c.Items.Palette))
	for _, d := range defs {
		k := c.Items.Index[d.ID]
		def := ItemDef{
			ID:       d.ID,
			Kind:     k,
			Class:    d.Class,
			EdibleHP: d.EdibleHP,
			Defense:  d.Defense,
		}
		if d.PlaceAs != "" {
			b, ok := c.Blocks.Index[d.PlaceAs]
			if !ok {
				return fmt.Errorf("items.json: %s: unknown place_as block %q", d.ID, d.PlaceAs)
			}
			def.Placeable = true
			def.PlaceAs = b
		}
		if d.Tool != nil {
			tk, err := ParseToolKind(d.Tool.Kind)
			if err != nil {
				return fmt.Errorf("items.json: %s: %w", d.ID, err)
			}
			if d.Tool.Efficiency <= 0 {
				return fmt.Errorf("items.json: %s: efficiency must be > 0", d.ID)
			}
			def.Tool = &ToolDef{
				Kind:          tk,
				Efficiency:    d.Tool.Efficiency,
				MaxDurability: d.Tool.MaxDurability,
				Tier:          d.Tool.Tier,
			}
		}
		c.Items.Defs[k] = def
	}
	return nil
}

func resolveBlocks(defs []blockJSON, c *Catalogs) error {
	c.Blocks.Defs = make([]BlockDef, len(c.Blocks.Palette))
	for _, d := range defs {
		k := c.Blocks.Index[d.ID]
		tk, err := ParseToolKind(d.BestTool)
		if err != nil {
			return fmt.Errorf("blocks.json: %s: %w", d.ID, err)
		}
		def := BlockDef{
			ID:           d.ID,
			Kind:         k,
			Type:         BlockType(d.Type),
			Hardness:     d.Hardness,
			BestTool:     tk,
			RequiredTier: d.RequiredTier,
			Breakable:    true,
			Item:         c.Items.Index[d.ID],
		}
		if d.Breakable != nil {
			def.Breakable = *d.Breakable
		}
		if d.Drops != nil {
			drops, err := resolveDrops(c, d.Drops)
			if err != nil {
				return fmt.Errorf("blocks.json: %s: %w", d.ID, err)
			}
			def.Drops = drops
		} else if def.Item != NoItem && !def.Open() {
			def.Drops = []Drop{{Item: def.Item, Count: 1, Max: 1, Chance: 1}}
		}
		c.Blocks.Defs[k] = def
	}
	if c.Blocks.Defs[Air].Type != BlockTypeAir {
		return fmt.Errorf("blocks.json: AIR must have type AIR")
	}
	return nil
}

func resolveDrops(c *Catalogs, in []dropJSON) ([]Drop, error) {
	out := make([]Drop, 0, len(in))
	for _, d := range in {
		k, ok := c.Items.Index[d.Item]
		if !ok {
			return nil, fmt.Errorf("unknown drop item %q", d.Item)
		}
		drop := Drop{Item: k, Count: d.Count, Max: d.Max, Chance: 1}
		if drop.Count <= 0 {
			drop.Count = 1
		}
		if drop.Max < drop.Count {
			drop.Max = drop.Count
		}
		if d.Chance != nil {
			drop.Chance = *d.Chance
		}
		out = append(out, drop)
	}
	return out, nil
}

func loadRecipes(raw []byte, c *Catalogs) error {
	c.Recipes.Digest = sha256Hex(raw)

	var file recipesJSON
	if err := json.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("recipes.json: %w", err)
	}

	item := func(recipe, id string) (ItemKind, error) {
		k, ok := c.Items.Index[id]
		if !ok {
			return NoItem, fmt.Errorf("recipes.json: %s: unknown item %q", recipe, id)
		}
		return k, nil
	}

	c.Recipes.Crafting = make([]Recipe, 0, len(file.Crafting))
	for _, r := range file.Crafting {
		if r.ID == "" {
			return fmt.Errorf("recipes.json: empty crafting id")
		}
		if r.Size != 2 && r.Size != 3 {
			return fmt.Errorf("recipes.json: %s: size must be 2 or 3, got %d", r.ID, r.Size)
		}
		if len(r.Shape) != r.Size*r.Size {
			return fmt.Errorf("recipes.json: %s: shape has %d cells, want %d", r.ID, len(r.Shape), r.Size*r.Size)
		}
		rec := Recipe{ID: r.ID, Name: r.Name, Size: r.Size, Shape: make([]ItemKind, len(r.Shape))}
		for i, cell := range r.Shape {
			if cell == nil {
				continue
			}
			k, err := item(r.ID, *cell)
			if err != nil {
				return err
			}
			rec.Shape[i] = k
		}
		out, err := item(r.ID, r.Output.Item)
		if err != nil {
			return err
		}
		rec.Output = ItemCount{Item: out, Count: r.Output.Count}
		c.Recipes.Crafting = append(c.Recipes.Crafting, rec)
	}

	c.Recipes.Smelting = map[ItemKind]SmeltRecipe{}
	for _, r := range file.Smelting {
		if r.TimeSeconds <= 0 {
			return fmt.Errorf("recipes.json: furnace recipe %q: invalid time_seconds=%v", r.ID, r.TimeSeconds)
		}
		in, err := item(r.ID, r.Input)
		if err != nil {
			return err
		}
		if prev, ok := c.Recipes.Smelting[in]; ok {
			return fmt.Errorf("recipes.json: duplicate furnace input %q: %q and %q", r.Input, prev.ID, r.ID)
		}
		rec := SmeltRecipe{ID: r.ID, Input: in, TimeSeconds: r.TimeSeconds}
		for _, f := range r.Fuels {
			fk, err := item(r.ID, f)
			if err != nil {
				return err
			}
			rec.Fuels = append(rec.Fuels, fk)
		}
		out, err := item(r.ID, r.Output.Item)
		if err != nil {
			return err
		}
		rec.Output = ItemCount{Item: out, Count: r.Output.Count}
		c.Recipes.Smelting[in] = rec
	}
	return nil
}

func loadMobs(raw []byte, c *Catalogs) error {
	c.Mobs.Digest = sha256Hex(raw)

	var defs []mobJSON
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("mobs.json: %w", err)
	}
	c.Mobs.ByID = map[string]MobDef{}
	for _, d := range defs {
		if _, ok := c.Mobs.ByID[d.ID]; ok {
			return fmt.Errorf("mobs.json: duplicate id %q", d.ID)
		}
		drops, err := resolveDrops(c, d.Drops)
		if err != nil {
			return fmt.Errorf("mobs.json: %s: %w", d.ID, err)
		}
		c.Mobs.ByID[d.ID] = MobDef{
			ID:          d.ID,
			Disposition: Disposition(d.Disposition),
			Health:      d.Health,
			Damage:      d.Damage,
			XP:          d.XP,
			Width:       d.Width,
			Height:      d.Height,
			Speed:       d.Speed,
			Drops:       drops,
		}
		c.Mobs.IDs = append(c.Mobs.IDs, d.ID)
	}
	sort.Strings(c.Mobs.IDs)
	return nil
}

// Lookups used across the sim.

func (c *BlockCatalog) Def(k BlockKind) BlockDef {
	if int(k) >= len(c.Defs) {
		return c.Defs[c.Bedrock]
	}
	return c.Defs[k]
}

func (c *BlockCatalog) Kind(id string) (BlockKind, bool) {
	k, ok := c.Index[id]
	return k, ok
}

func (c *BlockCatalog) Name(k BlockKind) string {
	if int(k) >= len(c.Palette) {
		return ""
	}
	return c.Palette[k]
}

func (c *BlockCatalog) Solid(k BlockKind) bool { return c.Def(k).Solid() }
func (c *BlockCatalog) Open(k BlockKind) bool  { return c.Def(k).Open() }

func (c *ItemCatalog) Def(k ItemKind) (ItemDef, bool) {
	if k == NoItem || int(k) >= len(c.Defs) {
		return ItemDef{}, false
	}
	return c.Defs[k], true
}

func (c *ItemCatalog) Kind(id string) (ItemKind, bool) {
	k, ok := c.Index[id]
	return k, ok
}

func (c *ItemCatalog) Name(k ItemKind) string {
	if int(k) >= len(c.Palette) {
		return ""
	}
	return c.Palette[k]
}
