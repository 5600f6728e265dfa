// Package registry holds the static tile and object tables that describe every
// construct's identity across world revisions.
//
// Tables are compiled into the binary and built once per process; they are
// never read from disk so that a world file cannot influence them.
package registry

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ClippyRoyale/WorldConverter/internal/version"
)

//go:embed tiles.yaml
var tilesYAML []byte

// Tile names the engine refers to directly.
const (
	AirName                = "air"
	SolidName              = "solid standard"
	WaterName              = "water"
	WaterSurfaceName       = "water surface"
	WaterCurrentName       = "water current"
	FlagpoleName           = "flagpole"
	FlagpoleWarpName       = "flagpole level end warp"
	ConveyorName           = "conveyor"
	ConveyorLeftName       = "conveyor left"
	ConveyorRightName      = "conveyor right"
	ItemBlockName          = "item block"
	ItemBlockInvisibleName = "item block invisible"
	ItemBlockProgName      = "item block progressive"
	ItemBlockInvisProgName = "item block invisible progressive"
	IceToTileName          = "ice -> tile"
)

// Fallback is one step of a tile's degradation chain.
type Fallback struct {
	// Name is the tile the step resolves to.
	Name string
	// Literal marks the air and solid tokens, which are accepted without a
	// compatibility check.
	Literal bool
}

// UnmarshalYAML decodes an integer token (0 air, 1 solid) or a tile name.
func (f *Fallback) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: fallback must be a scalar", node.Line)
	}
	if node.ShortTag() == "!!int" {
		switch node.Value {
		case "0":
			*f = Fallback{Name: AirName, Literal: true}
		case "1":
			*f = Fallback{Name: SolidName, Literal: true}
		default:
			return fmt.Errorf("line %d: fallback literal must be 0 or 1, got %s", node.Line, node.Value)
		}
		return nil
	}
	*f = Fallback{Name: node.Value}
	return nil
}

// TileDef is the static definition of one semantic tile type.
type TileDef struct {
	Name     string       `yaml:"name"`
	Compat   version.Mask `yaml:"compat"`
	Deluxe   *int         `yaml:"deluxe"`
	Legacy   *int         `yaml:"legacy"`
	Remake   *int         `yaml:"remake"`
	Fallback []Fallback   `yaml:"fallback"`

	// Index is the position of the definition in the table.
	Index int `yaml:"-"`
}

// ID returns the definition id of d in v's tile numbering.
//
// Precondition: v must be concrete.
// Postcondition: ok is false when the tile has no id in that numbering.
func (d *TileDef) ID(v version.Version) (id int, ok bool) {
	var p *int
	switch v.TileSpace() {
	case version.Deluxe:
		p = d.Deluxe
	case version.Remake:
		p = d.Remake
	default:
		p = d.Legacy
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Supports reports whether v lists d as compatible.
func (d *TileDef) Supports(v version.Version) bool {
	return d.Compat.Has(v)
}

// Tiles is the immutable tile table with per-numbering id indices.
type Tiles struct {
	defs   []*TileDef
	byName map[string]*TileDef
	byID   map[version.Version]map[int]*TileDef
}

type tileFile struct {
	Tiles []*TileDef `yaml:"tiles"`
}

// LoadTiles decodes and validates a tile table.
//
// Postcondition: Returns a fully indexed Tiles or an error describing the
// first violated table invariant.
func LoadTiles(data []byte) (*Tiles, error) {
	var f tileFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("registry: LoadTiles: parsing: %w", err)
	}
	t := &Tiles{
		defs:   f.Tiles,
		byName: make(map[string]*TileDef, len(f.Tiles)),
		byID: map[version.Version]map[int]*TileDef{
			version.Deluxe: {},
			version.Legacy: {},
			version.Remake: {},
		},
	}
	if len(t.defs) < 2 || t.defs[0].Name != AirName || t.defs[1].Name != SolidName {
		return nil, fmt.Errorf("registry: LoadTiles: entries 0 and 1 must be %q and %q", AirName, SolidName)
	}
	for i, d := range t.defs {
		d.Index = i
		if d.Name == "" {
			return nil, fmt.Errorf("registry: LoadTiles: entry %d has no name", i)
		}
		if _, dup := t.byName[d.Name]; dup {
			return nil, fmt.Errorf("registry: LoadTiles: duplicate tile %q", d.Name)
		}
		if d.Compat.Empty() {
			return nil, fmt.Errorf("registry: LoadTiles: tile %q is compatible with no version", d.Name)
		}
		t.byName[d.Name] = d
		for _, v := range version.Concrete {
			if _, ok := d.ID(v); d.Supports(v) && !ok {
				return nil, fmt.Errorf("registry: LoadTiles: tile %q supports %s but has no id there", d.Name, v)
			}
		}
		for space, index := range t.byID {
			id, ok := d.ID(space)
			if !ok {
				continue
			}
			if prev, dup := index[id]; dup {
				return nil, fmt.Errorf("registry: LoadTiles: %s id %d used by %q and %q", space, id, prev.Name, d.Name)
			}
			index[id] = d
		}
	}
	for _, d := range t.defs {
		for _, fb := range d.Fallback {
			if _, ok := t.byName[fb.Name]; !ok {
				return nil, fmt.Errorf("registry: LoadTiles: tile %q falls back to unknown tile %q", d.Name, fb.Name)
			}
		}
	}
	return t, nil
}

var (
	defaultTiles     *Tiles
	defaultTilesOnce sync.Once
)

// DefaultTiles returns the compiled-in tile table.
//
// Postcondition: Returns the same non-nil Tiles on every call. Panics if the
// compiled-in table is invalid.
func DefaultTiles() *Tiles {
	defaultTilesOnce.Do(func() {
		t, err := LoadTiles(tilesYAML)
		if err != nil {
			panic(err)
		}
		defaultTiles = t
	})
	return defaultTiles
}

// Air returns the air definition.
func (t *Tiles) Air() *TileDef { return t.defs[0] }

// Solid returns the solid standard definition.
func (t *Tiles) Solid() *TileDef { return t.defs[1] }

// All returns every definition in table order.
func (t *Tiles) All() []*TileDef {
	out := make([]*TileDef, len(t.defs))
	copy(out, t.defs)
	return out
}

// ByName returns the definition called name, or air when no tile has that name.
func (t *Tiles) ByName(name string) *TileDef {
	if d, ok := t.byName[name]; ok {
		return d
	}
	return t.Air()
}

// ByID returns the definition with id in v's tile numbering, or air when the
// id is unmapped.
//
// Precondition: v must be concrete.
func (t *Tiles) ByID(v version.Version, id int) *TileDef {
	if d, ok := t.byID[v.TileSpace()][id]; ok {
		return d
	}
	return t.Air()
}

// IDFor returns def's id in v's tile numbering.
func (t *Tiles) IDFor(def *TileDef, v version.Version) (int, bool) {
	return def.ID(v)
}
