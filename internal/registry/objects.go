package registry

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ClippyRoyale/WorldConverter/internal/version"
)

//go:embed objects.yaml
var objectsYAML []byte

// Object names the engine refers to directly.
const (
	UnknownObjectName = "UNKNOWN"
	FireBarName       = "fire bar"
	CheepCheepName    = "cheep cheep"
	FlagName          = "flag"
)

// ObjectDef is the static definition of one object type.
type ObjectDef struct {
	Name   string       `yaml:"name"`
	Compat version.Mask `yaml:"compat"`
	Deluxe *int         `yaml:"deluxe"`
	Legacy *int         `yaml:"legacy"`
}

// ID returns the type id of d in v's object numbering.
func (d *ObjectDef) ID(v version.Version) (int, bool) {
	p := d.Legacy
	if v.ObjectSpace() == version.Deluxe {
		p = d.Deluxe
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Objects is the immutable object table.
type Objects struct {
	defs   []*ObjectDef
	byName map[string]*ObjectDef
	byID   map[version.Version]map[int]*ObjectDef
}

type objectFile struct {
	Objects []*ObjectDef `yaml:"objects"`
}

// LoadObjects decodes and validates an object table.
//
// Postcondition: Returns a fully indexed Objects or a non-nil error.
func LoadObjects(data []byte) (*Objects, error) {
	var f objectFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("registry: LoadObjects: parsing: %w", err)
	}
	o := &Objects{
		defs:   f.Objects,
		byName: make(map[string]*ObjectDef, len(f.Objects)),
		byID: map[version.Version]map[int]*ObjectDef{
			version.Deluxe: {},
			version.Legacy: {},
		},
	}
	for i, d := range o.defs {
		if d.Name == "" {
			return nil, fmt.Errorf("registry: LoadObjects: entry %d has no name", i)
		}
		if _, dup := o.byName[d.Name]; dup {
			return nil, fmt.Errorf("registry: LoadObjects: duplicate object %q", d.Name)
		}
		if d.Compat.Empty() {
			return nil, fmt.Errorf("registry: LoadObjects: object %q is compatible with no version", d.Name)
		}
		o.byName[d.Name] = d
		for _, v := range version.Concrete {
			if _, ok := d.ID(v); d.Compat.Has(v) && !ok {
				return nil, fmt.Errorf("registry: LoadObjects: object %q supports %s but has no id there", d.Name, v)
			}
		}
		for space, index := range o.byID {
			id, ok := d.ID(space)
			if !ok {
				continue
			}
			if prev, dup := index[id]; dup {
				return nil, fmt.Errorf("registry: LoadObjects: %s id %d used by %q and %q", space, id, prev.Name, d.Name)
			}
			index[id] = d
		}
	}
	return o, nil
}

var (
	defaultObjects     *Objects
	defaultObjectsOnce sync.Once
)

// DefaultObjects returns the compiled-in object table.
//
// Postcondition: Returns the same non-nil Objects on every call. Panics if the
// compiled-in table is invalid.
func DefaultObjects() *Objects {
	defaultObjectsOnce.Do(func() {
		o, err := LoadObjects(objectsYAML)
		if err != nil {
			panic(err)
		}
		defaultObjects = o
	})
	return defaultObjects
}

// All returns every definition in table order.
func (o *Objects) All() []*ObjectDef {
	out := make([]*ObjectDef, len(o.defs))
	copy(out, o.defs)
	return out
}

// ByID returns the definition with type id in v's object numbering.
func (o *Objects) ByID(v version.Version, id int) (*ObjectDef, bool) {
	d, ok := o.byID[v.ObjectSpace()][id]
	return d, ok
}

// ByName returns the definition called name.
func (o *Objects) ByName(name string) (*ObjectDef, bool) {
	d, ok := o.byName[name]
	return d, ok
}

// Supported reports whether v can hold objects of type def.
func (o *Objects) Supported(def *ObjectDef, v version.Version) bool {
	return def != nil && def.Compat.Has(v)
}

// IDFor returns def's type id in v's object numbering.
func (o *Objects) IDFor(def *ObjectDef, v version.Version) (int, bool) {
	return def.ID(v)
}

// NameFor returns the name of the object with type id in v's numbering, or
// UnknownObjectName.
func (o *Objects) NameFor(v version.Version, id int) string {
	if d, ok := o.ByID(v, id); ok {
		return d.Name
	}
	return UnknownObjectName
}
