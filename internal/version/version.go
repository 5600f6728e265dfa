// Package version defines the world format revisions and the bitmask
// vocabulary used to describe which revisions support a construct.
package version

import (
	"fmt"
	"math/bits"
	"strings"

	"gopkg.in/yaml.v3"
)

// Version identifies one world format revision. A concrete Version has exactly
// one bit set; Autodetect has none.
type Version uint8

const (
	Autodetect Version = 0
	Inferno    Version = 0b00001
	Classic    Version = 0b00010
	Remake     Version = 0b00100
	Legacy     Version = 0b01000
	Deluxe     Version = 0b10000
)

// Concrete lists every concrete Version from newest to oldest.
var Concrete = []Version{Deluxe, Legacy, Remake, Classic, Inferno}

var names = map[Version]string{
	Autodetect: "AUTODETECT",
	Inferno:    "INFERNO",
	Classic:    "CLASSIC",
	Remake:     "REMAKE",
	Legacy:     "LEGACY",
	Deluxe:     "DELUXE",
}

// String returns the upper-case revision name.
func (v Version) String() string {
	if n, ok := names[v]; ok {
		return n
	}
	return fmt.Sprintf("Version(%#b)", uint8(v))
}

// Title returns the revision name in title case, as shown to players.
func (v Version) Title() string {
	n := v.String()
	if len(n) < 2 || strings.HasPrefix(n, "Version(") {
		return n
	}
	return n[:1] + strings.ToLower(n[1:])
}

// IsConcrete reports whether v names exactly one revision.
func (v Version) IsConcrete() bool {
	return bits.OnesCount8(uint8(v)) == 1 && Mask(v)&^All == 0
}

// Format is the physical tile encoding a revision stores in its grids.
type Format int

const (
	// Packed is the 32-bit td32 bitfield integer.
	Packed Format = iota
	// Record is the 5-element array [sprite, bump, depth, def, extra].
	Record
)

// String returns the encoding name.
func (f Format) String() string {
	if f == Record {
		return "record"
	}
	return "packed"
}

// TileFormat returns the physical tile encoding used by v.
//
// Precondition: v must be concrete.
func (v Version) TileFormat() Format {
	if v == Deluxe {
		return Record
	}
	return Packed
}

// TileSpace returns the revision whose tile id numbering v uses. Classic and
// Inferno share Legacy's numbering.
func (v Version) TileSpace() Version {
	switch v {
	case Deluxe, Remake:
		return v
	default:
		return Legacy
	}
}

// ObjectSpace returns the revision whose object id numbering v uses. Every
// revision other than Deluxe shares Legacy's numbering.
func (v Version) ObjectSpace() Version {
	if v == Deluxe {
		return Deluxe
	}
	return Legacy
}

// Parse converts a case-insensitive revision name to a Version. "auto" and
// "autodetect" yield Autodetect.
//
// Postcondition: Returns a Version or a non-nil error naming the accepted values.
func Parse(s string) (Version, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto", "autodetect":
		return Autodetect, nil
	case "inferno":
		return Inferno, nil
	case "classic":
		return Classic, nil
	case "remake":
		return Remake, nil
	case "legacy":
		return Legacy, nil
	case "deluxe":
		return Deluxe, nil
	}
	return Autodetect, fmt.Errorf("unknown version %q: want one of [auto, inferno, classic, remake, legacy, deluxe]", s)
}

// Mask is a set of revisions.
type Mask uint8

// All contains every concrete revision.
const All Mask = 0b11111

// MaskOf builds a Mask from the given revisions.
func MaskOf(vs ...Version) Mask {
	var m Mask
	for _, v := range vs {
		m |= Mask(v)
	}
	return m
}

// Has reports whether v is a member of m.
func (m Mask) Has(v Version) bool {
	return v != Autodetect && m&Mask(v) == Mask(v)
}

// Empty reports whether m contains no revision.
func (m Mask) Empty() bool {
	return m&All == 0
}

// String renders m as a binary literal with one digit per revision, Deluxe first.
func (m Mask) String() string {
	return fmt.Sprintf("%05b", uint8(m&All))
}

// UnmarshalYAML accepts either the scalar "all" or a sequence of revision names.
func (m *Mask) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		if strings.EqualFold(node.Value, "all") {
			*m = All
			return nil
		}
		return fmt.Errorf("line %d: compat scalar must be \"all\", got %q", node.Line, node.Value)
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return fmt.Errorf("line %d: decoding compat list: %w", node.Line, err)
	}
	var out Mask
	for _, name := range list {
		if strings.EqualFold(name, "all") {
			out |= All
			continue
		}
		v, err := Parse(name)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		if v == Autodetect {
			return fmt.Errorf("line %d: compat may not contain %q", node.Line, name)
		}
		out |= Mask(v)
	}
	*m = out
	return nil
}
