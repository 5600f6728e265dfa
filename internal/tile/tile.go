// Package tile decodes and encodes individual grid cells in both physical tile
// encodings: the packed td32 integer and the 5-field record.
package tile

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ClippyRoyale/WorldConverter/internal/version"
)

// Bit layout of a packed td32 value, offsets from the least significant bit.
const (
	spriteBits = 11
	bumpBits   = 4
	depthBits  = 1
	defBits    = 8
	extraBits  = 8

	bumpShift  = spriteBits
	depthShift = bumpShift + bumpBits
	defShift   = depthShift + depthBits
	extraShift = defShift + defBits
)

// EmptySprite is the sprite index that draws nothing.
const EmptySprite = 30

// ErrUnrecognized is returned when a cell is neither a number nor an array.
var ErrUnrecognized = errors.New("tile: unrecognized cell value")

// Tile is one grid cell. Def is meaningful only through the tile table of the
// revision the tile came from.
type Tile struct {
	Sprite int
	Bump   int
	Depth  int
	Def    int
	Extra  int
}

// Empty is the tile substituted for cells that cannot be decoded.
var Empty = Tile{Sprite: EmptySprite}

func (t Tile) String() string {
	return fmt.Sprintf("[%d,%d,%d,%d,%d]", t.Sprite, t.Bump, t.Depth, t.Def, t.Extra)
}

func field(v, bits int) uint32 {
	return uint32(v) & (1<<bits - 1)
}

// Unpack splits a td32 value into its fields.
func Unpack(x uint32) Tile {
	return Tile{
		Sprite: int(x & (1<<spriteBits - 1)),
		Bump:   int(x >> bumpShift & (1<<bumpBits - 1)),
		Depth:  int(x >> depthShift & (1<<depthBits - 1)),
		Def:    int(x >> defShift & (1<<defBits - 1)),
		Extra:  int(x >> extraShift & (1<<extraBits - 1)),
	}
}

// Pack combines the fields into a td32 value. Each field is truncated to its
// bit width.
func (t Tile) Pack() uint32 {
	return field(t.Sprite, spriteBits) |
		field(t.Bump, bumpBits)<<bumpShift |
		field(t.Depth, depthBits)<<depthShift |
		field(t.Def, defBits)<<defShift |
		field(t.Extra, extraBits)<<extraShift
}

// Record returns the fields in record order.
func (t Tile) Record() [5]int {
	return [5]int{t.Sprite, t.Bump, t.Depth, t.Def, t.Extra}
}

// Decode reads one grid cell in either encoding.
//
// A record shorter than five elements, or with elements that do not coerce to
// an integer, takes the default for each missing field: EmptySprite for the
// sprite and 0 elsewhere.
//
// Postcondition: Returns a usable Tile. The error is non-nil only when raw is
// neither an int64-sized number nor an array, in which case the Tile is Empty.
func Decode(raw gjson.Result) (Tile, error) {
	switch {
	case raw.Type == gjson.Number:
		n, ok := integer(raw)
		if !ok {
			return Empty, fmt.Errorf("%w: %s", ErrUnrecognized, raw.Raw)
		}
		return Unpack(uint32(n)), nil
	case raw.IsArray():
		fields := raw.Array()
		at := func(i, def int) int {
			if i >= len(fields) {
				return def
			}
			if n, ok := Coerce(fields[i]); ok {
				return n
			}
			return def
		}
		return Tile{
			Sprite: at(0, EmptySprite),
			Bump:   at(1, 0),
			Depth:  at(2, 0),
			Def:    at(3, 0),
			Extra:  at(4, 0),
		}, nil
	}
	return Empty, fmt.Errorf("%w: %s", ErrUnrecognized, raw.Raw)
}

// Coerce converts a JSON scalar to an integer the way the game's editors do:
// numbers truncate toward zero, booleans are 0 or 1, and strings holding a
// base-10 integer are parsed.
func Coerce(r gjson.Result) (int, bool) {
	switch r.Type {
	case gjson.Number:
		n, ok := integer(r)
		return int(n), ok
	case gjson.True:
		return 1, true
	case gjson.False:
		return 0, true
	case gjson.String:
		n, err := strconv.Atoi(strings.TrimSpace(r.Str))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// integer truncates a JSON number toward zero. Numbers outside the int64 range
// are rejected.
func integer(r gjson.Result) (int64, bool) {
	if math.IsNaN(r.Num) || r.Num < math.MinInt64 || r.Num >= math.MaxInt64 {
		return 0, false
	}
	return r.Int(), true
}

// AppendJSON appends t to dst in the given encoding as compact JSON.
func AppendJSON(dst []byte, t Tile, f version.Format) []byte {
	if f == version.Packed {
		return strconv.AppendUint(dst, uint64(t.Pack()), 10)
	}
	dst = append(dst, '[')
	for i, v := range t.Record() {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = strconv.AppendInt(dst, int64(v), 10)
	}
	return append(dst, ']')
}

// Encode returns t as the JSON value for the given encoding: a uint32 for
// Packed or a [5]int for Record.
func Encode(t Tile, f version.Format) any {
	if f == version.Packed {
		return t.Pack()
	}
	return t.Record()
}
