// Package world provides the world document model: levels, zones, tile grids,
// objects, and warps, parsed tolerantly from a world JSON file.
package world

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/ClippyRoyale/WorldConverter/internal/tile"
	"github.com/ClippyRoyale/WorldConverter/internal/version"
)

var (
	// ErrNotUTF8 is returned for input that is not UTF-8 text.
	ErrNotUTF8 = errors.New("world: input is not UTF-8 text")
	// ErrNotJSON is returned for text that is not valid JSON.
	ErrNotJSON = errors.New("world: input is not valid JSON")
	// ErrCorrupt is returned when required world structure is missing.
	ErrCorrupt = errors.New("world: corrupt world file")
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// World is a parsed world document.
type World struct {
	Node
	// Resources holds the entries of the top-level "resource" list.
	Resources []*Node
	// Levels holds the entries of the top-level "world" list.
	Levels []*Level
}

// Level is one entry of the "world" list.
type Level struct {
	Node
	Zones []*Zone
}

// Zone is the smallest playable unit: a tile grid plus objects and warps.
type Zone struct {
	Node
	// Layered is true when tiles live under "layers" rather than "data".
	Layered bool
	// Layers holds the tile grids. A flat zone has exactly one layer whose
	// Node is unused.
	Layers      []*Layer
	Objects     []*Node
	Warps       []*Node
	Backgrounds []*Node
}

// Layer is one tile grid.
type Layer struct {
	Node
	// Cells holds the grid as read, row 0 at the top.
	Cells [][]gjson.Result
	// Tiles, when non-nil, replaces Cells on encode.
	Tiles [][]tile.Tile
	// Format is the encoding Tiles is written in.
	Format version.Format
}

// Height returns the number of rows of the zone's first grid.
func (z *Zone) Height() int {
	if len(z.Layers) == 0 {
		return 0
	}
	return len(z.Layers[0].Cells)
}

// Width returns the length of the first row of the zone's first grid.
func (z *Zone) Width() int {
	if z.Height() == 0 {
		return 0
	}
	return len(z.Layers[0].Cells[0])
}

// FirstCell returns the top-left cell of the zone's first grid.
func (z *Zone) FirstCell() (gjson.Result, bool) {
	if z.Width() == 0 {
		return gjson.Result{}, false
	}
	return z.Layers[0].Cells[0][0], true
}

// StoresRecords reports whether the first zone's grid holds record tiles, the
// encoding only Deluxe uses.
func (w *World) StoresRecords() bool {
	zones := w.Zones()
	if len(zones) == 0 {
		return false
	}
	cell, ok := zones[0].FirstCell()
	return ok && cell.IsArray()
}

// Zones returns every zone of every level in document order.
func (w *World) Zones() []*Zone {
	var out []*Zone
	for _, l := range w.Levels {
		out = append(out, l.Zones...)
	}
	return out
}

// Resource returns the first resource whose id is id.
func (w *World) Resource(id string) (*Node, bool) {
	for _, r := range w.Resources {
		if r.Get("id").String() == id {
			return r, true
		}
	}
	return nil, false
}

// Parse reads a world document. A leading UTF-8 byte order mark is ignored.
//
// Postcondition: Returns a fully validated World, or an error wrapping one of
// ErrNotUTF8, ErrNotJSON, or ErrCorrupt.
func Parse(data []byte) (*World, error) {
	data = bytes.TrimPrefix(data, bom)
	if !utf8.Valid(data) {
		return nil, ErrNotUTF8
	}
	if !gjson.ValidBytes(data) {
		return nil, ErrNotJSON
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level is not an object", ErrCorrupt)
	}
	w := &World{Node: Node{raw: []byte(root.Raw)}}

	if res := root.Get("resource"); res.Exists() {
		if !res.IsArray() {
			return nil, fmt.Errorf("%w: \"resource\" is not a list", ErrCorrupt)
		}
		for i, r := range res.Array() {
			if !r.IsObject() {
				return nil, fmt.Errorf("%w: resource[%d] is not an object", ErrCorrupt, i)
			}
			w.Resources = append(w.Resources, NewNode([]byte(r.Raw)))
		}
	}

	levels := root.Get("world")
	if !levels.IsArray() {
		return nil, fmt.Errorf("%w: missing \"world\" list", ErrCorrupt)
	}
	for li, lv := range levels.Array() {
		level, err := parseLevel(lv, li)
		if err != nil {
			return nil, err
		}
		w.Levels = append(w.Levels, level)
	}
	if len(w.Zones()) == 0 {
		return nil, fmt.Errorf("%w: world has no zones", ErrCorrupt)
	}
	return w, nil
}

func parseLevel(lv gjson.Result, li int) (*Level, error) {
	if !lv.IsObject() {
		return nil, fmt.Errorf("%w: world[%d] is not an object", ErrCorrupt, li)
	}
	zones := lv.Get("zone")
	if !zones.IsArray() {
		return nil, fmt.Errorf("%w: world[%d]: missing \"zone\" list", ErrCorrupt, li)
	}
	level := &Level{Node: Node{raw: []byte(lv.Raw)}}
	for zi, zv := range zones.Array() {
		zone, err := parseZone(zv, fmt.Sprintf("world[%d].zone[%d]", li, zi))
		if err != nil {
			return nil, err
		}
		level.Zones = append(level.Zones, zone)
	}
	return level, nil
}

func parseZone(zv gjson.Result, where string) (*Zone, error) {
	if !zv.IsObject() {
		return nil, fmt.Errorf("%w: %s is not an object", ErrCorrupt, where)
	}
	z := &Zone{Node: Node{raw: []byte(zv.Raw)}}

	var err error
	if z.Objects, err = objectList(zv.Get("obj"), where+".obj", true); err != nil {
		return nil, err
	}
	if z.Warps, err = objectList(zv.Get("warp"), where+".warp", false); err != nil {
		return nil, err
	}
	if z.Backgrounds, err = objectList(zv.Get("background"), where+".background", false); err != nil {
		return nil, err
	}

	if layers := zv.Get("layers"); layers.Exists() {
		if !layers.IsArray() || len(layers.Array()) == 0 {
			return nil, fmt.Errorf("%w: %s: \"layers\" is not a non-empty list", ErrCorrupt, where)
		}
		z.Layered = true
		for i, lr := range layers.Array() {
			lwhere := fmt.Sprintf("%s.layers[%d]", where, i)
			if !lr.IsObject() {
				return nil, fmt.Errorf("%w: %s is not an object", ErrCorrupt, lwhere)
			}
			cells, err := grid(lr.Get("data"), lwhere)
			if err != nil {
				return nil, err
			}
			z.Layers = append(z.Layers, &Layer{Node: Node{raw: []byte(lr.Raw)}, Cells: cells})
		}
		return z, nil
	}
	cells, err := grid(zv.Get("data"), where)
	if err != nil {
		return nil, err
	}
	z.Layers = []*Layer{{Cells: cells}}
	return z, nil
}

func objectList(v gjson.Result, where string, required bool) ([]*Node, error) {
	if !v.Exists() {
		if required {
			return nil, fmt.Errorf("%w: missing %s", ErrCorrupt, where)
		}
		return nil, nil
	}
	if !v.IsArray() {
		return nil, fmt.Errorf("%w: %s is not a list", ErrCorrupt, where)
	}
	var out []*Node
	for i, o := range v.Array() {
		if !o.IsObject() {
			return nil, fmt.Errorf("%w: %s[%d] is not an object", ErrCorrupt, where, i)
		}
		out = append(out, NewNode([]byte(o.Raw)))
	}
	return out, nil
}

func grid(v gjson.Result, where string) ([][]gjson.Result, error) {
	if !v.IsArray() {
		return nil, fmt.Errorf("%w: %s: missing \"data\" grid", ErrCorrupt, where)
	}
	rows := v.Array()
	out := make([][]gjson.Result, len(rows))
	for i, row := range rows {
		if !row.IsArray() {
			return nil, fmt.Errorf("%w: %s.data[%d] is not a row", ErrCorrupt, where, i)
		}
		out[i] = row.Array()
	}
	return out, nil
}

// Encode serializes w as compact JSON.
//
// Postcondition: Returns UTF-8 JSON without insignificant whitespace.
func Encode(w *World) ([]byte, error) {
	levels := make([]*Node, len(w.Levels))
	for li, level := range w.Levels {
		zones := make([]*Node, len(level.Zones))
		for zi, z := range level.Zones {
			n, err := encodeZone(z)
			if err != nil {
				return nil, fmt.Errorf("encoding world[%d].zone[%d]: %w", li, zi, err)
			}
			zones[zi] = n
		}
		ln := NewNode(level.raw)
		if err := ln.SetRaw("zone", joinNodes(zones)); err != nil {
			return nil, fmt.Errorf("encoding world[%d]: %w", li, err)
		}
		levels[li] = ln
	}
	root := NewNode(w.raw)
	if w.Resources != nil || root.Has("resource") {
		if err := root.SetRaw("resource", joinNodes(w.Resources)); err != nil {
			return nil, err
		}
	}
	if err := root.SetRaw("world", joinNodes(levels)); err != nil {
		return nil, err
	}
	return pretty.Ugly(root.raw), nil
}

func encodeZone(z *Zone) (*Node, error) {
	n := NewNode(z.raw)
	if err := n.SetRaw("obj", joinNodes(z.Objects)); err != nil {
		return nil, err
	}
	if z.Warps != nil || n.Has("warp") {
		if err := n.SetRaw("warp", joinNodes(z.Warps)); err != nil {
			return nil, err
		}
	}
	if z.Backgrounds != nil || n.Has("background") {
		if err := n.SetRaw("background", joinNodes(z.Backgrounds)); err != nil {
			return nil, err
		}
	}
	if !z.Layered {
		return n, n.SetRaw("data", z.Layers[0].appendGrid(nil))
	}
	layers := make([]*Node, len(z.Layers))
	for i, l := range z.Layers {
		ln := NewNode(l.raw)
		if err := ln.SetRaw("data", l.appendGrid(nil)); err != nil {
			return nil, err
		}
		layers[i] = ln
	}
	return n, n.SetRaw("layers", joinNodes(layers))
}

func (l *Layer) appendGrid(dst []byte) []byte {
	dst = append(dst, '[')
	for y, row := range l.Cells {
		if y > 0 {
			dst = append(dst, ',')
		}
		dst = append(dst, '[')
		for x, cell := range row {
			if x > 0 {
				dst = append(dst, ',')
			}
			if l.Tiles != nil {
				dst = tile.AppendJSON(dst, l.Tiles[y][x], l.Format)
			} else {
				dst = append(dst, cell.Raw...)
			}
		}
		dst = append(dst, ']')
	}
	return append(dst, ']')
}
