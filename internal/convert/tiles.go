package convert

import (
	"strings"

	"github.com/ClippyRoyale/WorldConverter/internal/registry"
	"github.com/ClippyRoyale/WorldConverter/internal/report"
	"github.com/ClippyRoyale/WorldConverter/internal/tile"
	"github.com/ClippyRoyale/WorldConverter/internal/version"
)

// Extra data values the engine interprets.
const (
	extraMushroom = 81
	extraFlower   = 82

	// Remake conveyors store a speed in extra data with 128 meaning stopped.
	conveyorStopped      = 128
	conveyorLeftSpeed    = 124
	conveyorRightSpeed   = 132
	extraNothing         = 0
	progressiveNameToken = "progressive"
)

// ConvertTile maps t from from's tile numbering to to's. Definitions the
// target lacks are replaced through their fallback chain and the substitution
// is recorded in rep.
//
// Precondition: from and to must be concrete.
// Postcondition: The returned tile's Def is an id that exists in to.
func (e *Engine) ConvertTile(t tile.Tile, from, to version.Version, opts Options, rep *report.Report) tile.Tile {
	def := e.tiles.ByID(from, t.Def)
	out := t
	out.Def, _ = def.ID(to)

	if opts.ProgressiveItemBoxes && (to == version.Legacy || to == version.Deluxe) &&
		(t.Extra == extraMushroom || t.Extra == extraFlower) {
		switch def.Name {
		case registry.ItemBlockName:
			out.Def, _ = e.tiles.ByName(registry.ItemBlockProgName).ID(to)
		case registry.ItemBlockInvisibleName:
			out.Def, _ = e.tiles.ByName(registry.ItemBlockInvisProgName).ID(to)
		}
	}

	if def.Supports(to) {
		return out
	}

	fb := e.fallback(def, to)
	out.Def, _ = fb.ID(to)
	fb = e.adjust(def, fb, t, &out, to)
	rep.AddReplaced(def.Name, fb.Name)
	return out
}

// fallback walks def's chain and returns the first step usable in to. Literal
// air and solid steps are always usable. An exhausted chain yields air.
func (e *Engine) fallback(def *registry.TileDef, to version.Version) *registry.TileDef {
	for _, step := range def.Fallback {
		cand := e.tiles.ByName(step.Name)
		if step.Literal || cand.Supports(to) {
			return cand
		}
	}
	return e.tiles.Air()
}

// adjust applies the substitutions that depend on both the replaced tile and
// the target. It returns the definition finally written.
func (e *Engine) adjust(def, fb *registry.TileDef, old tile.Tile, out *tile.Tile, to version.Version) *registry.TileDef {
	switch {
	case def.Name == registry.ConveyorName && to == version.Deluxe:
		switch {
		case old.Extra < conveyorStopped:
			fb = e.tiles.ByName(registry.ConveyorLeftName)
		case old.Extra > conveyorStopped:
			fb = e.tiles.ByName(registry.ConveyorRightName)
		default:
			fb = e.tiles.Solid()
		}
		out.Def, _ = fb.ID(to)
	case def.Name == registry.ConveyorLeftName && to == version.Remake:
		out.Extra = conveyorLeftSpeed
	case def.Name == registry.ConveyorRightName && to == version.Remake:
		out.Extra = conveyorRightSpeed
	}
	if strings.Contains(def.Name, progressiveNameToken) {
		out.Extra = extraMushroom
	}
	if def.Name == registry.IceToTileName {
		out.Extra = extraNothing
	}
	return fb
}
