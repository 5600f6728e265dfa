package convert

import (
	"github.com/ClippyRoyale/WorldConverter/internal/assets"
	"github.com/ClippyRoyale/WorldConverter/internal/registry"
	"github.com/ClippyRoyale/WorldConverter/internal/tile"
	"github.com/ClippyRoyale/WorldConverter/internal/version"
	"github.com/ClippyRoyale/WorldConverter/internal/world"
)

// Positions pack x in the low 16 bits and y, counted from the bottom row, above.
const rowStride = 1 << 16

// Warp exit directions.
const (
	warpLeft          = 3
	warpDownNoOffset  = 5
	warpRightNoOffset = 6
	warpDown          = 1
	warpRight         = 2
	// Remake and Legacy place left exits three tiles right of the pipe.
	leftExitOffset = 3
)

// Exit directions only Deluxe and Legacy have, mapped to the nearest others.
var offsetWarps = map[int]int{
	warpDownNoOffset:  warpDown,
	warpRightNoOffset: warpRight,
}

type cell struct{ x, y int }

func (c *conversion) zone(z *world.Zone) error {
	height, width := z.Height(), z.Width()

	switch c.to {
	case version.Deluxe:
		for _, k := range deluxeRejectedZoneKeys {
			if err := z.Delete(k); err != nil {
				return err
			}
		}
		if c.vertical && height > deluxeMaxRows {
			if err := z.Set("camera", freeRoamCamera); err != nil {
				return err
			}
		}
	case version.Legacy:
		if c.vertical && height > legacyMaxRows {
			if err := z.Set("camera", freeRoamCamera); err != nil {
				return err
			}
		}
	}

	if c.from == version.Deluxe {
		if err := c.backgrounds(z, width); err != nil {
			return err
		}
	}
	if err := c.warps(z); err != nil {
		return err
	}

	pole, hasPole := c.grids(z)
	if err := c.zoneObjects(z); err != nil {
		return err
	}
	if hasPole && c.to != version.Remake && !c.hasFlag(z) {
		c.addFlag(z, pole, height)
	}
	return nil
}

func (c *conversion) backgrounds(z *world.Zone, width int) error {
	for _, bg := range z.Backgrounds {
		if u := bg.Get("url"); u.Exists() && !assets.IsAbsolute(u.String()) {
			if err := bg.Set("url", c.hosts.Absolute(version.Deluxe, u.String())); err != nil {
				return err
			}
		}
		// Only Deluxe repeats a background forever; estimate a repeat count
		// that covers the zone for a sheet at least 128px wide.
		if loop, ok := tile.Coerce(bg.Get("loop")); ok && loop <= 0 {
			if err := bg.Set("loop", width/8+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *conversion) warps(z *world.Zone) error {
	for _, w := range z.Warps {
		data, ok := tile.Coerce(w.Get("data"))
		if !ok {
			continue
		}
		if c.to == version.Remake || c.to == version.Classic || c.to == version.Inferno {
			if d, ok := offsetWarps[data]; ok {
				data = d
				if err := w.Set("data", data); err != nil {
					return err
				}
			}
		}
		if data != warpLeft {
			continue
		}
		pos, ok := tile.Coerce(w.Get("pos"))
		if !ok {
			c.rep.Warn("Left warp with unreadable position %s left unchanged", w.Get("pos").Raw)
			continue
		}
		switch {
		case c.to == version.Deluxe:
			x := ((pos % rowStride) + rowStride) % rowStride
			pos -= min(x, leftExitOffset)
		case c.from == version.Deluxe:
			pos += leftExitOffset
		default:
			continue
		}
		if err := w.Set("pos", pos); err != nil {
			return err
		}
	}
	return nil
}

// grids converts every tile grid of z and returns the top-most flagpole cell
// of the source grids.
func (c *conversion) grids(z *world.Zone) (pole cell, found bool) {
	format := c.to.TileFormat()
	for _, l := range z.Layers {
		l.Tiles = make([][]tile.Tile, len(l.Cells))
		l.Format = format
		for y, row := range l.Cells {
			l.Tiles[y] = make([]tile.Tile, len(row))
			for x, raw := range row {
				old, err := tile.Decode(raw)
				if err != nil {
					c.rep.Warn("Failed to convert tile: %s", raw.Raw)
				}
				l.Tiles[y][x] = c.ConvertTile(old, c.from, c.to, c.opts, c.rep)

				def := c.tiles.ByID(c.from, old.Def)
				if c.to == version.Deluxe && y >= 1 && isWater(def) {
					c.fixWaterAbove(l.Tiles[y-1], x)
				}
				if !found && (def.Name == registry.FlagpoleName || def.Name == registry.FlagpoleWarpName) {
					pole, found = cell{x: x, y: y}, true
				}
			}
		}
	}
	return pole, found
}

func isWater(def *registry.TileDef) bool {
	switch def.Name {
	case registry.WaterName, registry.WaterSurfaceName, registry.WaterCurrentName:
		return true
	}
	return false
}

// fixWaterAbove turns converted air directly above water into water. Deluxe
// water hitboxes are one tile shorter than in older engines.
func (c *conversion) fixWaterAbove(above []tile.Tile, x int) {
	if x >= len(above) {
		return
	}
	airID, _ := c.tiles.Air().ID(c.to)
	waterID, _ := c.tiles.ByName(registry.WaterName).ID(c.to)
	if above[x].Def == airID {
		above[x].Def = waterID
	}
}

func (c *conversion) hasFlag(z *world.Zone) bool {
	flag, _ := c.objects.ByName(registry.FlagName)
	id, _ := flag.ID(c.to)
	for _, o := range z.Objects {
		if t, ok := tile.Coerce(o.Get("type")); ok && t == id {
			return true
		}
	}
	return false
}

func (c *conversion) addFlag(z *world.Zone, pole cell, height int) {
	flag, _ := c.objects.ByName(registry.FlagName)
	id, _ := flag.ID(c.to)
	pos := pole.x + (height-1-pole.y)*rowStride
	n := world.NewNode([]byte(`{}`))
	// Setting scalar keys on a fresh object cannot fail.
	_ = n.Set("type", id)
	_ = n.Set("pos", pos)
	_ = n.SetRaw("param", []byte(`[]`))
	z.Objects = append(z.Objects, n)
}
