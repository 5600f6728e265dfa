// Package convert rewrites a world document from one revision's format to
// another's.
package convert

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ClippyRoyale/WorldConverter/internal/assets"
	"github.com/ClippyRoyale/WorldConverter/internal/registry"
	"github.com/ClippyRoyale/WorldConverter/internal/report"
	"github.com/ClippyRoyale/WorldConverter/internal/version"
	"github.com/ClippyRoyale/WorldConverter/internal/world"
)

// Version is the converter release stamped into converted worlds.
const Version = "4.0.0"

// ErrVersions is returned when from or to is not a usable pair.
var ErrVersions = errors.New("convert: from and to must be distinct concrete versions")

// Options tunes a conversion.
type Options struct {
	// ProgressiveItemBoxes turns item blocks holding a mushroom or flower
	// into progressive item blocks when the target supports them.
	ProgressiveItemBoxes bool
}

// Paths written into converted worlds.
const (
	effectsSheet      = "img/game/smb_effects.png"
	deluxeObjSheet    = "img/game/smb_obj.png"
	legacyObjSheet    = "img/game/smas_obj.png"
	legacyAssets      = "assets/assets.json"
	deluxeNoAnim      = "assets/assets-noanim.json"
	assetsDir         = "assets/"
	audioDir          = "audio/"
	defaultShortname  = "[WC]"
	defaultMode       = "royale"
	longnameFormat    = "Converted with Clippy’s World Converter (v%s)"
	verticalTrue      = "true"
	freeRoamCamera    = 2
	deluxeMaxRows     = 14
	legacyMaxRows     = 16
	gameType          = "game"
	resourceEffectsID = "effects"
)

// Keys the Java servers of Deluxe and Inferno reject.
var javaRejectedKeys = []string{"shortname", "longname", "autoMove", "musicOverridePath", "soundOverridePath"}

// Zone keys Deluxe rejects.
var deluxeRejectedZoneKeys = []string{"winmusic", "victorymusic", "levelendoff"}

// Engine converts worlds between revisions. An Engine holds no per-call
// state and may be shared.
type Engine struct {
	tiles   *registry.Tiles
	objects *registry.Objects
	hosts   assets.Hosts
	logger  *zap.Logger
}

// New returns an Engine using the compiled-in tables.
//
// Precondition: logger must be non-nil.
func New(hosts assets.Hosts, logger *zap.Logger) *Engine {
	return &Engine{
		tiles:   registry.DefaultTiles(),
		objects: registry.DefaultObjects(),
		hosts:   hosts,
		logger:  logger,
	}
}

// conversion carries the state of one Convert call.
type conversion struct {
	*Engine
	from, to version.Version
	opts     Options
	rep      *report.Report
	vertical bool
}

// Convert rewrites w in place from from's format to to's. Per-tile and
// per-object problems become warnings in rep; only structural problems fail.
//
// Precondition: w must come from world.Parse; rep must be non-nil.
// Postcondition: On success w encodes as a to-format world. On error w is in
// an unspecified state and the error wraps ErrVersions or world.ErrCorrupt.
func (e *Engine) Convert(w *world.World, from, to version.Version, opts Options, rep *report.Report) error {
	if !from.IsConcrete() || !to.IsConcrete() || from == to {
		return fmt.Errorf("%w: from %s to %s", ErrVersions, from, to)
	}
	start := time.Now()
	c := &conversion{Engine: e, from: from, to: to, opts: opts, rep: rep}

	if err := c.metadata(w); err != nil {
		return fmt.Errorf("%w: metadata: %v", world.ErrCorrupt, err)
	}
	if err := c.resources(w); err != nil {
		return fmt.Errorf("%w: resources: %v", world.ErrCorrupt, err)
	}
	for li, level := range w.Levels {
		for zi, z := range level.Zones {
			if err := c.zone(z); err != nil {
				return fmt.Errorf("%w: world[%d].zone[%d]: %v", world.ErrCorrupt, li, zi, err)
			}
		}
	}

	e.logger.Debug("world converted",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Int("zones", len(w.Zones())),
		zap.Int("removed_objects", len(rep.Removed)),
		zap.Int("replaced_tiles", len(rep.Replaced)),
		zap.Int("warnings", len(rep.Warnings)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (c *conversion) metadata(w *world.World) error {
	if c.from == version.Remake {
		if v := w.Get("vertical"); v.Exists() {
			c.vertical = v.String() == verticalTrue
			if err := w.Delete("vertical"); err != nil {
				return err
			}
		}
	} else if c.to == version.Remake && anyFreeCamera(w) {
		if err := w.Set("vertical", verticalTrue); err != nil {
			return err
		}
	}

	if c.to == version.Deluxe && (c.from == version.Legacy || c.from == version.Classic || c.from == version.Inferno) {
		if err := w.Set("audioOverrideURL", c.hosts.Absolute(version.Legacy, audioDir)); err != nil {
			return err
		}
	}

	if c.to == version.Deluxe || c.to == version.Inferno {
		for _, k := range javaRejectedKeys {
			if err := w.Delete(k); err != nil {
				return err
			}
		}
	}

	if c.to == version.Legacy || c.to == version.Remake || c.to == version.Classic {
		if err := w.SetDefault("shortname", defaultShortname); err != nil {
			return err
		}
		if err := w.SetDefault("longname", fmt.Sprintf(longnameFormat, Version)); err != nil {
			return err
		}
		if err := w.SetDefault("mode", defaultMode); err != nil {
			return err
		}
	}

	// Lobbies crash when loaded as a level.
	if err := w.Set("type", gameType); err != nil {
		return err
	}
	return c.assets(w)
}

func anyFreeCamera(w *world.World) bool {
	for _, z := range w.Zones() {
		if z.Get("camera").Int() != 0 {
			return true
		}
	}
	return false
}

func (c *conversion) assets(w *world.World) error {
	cur := w.Get("assets")
	switch {
	case c.to == version.Deluxe:
		switch {
		case c.from == version.Legacy && cur.Exists():
			if !assets.IsAbsolute(cur.String()) {
				return w.Set("assets", c.hosts.Absolute(version.Legacy, assetsDir+cur.String()))
			}
		default:
			return w.Set("assets", c.hosts.Absolute(version.Legacy, legacyAssets))
		}
	case c.from == version.Deluxe && c.to == version.Legacy:
		switch {
		case !cur.Exists():
			return w.Set("assets", c.hosts.Absolute(version.Deluxe, deluxeNoAnim))
		case !assets.IsAbsolute(cur.String()):
			return w.Set("assets", c.hosts.Absolute(version.Deluxe, assetsDir+cur.String()))
		}
	}
	return nil
}

func (c *conversion) resources(w *world.World) error {
	kept := w.Resources[:0:0]
	hasEffects := false
	for _, r := range w.Resources {
		id := r.Get("id").String()
		src := r.Get("src").String()
		switch id {
		case "map":
			if !assets.IsAbsolute(src) {
				if err := r.Set("src", c.hosts.Absolute(c.from, src)); err != nil {
					return err
				}
			}
		case "obj":
			var err error
			switch {
			case c.to == version.Deluxe:
				err = r.Set("src", c.hosts.Absolute(version.Deluxe, deluxeObjSheet))
			case c.from == version.Deluxe:
				err = r.Set("src", c.hosts.Absolute(version.Legacy, legacyObjSheet))
			case !assets.IsAbsolute(src):
				err = r.Set("src", c.hosts.Absolute(c.from, src))
			}
			if err != nil {
				return err
			}
		case resourceEffectsID:
			if c.from == version.Deluxe {
				continue
			}
			hasEffects = true
		}
		kept = append(kept, r)
	}
	if c.to == version.Deluxe && !hasEffects {
		kept = append(kept, world.NewNode([]byte(`{"id":"`+resourceEffectsID+`","src":"`+effectsSheet+`"}`)))
	}
	w.Resources = kept
	return nil
}
