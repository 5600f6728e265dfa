// Package detect infers which revision produced a world document.
package detect

import (
	"context"

	"go.uber.org/zap"

	"github.com/ClippyRoyale/WorldConverter/internal/assets"
	"github.com/ClippyRoyale/WorldConverter/internal/registry"
	"github.com/ClippyRoyale/WorldConverter/internal/report"
	"github.com/ClippyRoyale/WorldConverter/internal/tile"
	"github.com/ClippyRoyale/WorldConverter/internal/version"
	"github.com/ClippyRoyale/WorldConverter/internal/world"
)

// Remake stores conveyor speed in the extra byte of tile 12; values in this
// range cannot be a Legacy item note block's object id.
const (
	conveyorExtraMin = 112
	conveyorExtraMax = 144
	conveyorLegacyID = 12
)

// Detector classifies worlds with an ordered list of signals. The first
// signal that fires decides.
type Detector struct {
	oracle  Oracle
	hosts   assets.Hosts
	objects *registry.Objects
	logger  *zap.Logger
}

// New returns a Detector. A nil oracle skips network corroboration.
//
// Precondition: logger must be non-nil.
func New(oracle Oracle, hosts assets.Hosts, logger *zap.Logger) *Detector {
	return &Detector{
		oracle:  oracle,
		hosts:   hosts,
		objects: registry.DefaultObjects(),
		logger:  logger,
	}
}

// Detect returns the revision w was most likely written for. Diagnostics
// go to rep.
//
// Postcondition: Returns a concrete Version. Falls back to Legacy with a
// warning when no signal fires.
func (d *Detector) Detect(ctx context.Context, w *world.World, rep *report.Report) version.Version {
	v, signal := d.classify(ctx, w, rep)
	if v == version.Autodetect {
		rep.Warn("Failed to definitively detect world version; defaulting to Legacy. Please check to make sure this is correct.")
		d.logger.Info("version detection fell back to default", zap.String("version", version.Legacy.String()))
		return version.Legacy
	}
	rep.Warn("World version detected as %s", v)
	d.logger.Debug("version detected",
		zap.String("version", v.String()),
		zap.String("signal", signal),
	)
	return v
}

func (d *Detector) classify(ctx context.Context, w *world.World, rep *report.Report) (version.Version, string) {
	if w.StoresRecords() {
		return version.Deluxe, "record tiles"
	}
	if w.Has("vertical") || w.Has("autoMove") {
		return version.Remake, "remake metadata"
	}
	if w.Has("group") || w.Has("longname") {
		return version.Legacy, "legacy metadata"
	}
	if v := d.probeMapSheet(ctx, w, rep); v != version.Autodetect {
		return v, "map sheet host"
	}
	if d.hasRemakeFireBar(w) {
		return version.Remake, "four parameter fire bar"
	}
	if hasRemakeConveyor(w) {
		return version.Remake, "conveyor speed"
	}
	return version.Autodetect, ""
}

func (d *Detector) probeMapSheet(ctx context.Context, w *world.World, rep *report.Report) version.Version {
	if d.oracle == nil {
		return version.Autodetect
	}
	var src string
	for _, r := range w.Resources {
		if r.Get("id").String() != "map" {
			continue
		}
		if s := r.Get("src").String(); !assets.IsAbsolute(s) {
			src = s
			break
		}
	}
	if src == "" {
		return version.Autodetect
	}
	for _, v := range []version.Version{version.Legacy, version.Remake} {
		url := d.hosts.Absolute(v, src)
		p := d.oracle.Probe(ctx, url)
		d.logger.Debug("probed map sheet", zap.String("url", url), zap.Stringer("result", p))
		switch p {
		case Found:
			return v
		case Untrusted:
			rep.Warn("Security warning on %s map image.", v.Title())
			return v
		case Unreachable:
			rep.Warn("No internet connection! Version detection will be less accurate.")
			return version.Autodetect
		}
	}
	rep.Warn("Couldn’t find the map sheet %s in Legacy or Remake.", src)
	return version.Autodetect
}

func (d *Detector) hasRemakeFireBar(w *world.World) bool {
	fireBar, _ := d.objects.ByName(registry.FireBarName)
	id, _ := fireBar.ID(version.Legacy)
	for _, z := range w.Zones() {
		for _, o := range z.Objects {
			if t, ok := tile.Coerce(o.Get("type")); ok && t == id {
				if p := o.Get("param"); p.IsArray() && len(p.Array()) == 4 {
					return true
				}
			}
		}
	}
	return false
}

func hasRemakeConveyor(w *world.World) bool {
	for _, z := range w.Zones() {
		for _, l := range z.Layers {
			for _, row := range l.Cells {
				for _, cell := range row {
					t, _ := tile.Decode(cell)
					if t.Def == conveyorLegacyID && t.Extra >= conveyorExtraMin && t.Extra < conveyorExtraMax {
						return true
					}
				}
			}
		}
	}
	return false
}
