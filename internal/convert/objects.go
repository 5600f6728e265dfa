package convert

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ClippyRoyale/WorldConverter/internal/registry"
	"github.com/ClippyRoyale/WorldConverter/internal/tile"
	"github.com/ClippyRoyale/WorldConverter/internal/version"
	"github.com/ClippyRoyale/WorldConverter/internal/world"
)

// Fire bar parameter defaults. Legacy stores a rotation rate where lower is
// faster; Remake stores a speed multiplier of that base rate.
const (
	fireBarPhase     = 0
	fireBarLength    = 6
	fireBarClockwise = 0
	fireBarSpeed     = 1.0
	fireBarBaseRate  = 23
)

// zoneObjects drops objects the target cannot hold, renumbers the rest and
// rewrites parameters whose meaning differs between revisions.
func (c *conversion) zoneObjects(z *world.Zone) error {
	kept := z.Objects[:0]
	for _, o := range z.Objects {
		typ, ok := tile.Coerce(o.Get("type"))
		if !ok {
			c.rep.Warn("Removed object with unreadable type %s", o.Get("type").Raw)
			continue
		}
		def, known := c.objects.ByID(c.from, typ)
		if !known || !c.objects.Supported(def, c.to) {
			c.rep.AddRemoved(typ, c.objects.NameFor(c.from, typ))
			continue
		}
		if id, _ := def.ID(c.to); id != typ {
			if err := o.Set("type", id); err != nil {
				return err
			}
		}

		var err error
		switch def.Name {
		case registry.FireBarName:
			err = c.fireBar(o)
		case registry.CheepCheepName:
			err = c.cheepCheep(o)
		}
		if err != nil {
			c.rep.Warn("Parameters of object %d left unchanged: %v", typ, err)
		}
		kept = append(kept, o)
	}
	z.Objects = kept
	return nil
}

func (c *conversion) fireBar(o *world.Node) error {
	switch {
	case c.from == version.Remake && c.to == version.Legacy:
		p := o.Get("param").Array()
		phase := intParam(p, 0, fireBarPhase)
		length := intParam(p, 1, fireBarLength)
		clockwise := intParam(p, 2, fireBarClockwise)
		speed := floatParam(p, 3, fireBarSpeed)
		rate := math.Floor(fireBarBaseRate / speed)
		if speed == 0 || math.IsInf(rate, 0) {
			c.rep.Warn("Fire bar with unusable speed %v reset to %v", speed, fireBarSpeed)
			rate = fireBarBaseRate
		}
		if clockwise != 0 {
			rate = -rate
		}
		return o.Set("param", []any{phase, length, rate})

	case c.from == version.Legacy && c.to == version.Remake:
		p := o.Get("param").Array()
		phase := intParam(p, 0, fireBarPhase)
		length := intParam(p, 1, fireBarLength)
		rate := intParam(p, 2, fireBarBaseRate)
		if rate == 0 {
			c.rep.Warn("Fire bar with zero rate reset to %d", fireBarBaseRate)
			rate = fireBarBaseRate
		}
		// A negative multiplier stands in for the clockwise flag.
		return o.Set("param", []any{phase, length, 0, float64(fireBarBaseRate) / float64(rate)})
	}
	return nil
}

// cheepCheep swaps the colour variant. Deluxe numbers green 0 and red 1;
// Legacy numbers red 0 and gray 1.
func (c *conversion) cheepCheep(o *world.Node) error {
	dl := version.MaskOf(version.Deluxe, version.Legacy)
	if !dl.Has(c.from) || !dl.Has(c.to) {
		return nil
	}
	p := o.Get("param.0")
	if !p.Exists() {
		return nil
	}
	variant, ok := tile.Coerce(p)
	switch {
	case !ok:
		c.rep.Warn("Cheep cheep with unreadable variant %s reset to 0", p.Raw)
		variant = 0
	case variant == 0:
		variant = 1
	default:
		variant = 0
	}
	return o.Set("param.0", variant)
}

func intParam(p []gjson.Result, i, def int) int {
	if i >= len(p) {
		return def
	}
	if n, ok := tile.Coerce(p[i]); ok {
		return n
	}
	return def
}

func floatParam(p []gjson.Result, i int, def float64) float64 {
	if i >= len(p) {
		return def
	}
	switch p[i].Type {
	case gjson.Number:
		if !math.IsNaN(p[i].Num) && !math.IsInf(p[i].Num, 0) {
			return p[i].Num
		}
	case gjson.True:
		return 1
	case gjson.False:
		return 0
	case gjson.String:
		if f, err := strconv.ParseFloat(strings.TrimSpace(p[i].Str), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return def
}
