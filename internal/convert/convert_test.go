package convert_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/ClippyRoyale/WorldConverter/internal/assets"
	"github.com/ClippyRoyale/WorldConverter/internal/convert"
	"github.com/ClippyRoyale/WorldConverter/internal/registry"
	"github.com/ClippyRoyale/WorldConverter/internal/report"
	"github.com/ClippyRoyale/WorldConverter/internal/tile"
	"github.com/ClippyRoyale/WorldConverter/internal/version"
	"github.com/ClippyRoyale/WorldConverter/internal/world"
)

func newEngine(t testing.TB) *convert.Engine {
	return convert.New(assets.DefaultHosts(), zaptest.NewLogger(t))
}

// run converts doc and returns the encoded result.
func run(t *testing.T, doc string, from, to version.Version) (gjson.Result, *report.Report) {
	t.Helper()
	w, err := world.Parse([]byte(doc))
	require.NoError(t, err)
	rep := report.New()
	require.NoError(t, newEngine(t).Convert(w, from, to, convert.Options{}, rep))
	out, err := world.Encode(w)
	require.NoError(t, err)
	require.True(t, gjson.ValidBytes(out))
	return gjson.ParseBytes(out), rep
}

func zoneDoc(data, objs string) string {
	return `{"world":[{"id":0,"zone":[{"id":0,"camera":0,"data":` + data + `,"obj":` + objs + `}]}]}`
}

func TestConvert_RejectsBadPairs(t *testing.T) {
	w, err := world.Parse([]byte(zoneDoc(`[[0]]`, `[]`)))
	require.NoError(t, err)
	e := newEngine(t)
	assert.ErrorIs(t, e.Convert(w, version.Legacy, version.Legacy, convert.Options{}, report.New()), convert.ErrVersions)
	assert.ErrorIs(t, e.Convert(w, version.Autodetect, version.Deluxe, convert.Options{}, report.New()), convert.ErrVersions)
}

func TestConvert_PackedTileBecomesRecord(t *testing.T) {
	out, _ := run(t, zoneDoc(`[[65553]]`, `[]`), version.Legacy, version.Deluxe)
	assert.JSONEq(t, `[[[17,0,0,1,0]]]`, out.Get("world.0.zone.0.data").Raw)
}

func TestConvert_RecordTileBecomesPacked(t *testing.T) {
	doc := `{"world":[{"zone":[{"layers":[{"z":0,"data":[[[17,0,0,1,0],[30,0,0,7,0]]]}],"obj":[]}]}]}`
	out, _ := run(t, doc, version.Deluxe, version.Legacy)
	assert.JSONEq(t, `[[65553,458782]]`, out.Get("world.0.zone.0.layers.0.data").Raw)
	assert.Equal(t, int64(0), out.Get("world.0.zone.0.layers.0.z").Int())
}

func TestConvert_RemovedObjectListedOnce(t *testing.T) {
	objs := `[{"type":100,"pos":1,"param":[]},{"type":100,"pos":2,"param":[]},{"type":17,"pos":3,"param":[]}]`
	out, rep := run(t, zoneDoc(`[[0]]`, objs), version.Legacy, version.Deluxe)
	assert.Equal(t, []report.RemovedObject{{ID: 100, Name: "gold flower"}}, rep.Removed)
	kept := out.Get("world.0.zone.0.obj").Array()
	require.Len(t, kept, 1)
	assert.Equal(t, int64(17), kept[0].Get("type").Int())
}

func TestConvert_RemovalDedupAcrossZones(t *testing.T) {
	spawner := `{"type":37,"pos":0,"param":[]}`
	doc := `{"world":[{"zone":[` +
		`{"data":[[0]],"obj":[` + spawner + `,` + spawner + `,` + spawner + `]},` +
		`{"data":[[0]],"obj":[` + spawner + `,` + spawner + `]}]}]}`
	_, rep := run(t, doc, version.Legacy, version.Inferno)
	assert.Equal(t, []report.RemovedObject{{ID: 37, Name: "object spawner"}}, rep.Removed)
}

func TestConvert_UnknownObjectIsRemoved(t *testing.T) {
	out, rep := run(t, zoneDoc(`[[0]]`, `[{"type":9999,"pos":0},{"type":"x","pos":0}]`), version.Legacy, version.Remake)
	assert.Equal(t, []report.RemovedObject{{ID: 9999, Name: registry.UnknownObjectName}}, rep.Removed)
	assert.Empty(t, out.Get("world.0.zone.0.obj").Array())
	assert.Contains(t, rep.Warnings, `Removed object with unreadable type "x"`)
}

func TestConvert_ObjectTypeRenumbered(t *testing.T) {
	out, _ := run(t, zoneDoc(`[[0]]`, `[{"type":41,"pos":0,"param":[0]}]`), version.Legacy, version.Deluxe)
	obj := out.Get("world.0.zone.0.obj.0")
	assert.Equal(t, int64(38), obj.Get("type").Int())
	assert.Equal(t, int64(1), obj.Get("param.0").Int())
}

func TestConvert_CheepCheepVariant(t *testing.T) {
	out, _ := run(t, zoneDoc(`[[0]]`, `[{"type":38,"pos":0,"param":["1"]}]`), version.Deluxe, version.Legacy)
	assert.Equal(t, int64(0), out.Get("world.0.zone.0.obj.0.param.0").Int())

	out, rep := run(t, zoneDoc(`[[0]]`, `[{"type":38,"pos":0,"param":["red"]}]`), version.Deluxe, version.Legacy)
	assert.Equal(t, int64(0), out.Get("world.0.zone.0.obj.0.param.0").Int())
	assert.NotEmpty(t, rep.Warnings)
}

func TestConvert_FireBar(t *testing.T) {
	tests := []struct {
		name     string
		from, to version.Version
		param    string
		want     string
	}{
		{"remake two params", version.Remake, version.Legacy, `[0,6]`, `[0,6,23]`},
		{"remake clockwise double speed", version.Remake, version.Legacy, `[2,4,1,2]`, `[2,4,-11]`},
		{"remake string params", version.Remake, version.Legacy, `["1","x",0,"0.5"]`, `[1,6,46]`},
		{"remake zero speed", version.Remake, version.Legacy, `[0,6,0,0]`, `[0,6,23]`},
		{"remake vanishing speed", version.Remake, version.Legacy, `[0,6,0,1e-310]`, `[0,6,23]`},
		{"remake vanishing string speed", version.Remake, version.Legacy, `[0,6,1,"5e-324"]`, `[0,6,-23]`},
		{"legacy two params", version.Legacy, version.Remake, `[0,6]`, `[0,6,0,1]`},
		{"legacy fast", version.Legacy, version.Remake, `[0,6,10]`, `[0,6,0,2.3]`},
		{"legacy to deluxe untouched", version.Legacy, version.Deluxe, `[0,6,10]`, `[0,6,10]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, rep := run(t, zoneDoc(`[[0]]`, `[{"type":33,"pos":0,"param":`+tt.param+`}]`), tt.from, tt.to)
			assert.JSONEq(t, tt.want, out.Get("world.0.zone.0.obj.0.param").Raw)
			if tt.name == "remake zero speed" || strings.HasPrefix(tt.name, "remake vanishing") {
				assert.Contains(t, strings.Join(rep.Warnings, "\n"), "Fire bar with unusable speed")
			}
		})
	}
}

func TestConvert_WaterFix(t *testing.T) {
	water := `458752` // def 7
	air := `0`
	solid := `65536` // def 1
	rows := `[` +
		`[` + air + `,` + air + `],` +
		`[` + air + `,` + air + `],` +
		`[` + air + `,` + air + `],` +
		`[` + air + `,` + air + `],` +
		`[` + air + `,` + air + `],` +
		`[` + water + `,` + solid + `]]`
	out, _ := run(t, zoneDoc(rows, `[]`), version.Legacy, version.Deluxe)
	data := out.Get("world.0.zone.0.data")
	assert.Equal(t, int64(7), data.Get("4.0.3").Int(), "air above water becomes water")
	assert.Equal(t, int64(0), data.Get("4.1.3").Int(), "air above solid is untouched")
	assert.Equal(t, int64(0), data.Get("3.0.3").Int(), "only the tile directly above changes")
	assert.Equal(t, int64(7), data.Get("5.0.3").Int())
}

func TestConvert_WaterFixOnlyForDeluxe(t *testing.T) {
	out, _ := run(t, zoneDoc(`[[0],[458752]]`, `[]`), version.Legacy, version.Remake)
	assert.JSONEq(t, `[[0],[458752]]`, out.Get("world.0.zone.0.data").Raw)
}

func TestConvert_ReplacedTilesLedger(t *testing.T) {
	// water surface, twice, then water current
	doc := zoneDoc(`[[524288,524288],[589824,0]]`, `[]`)
	out, rep := run(t, doc, version.Legacy, version.Deluxe)
	assert.Equal(t, []report.Replacement{
		{From: "water surface", To: "water"},
		{From: "water current", To: "water"},
	}, rep.Replaced)
	assert.Equal(t, int64(7), out.Get("world.0.zone.0.data.0.0.3").Int())
}

func TestConvertTile_ConveyorToDeluxe(t *testing.T) {
	e := newEngine(t)
	rep := report.New()
	left := e.ConvertTile(tile.Tile{Def: 12, Extra: 124}, version.Remake, version.Deluxe, convert.Options{}, rep)
	right := e.ConvertTile(tile.Tile{Def: 12, Extra: 132}, version.Remake, version.Deluxe, convert.Options{}, rep)
	stopped := e.ConvertTile(tile.Tile{Def: 12, Extra: 128}, version.Remake, version.Deluxe, convert.Options{}, rep)
	assert.Equal(t, 14, left.Def)
	assert.Equal(t, 15, right.Def)
	assert.Equal(t, 1, stopped.Def)
	assert.Equal(t, []report.Replacement{
		{From: "conveyor", To: "conveyor left"},
		{From: "conveyor", To: "conveyor right"},
		{From: "conveyor", To: "solid standard"},
	}, rep.Replaced)
}

func TestConvertTile_ConveyorToRemake(t *testing.T) {
	e := newEngine(t)
	got := e.ConvertTile(tile.Tile{Def: 14, Extra: 0}, version.Deluxe, version.Remake, convert.Options{}, report.New())
	assert.Equal(t, tile.Tile{Def: 12, Extra: 124}, got)
}

func TestConvertTile_ProgressiveItemBoxes(t *testing.T) {
	e := newEngine(t)
	opts := convert.Options{ProgressiveItemBoxes: true}
	got := e.ConvertTile(tile.Tile{Def: 17, Extra: 81}, version.Remake, version.Legacy, opts, report.New())
	assert.Equal(t, 20, got.Def)
	got = e.ConvertTile(tile.Tile{Def: 21, Extra: 82}, version.Remake, version.Deluxe, opts, report.New())
	assert.Equal(t, 27, got.Def)
	got = e.ConvertTile(tile.Tile{Def: 17, Extra: 81}, version.Legacy, version.Remake, opts, report.New())
	assert.Equal(t, 17, got.Def)
}

func TestConvertTile_ProgressiveFallbackGetsMushroom(t *testing.T) {
	e := newEngine(t)
	got := e.ConvertTile(tile.Tile{Def: 20, Extra: 0}, version.Legacy, version.Remake, convert.Options{}, report.New())
	assert.Equal(t, tile.Tile{Def: 17, Extra: 81}, got)
}

func TestConvertTile_IceToTileClearsExtra(t *testing.T) {
	e := newEngine(t)
	got := e.ConvertTile(tile.Tile{Def: 13, Extra: 5}, version.Legacy, version.Deluxe, convert.Options{}, report.New())
	assert.Equal(t, 13, got.Def)
	assert.Equal(t, 0, got.Extra)
}

func TestConvertTile_TargetAlwaysSupportsResult(t *testing.T) {
	tiles := registry.DefaultTiles()
	e := newEngine(t)
	rapid.Check(t, func(t *rapid.T) {
		from := rapid.SampledFrom(version.Concrete).Draw(t, "from")
		to := rapid.SampledFrom(version.Concrete).Filter(func(v version.Version) bool { return v != from }).Draw(t, "to")
		in := tile.Tile{
			Sprite: rapid.IntRange(0, 2047).Draw(t, "sprite"),
			Def:    rapid.IntRange(0, 255).Draw(t, "def"),
			Extra:  rapid.IntRange(0, 255).Draw(t, "extra"),
		}
		opts := convert.Options{ProgressiveItemBoxes: rapid.Bool().Draw(t, "progressive")}
		rep := report.New()
		out := e.ConvertTile(in, from, to, opts, rep)
		out2 := e.ConvertTile(in, from, to, opts, rep)

		def := tiles.ByID(to, out.Def)
		id, ok := def.ID(to)
		if !ok || id != out.Def {
			t.Fatalf("def %d is not a %s id", out.Def, to)
		}
		if !def.Supports(to) {
			t.Fatalf("%q unsupported by %s", def.Name, to)
		}
		if out.Sprite != in.Sprite {
			t.Fatalf("sprite changed: %d -> %d", in.Sprite, out.Sprite)
		}
		if out != out2 {
			t.Fatalf("not deterministic: %v vs %v", out, out2)
		}
		want := 1
		if tiles.ByID(from, in.Def).Supports(to) {
			want = 0
		}
		if len(rep.Replaced) != want {
			t.Fatalf("tile %v recorded %d replacements, want %d", in, len(rep.Replaced), want)
		}
	})
}

func TestConvert_FlagSynthesis(t *testing.T) {
	pole := `10485760` // def 160
	rows := `[[0,` + pole + `],[0,` + pole + `],[0,65536]]`
	out, _ := run(t, zoneDoc(rows, `[]`), version.Legacy, version.Deluxe)
	objs := out.Get("world.0.zone.0.obj").Array()
	require.Len(t, objs, 1)
	assert.Equal(t, int64(177), objs[0].Get("type").Int())
	assert.Equal(t, int64(1+2*65536), objs[0].Get("pos").Int())
	assert.JSONEq(t, `[]`, objs[0].Get("param").Raw)
}

func TestConvert_FlagNotDuplicated(t *testing.T) {
	pole := `10485760`
	out, _ := run(t, zoneDoc(`[[`+pole+`]]`, `[{"type":177,"pos":0,"param":[]}]`), version.Legacy, version.Deluxe)
	assert.Len(t, out.Get("world.0.zone.0.obj").Array(), 1)

	out, _ = run(t, zoneDoc(`[[`+pole+`]]`, `[]`), version.Legacy, version.Remake)
	assert.Empty(t, out.Get("world.0.zone.0.obj").Array())
}

func TestConvert_Warps(t *testing.T) {
	warps := `[{"id":1,"pos":65537,"data":3},{"id":2,"pos":65541,"data":3},{"id":3,"pos":0,"data":5},{"id":4,"pos":0,"data":6}]`
	doc := `{"world":[{"zone":[{"data":[[0]],"obj":[],"warp":` + warps + `}]}]}`

	out, _ := run(t, doc, version.Legacy, version.Deluxe)
	w := out.Get("world.0.zone.0.warp")
	assert.Equal(t, int64(65536), w.Get("0.pos").Int(), "clamped at column 0")
	assert.Equal(t, int64(65538), w.Get("1.pos").Int())
	assert.Equal(t, int64(5), w.Get("2.data").Int())

	out, _ = run(t, doc, version.Deluxe, version.Remake)
	w = out.Get("world.0.zone.0.warp")
	assert.Equal(t, int64(65540), w.Get("0.pos").Int())
	assert.Equal(t, int64(1), w.Get("2.data").Int())
	assert.Equal(t, int64(2), w.Get("3.data").Int())
}

func TestConvert_MetadataToDeluxe(t *testing.T) {
	doc := `{"type":"lobby","shortname":"ABC","longname":"x","autoMove":true,` +
		`"resource":[{"id":"map","src":"img/game/smb_map.png"},{"id":"obj","src":"img/game/smb_obj.png"}],` +
		`"world":[{"zone":[{"data":[[0]],"obj":[],"winmusic":"a","levelendoff":true}]}]}`
	out, _ := run(t, doc, version.Legacy, version.Deluxe)
	hosts := assets.DefaultHosts()

	assert.Equal(t, "game", out.Get("type").String())
	for _, k := range []string{"shortname", "longname", "autoMove"} {
		assert.False(t, out.Get(k).Exists(), k)
	}
	assert.Equal(t, hosts.Legacy+"audio/", out.Get("audioOverrideURL").String())
	assert.Equal(t, hosts.Legacy+"assets/assets.json", out.Get("assets").String())
	assert.Equal(t, hosts.Legacy+"img/game/smb_map.png", out.Get(`resource.#(id=="map").src`).String())
	assert.Equal(t, hosts.Deluxe+"img/game/smb_obj.png", out.Get(`resource.#(id=="obj").src`).String())
	assert.Equal(t, "img/game/smb_effects.png", out.Get(`resource.#(id=="effects").src`).String())
	assert.False(t, out.Get("world.0.zone.0.winmusic").Exists())
	assert.False(t, out.Get("world.0.zone.0.levelendoff").Exists())
}

func TestConvert_MetadataFromDeluxe(t *testing.T) {
	doc := `{"assets":"custom.json","resource":[{"id":"effects","src":"img/game/smb_effects.png"}],` +
		`"world":[{"zone":[{"layers":[{"data":[[[30,0,0,0,0]]]}],"obj":[],` +
		`"background":[{"url":"img/bg.png","loop":0},{"url":"https://x/y.png","loop":3}]}]}]}`
	out, _ := run(t, doc, version.Deluxe, version.Legacy)
	hosts := assets.DefaultHosts()

	assert.Equal(t, hosts.Deluxe+"assets/custom.json", out.Get("assets").String())
	assert.Empty(t, out.Get("resource").Array())
	assert.Equal(t, "[WC]", out.Get("shortname").String())
	assert.Equal(t, "royale", out.Get("mode").String())
	assert.Contains(t, out.Get("longname").String(), convert.Version)
	bg := out.Get("world.0.zone.0.background")
	assert.Equal(t, hosts.Deluxe+"img/bg.png", bg.Get("0.url").String())
	assert.Equal(t, int64(1), bg.Get("0.loop").Int())
	assert.Equal(t, "https://x/y.png", bg.Get("1.url").String())
	assert.Equal(t, int64(3), bg.Get("1.loop").Int())
}

func TestConvert_VerticalFromRemake(t *testing.T) {
	rows := `[` + repeatRows(17) + `]`
	doc := `{"vertical":true,"world":[{"zone":[{"camera":0,"data":` + rows + `,"obj":[]}]}]}`

	out, _ := run(t, doc, version.Remake, version.Legacy)
	assert.False(t, out.Get("vertical").Exists())
	assert.Equal(t, int64(2), out.Get("world.0.zone.0.camera").Int())

	doc = `{"vertical":"false","world":[{"zone":[{"camera":0,"data":` + rows + `,"obj":[]}]}]}`
	out, _ = run(t, doc, version.Remake, version.Legacy)
	assert.Equal(t, int64(0), out.Get("world.0.zone.0.camera").Int())
}

func TestConvert_VerticalCameraThreshold(t *testing.T) {
	tests := []struct {
		to         version.Version
		rows       int
		wantCamera int64
	}{
		{version.Deluxe, 14, 0},
		{version.Deluxe, 15, 2},
		{version.Legacy, 16, 0},
		{version.Legacy, 17, 2},
	}
	for _, tt := range tests {
		t.Run(tt.to.String()+"/"+strconv.Itoa(tt.rows), func(t *testing.T) {
			doc := `{"vertical":true,"world":[{"zone":[{"camera":0,"data":[` + repeatRows(tt.rows) + `],"obj":[]}]}]}`
			out, _ := run(t, doc, version.Remake, tt.to)
			assert.Equal(t, tt.wantCamera, out.Get("world.0.zone.0.camera").Int())
		})
	}
}

func TestConvert_VerticalToRemake(t *testing.T) {
	out, _ := run(t, `{"world":[{"zone":[{"camera":2,"data":[[0]],"obj":[]}]}]}`, version.Legacy, version.Remake)
	assert.Equal(t, "true", out.Get("vertical").String())

	out, _ = run(t, `{"world":[{"zone":[{"camera":0,"data":[[0]],"obj":[]}]}]}`, version.Legacy, version.Remake)
	assert.False(t, out.Get("vertical").Exists())
}

func TestConvert_UnreadableTileWarns(t *testing.T) {
	out, rep := run(t, zoneDoc(`[["oops",0]]`, `[]`), version.Legacy, version.Remake)
	assert.Contains(t, rep.Warnings, `Failed to convert tile: "oops"`)
	assert.Equal(t, int64(30), out.Get("world.0.zone.0.data.0.0").Int())

	out, rep = run(t, zoneDoc(`[[1e30]]`, `[]`), version.Legacy, version.Remake)
	assert.Contains(t, rep.Warnings, `Failed to convert tile: 1e30`)
	assert.Equal(t, int64(30), out.Get("world.0.zone.0.data.0.0").Int())
}

func repeatRows(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			s += ","
		}
		s += "[0]"
	}
	return s
}
