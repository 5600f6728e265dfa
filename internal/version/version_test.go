package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"pgregory.net/rapid"

	"github.com/ClippyRoyale/WorldConverter/internal/version"
)

func TestParse_AcceptsNamesCaseInsensitively(t *testing.T) {
	cases := map[string]version.Version{
		"auto":       version.Autodetect,
		"AutoDetect": version.Autodetect,
		"inferno":    version.Inferno,
		"Classic":    version.Classic,
		" remake ":   version.Remake,
		"LEGACY":     version.Legacy,
		"deluxe":     version.Deluxe,
	}
	for in, want := range cases {
		got, err := version.Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParse_RejectsUnknown(t *testing.T) {
	_, err := version.Parse("royale")
	assert.ErrorContains(t, err, "unknown version")
}

func TestConcreteVersions_HaveOneBit(t *testing.T) {
	for _, v := range version.Concrete {
		assert.True(t, v.IsConcrete(), v.String())
	}
	assert.False(t, version.Autodetect.IsConcrete())
	assert.False(t, version.Version(0b00011).IsConcrete())
}

func TestIDSpaces(t *testing.T) {
	assert.Equal(t, version.Legacy, version.Classic.TileSpace())
	assert.Equal(t, version.Legacy, version.Inferno.TileSpace())
	assert.Equal(t, version.Remake, version.Remake.TileSpace())
	assert.Equal(t, version.Legacy, version.Remake.ObjectSpace())
	assert.Equal(t, version.Deluxe, version.Deluxe.ObjectSpace())
	assert.Equal(t, version.Record, version.Deluxe.TileFormat())
	assert.Equal(t, version.Packed, version.Remake.TileFormat())
}

// TestMask_HasMatchesBitwiseAnd verifies membership is a bitwise AND against
// the revision's single bit.
func TestMask_HasMatchesBitwiseAnd(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		m := version.Mask(rapid.Uint8Range(0, 31).Draw(rt, "mask"))
		v := rapid.SampledFrom(version.Concrete).Draw(rt, "version")
		assert.Equal(rt, uint8(m)&uint8(v) != 0, m.Has(v))
		assert.False(rt, m.Has(version.Autodetect))
	})
}

func TestMask_UnmarshalYAML(t *testing.T) {
	var doc struct {
		A version.Mask `yaml:"a"`
		B version.Mask `yaml:"b"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: all\nb: [deluxe, legacy]\n"), &doc))
	assert.Equal(t, version.All, doc.A)
	assert.Equal(t, version.MaskOf(version.Deluxe, version.Legacy), doc.B)
	assert.Equal(t, "11000", doc.B.String())

	err := yaml.Unmarshal([]byte("a: [auto]\n"), &doc)
	assert.Error(t, err)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Deluxe", version.Deluxe.Title())
	assert.Equal(t, "Inferno", version.Inferno.Title())
}
