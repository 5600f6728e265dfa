package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ClippyRoyale/WorldConverter/internal/assets"
	"github.com/ClippyRoyale/WorldConverter/internal/version"
)

func validConfig() Config {
	return Config{
		Convert: ConvertConfig{
			From: "auto",
			To:   "deluxe",
		},
		Network: NetworkConfig{
			Enabled: true,
			Timeout: 5 * time.Second,
		},
		Assets: assets.DefaultHosts(),
		Batch: BatchConfig{
			OutputDir: "converted",
			LogName:   "_WARNINGS.LOG",
		},
		Watch: WatchConfig{Debounce: 500 * time.Millisecond},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	from, to, err := cfg.Convert.Versions()
	require.NoError(t, err)
	assert.Equal(t, version.Autodetect, from)
	assert.Equal(t, version.Legacy, to)
	assert.True(t, cfg.Network.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Network.Timeout)
	assert.Equal(t, assets.DefaultHosts(), cfg.Assets)
	assert.Equal(t, "_WARNINGS.LOG", cfg.Batch.LogName)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	err := os.WriteFile(path, []byte(`
convert:
  from: remake
  to: deluxe
  progressive_item_boxes: true
network:
  enabled: false
  timeout: 2s
assets:
  legacy: https://mirror.example.com/legacy/
batch:
  output_dir: out
logging:
  level: debug
  format: json
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "remake", cfg.Convert.From)
	assert.True(t, cfg.Convert.ProgressiveItemBoxes)
	assert.False(t, cfg.Network.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Network.Timeout)
	assert.Equal(t, "https://mirror.example.com/legacy/", cfg.Assets.Legacy)
	assert.Equal(t, assets.DefaultHosts().Deluxe, cfg.Assets.Deluxe)
	assert.Equal(t, "out", cfg.Batch.OutputDir)
	assert.Equal(t, "_WARNINGS.LOG", cfg.Batch.LogName)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("WORLDCONV_CONVERT_TO", "remake")
	t.Setenv("WORLDCONV_NETWORK_TIMEOUT", "250ms")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "remake", cfg.Convert.To)
	assert.Equal(t, 250*time.Millisecond, cfg.Network.Timeout)
}

func TestLoadInvalidPath(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestValidateVersions(t *testing.T) {
	cfg := validConfig()
	cfg.Convert.To = "auto"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Convert.From = "deluxe2"
	assert.Error(t, cfg.Validate())

	for _, v := range version.Concrete {
		cfg = validConfig()
		cfg.Convert.From = v.String()
		cfg.Convert.To = v.Title()
		assert.NoError(t, cfg.Validate(), "%s should be valid", v)
	}
}

func TestValidateAssets(t *testing.T) {
	cfg := validConfig()
	cfg.Assets.Remake = "mroyale.net/"
	assert.ErrorContains(t, cfg.Validate(), "assets.remake must be an absolute URL")

	cfg = validConfig()
	cfg.Assets.Deluxe = "https://example.com/dx"
	assert.ErrorContains(t, cfg.Validate(), "assets.deluxe must end with")
}

func TestValidateBatch(t *testing.T) {
	cfg := validConfig()
	cfg.Batch.OutputDir = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Batch.LogName = "logs/w.log"
	assert.Error(t, cfg.Validate())
}

func TestValidateLoggingLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := validConfig()
		cfg.Logging.Level = level
		assert.NoError(t, cfg.Validate(), "level %q should be valid", level)
	}
	cfg := validConfig()
	cfg.Logging.Level = "trace"
	assert.Error(t, cfg.Validate())
}

func TestValidateLoggingFormat(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		cfg := validConfig()
		cfg.Logging.Format = format
		assert.NoError(t, cfg.Validate(), "format %q should be valid", format)
	}
	cfg := validConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestValidateCollectsAllViolations(t *testing.T) {
	cfg := validConfig()
	cfg.Network.Timeout = 0
	cfg.Logging.Format = "xml"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network.timeout")
	assert.Contains(t, err.Error(), "logging.format")
}

// Property-based tests

func TestPropertyTimeoutMustBePositive(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ms := rapid.Int64Range(-10000, 10000).Draw(t, "timeout_ms")
		cfg := validConfig()
		cfg.Network.Timeout = time.Duration(ms) * time.Millisecond
		err := cfg.Validate()
		if (ms > 0) != (err == nil) {
			t.Fatalf("timeout %dms: err=%v", ms, err)
		}
	})
}

func TestPropertyDebounceNeverNegative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ms := rapid.Int64Range(-10000, -1).Draw(t, "debounce_ms")
		cfg := validConfig()
		cfg.Watch.Debounce = time.Duration(ms) * time.Millisecond
		if cfg.Validate() == nil {
			t.Fatalf("negative debounce %dms accepted", ms)
		}
	})
}
