// Package config provides Viper-based configuration loading for the world converter.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ClippyRoyale/WorldConverter/internal/assets"
	"github.com/ClippyRoyale/WorldConverter/internal/version"
)

// ConvertConfig holds the default conversion settings.
type ConvertConfig struct {
	// From is the source version name, or "auto" to detect it per file.
	From string `mapstructure:"from"`
	// To is the target version name.
	To string `mapstructure:"to"`
	// ProgressiveItemBoxes upgrades mushroom and flower item blocks to their
	// progressive variants when the target supports them.
	ProgressiveItemBoxes bool `mapstructure:"progressive_item_boxes"`
}

// Versions parses From and To.
//
// Postcondition: On success to is concrete and from is concrete or
// version.Autodetect.
func (c ConvertConfig) Versions() (from, to version.Version, err error) {
	from, err = version.Parse(c.From)
	if err != nil {
		return 0, 0, fmt.Errorf("convert.from: %w", err)
	}
	to, err = version.Parse(c.To)
	if err != nil {
		return 0, 0, fmt.Errorf("convert.to: %w", err)
	}
	if !to.IsConcrete() {
		return 0, 0, fmt.Errorf("convert.to must name a version, got %q", c.To)
	}
	return from, to, nil
}

// NetworkConfig controls the map sheet probes used by version detection.
type NetworkConfig struct {
	// Enabled turns network probing on.
	Enabled bool `mapstructure:"enabled"`
	// Timeout bounds a single probe.
	Timeout time.Duration `mapstructure:"timeout"`
}

// BatchConfig holds folder conversion settings.
type BatchConfig struct {
	// OutputDir is the folder name used when none is given.
	OutputDir string `mapstructure:"output_dir"`
	// LogName is the warnings log written into the output folder.
	LogName string `mapstructure:"log_name"`
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	// Debounce is how long a file must be quiet before it is converted.
	Debounce time.Duration `mapstructure:"debounce"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Convert ConvertConfig `mapstructure:"convert"`
	Network NetworkConfig `mapstructure:"network"`
	Assets  assets.Hosts  `mapstructure:"assets"`
	Batch   BatchConfig   `mapstructure:"batch"`
	Watch   WatchConfig   `mapstructure:"watch"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if _, _, err := c.Convert.Versions(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateNetwork(c.Network); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateAssets(c.Assets); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateBatch(c.Batch); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, "watch.debounce must not be negative")
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateNetwork(n NetworkConfig) error {
	if n.Timeout <= 0 {
		return fmt.Errorf("network.timeout must be positive, got %s", n.Timeout)
	}
	return nil
}

func validateAssets(a assets.Hosts) error {
	var errs []string
	for _, h := range []struct{ key, host string }{{"deluxe", a.Deluxe}, {"legacy", a.Legacy}, {"remake", a.Remake}} {
		key, host := h.key, h.host
		if !assets.IsAbsolute(host) {
			errs = append(errs, fmt.Sprintf("assets.%s must be an absolute URL, got %q", key, host))
		} else if !strings.HasSuffix(host, "/") {
			errs = append(errs, fmt.Sprintf("assets.%s must end with \"/\", got %q", key, host))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateBatch(b BatchConfig) error {
	var errs []string
	if b.OutputDir == "" {
		errs = append(errs, "batch.output_dir must not be empty")
	}
	if b.LogName == "" || strings.ContainsAny(b.LogName, `/\`) {
		errs = append(errs, fmt.Sprintf("batch.log_name must be a plain file name, got %q", b.LogName))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path skips the file.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with WORLDCONV_ prefix
	v.SetEnvPrefix("WORLDCONV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("convert.from", "auto")
	v.SetDefault("convert.to", "legacy")
	v.SetDefault("convert.progressive_item_boxes", false)

	v.SetDefault("network.enabled", true)
	v.SetDefault("network.timeout", "5s")

	hosts := assets.DefaultHosts()
	v.SetDefault("assets.deluxe", hosts.Deluxe)
	v.SetDefault("assets.legacy", hosts.Legacy)
	v.SetDefault("assets.remake", hosts.Remake)

	v.SetDefault("batch.output_dir", "converted")
	v.SetDefault("batch.log_name", "_WARNINGS.LOG")

	v.SetDefault("watch.debounce", "500ms")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}
