// Package config loads the loader's ambient settings — arena sizing
// knobs and diagnostic logging — from the process environment. The
// loader has no working directory or config file of its own, so only
// viper's environment-binding path is exercised here; there's no file
// search to wire up.
package config

import (
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config holds the knobs that control how objects are loaded.
type Config struct {
	// SectionPaddingBytes is the per-section padding the sizing pass
	// adds to the arena size estimate for each allocatable section;
	// placement itself only aligns each section to 16 bytes.
	// Default matches spec.md §4.3's fixed 16-byte padding; exposed so
	// tests can shrink arenas without changing the algorithm.
	SectionPaddingBytes int `mapstructure:"section_padding_bytes" default:"16"`

	// DiagLogPath, if non-empty, is an absolute path the diagnostic
	// logger appends JSON log lines to for the lifetime of the
	// process (spec.md §6's "optional diagnostic log file").
	DiagLogPath string `mapstructure:"diag_log_path" default:""`

	// DiagLevel is the slog level name ("debug", "info", "warn",
	// "error") for the diagnostic logger.
	DiagLevel string `mapstructure:"diag_level" default:"info"`
}

// Load reads OBJFCN_*-prefixed environment variables into a Config,
// applying struct-tag defaults for anything unset.
func Load() (*Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("OBJFCN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("section_padding_bytes", cfg.SectionPaddingBytes)
	v.SetDefault("diag_log_path", cfg.DiagLogPath)
	v.SetDefault("diag_level", cfg.DiagLevel)
	for key := range v.AllSettings() {
		_ = v.BindEnv(key)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(v.AllSettings()); err != nil {
		return nil, err
	}

	if cfg.SectionPaddingBytes <= 0 {
		cfg.SectionPaddingBytes = 16
	}
	return &cfg, nil
}
