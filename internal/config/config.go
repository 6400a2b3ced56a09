// Package config loads onto's settings from .onto.yaml, ONTO_* environment
// variables and flags, and validates them.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ConsolidateConfig holds the default recency policy for log consolidation.
type ConsolidateConfig struct {
	Keep       int `mapstructure:"keep" validate:"gte=0"`
	MaxAgeDays int `mapstructure:"max_age_days" validate:"gte=0"`
}

// Config holds all runtime configuration for an onto invocation.
// Values are populated from .onto.yaml, ONTO_* env vars, and CLI flags.
type Config struct {
	Roots        []string          `mapstructure:"roots" validate:"min=1,dive,required"`
	SkipPatterns []string          `mapstructure:"skip_patterns" validate:"dive,required"`
	MaxDepth     int               `mapstructure:"max_depth" validate:"gte=1"`
	LedgerPath   string            `mapstructure:"ledger_path" validate:"required"`
	ArchiveDir   string            `mapstructure:"archive_dir" validate:"required"`
	TaxonomyFile string            `mapstructure:"taxonomy_file"`
	AuditLog     string            `mapstructure:"audit_log"`
	LogLevel     string            `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Verbose      bool              `mapstructure:"verbose"`
	Consolidate  ConsolidateConfig `mapstructure:"consolidate"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags, and validates the
// result.
func Load() (Config, error) {
	viper.SetDefault("roots", []string{"docs"})
	viper.SetDefault("skip_patterns", []string{"**/_template*", "**/archive/**", "**/node_modules/**"})
	viper.SetDefault("max_depth", 5)
	viper.SetDefault("ledger_path", "docs/strategy/decision_history.md")
	viper.SetDefault("archive_dir", "docs/archive/logs")
	viper.SetDefault("taxonomy_file", "")
	viper.SetDefault("audit_log", "")
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("verbose", false)
	viper.SetDefault("consolidate.keep", 15)
	viper.SetDefault("consolidate.max_age_days", 30)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
