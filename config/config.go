// Package config loads persisted CLI defaults for a2lsync from a YAML file,
// grounded on bobbydeveaux-starbucks-mugs/internal/config/config.go's
// load-apply-defaults-validate shape (SPEC_FULL.md §2 "config").
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the subset of spec.md §6's CLI flags worth persisting as
// project-level defaults, so repeated invocations against the same A2L file
// don't need to repeat them on the command line.
type Config struct {
	// TargetGroup is the default GROUP new MEASUREMENT/CHARACTERISTIC
	// entries are filed under (§6 "--target-group").
	TargetGroup string `yaml:"target_group"`

	// UpdatePreserve lists entity-name patterns. It is loaded but not read
	// by cmd/a2lsync or the updater, which never skip an entity by name.
	UpdatePreserve []string `yaml:"update_preserve"`

	// Strict is used as the -s/--strict value when that flag is not given
	// on the command line (§6 "-s").
	Strict bool `yaml:"strict"`

	// Sort records a preference for canonical sorted output (§6 "--sort").
	// It is loaded but not read by cmd/a2lsync; only the --sort flag sorts.
	Sort bool `yaml:"sort"`

	// LogLevel is "quiet", "normal", or "verbose" and is validated by Load.
	// cmd/a2lsync does not read it; verbosity comes from -v/-vv alone.
	LogLevel string `yaml:"log_level"`
}

var validLogLevels = map[string]bool{
	"quiet": true, "normal": true, "verbose": true,
}

// Load reads the YAML file at path, applies defaults, and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: cannot parse %q: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed for %q: %w", path, err)
	}

	return &cfg, nil
}

// Default returns a Config with every default applied, used when no
// -config flag is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "normal"
	}
	if cfg.TargetGroup == "" {
		cfg.TargetGroup = "Default"
	}
}

func validate(cfg *Config) error {
	var errs []error
	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level %q must be one of: quiet, normal, verbose", cfg.LogLevel))
	}
	if cfg.TargetGroup == "" {
		errs = append(errs, errors.New("target_group must not be empty"))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
