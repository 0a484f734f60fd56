// Package config loads the optional YAML tuning file EmberVM reads at
// startup. The teacher has no configuration file of its own (every
// tunable is a hard-coded constant); this package gives those same
// tunables names and a yaml.v3-backed override path, wired to
// cmd/embervm's --config flag.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the tunable surface of a VM run. Zero-value fields are
// filled from Default() before use, so a partially-specified YAML
// file (or no file at all) is always valid.
type Config struct {
	// GCThreshold is the count of allocations since the last collection
	// the allocator's self-triggering GC compares against before starting a collection
	// (spec.md §9 "GC... triggered by the allocator itself"); mirrors
	// heap.Allocator.GCThreshold.
	GCThreshold int `yaml:"gc_threshold"`

	// FiberStackDepth bounds how many frames a single fiber's
	// CallStack may hold before SystemStackError (spec.md §4.7/§5).
	FiberStackDepth int `yaml:"fiber_stack_depth"`

	// MaxCallDepth bounds the main fiber's own CallStack the same way.
	MaxCallDepth int `yaml:"max_call_depth"`

	// LogLevel selects elog's minimum severity: "debug", "info",
	// "warn", or "error".
	LogLevel string `yaml:"log_level"`
}

// Default returns the tunables matching the teacher's hard-coded
// constants, scaled to this VM's own defaults where no teacher analog
// exists.
func Default() Config {
	return Config{
		GCThreshold:     4096,
		FiberStackDepth: 4096,
		MaxCallDepth:    8192,
		LogLevel:        "info",
	}
}

// Load reads path as YAML and overlays it onto Default(); a missing
// path is not an error (embervm.yaml is optional), but a malformed one
// is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}
