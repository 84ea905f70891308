// Package config loads the runtime tunables of the Candor heap,
// collector, and register allocator from a candor.toml file, the way
// internal/project parses surge.toml project manifests in the teacher
// repo: a thin BurntSushi/toml decode with hardcoded defaults filled
// in for anything the file omits.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds every tunable named across spec.md: heap page size and
// per-space limits (§4.1), the cons-string and old-space-promotion
// thresholds (§3, §4.3), the register allocator's physical register
// count (§4.5), and the default trace verbosity (ambient).
type Config struct {
	Heap     HeapConfig     `toml:"heap"`
	GC       GCConfig       `toml:"gc"`
	Strings  StringConfig   `toml:"strings"`
	RegAlloc RegAllocConfig `toml:"regalloc"`
	Trace    TraceConfig    `toml:"trace"`
}

type HeapConfig struct {
	PageSize      uint32 `toml:"page_size"`
	NewSpaceLimit uint64 `toml:"new_space_limit"`
	OldSpaceLimit uint64 `toml:"old_space_limit"`
}

type GCConfig struct {
	MinOldSpaceGeneration uint8 `toml:"min_old_space_generation"`
}

type StringConfig struct {
	MinConsLength int `toml:"min_cons_length"`
}

type RegAllocConfig struct {
	RegisterCount int `toml:"register_count"`
}

type TraceConfig struct {
	Level string `toml:"level"`
}

// Default mirrors the constants named throughout spec.md: page size
// 1MiB, a 1MiB initial new-space limit quadrupled for old space (see
// internal/heap.New), kMinOldSpaceGeneration=5, kMinConsLength=13, and
// a conservative 8 general-purpose registers for linear scan.
func Default() Config {
	return Config{
		Heap: HeapConfig{
			PageSize:      1 << 20,
			NewSpaceLimit: 1 << 20,
			OldSpaceLimit: 4 << 20,
		},
		GC: GCConfig{
			MinOldSpaceGeneration: 5,
		},
		Strings: StringConfig{
			MinConsLength: 13,
		},
		RegAlloc: RegAllocConfig{
			RegisterCount: 8,
		},
		Trace: TraceConfig{
			Level: "off",
		},
	}
}

// Load reads path, merging decoded fields on top of Default(). A
// missing file is not an error: Load returns Default() unchanged so
// `candor run` works without a config file present.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	applyZeroDefaults(&cfg)
	return cfg, nil
}

// applyZeroDefaults fills in any field a partial candor.toml left at
// its Go zero value with the corresponding Default() value, so a file
// that only overrides e.g. [trace].level doesn't zero out the heap
// page size.
func applyZeroDefaults(cfg *Config) {
	d := Default()
	if cfg.Heap.PageSize == 0 {
		cfg.Heap.PageSize = d.Heap.PageSize
	}
	if cfg.Heap.NewSpaceLimit == 0 {
		cfg.Heap.NewSpaceLimit = d.Heap.NewSpaceLimit
	}
	if cfg.Heap.OldSpaceLimit == 0 {
		cfg.Heap.OldSpaceLimit = d.Heap.OldSpaceLimit
	}
	if cfg.GC.MinOldSpaceGeneration == 0 {
		cfg.GC.MinOldSpaceGeneration = d.GC.MinOldSpaceGeneration
	}
	if cfg.Strings.MinConsLength == 0 {
		cfg.Strings.MinConsLength = d.Strings.MinConsLength
	}
	if cfg.RegAlloc.RegisterCount == 0 {
		cfg.RegAlloc.RegisterCount = d.RegAlloc.RegisterCount
	}
	if cfg.Trace.Level == "" {
		cfg.Trace.Level = d.Trace.Level
	}
}
