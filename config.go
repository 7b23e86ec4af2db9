// config.go - Supervisor-to-CPU options (§6), loaded from an optional TOML
// file (there are no command-line overrides), the way
// lookbusy1344-arm_emulator/config/config.go loads its emulator config.

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// SupervisorConfig mirrors the §6 options table.
type SupervisorConfig struct {
	JIT struct {
		EnableCache bool   `toml:"enable_cache"`
		Limit2G     bool   `toml:"limit_2g"`
		NoFPU       bool   `toml:"nofpu"`
		Debug       bool   `toml:"debug"`
		Disassemble bool   `toml:"disassemble"`
		AsyncLog    bool   `toml:"async_log"`
		ArenaBytes  uint64 `toml:"arena_bytes"`
	} `toml:"jit"`

	// field promotion for ergonomic access from the rest of the core.
	EnableCache bool `toml:"-"`
	Limit2G     bool `toml:"-"`
	NoFPU       bool `toml:"-"`
	Debug       bool `toml:"-"`
	Disassemble bool `toml:"-"`
	AsyncLog    bool `toml:"-"`
	ArenaBytes  uint64 `toml:"-"`
}

// DefaultSupervisorConfig returns the configuration used when no file is
// supplied: caching on, no memory limit, FPU opcodes emitted, no logging.
func DefaultSupervisorConfig() *SupervisorConfig {
	cfg := &SupervisorConfig{}
	cfg.EnableCache = true
	cfg.ArenaBytes = 16 * 1024 * 1024
	return cfg
}

// LoadSupervisorConfig reads a TOML config file and folds its [jit] table
// into the flat fields the rest of the core reads. A missing path is not an
// error: defaults apply.
func LoadSupervisorConfig(path string) (*SupervisorConfig, error) {
	cfg := DefaultSupervisorConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}

	cfg.EnableCache = cfg.JIT.EnableCache || cfg.EnableCache
	cfg.Limit2G = cfg.JIT.Limit2G
	cfg.NoFPU = cfg.JIT.NoFPU
	cfg.Debug = cfg.JIT.Debug
	cfg.Disassemble = cfg.JIT.Disassemble
	cfg.AsyncLog = cfg.JIT.AsyncLog
	if cfg.JIT.ArenaBytes != 0 {
		cfg.ArenaBytes = cfg.JIT.ArenaBytes
	}
	if cfg.Limit2G && cfg.ArenaBytes > 2*1024*1024*1024 {
		cfg.ArenaBytes = 2 * 1024 * 1024 * 1024
	}
	return cfg, nil
}
