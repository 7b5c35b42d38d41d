package config

import (
	"fmt"

	"github.com/justapithecus/prospect/types"
)

// Config represents a prospect.yaml configuration file.
// All values are optional and act as defaults for the dashboard.
// CLI flags always override config values.
type Config struct {
	// GDBPath overrides the debugger executable on PATH.
	GDBPath string `yaml:"gdb_path"`
	// Remote is a host:port MI endpoint; when set, no local gdb is
	// spawned.
	Remote string `yaml:"remote"`
	// PtrSize forces the pointer width: "32", "64", or "auto".
	PtrSize string `yaml:"ptr_size"`
	// Cmds is a command script replayed at startup.
	Cmds string `yaml:"cmds"`
	// LogPath enables structured logging to the named file.
	LogPath string `yaml:"log_path"`
}

// Validate checks fields with a closed value domain.
func (c *Config) Validate() error {
	if c.PtrSize != "" {
		if _, err := types.ParsePtrSize(c.PtrSize); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}
