// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/callboard-foundation/callboard/lib/config"
	"github.com/callboard-foundation/callboard/mirror"
)

// MirrorConfig holds the shared flags for reading the daemon's mirror
// database. Used by the offline commands (status, queues, agents), which
// answer from the mirror and work while the PBX is unreachable.
type MirrorConfig struct {
	ConfigFile string
	Database   string
}

// AddFlags registers --config and --database on the given flag set.
func (c *MirrorConfig) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.ConfigFile, "config", "", "path to callboard config file (falls back to $CALLBOARD_CONFIG)")
	flagSet.StringVar(&c.Database, "database", "", "mirror database path (overrides config file)")
}

// Open opens the mirror database read-only. The daemon must have run at
// least once against the same path; opening a database that was never
// written fails rather than creating an empty schema.
func (c *MirrorConfig) Open(logger *slog.Logger) (*mirror.Store, error) {
	path := c.Database

	if path == "" {
		switch {
		case c.ConfigFile != "":
			cfg, err := config.LoadFile(c.ConfigFile)
			if err != nil {
				return nil, err
			}
			path = cfg.Mirror.Database
		case os.Getenv("CALLBOARD_CONFIG") != "":
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			path = cfg.Mirror.Database
		default:
			path = config.Default().Mirror.Database
		}
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("mirror database %s not found (is the daemon running?): %w", path, err)
	}

	return mirror.Open(mirror.Config{
		Path:     path,
		ReadOnly: true,
		Logger:   logger,
	})
}
