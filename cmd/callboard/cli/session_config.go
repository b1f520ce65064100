// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/callboard-foundation/callboard/ami"
	"github.com/callboard-foundation/callboard/lib/config"
)

// SessionConfig holds the shared flags for connecting to the PBX manager
// port. Used by CLI commands that talk to the live manager (calls, pause,
// originate, hangup, ping).
//
// The primary interface is --config, pointing at the same YAML file the
// daemon reads (the CALLBOARD_CONFIG environment variable works too).
// Individual flags override the file for one-off use against a different
// box:
//
//	var session cli.SessionConfig
//	command := &cli.Command{
//	    Flags: func() *pflag.FlagSet {
//	        fs := pflag.NewFlagSet("ping", pflag.ContinueOnError)
//	        session.AddFlags(fs)
//	        return fs
//	    },
//	    Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
//	        sess, err := session.Connect(ctx, logger)
//	        ...
//	    },
//	}
type SessionConfig struct {
	ConfigFile string
	Host       string
	Port       int
	Username   string
	SecretFile string
}

// AddFlags registers --config, --host, --port, --username, and
// --secret-file on the given flag set. --config is the primary
// interface; the others are overrides for when you need to specify
// values directly.
func (c *SessionConfig) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.ConfigFile, "config", "", "path to callboard config file (falls back to $CALLBOARD_CONFIG)")
	flagSet.StringVar(&c.Host, "host", "", "manager host (overrides config file)")
	flagSet.IntVar(&c.Port, "port", 0, "manager port (overrides config file)")
	flagSet.StringVar(&c.Username, "username", "", "manager username (overrides config file)")
	flagSet.StringVar(&c.SecretFile, "secret-file", "", "manager secret file, decrypted when the config sets identity_file (overrides config file)")
}

// Connect dials and authenticates a manager session from the configured
// flags. Values resolve in order: explicit flag, config file, built-in
// default. The caller owns the returned session and must Close it.
func (c *SessionConfig) Connect(ctx context.Context, logger *slog.Logger) (*ami.Session, error) {
	manager, err := c.resolve()
	if err != nil {
		return nil, err
	}

	secret, err := manager.ResolveSecret()
	if err != nil {
		return nil, err
	}

	return ami.Connect(ctx, ami.Config{
		Address:       manager.Address(),
		Username:      manager.Username,
		Secret:        secret,
		DialTimeout:   manager.DialTimeoutDuration(),
		ActionTimeout: manager.ActionTimeoutDuration(),
		Logger:        logger,
	})
}

// resolve merges the config file (when given or discoverable from the
// environment) with the explicit flag overrides.
func (c *SessionConfig) resolve() (config.ManagerConfig, error) {
	manager := config.Default().Manager

	switch {
	case c.ConfigFile != "":
		cfg, err := config.LoadFile(c.ConfigFile)
		if err != nil {
			return manager, err
		}
		manager = cfg.Manager
	case os.Getenv("CALLBOARD_CONFIG") != "":
		cfg, err := config.Load()
		if err != nil {
			return manager, err
		}
		manager = cfg.Manager
	}

	if c.Host != "" {
		manager.Host = c.Host
	}
	if c.Port != 0 {
		manager.Port = c.Port
	}
	if c.Username != "" {
		manager.Username = c.Username
	}
	if c.SecretFile != "" {
		manager.SecretFile = c.SecretFile
		manager.Secret = ""
	}

	if manager.Host == "" {
		return manager, fmt.Errorf("--host is required (or use --config)")
	}
	if manager.Username == "" {
		return manager, fmt.Errorf("--username is required (or use --config)")
	}
	if manager.Secret == "" && manager.SecretFile == "" {
		return manager, fmt.Errorf("--secret-file is required (or use --config)")
	}
	return manager, nil
}
