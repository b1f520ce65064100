// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for callboard components.
//
// Configuration is loaded from a single YAML file specified by:
//   - CALLBOARD_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/callboard-foundation/callboard/lib/sealed"
)

// Config is the master configuration for callboard.
type Config struct {
	// Manager configures the PBX manager connection.
	Manager ManagerConfig `yaml:"manager"`

	// Mirror configures the local queue mirror database.
	Mirror MirrorConfig `yaml:"mirror"`

	// Journal configures the raw event journal. Optional.
	Journal JournalConfig `yaml:"journal"`

	// Sync configures the realtime sync worker.
	Sync SyncConfig `yaml:"sync"`

	// Mappings configures operator-curated agent display names.
	Mappings MappingsConfig `yaml:"mappings"`

	// Daemon configures callboard-daemon process behavior.
	Daemon DaemonConfig `yaml:"daemon"`
}

// ManagerConfig holds the manager-port connection settings. These four
// values (host, port, username, secret) are all the protocol core
// needs to construct a session.
type ManagerConfig struct {
	// Host is the PBX hostname or address.
	Host string `yaml:"host"`

	// Port is the manager port. Default: 5038.
	Port int `yaml:"port"`

	// Username is the manager account name.
	Username string `yaml:"username"`

	// Secret is the manager account secret, inline. Prefer SecretFile
	// for production deployments.
	Secret string `yaml:"secret"`

	// SecretFile is a file holding the secret. With IdentityFile set,
	// the file is age ciphertext; otherwise plaintext. Mutually
	// exclusive with Secret.
	SecretFile string `yaml:"secret_file"`

	// IdentityFile is the age identity file used to decrypt SecretFile.
	IdentityFile string `yaml:"identity_file"`

	// DialTimeout bounds the TCP connect plus login exchange.
	// Default: 10s.
	DialTimeout string `yaml:"dial_timeout"`

	// ActionTimeout is the default overall deadline for one action's
	// response accumulation. Default: 10s.
	ActionTimeout string `yaml:"action_timeout"`
}

// MirrorConfig holds the mirror database settings.
type MirrorConfig struct {
	// Database is the SQLite file path.
	Database string `yaml:"database"`
}

// JournalConfig holds the event journal settings.
type JournalConfig struct {
	// Directory holds journal segments. Empty disables the journal.
	Directory string `yaml:"directory"`

	// Compression is the segment compression: none, lz4, or zstd.
	// Default: zstd.
	Compression string `yaml:"compression"`

	// MaxSegmentBytes rotates the active segment once it exceeds this
	// size. Default: 8 MiB.
	MaxSegmentBytes int64 `yaml:"max_segment_bytes"`
}

// SyncConfig holds the sync worker settings.
type SyncConfig struct {
	// RetryDelay is the fixed pause before reconnecting after any
	// failure. Default: 5s.
	RetryDelay string `yaml:"retry_delay"`

	// ResyncInterval is how often a full resynchronization runs while
	// the session is live. Default: 15m.
	ResyncInterval string `yaml:"resync_interval"`
}

// MappingsConfig points at the operator mapping file.
type MappingsConfig struct {
	// File is a JSONC file of interface → display name seeds. These
	// are manual mappings; automatic reconciliation never overwrites
	// them. Optional.
	File string `yaml:"file"`
}

// DaemonConfig holds callboard-daemon process settings.
type DaemonConfig struct {
	// LockFile is flock'd exclusively at startup so a second daemon
	// cannot write the same mirror. Default: /run/callboard/daemon.lock.
	LockFile string `yaml:"lock_file"`
}

// Default returns the default configuration. Defaults exist to give
// every optional field a sensible value; the config file itself is
// required.
func Default() *Config {
	return &Config{
		Manager: ManagerConfig{
			Port:          5038,
			DialTimeout:   "10s",
			ActionTimeout: "10s",
		},
		Mirror: MirrorConfig{
			Database: "/var/lib/callboard/mirror.db",
		},
		Journal: JournalConfig{
			Compression:     "zstd",
			MaxSegmentBytes: 8 << 20,
		},
		Sync: SyncConfig{
			RetryDelay:     "5s",
			ResyncInterval: "15m",
		},
		Daemon: DaemonConfig{
			LockFile: "/run/callboard/daemon.lock",
		},
	}
}

// Load loads configuration from the CALLBOARD_CONFIG environment
// variable. There are no fallbacks: if CALLBOARD_CONFIG is not set,
// this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("CALLBOARD_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("config: CALLBOARD_CONFIG environment variable not set; " +
			"set it to the path of your callboard.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merging over
// the defaults, and validates the result.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors. All problems are
// reported together, each naming its field.
func (c *Config) Validate() error {
	var errs []error

	if c.Manager.Host == "" {
		errs = append(errs, fmt.Errorf("manager.host is required"))
	}
	if c.Manager.Port < 1 || c.Manager.Port > 65535 {
		errs = append(errs, fmt.Errorf("manager.port must be 1-65535, got %d", c.Manager.Port))
	}
	if c.Manager.Username == "" {
		errs = append(errs, fmt.Errorf("manager.username is required"))
	}
	if c.Manager.Secret == "" && c.Manager.SecretFile == "" {
		errs = append(errs, fmt.Errorf("one of manager.secret or manager.secret_file is required"))
	}
	if c.Manager.Secret != "" && c.Manager.SecretFile != "" {
		errs = append(errs, fmt.Errorf("manager.secret and manager.secret_file are mutually exclusive"))
	}
	if c.Manager.IdentityFile != "" && c.Manager.SecretFile == "" {
		errs = append(errs, fmt.Errorf("manager.identity_file requires manager.secret_file"))
	}

	for _, d := range []struct {
		field string
		value string
	}{
		{"manager.dial_timeout", c.Manager.DialTimeout},
		{"manager.action_timeout", c.Manager.ActionTimeout},
		{"sync.retry_delay", c.Sync.RetryDelay},
		{"sync.resync_interval", c.Sync.ResyncInterval},
	} {
		if _, err := time.ParseDuration(d.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.field, err))
		}
	}

	if c.Mirror.Database == "" {
		errs = append(errs, fmt.Errorf("mirror.database is required"))
	}

	if c.Journal.Directory != "" {
		switch c.Journal.Compression {
		case "none", "lz4", "zstd":
		default:
			errs = append(errs, fmt.Errorf("journal.compression must be none, lz4, or zstd, got %q", c.Journal.Compression))
		}
		if c.Journal.MaxSegmentBytes <= 0 {
			errs = append(errs, fmt.Errorf("journal.max_segment_bytes must be positive, got %d", c.Journal.MaxSegmentBytes))
		}
	}

	if c.Daemon.LockFile == "" {
		errs = append(errs, fmt.Errorf("daemon.lock_file is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Address returns the manager host:port dial address.
func (m ManagerConfig) Address() string {
	return net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
}

// ResolveSecret returns the manager secret, reading and (when an
// identity file is configured) unsealing the secret file if one is
// used instead of an inline secret.
func (m ManagerConfig) ResolveSecret() (string, error) {
	if m.Secret != "" {
		return m.Secret, nil
	}
	return sealed.ReadSecret(m.SecretFile, m.IdentityFile)
}

// DialTimeoutDuration returns the parsed dial timeout. Validate
// guarantees the field parses; a zero value falls back to 10s.
func (m ManagerConfig) DialTimeoutDuration() time.Duration {
	return parseDuration(m.DialTimeout, 10*time.Second)
}

// ActionTimeoutDuration returns the parsed action timeout.
func (m ManagerConfig) ActionTimeoutDuration() time.Duration {
	return parseDuration(m.ActionTimeout, 10*time.Second)
}

// RetryDelayDuration returns the parsed reconnect delay.
func (s SyncConfig) RetryDelayDuration() time.Duration {
	return parseDuration(s.RetryDelay, 5*time.Second)
}

// ResyncIntervalDuration returns the parsed full-resync interval.
func (s SyncConfig) ResyncIntervalDuration() time.Duration {
	return parseDuration(s.ResyncInterval, 15*time.Minute)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
