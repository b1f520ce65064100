// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

// Callboard-daemon is the long-running mirror process. It keeps one
// authenticated session to the PBX manager port, replays queue and
// member state into a local SQLite mirror, reconciles agent display
// names from endpoint caller ids, and optionally journals every
// manager event to disk. The CLI and wallboard read the mirror; they
// never need manager credentials of their own.
//
// On startup:
//  1. Takes an exclusive lock so a second daemon fails fast.
//  2. Opens the mirror database, creating the schema when missing.
//  3. Seeds manual display-name mappings from the mappings file.
//  4. Opens the event journal when a journal directory is configured.
//  5. Runs the sync worker until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/callboard-foundation/callboard/ami"
	"github.com/callboard-foundation/callboard/journal"
	"github.com/callboard-foundation/callboard/lib/config"
	"github.com/callboard-foundation/callboard/lib/process"
	"github.com/callboard-foundation/callboard/lib/version"
	"github.com/callboard-foundation/callboard/mirror"
	"github.com/callboard-foundation/callboard/realtime"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		logLevel    string
		showVersion bool
	)

	pflag.StringVar(&configPath, "config", "", "config file path (falls back to $CALLBOARD_CONFIG)")
	pflag.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pflag.BoolVar(&showVersion, "version", false, "print version information and exit")
	pflag.Parse()

	if showVersion {
		fmt.Printf("callboard-daemon %s\n", version.Info())
		return nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	logger := newLogger(level)
	slog.SetDefault(logger)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runDaemon(ctx, cfg, logger)
}

// newLogger builds the daemon logger: human-readable text on a
// terminal, JSON lines when stderr goes to a file or the journal.
func newLogger(level slog.Level) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, options))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, options))
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func runDaemon(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	lock, err := process.Acquire(cfg.Daemon.LockFile)
	if err != nil {
		return err
	}
	defer lock.Release()

	store, err := mirror.Open(mirror.Config{
		Path:   cfg.Mirror.Database,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Mappings.File != "" {
		mappings, err := config.LoadMappings(cfg.Mappings.File)
		if err != nil {
			return err
		}
		if err := store.SeedMappings(ctx, mappings); err != nil {
			return err
		}
		logger.Info("seeded manual mappings", "file", cfg.Mappings.File, "count", len(mappings))
	}

	var eventHook func(ami.Event) error
	if cfg.Journal.Directory != "" {
		compression, err := journal.ParseCompression(cfg.Journal.Compression)
		if err != nil {
			return err
		}
		eventJournal, err := journal.Open(cfg.Journal.Directory, journal.Options{
			Compression:     compression,
			MaxSegmentBytes: cfg.Journal.MaxSegmentBytes,
			Logger:          logger,
		})
		if err != nil {
			return err
		}
		defer eventJournal.Close()
		eventHook = journalHook(eventJournal)
		logger.Info("event journal open", "directory", cfg.Journal.Directory, "compression", compression.String())
	}

	manager, err := managerConfig(cfg.Manager, logger)
	if err != nil {
		return err
	}

	worker, err := realtime.New(realtime.Config{
		Manager:        manager,
		Store:          store,
		RetryDelay:     cfg.Sync.RetryDelayDuration(),
		ResyncInterval: cfg.Sync.ResyncIntervalDuration(),
		OnEvent:        eventHook,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	logger.Info("callboard daemon starting",
		"version", version.Info(),
		"manager", cfg.Manager.Address(),
		"mirror", cfg.Mirror.Database,
	)

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("callboard daemon stopped")
	return nil
}

// managerConfig assembles the session config for the sync worker from
// the validated file config.
func managerConfig(manager config.ManagerConfig, logger *slog.Logger) (ami.Config, error) {
	secret, err := manager.ResolveSecret()
	if err != nil {
		return ami.Config{}, err
	}
	return ami.Config{
		Address:       manager.Address(),
		Username:      manager.Username,
		Secret:        secret,
		DialTimeout:   manager.DialTimeoutDuration(),
		ActionTimeout: manager.ActionTimeoutDuration(),
		Logger:        logger,
	}, nil
}

// journalHook adapts the journal to the worker's event hook. The
// envelope timestamp is left zero so Append stamps arrival time.
func journalHook(eventJournal *journal.Journal) func(ami.Event) error {
	return func(event ami.Event) error {
		return eventJournal.Append(journal.Envelope{
			Name:   event.Name,
			Fields: event.Record.Fields(),
		})
	}
}
