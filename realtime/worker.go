// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package realtime keeps the mirror database synchronized with the
// manager. One worker owns the manager session for the process: it
// dials, performs a full queue sync, applies incremental queue events
// as they arrive, reconciles agent display-name mappings from endpoint
// caller ids, and redials after a fixed delay whenever the connection
// drops. The mirror is only ever upserted by syncs; rows disappear
// solely through explicit member-removed events.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/callboard-foundation/callboard/ami"
	"github.com/callboard-foundation/callboard/lib/clock"
	"github.com/callboard-foundation/callboard/mirror"
)

const (
	defaultRetryDelay     = 5 * time.Second
	defaultResyncInterval = 15 * time.Minute

	// watchInterval bounds each wait of the live watch loop so resync
	// deadlines and shutdown are honored promptly.
	watchInterval = time.Second
)

// ErrAlreadyStarted is returned by Run when the worker is already
// running. Exactly one run loop may exist; a second would double-apply
// events.
var ErrAlreadyStarted = errors.New("realtime: worker already started")

// State is the worker's connection phase, observable while it runs.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateSyncing
	StateLive
)

// String returns the state name for logs and status output.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSyncing:
		return "syncing"
	case StateLive:
		return "live"
	default:
		return "disconnected"
	}
}

// Config carries the parameters for New.
type Config struct {
	// Manager is the session configuration the worker dials with.
	Manager ami.Config

	// Store is the mirror the worker writes. Required.
	Store *mirror.Store

	// RetryDelay is the fixed pause between reconnection attempts.
	// Defaults to 5 seconds.
	RetryDelay time.Duration

	// ResyncInterval is how often a full sync repeats while live.
	// Defaults to 15 minutes.
	ResyncInterval time.Duration

	// OnEvent, when set, receives every manager event before it is
	// applied to the mirror. Errors are logged, never fatal.
	OnEvent func(ami.Event) error

	// Logger receives worker lifecycle messages. Nil discards.
	Logger *slog.Logger

	// Clock drives retry and resync waits. Nil uses the real clock.
	Clock clock.Clock
}

// Worker mirrors manager queue state into the store. Construct with
// New, start with Run.
type Worker struct {
	cfg    Config
	logger *slog.Logger
	clk    clock.Clock

	started atomic.Bool
	state   atomic.Int32
}

// New validates the configuration and returns an unstarted worker.
func New(cfg Config) (*Worker, error) {
	if cfg.Store == nil {
		return nil, errors.New("realtime: store is required")
	}
	if err := cfg.Manager.Validate(); err != nil {
		return nil, fmt.Errorf("realtime: manager config: %w", err)
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.ResyncInterval <= 0 {
		cfg.ResyncInterval = defaultResyncInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	return &Worker{cfg: cfg, logger: cfg.Logger, clk: cfg.Clock}, nil
}

// State returns the worker's current connection phase.
func (w *Worker) State() State {
	return State(w.state.Load())
}

func (w *Worker) setState(s State) {
	w.state.Store(int32(s))
	w.logger.Debug("sync worker state", "state", s.String())
}

// Run drives the reconnect loop until ctx is done. Only the first call
// runs; subsequent calls return ErrAlreadyStarted.
func (w *Worker) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer w.setState(StateDisconnected)

	for {
		err := w.runSession(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.setState(StateDisconnected)
		w.logger.Warn("manager session ended, retrying",
			"error", err,
			"retry_delay", w.cfg.RetryDelay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.clk.After(w.cfg.RetryDelay):
		}
	}
}

// runSession owns one manager connection from dial to failure. It
// returns the error that ended the session.
func (w *Worker) runSession(ctx context.Context) error {
	w.setState(StateConnecting)
	session, err := ami.Connect(ctx, w.cfg.Manager)
	if err != nil {
		return err
	}
	defer session.Close()

	// The incremental handler registers before the full sync so no
	// event falls in the gap; replaying an event the sync also saw is
	// harmless because every apply is an upsert.
	session.OnEvent(func(event ami.Event) {
		w.handleEvent(ctx, event)
	})

	if err := w.resync(ctx, session); err != nil {
		return err
	}
	w.setState(StateLive)
	w.logger.Info("manager sync live", "address", w.cfg.Manager.Address)

	nextResync := w.clk.Now().Add(w.cfg.ResyncInterval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-session.Done():
			return errors.New("realtime: manager connection lost")
		case <-w.clk.After(watchInterval):
		}

		if w.clk.Now().Before(nextResync) {
			continue
		}
		if err := w.resync(ctx, session); err != nil {
			return err
		}
		w.setState(StateLive)
		nextResync = w.clk.Now().Add(w.cfg.ResyncInterval)
	}
}

// resync runs one full sync plus mapping reconciliation. A sync failure
// ends the session; a reconciliation failure does not, since the mirror
// is correct and only display names are behind.
func (w *Worker) resync(ctx context.Context, session *ami.Session) error {
	w.setState(StateSyncing)
	if err := w.fullSync(ctx, session); err != nil {
		return err
	}
	if err := w.reconcileMappings(ctx, session); err != nil {
		w.logger.Warn("agent mapping reconciliation failed", "error", err)
	}
	return nil
}

// fullSync upserts every queue and member the manager reports. It never
// deletes: a partial listing must not read as "everything else is
// gone". Stale rows are corrected by member-removed events or linger
// harmlessly.
func (w *Worker) fullSync(ctx context.Context, session *ami.Session) error {
	queues, err := session.QueueStatus(ctx, "")
	if err != nil {
		return fmt.Errorf("realtime: queue status: %w", err)
	}

	members := 0
	for _, q := range queues {
		if q.Name == "" {
			continue
		}
		err := w.cfg.Store.UpsertQueue(ctx, mirror.Queue{
			Name:     q.Name,
			Strategy: q.Strategy,
		})
		if err != nil {
			return fmt.Errorf("realtime: full sync: %w", err)
		}
		for _, m := range q.Members {
			if m.Interface == "" {
				continue
			}
			err := w.cfg.Store.UpsertMember(ctx, mirror.Member{
				Queue:       q.Name,
				Interface:   m.Interface,
				DisplayName: m.Name,
				Penalty:     m.Penalty,
				Paused:      m.Paused,
				Status:      m.Status,
			})
			if err != nil {
				return fmt.Errorf("realtime: full sync: %w", err)
			}
			members++
		}
	}
	w.logger.Info("full queue sync complete", "queues", len(queues), "members", members)
	return nil
}
