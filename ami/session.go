// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package ami

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/callboard-foundation/callboard/lib/clock"
)

const (
	defaultDialTimeout   = 10 * time.Second
	defaultActionTimeout = 10 * time.Second
	defaultWaitSlice     = 500 * time.Millisecond

	// pendingBuffer sizes each pending action's reply channel. The reader
	// must never block on a slow Send caller; a full channel drops the
	// record and logs. QueueStatus on large deployments produces a few
	// hundred records, so the buffer is generous.
	pendingBuffer = 256
)

// ErrClosed is returned by Send when the session is not connected and
// authenticated, either because Close was called or because the reader
// observed a transport failure.
var ErrClosed = errors.New("ami: session closed")

// Config carries the parameters for Connect.
type Config struct {
	// Address is the manager host:port.
	Address string

	// Username and Secret authenticate the Login action.
	Username string
	Secret   string

	// DialTimeout bounds the TCP connect and the login exchange.
	// Defaults to 10 seconds.
	DialTimeout time.Duration

	// ActionTimeout bounds how long Send accumulates reply records when
	// the caller's context has no deadline. Defaults to 10 seconds.
	ActionTimeout time.Duration

	// WaitSlice is the reader's poll interval for connection liveness
	// and Send's wait granularity. Defaults to 500 milliseconds.
	WaitSlice time.Duration

	// Logger receives connection lifecycle and routing diagnostics.
	// Nil discards.
	Logger *slog.Logger

	// Clock drives Send deadlines and waits. Nil uses the real clock.
	// Socket deadlines always use real time.
	Clock clock.Clock
}

func (cfg Config) withDefaults() Config {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = defaultActionTimeout
	}
	if cfg.WaitSlice <= 0 {
		cfg.WaitSlice = defaultWaitSlice
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	return cfg
}

// Validate reports what the config is missing. Connect validates
// implicitly; callers that retry connections should validate up front
// so a permanently broken config is not retried forever.
func (cfg Config) Validate() error {
	var errs []error
	if cfg.Address == "" {
		errs = append(errs, errors.New("address is required"))
	}
	if cfg.Username == "" {
		errs = append(errs, errors.New("username is required"))
	}
	if cfg.Secret == "" {
		errs = append(errs, errors.New("secret is required"))
	}
	return errors.Join(errs...)
}

// Session is an authenticated manager connection. One reader goroutine owns
// the socket's receive side; any number of goroutines may call Send and
// OnEvent concurrently. Sessions do not reconnect; when the transport
// fails, the session goes stale and the owner dials a fresh one.
type Session struct {
	cfg    Config
	logger *slog.Logger
	clk    clock.Clock
	conn   net.Conn

	// writeMu serializes action writes so interleaved Sends cannot
	// corrupt the outbound stream.
	writeMu sync.Mutex

	counter atomic.Uint64
	closing atomic.Bool

	mu            sync.Mutex
	pending       map[string]chan Record
	callbacks     []func(Event)
	connected     bool
	authenticated bool
	running       bool

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// Connect dials the manager, authenticates, and starts the reader. The
// context bounds the dial; the login exchange is bounded by DialTimeout.
func Connect(ctx context.Context, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("ami: config: %w", err)
	}
	dialer := &net.Dialer{Timeout: cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("ami: dial %s: %w", cfg.Address, err)
	}
	s := &Session{
		cfg:     cfg,
		logger:  cfg.Logger,
		clk:     cfg.Clock,
		conn:    conn,
		pending: make(map[string]chan Record),
		done:    make(chan struct{}),
	}
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	if err := s.login(); err != nil {
		conn.Close()
		return nil, err
	}
	s.mu.Lock()
	s.authenticated = true
	s.running = true
	s.mu.Unlock()
	go s.listen()
	s.logger.Info("manager session established", "address", cfg.Address, "username", cfg.Username)
	return s, nil
}

// login performs the Login exchange before the reader starts. The server's
// banner line precedes the first block; it has no colon, so the parser
// drops it without special handling.
func (s *Session) login() error {
	payload := encodeAction("Login", s.nextActionID(), map[string]string{
		"Username": s.cfg.Username,
		"Secret":   s.cfg.Secret,
	})
	deadline := time.Now().Add(s.cfg.DialTimeout)
	if err := s.conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("ami: login: %w", err)
	}
	if _, err := s.conn.Write(payload); err != nil {
		return fmt.Errorf("ami: login write: %w", err)
	}
	var f framer
	buf := make([]byte, 4096)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			f.append(buf[:n])
			for {
				rec, ok := f.next()
				if !ok {
					break
				}
				if !rec.Has("Response") {
					continue
				}
				if !rec.Success() {
					return fmt.Errorf("ami: authentication failed: %s", rec.Message())
				}
				// Clear the login deadline before the reader
				// takes over polling.
				return s.conn.SetDeadline(time.Time{})
			}
		}
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return errors.New("ami: login: no response before deadline")
			}
			return fmt.Errorf("ami: login read: %w", err)
		}
	}
}

// Close sends a best-effort Logoff, marks the session stale, and closes the
// socket, which unblocks the reader. Safe to call more than once and safe
// to call from an event callback.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		s.markStale()
		s.writeMu.Lock()
		s.conn.SetWriteDeadline(time.Now().Add(time.Second))
		s.conn.Write(encodeAction("Logoff", "", nil))
		s.writeMu.Unlock()
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

func (s *Session) markStale() {
	s.mu.Lock()
	s.connected = false
	s.authenticated = false
	s.running = false
	s.mu.Unlock()
}

// Connected reports whether the TCP connection was established and has not
// been observed to fail.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Authenticated reports whether the Login exchange succeeded and the
// session has not gone stale.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// Running reports whether the reader goroutine is live.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Done returns a channel closed when the reader exits, whether by Close or
// by transport failure.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// nextActionID returns a fresh action identifier: a process-local counter
// plus a millisecond timestamp, unique within any plausible overlap window.
func (s *Session) nextActionID() string {
	return fmt.Sprintf("cb_%d_%d", s.counter.Add(1), s.clk.Now().UnixMilli())
}
