// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package mirror persists the queue and member state mirrored from the
// manager, plus agent display-name mappings. The sync worker is the only
// writer; the CLI and wallboard read the same file through read-only
// pools. All writes are single-row upserts or deletes keyed by natural
// keys, so no transaction spans more than one statement.
package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/callboard-foundation/callboard/lib/clock"
	"github.com/callboard-foundation/callboard/lib/sqlitepool"
)

// Mapping sources. Manual rows come from the operator's mappings file and
// are never touched by automatic reconciliation.
const (
	SourceManual = "manual"
	SourceAuto   = "auto"
)

const schema = `
	CREATE TABLE IF NOT EXISTS queues (
		name         TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		strategy     TEXT NOT NULL DEFAULT '',
		updated_at   INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS queue_members (
		queue        TEXT NOT NULL,
		interface    TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		penalty      INTEGER NOT NULL DEFAULT 0,
		paused       INTEGER NOT NULL DEFAULT 0,
		status       INTEGER NOT NULL DEFAULT 0,
		updated_at   INTEGER NOT NULL,
		PRIMARY KEY (queue, interface)
	);
	CREATE INDEX IF NOT EXISTS idx_queue_members_interface
		ON queue_members(interface);

	CREATE TABLE IF NOT EXISTS agent_mappings (
		identifier   TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		source       TEXT NOT NULL DEFAULT 'auto',
		updated_at   INTEGER NOT NULL
	);
`

// Queue is one mirrored queue row.
type Queue struct {
	Name        string
	DisplayName string
	Strategy    string
	UpdatedAt   time.Time
}

// Member is one mirrored queue membership, keyed by queue plus interface.
type Member struct {
	Queue       string
	Interface   string
	DisplayName string
	Penalty     int
	Paused      bool
	Status      int
	UpdatedAt   time.Time
}

// Mapping is one agent display-name row.
type Mapping struct {
	Identifier  string
	DisplayName string
	Source      string
	UpdatedAt   time.Time
}

// Config holds the parameters for opening a mirror store.
type Config struct {
	// Path is the SQLite database file. Required.
	Path string

	// PoolSize is the connection pool size. Zero uses the pool default.
	PoolSize int

	// ReadOnly opens without write access. The schema must already
	// exist, which it does whenever the daemon has run once.
	ReadOnly bool

	// Clock stamps updated_at columns. Nil uses the real clock.
	Clock clock.Clock

	// Logger receives operational messages. Nil discards.
	Logger *slog.Logger
}

// Store is the mirror database handle.
type Store struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// Open opens the mirror database, creating the schema when opened for
// writing.
func Open(cfg Config) (*Store, error) {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		ReadOnly: cfg.ReadOnly,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("mirror: %w", err)
	}
	store := &Store{pool: pool, clock: cfg.Clock, logger: cfg.Logger}
	if !cfg.ReadOnly {
		if err := store.applySchema(); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return store, nil
}

func (s *Store) applySchema() error {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return fmt.Errorf("mirror: schema: %w", err)
	}
	defer s.pool.Put(conn)
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("mirror: applying schema: %w", err)
	}
	return nil
}

// Close closes the underlying pool. Blocks until borrowed connections are
// returned.
func (s *Store) Close() error {
	return s.pool.Close()
}

// UpsertQueue inserts or updates one queue row. Empty incoming display
// name and strategy preserve whatever the row already holds, so a sparse
// event cannot erase data a fuller sync wrote earlier.
func (s *Store) UpsertQueue(ctx context.Context, q Queue) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("mirror: upsert queue: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO queues (name, display_name, strategy, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			display_name = CASE WHEN excluded.display_name = ''
				THEN queues.display_name ELSE excluded.display_name END,
			strategy = CASE WHEN excluded.strategy = ''
				THEN queues.strategy ELSE excluded.strategy END,
			updated_at = excluded.updated_at`,
		&sqlitex.ExecOptions{
			Args: []any{q.Name, q.DisplayName, q.Strategy, s.clock.Now().Unix()},
		})
	if err != nil {
		return fmt.Errorf("mirror: upsert queue %s: %w", q.Name, err)
	}
	return nil
}

// UpsertMember inserts or updates one membership row by its composite
// key. An empty incoming display name preserves the existing one; the
// remaining fields always take the incoming value.
func (s *Store) UpsertMember(ctx context.Context, m Member) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("mirror: upsert member: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO queue_members
			(queue, interface, display_name, penalty, paused, status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(queue, interface) DO UPDATE SET
			display_name = CASE WHEN excluded.display_name = ''
				THEN queue_members.display_name ELSE excluded.display_name END,
			penalty = excluded.penalty,
			paused = excluded.paused,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		&sqlitex.ExecOptions{
			Args: []any{
				m.Queue, m.Interface, m.DisplayName,
				m.Penalty, boolToInt(m.Paused), m.Status,
				s.clock.Now().Unix(),
			},
		})
	if err != nil {
		return fmt.Errorf("mirror: upsert member %s/%s: %w", m.Queue, m.Interface, err)
	}
	return nil
}

// DeleteMember removes one membership row. Deleting a row that does not
// exist is not an error.
func (s *Store) DeleteMember(ctx context.Context, queue, iface string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("mirror: delete member: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		"DELETE FROM queue_members WHERE queue = ? AND interface = ?",
		&sqlitex.ExecOptions{Args: []any{queue, iface}})
	if err != nil {
		return fmt.Errorf("mirror: delete member %s/%s: %w", queue, iface, err)
	}
	return nil
}

// EnsureMapping inserts an automatic display-name mapping only when no
// row exists for the identifier. Existing rows, manual above all, are
// never modified.
func (s *Store) EnsureMapping(ctx context.Context, identifier, displayName string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("mirror: ensure mapping: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT OR IGNORE INTO agent_mappings
			(identifier, display_name, source, updated_at)
		VALUES (?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{identifier, displayName, SourceAuto, s.clock.Now().Unix()},
		})
	if err != nil {
		return fmt.Errorf("mirror: ensure mapping %s: %w", identifier, err)
	}
	return nil
}

// SeedMappings writes operator-curated mappings. Unlike EnsureMapping,
// these overwrite: the mappings file is authoritative for the identifiers
// it names, and its rows are marked manual so reconciliation leaves them
// alone.
func (s *Store) SeedMappings(ctx context.Context, names map[string]string) error {
	if len(names) == 0 {
		return nil
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("mirror: seed mappings: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("mirror: seed mappings: begin: %w", err)
	}
	defer endTransaction(&err)

	now := s.clock.Now().Unix()
	for identifier, displayName := range names {
		err = sqlitex.Execute(conn, `
			INSERT INTO agent_mappings
				(identifier, display_name, source, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(identifier) DO UPDATE SET
				display_name = excluded.display_name,
				source = excluded.source,
				updated_at = excluded.updated_at`,
			&sqlitex.ExecOptions{
				Args: []any{identifier, displayName, SourceManual, now},
			})
		if err != nil {
			return fmt.Errorf("mirror: seed mapping %s: %w", identifier, err)
		}
	}
	return nil
}

// Queues returns all mirrored queues ordered by name.
func (s *Store) Queues(ctx context.Context) ([]Queue, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("mirror: queues: %w", err)
	}
	defer s.pool.Put(conn)

	var queues []Queue
	err = sqlitex.Execute(conn,
		"SELECT name, display_name, strategy, updated_at FROM queues ORDER BY name",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				queues = append(queues, Queue{
					Name:        stmt.ColumnText(0),
					DisplayName: stmt.ColumnText(1),
					Strategy:    stmt.ColumnText(2),
					UpdatedAt:   time.Unix(stmt.ColumnInt64(3), 0).UTC(),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("mirror: queues: %w", err)
	}
	return queues, nil
}

// Members returns memberships ordered by queue then interface. An empty
// queue name returns every row.
func (s *Store) Members(ctx context.Context, queue string) ([]Member, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("mirror: members: %w", err)
	}
	defer s.pool.Put(conn)

	query := `SELECT queue, interface, display_name, penalty, paused, status, updated_at
		FROM queue_members`
	var args []any
	if queue != "" {
		query += " WHERE queue = ?"
		args = append(args, queue)
	}
	query += " ORDER BY queue, interface"

	var members []Member
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			members = append(members, Member{
				Queue:       stmt.ColumnText(0),
				Interface:   stmt.ColumnText(1),
				DisplayName: stmt.ColumnText(2),
				Penalty:     stmt.ColumnInt(3),
				Paused:      stmt.ColumnInt(4) != 0,
				Status:      stmt.ColumnInt(5),
				UpdatedAt:   time.Unix(stmt.ColumnInt64(6), 0).UTC(),
			})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mirror: members: %w", err)
	}
	return members, nil
}

// MemberInterfaces returns the distinct member interfaces across all
// queues, ordered. Mapping reconciliation derives its endpoint
// candidates from this list.
func (s *Store) MemberInterfaces(ctx context.Context) ([]string, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("mirror: member interfaces: %w", err)
	}
	defer s.pool.Put(conn)

	var interfaces []string
	err = sqlitex.Execute(conn,
		"SELECT DISTINCT interface FROM queue_members ORDER BY interface",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				interfaces = append(interfaces, stmt.ColumnText(0))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("mirror: member interfaces: %w", err)
	}
	return interfaces, nil
}

// DisplayName returns the display name of the first identifier that has
// a mapping row, trying identifiers in the order given. Callers pass an
// interface's aliases in derivation order. Returns the empty string
// when none match.
func (s *Store) DisplayName(ctx context.Context, identifiers ...string) (string, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return "", fmt.Errorf("mirror: display name: %w", err)
	}
	defer s.pool.Put(conn)

	for _, identifier := range identifiers {
		var name string
		err = sqlitex.Execute(conn,
			"SELECT display_name FROM agent_mappings WHERE identifier = ?",
			&sqlitex.ExecOptions{
				Args: []any{identifier},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					name = stmt.ColumnText(0)
					return nil
				},
			})
		if err != nil {
			return "", fmt.Errorf("mirror: display name %s: %w", identifier, err)
		}
		if name != "" {
			return name, nil
		}
	}
	return "", nil
}

// Mappings returns all display-name rows ordered by identifier.
func (s *Store) Mappings(ctx context.Context) ([]Mapping, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("mirror: mappings: %w", err)
	}
	defer s.pool.Put(conn)

	var mappings []Mapping
	err = sqlitex.Execute(conn,
		"SELECT identifier, display_name, source, updated_at FROM agent_mappings ORDER BY identifier",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				mappings = append(mappings, Mapping{
					Identifier:  stmt.ColumnText(0),
					DisplayName: stmt.ColumnText(1),
					Source:      stmt.ColumnText(2),
					UpdatedAt:   time.Unix(stmt.ColumnInt64(3), 0).UTC(),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("mirror: mappings: %w", err)
	}
	return mappings, nil
}

// NameIndex returns identifier to display-name, the shape alias lookups
// consume.
func (s *Store) NameIndex(ctx context.Context) (map[string]string, error) {
	mappings, err := s.Mappings(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]string, len(mappings))
	for _, m := range mappings {
		index[m.Identifier] = m.DisplayName
	}
	return index, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
