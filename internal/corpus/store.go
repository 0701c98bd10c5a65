// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus persists papers, retrieval batches, annotations and entity
// spans in a relational store (SQLite by default, Postgres via pgx).
//
// Writes are serialized per Store; reads go straight to the connection pool
// and never block each other. Annotations are append-only, so an aggregation
// running next to an import sees either the old or the new rows of a paper,
// never a partial write.
package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pdiddy/litcurate/internal/logging"
	"github.com/pdiddy/litcurate/pkg/types"
)

const defaultDBPath = "data/litcurate.db"

// Store manages the corpus database.
type Store struct {
	db      *sql.DB
	dialect dialect
	log     *zap.Logger
	retries int

	// mu serializes writers and guards keys.
	mu   sync.Mutex
	keys *paperKeys
}

// Open opens or creates the corpus database described by cfg and creates
// the schema if it does not exist.
func Open(cfg types.StoreConfig, log *zap.Logger) (*Store, error) {
	log = logging.OrNop(log)

	var (
		db  *sql.DB
		err error
		d   dialect
	)
	switch cfg.Driver {
	case "", types.DriverSQLite:
		path := cfg.Path
		if path == "" {
			path = defaultDBPath
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err = sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
		d = sqliteDialect
	case types.DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("store.dsn is required for the pgx driver")
		}
		db, err = sql.Open("pgx", cfg.DSN)
		d = postgresDialect
	default:
		return nil, fmt.Errorf("unsupported store driver %q: use sqlite3 or pgx", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	retries := cfg.BusyRetries
	if retries <= 0 {
		retries = defaultBusyRetries
	}

	s := &Store{
		db:      db,
		dialect: d,
		log:     log,
		retries: retries,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	log.Info("corpus store opened", zap.String("driver", string(d.driver)))
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// withTx runs fn in a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise. Lock contention is retried.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.retryBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// QueryContext runs a read query written with ? placeholders.
func (s *Store) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
}

// QueryRowContext runs a single-row read query written with ? placeholders.
func (s *Store) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

// InList returns a predicate restricting column to ids and the single
// argument it binds. The predicate costs one placeholder regardless of the
// number of ids.
func (s *Store) InList(column string, ids []int64) (string, any) {
	return s.dialect.inList(column, ids)
}

// HasIndex reports whether the named index exists.
func (s *Store) HasIndex(ctx context.Context, name string) (bool, error) {
	var n int
	if err := s.QueryRowContext(ctx, s.dialect.indexExistsQuery, name).Scan(&n); err != nil {
		return false, fmt.Errorf("checking index %s: %w", name, err)
	}
	return n > 0, nil
}

func (s *Store) exec(ctx context.Context, tx *sql.Tx, query string, args ...any) (sql.Result, error) {
	return tx.ExecContext(ctx, s.dialect.rebind(query), args...)
}
