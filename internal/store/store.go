package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectDuckDB   Dialect = "duckdb"
	DialectPostgres Dialect = "postgres"
)

const defaultConnectTimeout = 5 * time.Second

func ParseDialect(raw string) (Dialect, error) {
	switch dialect := Dialect(strings.ToLower(strings.TrimSpace(raw))); dialect {
	case DialectSQLite, DialectDuckDB, DialectPostgres:
		return dialect, nil
	default:
		return "", fmt.Errorf("unsupported store dialect %q", raw)
	}
}

// EngineName is the product name embedded in prompts so the oracle targets the right SQL flavor.
func (d Dialect) EngineName() string {
	switch d {
	case DialectDuckDB:
		return "DuckDB"
	case DialectPostgres:
		return "PostgreSQL"
	default:
		return "SQLite"
	}
}

// Placeholder returns the bind marker for the n-th (1-based) statement argument.
func (d Dialect) Placeholder(n int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (d Dialect) driverName() string {
	switch d {
	case DialectDuckDB:
		return "duckdb"
	case DialectPostgres:
		return "pgx"
	default:
		return "sqlite"
	}
}

type Config struct {
	Dialect        Dialect
	DSN            string
	ConnectTimeout time.Duration
	// CreateIfMissing lets a SQLite or DuckDB file be created on first open.
	// Only the seed tool sets it.
	CreateIfMissing bool
}

// Opener returns a fresh connection handle. Callers own the handle and close it.
type Opener func(ctx context.Context) (*sql.DB, error)

// Store is a relational store that is opened and closed around every operation.
type Store struct {
	dialect Dialect
	open    Opener
	Logger  *slog.Logger
}

func New(cfg Config) (*Store, error) {
	dialect, err := ParseDialect(string(cfg.Dialect))
	if err != nil {
		return nil, err
	}
	cfg.Dialect = dialect
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("store dsn is required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	return &Store{
		dialect: dialect,
		open: func(ctx context.Context) (*sql.DB, error) {
			return Open(ctx, cfg)
		},
	}, nil
}

// NewWithOpener builds a Store over a caller-supplied connection factory.
func NewWithOpener(dialect Dialect, open Opener) *Store {
	return &Store{dialect: dialect, open: open}
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

// ErrUnavailable marks a failure to reach the store, as opposed to a failing statement.
var ErrUnavailable = errors.New("store unavailable")

// Ping opens and releases one connection.
func (s *Store) Ping(ctx context.Context) error {
	db, err := s.open(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return db.Close()
}

// WithConn runs fn against a fresh connection and releases it afterwards. An open
// failure wraps ErrUnavailable.
func (s *Store) WithConn(ctx context.Context, fn func(*sql.DB) error) error {
	db, err := s.open(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() { _ = db.Close() }()
	return fn(db)
}

func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store dsn is required")
	}
	if !cfg.CreateIfMissing && isLocalFile(cfg.Dialect, cfg.DSN) {
		if _, err := os.Stat(cfg.DSN); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%s database %q does not exist", cfg.Dialect.EngineName(), cfg.DSN)
			}
			return nil, fmt.Errorf("stat %s database: %w", cfg.Dialect.EngineName(), err)
		}
	}

	db, err := sql.Open(cfg.Dialect.driverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Dialect.EngineName(), err)
	}
	db.SetMaxOpenConns(1)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s store: %w", cfg.Dialect.EngineName(), err)
	}
	return db, nil
}

func isLocalFile(dialect Dialect, dsn string) bool {
	if dialect == DialectPostgres {
		return false
	}
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") || strings.Contains(dsn, "?") {
		return false
	}
	return true
}

func (s *Store) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
