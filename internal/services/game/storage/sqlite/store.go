package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/louisbranch/doudizhu/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/event"
	"github.com/louisbranch/doudizhu/internal/services/game/storage/integrity"
	"github.com/louisbranch/doudizhu/internal/services/game/storage/sqlite/migrations"
)

const tracerName = "github.com/louisbranch/doudizhu/internal/services/game/storage/sqlite"

// ErrGameNotFound indicates a game id with no ledger in the database.
var ErrGameNotFound = errors.New("game not found")

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Store is a SQLite database holding the ledgers of many games, one row per
// event keyed by game id and seq.
type Store struct {
	sqlDB   *sql.DB
	keyring *integrity.Keyring
	now     func() time.Time
	tracer  trace.Tracer
}

// Option configures a Store.
type Option func(*Store)

// WithKeyring signs appended rows and verifies signatures on read.
func WithKeyring(keyring *integrity.Keyring) Option {
	return func(s *Store) {
		s.keyring = keyring
	}
}

// WithClock overrides the clock used to stamp appended rows.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open opens the SQLite ledger database at path, creating and migrating it as
// needed.
func Open(path string, opts ...Option) (*Store, error) {
	store, err := openStore(path, migrations.EventsFS, "events")
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// Close closes the underlying SQLite database.
//
// Close is nil-safe so callers can defer it in all startup paths.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func openStore(path string, migrationFS fs.FS, migrationRoot string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=FULL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrationFS, migrationRoot); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{
		sqlDB:  sqlDB,
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// CreateGame registers a new game under a fresh uuid and returns its empty
// ledger.
func (s *Store) CreateGame(ctx context.Context) (*Ledger, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	id := uuid.NewString()
	if _, err := s.sqlDB.ExecContext(ctx,
		"INSERT INTO games (id, created_at) VALUES (?, ?)",
		id, toMillis(s.now()),
	); err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return newLedger(s, id, 0, event.GenesisHash), nil
}

// OpenGame verifies the chain of gameID and returns its ledger positioned
// after the last row.
func (s *Store) OpenGame(ctx context.Context, gameID string) (*Ledger, error) {
	events, err := s.ReadAll(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return newLedger(s, gameID, 0, event.GenesisHash), nil
	}
	last := events[len(events)-1]
	return newLedger(s, gameID, last.Seq, last.Hash), nil
}

// Games lists the ids of every stored game, oldest first.
func (s *Store) Games(ctx context.Context) ([]string, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT id FROM games ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan game id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate game ids: %w", err)
	}
	return ids, nil
}

func (s *Store) gameExists(ctx context.Context, gameID string) (bool, error) {
	var one int
	err := s.sqlDB.QueryRowContext(ctx, "SELECT 1 FROM games WHERE id = ?", gameID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up game %s: %w", gameID, err)
	}
	return true, nil
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
