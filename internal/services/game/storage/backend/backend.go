// Package backend selects and opens a ledger backend by locator so commands
// can treat JSONL files and SQLite games alike.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/doudizhu/internal/services/game/domain/event"
	"github.com/louisbranch/doudizhu/internal/services/game/storage"
	"github.com/louisbranch/doudizhu/internal/services/game/storage/integrity"
	"github.com/louisbranch/doudizhu/internal/services/game/storage/ledger"
	"github.com/louisbranch/doudizhu/internal/services/game/storage/sqlite"
)

// Kind names a ledger backend.
type Kind string

const (
	KindJSONL  Kind = "jsonl"
	KindSQLite Kind = "sqlite"
)

const sqliteScheme = "sqlite:"

// ErrUnknownKind indicates a backend name other than jsonl or sqlite.
var ErrUnknownKind = errors.New("unknown ledger backend")

// ParseKind validates a backend name.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindJSONL, "":
		return KindJSONL, nil
	case KindSQLite:
		return KindSQLite, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, value)
	}
}

// Locator identifies one game's ledger. JSONL ledgers are a file path;
// SQLite ledgers are a database path plus a game id, written
// "sqlite:<path>#<game id>".
type Locator struct {
	Kind   Kind
	Path   string
	GameID string
}

// ParseLocator reads a locator as written by Locator.String.
func ParseLocator(value string) (Locator, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Locator{}, fmt.Errorf("ledger locator is required")
	}
	rest, ok := strings.CutPrefix(value, sqliteScheme)
	if !ok {
		return Locator{Kind: KindJSONL, Path: value, GameID: ledger.IDFromPath(value)}, nil
	}
	path, gameID, ok := strings.Cut(rest, "#")
	if !ok || path == "" || gameID == "" {
		return Locator{}, fmt.Errorf("sqlite locator %q needs a path and a game id", value)
	}
	return Locator{Kind: KindSQLite, Path: path, GameID: gameID}, nil
}

func (l Locator) String() string {
	if l.Kind == KindSQLite {
		return sqliteScheme + l.Path + "#" + l.GameID
	}
	return l.Path
}

// Options configures the opened ledger.
type Options struct {
	Keyring *integrity.Keyring
	Logger  *log.Logger
	Now     func() time.Time
}

// Handle is an open ledger with the events it held when opened.
type Handle struct {
	Locator Locator
	Ledger  storage.Ledger
	// Events are the verified records present at open time.
	Events []event.Event
	store  *sqlite.Store
}

// Close closes the ledger and, for SQLite, its database.
func (h *Handle) Close() error {
	if h == nil {
		return nil
	}
	err := h.Ledger.Close()
	if h.store != nil {
		err = errors.Join(err, h.store.Close())
	}
	return err
}

// Create starts an empty ledger. For JSONL, path is the ledger directory; for
// SQLite, the database file.
func Create(ctx context.Context, kind Kind, path string, opts Options) (*Handle, error) {
	switch kind {
	case KindJSONL:
		l, err := ledger.Create(path, opts.jsonl())
		if err != nil {
			return nil, err
		}
		return &Handle{Locator: Locator{Kind: KindJSONL, Path: l.Path(), GameID: l.ID()}, Ledger: l}, nil
	case KindSQLite:
		store, err := sqlite.Open(path, opts.sqlite()...)
		if err != nil {
			return nil, err
		}
		l, err := store.CreateGame(ctx)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		return &Handle{Locator: Locator{Kind: KindSQLite, Path: path, GameID: l.ID()}, Ledger: l, store: store}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Open verifies the ledger at loc and opens it for appending.
func Open(ctx context.Context, loc Locator, opts Options) (*Handle, error) {
	switch loc.Kind {
	case KindJSONL:
		o := opts.jsonl()
		o.ID = loc.GameID
		l, err := ledger.Open(loc.Path, o)
		if err != nil {
			return nil, err
		}
		events, err := l.ListEvents(ctx, 0, 0)
		if err != nil {
			_ = l.Close()
			return nil, err
		}
		return &Handle{Locator: loc, Ledger: l, Events: events}, nil
	case KindSQLite:
		store, err := sqlite.Open(loc.Path, opts.sqlite()...)
		if err != nil {
			return nil, err
		}
		events, err := store.ReadAll(ctx, loc.GameID)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		l, err := store.OpenGame(ctx, loc.GameID)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		return &Handle{Locator: loc, Ledger: l, Events: events, store: store}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, loc.Kind)
	}
}

// ReadAll verifies the ledger at loc without opening it for writes.
func ReadAll(ctx context.Context, loc Locator, opts Options) ([]event.Event, error) {
	switch loc.Kind {
	case KindJSONL:
		o := opts.jsonl()
		o.ID = loc.GameID
		return ledger.ReadAll(loc.Path, o)
	case KindSQLite:
		store, err := sqlite.Open(loc.Path, opts.sqlite()...)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.ReadAll(ctx, loc.GameID)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, loc.Kind)
	}
}

func (o Options) jsonl() ledger.Options {
	return ledger.Options{Keyring: o.Keyring, Logger: o.Logger, Now: o.Now}
}

func (o Options) sqlite() []sqlite.Option {
	opts := []sqlite.Option{sqlite.WithKeyring(o.Keyring)}
	if o.Now != nil {
		opts = append(opts, sqlite.WithClock(o.Now))
	}
	return opts
}
