package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/louisbranch/doudizhu/internal/platform/errors"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/event"
	"github.com/louisbranch/doudizhu/internal/services/game/storage"
	"github.com/louisbranch/doudizhu/internal/services/game/storage/integrity"
)

var _ storage.Ledger = (*Ledger)(nil)

func testKeyring(t *testing.T) *integrity.Keyring {
	t.Helper()
	keyring, err := integrity.NewKeyring(
		map[string][]byte{"test-key-1": []byte("0123456789abcdef0123456789abcdef")},
		"test-key-1",
	)
	if err != nil {
		t.Fatalf("create test keyring: %v", err)
	}
	return keyring
}

func openTestStore(t *testing.T, path string, opts ...Option) *Store {
	t.Helper()
	opts = append(opts, WithClock(func() time.Time {
		return time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)
	}))
	store, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func bidDraft(t *testing.T, seat, bid int) event.Draft {
	t.Helper()
	draft, err := event.NewDraft(event.TypeBid, event.BidPayload{Seat: seat, Bid: bid})
	if err != nil {
		t.Fatalf("new draft: %v", err)
	}
	return draft
}

func appendBids(t *testing.T, l *Ledger, n int) []event.Event {
	t.Helper()
	var stored []event.Event
	for i := range n {
		evt, err := l.Append(context.Background(), bidDraft(t, i%3, 0))
		if err != nil {
			t.Fatalf("append %d: %v", i+1, err)
		}
		stored = append(stored, evt)
	}
	return stored
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestAppendAndReadAll(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "ledger.db"))
	l, err := store.CreateGame(context.Background())
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	stored := appendBids(t, l, 3)
	if stored[0].PrevHash != event.GenesisHash {
		t.Fatalf("expected genesis prev hash, got %s", stored[0].PrevHash)
	}
	if stored[2].PrevHash != stored[1].Hash {
		t.Fatal("expected rows to be chained")
	}
	if l.LastSeq() != 3 {
		t.Fatalf("expected last seq 3, got %d", l.LastSeq())
	}

	events, err := store.ReadAll(context.Background(), l.ID())
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(events) != 3 || events[2].Hash != stored[2].Hash {
		t.Fatalf("expected stored rows back, got %+v", events)
	}

	page, err := l.ListEvents(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(page) != 1 || page[0].Seq != 2 {
		t.Fatalf("expected seq 2 only, got %+v", page)
	}
}

func TestOpenGameResumesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	keyring := testKeyring(t)
	store := openTestStore(t, path, WithKeyring(keyring))
	l, err := store.CreateGame(context.Background())
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	stored := appendBids(t, l, 2)

	reopened, err := store.OpenGame(context.Background(), l.ID())
	if err != nil {
		t.Fatalf("open game: %v", err)
	}
	if reopened.LastSeq() != 2 {
		t.Fatalf("expected last seq 2, got %d", reopened.LastSeq())
	}
	next, err := reopened.Append(context.Background(), bidDraft(t, 2, 0))
	if err != nil {
		t.Fatalf("append after reopen: %v", err)
	}
	if next.Seq != 3 || next.PrevHash != stored[1].Hash || next.Signature == "" {
		t.Fatalf("expected signed seq 3 linked to seq 2, got %+v", next)
	}

	games, err := store.Games(context.Background())
	if err != nil {
		t.Fatalf("games: %v", err)
	}
	if len(games) != 1 || games[0] != l.ID() {
		t.Fatalf("expected one game %s, got %v", l.ID(), games)
	}
}

func TestStaleWriterIsRejected(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "ledger.db"))
	first, err := store.CreateGame(context.Background())
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	second, err := store.OpenGame(context.Background(), first.ID())
	if err != nil {
		t.Fatalf("open game: %v", err)
	}
	appendBids(t, first, 1)

	_, err = second.Append(context.Background(), bidDraft(t, 0, 0))
	if !errors.Is(err, apperrors.ErrPersistenceFailure) {
		t.Fatalf("expected persistence failure, got %v", err)
	}
	if second.LastSeq() != 0 {
		t.Fatalf("expected stale ledger unchanged, got seq %d", second.LastSeq())
	}
	events, err := store.ReadAll(context.Background(), first.ID())
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one stored row, got %d", len(events))
	}
}

func TestReadAllReportsTamperedSeq(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "payload", query: `UPDATE events SET payload_json = '{"seat":1,"bid":3}' WHERE seq = 2`},
		{name: "hash", query: `UPDATE events SET hash = 'ff' || substr(hash, 3) WHERE seq = 2`},
		{name: "deleted row", query: `DELETE FROM events WHERE seq = 2`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := openTestStore(t, filepath.Join(t.TempDir(), "ledger.db"))
			l, err := store.CreateGame(context.Background())
			if err != nil {
				t.Fatalf("create game: %v", err)
			}
			appendBids(t, l, 3)
			if _, err := store.sqlDB.Exec(tc.query); err != nil {
				t.Fatalf("tamper: %v", err)
			}

			_, err = store.ReadAll(context.Background(), l.ID())
			var corruption *storage.CorruptionError
			if !errors.As(err, &corruption) {
				t.Fatalf("expected corruption error, got %v", err)
			}
			if corruption.Seq != 2 {
				t.Fatalf("expected corruption at seq 2, got %d", corruption.Seq)
			}
			if !errors.Is(err, apperrors.ErrLedgerCorruption) {
				t.Fatal("expected LEDGER_CORRUPTION code")
			}
			if _, err := store.OpenGame(context.Background(), l.ID()); err == nil {
				t.Fatal("expected open game to refuse a corrupted chain")
			}
		})
	}
}

func TestReadAllVerifiesSignatures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	signed := openTestStore(t, path, WithKeyring(testKeyring(t)))
	l, err := signed.CreateGame(context.Background())
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	appendBids(t, l, 2)
	if _, err := signed.sqlDB.Exec(`UPDATE events SET signature = 'bad' WHERE seq = 1`); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	var corruption *storage.CorruptionError
	if _, err := signed.ReadAll(context.Background(), l.ID()); !errors.As(err, &corruption) || corruption.Seq != 1 {
		t.Fatalf("expected signature failure at seq 1, got %v", err)
	}
}

func TestReadAllUnknownGame(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "ledger.db"))
	if _, err := store.ReadAll(context.Background(), "missing"); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestAppendValidatesAndRespectsClose(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "ledger.db"))
	l, err := store.CreateGame(context.Background())
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	if _, err := l.Append(context.Background(), event.Draft{Type: "SHUFFLE", Payload: []byte(`{}`)}); !errors.Is(err, apperrors.ErrInvalidEvent) {
		t.Fatalf("expected invalid event, got %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := l.Append(context.Background(), bidDraft(t, 0, 0)); !errors.Is(err, storage.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
