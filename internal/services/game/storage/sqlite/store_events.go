package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/louisbranch/doudizhu/internal/platform/errors"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/event"
	"github.com/louisbranch/doudizhu/internal/services/game/storage"
	"github.com/louisbranch/doudizhu/internal/services/game/storage/integrity"
)

const selectEvents = `SELECT seq, event_type, payload_json, ts, prev_hash, hash, signature, signature_key_id
FROM events WHERE game_id = ? AND seq > ? ORDER BY seq`

// Ledger is the event log of one game inside a Store.
type Ledger struct {
	store    *Store
	gameID   string
	mu       sync.Mutex
	lastSeq  uint64
	lastHash string
	closed   bool
}

func newLedger(store *Store, gameID string, lastSeq uint64, lastHash string) *Ledger {
	return &Ledger{store: store, gameID: gameID, lastSeq: lastSeq, lastHash: lastHash}
}

// ID returns the game id the ledger belongs to.
func (l *Ledger) ID() string { return l.gameID }

// LastSeq returns the latest stored sequence number.
func (l *Ledger) LastSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSeq
}

// Close detaches the ledger; the database stays open until the Store closes.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// Append inserts the next row inside a transaction. A row already present at
// that seq means another writer got there first and the append fails without
// changing the ledger.
func (l *Ledger) Append(ctx context.Context, draft event.Draft) (event.Event, error) {
	ctx, span := l.store.tracer.Start(ctx, "doudizhu.ledger.append", trace.WithAttributes(
		attribute.String("doudizhu.event.type", string(draft.Type)),
		attribute.String("doudizhu.ledger.backend", "sqlite"),
	))
	defer span.End()

	evt, err := l.append(ctx, draft)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return event.Event{}, err
	}
	span.SetAttributes(attribute.Int64("doudizhu.event.seq", int64(evt.Seq)))
	return evt, nil
}

func (l *Ledger) append(ctx context.Context, draft event.Draft) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if err := draft.Validate(); err != nil {
		return event.Event{}, apperrors.Wrap(apperrors.CodeInvalidEvent, "validate draft", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return event.Event{}, storage.ErrClosed
	}

	evt := event.Event{
		Seq:     l.lastSeq + 1,
		Type:    draft.Type,
		Payload: draft.Payload,
		TS:      event.FormatTimestamp(l.store.now()),
	}
	evt, err := integrity.Seal(evt, l.lastHash, l.store.keyring, l.gameID)
	if err != nil {
		return event.Event{}, apperrors.Wrap(apperrors.CodePersistenceFailure, "seal record", err)
	}
	if err := l.insert(ctx, evt); err != nil {
		return event.Event{}, apperrors.Wrap(apperrors.CodePersistenceFailure, fmt.Sprintf("append seq %d", evt.Seq), err)
	}
	l.lastSeq = evt.Seq
	l.lastHash = evt.Hash
	return evt, nil
}

func (l *Ledger) insert(ctx context.Context, evt event.Event) (err error) {
	tx, err := l.store.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var head sql.NullInt64
	if err := tx.QueryRowContext(ctx, "SELECT MAX(seq) FROM events WHERE game_id = ?", l.gameID).Scan(&head); err != nil {
		return fmt.Errorf("read head: %w", err)
	}
	if uint64(head.Int64) != evt.Seq-1 {
		return fmt.Errorf("ledger head moved to seq %d", head.Int64)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (game_id, seq, event_type, payload_json, ts, prev_hash, hash, signature, signature_key_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.gameID, int64(evt.Seq), string(evt.Type), string(evt.Payload), evt.TS,
		evt.PrevHash, evt.Hash, evt.Signature, evt.KeyID,
	)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("seq %d already stored: %w", evt.Seq, err)
		}
		return fmt.Errorf("insert event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// ListEvents returns stored rows after afterSeq, at most limit of them. Rows
// are returned as stored; use ReadAll to verify the chain.
func (l *Ledger) ListEvents(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error) {
	query := selectEvents
	args := []any{l.gameID, int64(afterSeq)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return l.store.queryEvents(ctx, query, args...)
}

// ReadAll reads every row of gameID and verifies the chain from genesis. The
// first row that breaks it is reported as a *storage.CorruptionError.
func (s *Store) ReadAll(ctx context.Context, gameID string) ([]event.Event, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	exists, err := s.gameExists(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	events, err := s.queryEvents(ctx, selectEvents, gameID, int64(0))
	if err != nil {
		return nil, err
	}

	prevHash := event.GenesisHash
	for i, evt := range events {
		expected := uint64(i) + 1
		if evt.Seq != expected {
			return nil, &storage.CorruptionError{Seq: expected, Reason: fmt.Sprintf("expected seq %d, found %d", expected, evt.Seq)}
		}
		if !evt.Type.Known() {
			return nil, &storage.CorruptionError{Seq: expected, Reason: fmt.Sprintf("unknown event type %q", evt.Type)}
		}
		if _, err := event.ParseTimestamp(evt.TS); err != nil {
			return nil, &storage.CorruptionError{Seq: expected, Reason: "invalid timestamp", Err: err}
		}
		if err := integrity.Verify(evt, prevHash, s.keyring, gameID); err != nil {
			return nil, &storage.CorruptionError{Seq: expected, Reason: "integrity check failed", Err: err}
		}
		prevHash = evt.Hash
	}
	return events, nil
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]event.Event, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var (
			seq     int64
			typ     string
			payload string
			evt     event.Event
		)
		if err := rows.Scan(&seq, &typ, &payload, &evt.TS, &evt.PrevHash, &evt.Hash, &evt.Signature, &evt.KeyID); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.Seq = uint64(seq)
		evt.Type = event.Type(typ)
		evt.Payload = json.RawMessage(payload)
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
