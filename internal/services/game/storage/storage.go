package storage

import (
	"context"
	"fmt"

	apperrors "github.com/louisbranch/doudizhu/internal/platform/errors"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/event"
)

// ErrClosed indicates an append to a closed ledger.
var ErrClosed = apperrors.New(apperrors.CodePersistenceFailure, "ledger is closed")

// Ledger is the single-writer event log of one game. Append is the only
// mutation; there is no update or delete.
type Ledger interface {
	// Append assigns the next seq, timestamp and chain hash to draft and
	// durably stores it before returning. On error nothing is stored.
	Append(ctx context.Context, draft event.Draft) (event.Event, error)
	// ListEvents returns verified events ordered by sequence ascending.
	ListEvents(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error)
	// LastSeq returns the latest stored sequence number, 0 when empty.
	LastSeq() uint64
	Close() error
}

// CorruptionError reports the first record at which chain verification fails.
type CorruptionError struct {
	Seq    uint64
	Reason string
	Err    error
}

func (e *CorruptionError) Error() string {
	msg := fmt.Sprintf("ledger corrupted at seq %d: %s", e.Seq, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *CorruptionError) Unwrap() error {
	return e.Err
}

// Is matches the LEDGER_CORRUPTION coded error.
func (e *CorruptionError) Is(target error) bool {
	t, ok := target.(*apperrors.Error)
	return ok && t.Code == apperrors.CodeLedgerCorruption
}

// ErrorCode returns LEDGER_CORRUPTION.
func (e *CorruptionError) ErrorCode() apperrors.Code {
	return apperrors.CodeLedgerCorruption
}

// EventList serves already verified events to the replay engine.
type EventList []event.Event

// ListEvents returns up to limit events after afterSeq.
func (l EventList) ListEvents(_ context.Context, afterSeq uint64, limit int) ([]event.Event, error) {
	var out []event.Event
	for _, evt := range l {
		if evt.Seq <= afterSeq {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, evt)
	}
	return out, nil
}
