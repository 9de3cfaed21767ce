package replay

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	apperrors "github.com/louisbranch/doudizhu/internal/platform/errors"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/event"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/game"
)

const defaultPageSize = 200

var (
	// ErrEventStoreRequired indicates a missing event store.
	ErrEventStoreRequired = errors.New("event store is required")
)

// EventStore lists persisted, verified events in sequence order.
type EventStore interface {
	ListEvents(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error)
}

// Options configures replay behavior.
type Options struct {
	// UntilSeq stops replay after this sequence number; zero replays all.
	UntilSeq uint64
	PageSize int
	// Reducer overrides the default reducer, e.g. to use a custom pattern
	// registry.
	Reducer *game.Reducer
}

// Result captures replay outcomes.
type Result struct {
	State   game.State
	LastSeq uint64
	Applied int
}

// Rebuild reconstructs game state from the genesis state by folding every
// stored event through the reducer, the same Apply used during live play.
//
// A sequence gap or an event the reducer rejects means the ledger does not
// describe a legal game; both surface as LEDGER_CORRUPTION carrying the seq.
func Rebuild(ctx context.Context, store EventStore, options Options) (Result, error) {
	if store == nil {
		return Result{}, ErrEventStoreRequired
	}
	reducer := game.Default()
	if options.Reducer != nil {
		reducer = *options.Reducer
	}
	pageSize := options.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	result := Result{State: game.New()}
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		events, err := store.ListEvents(ctx, result.LastSeq, pageSize)
		if err != nil {
			return result, err
		}
		if len(events) == 0 {
			return result, nil
		}
		for _, evt := range events {
			if options.UntilSeq > 0 && evt.Seq > options.UntilSeq {
				return result, nil
			}
			expectedSeq := result.LastSeq + 1
			if evt.Seq != expectedSeq {
				return result, corruption(expectedSeq, fmt.Errorf("event sequence gap: expected %d got %d", expectedSeq, evt.Seq))
			}
			nextState, err := reducer.Apply(result.State, evt)
			if err != nil {
				return result, corruption(evt.Seq, fmt.Errorf("apply %s: %w", evt.Type, err))
			}
			result.State = nextState
			result.LastSeq = evt.Seq
			result.Applied++
		}
		if len(events) < pageSize {
			return result, nil
		}
	}
}

func corruption(seq uint64, cause error) error {
	err := apperrors.Wrap(apperrors.CodeLedgerCorruption, fmt.Sprintf("replay halted at seq %d", seq), cause)
	err.Metadata = map[string]string{"seq": strconv.FormatUint(seq, 10)}
	return err
}
