package engine

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/louisbranch/doudizhu/internal/platform/errors"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/command"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/event"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/game"
)

const tracerName = "github.com/louisbranch/doudizhu/internal/services/game/domain/engine"

var (
	// ErrJournalRequired indicates a missing journal.
	ErrJournalRequired = errors.New("journal is required")
)

// Journal durably appends drafts and returns the persisted records. An
// implementation assigns the sequence number and chain hash; a returned error
// means nothing was persisted.
type Journal interface {
	Append(ctx context.Context, draft event.Draft) (event.Event, error)
}

// Result captures execution outcomes.
type Result struct {
	Decision command.Decision
	// Events are the records persisted by this call, including synthesized
	// events flushed before the command was decided.
	Events []event.Event
	State  game.State
}

// Session owns the authoritative state of one game and is its single writer.
// It is not safe for concurrent use.
type Session struct {
	reducer game.Reducer
	journal Journal
	state   game.State
	tracer  trace.Tracer
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithReducer replaces the default reducer.
func WithReducer(reducer game.Reducer) SessionOption {
	return func(s *Session) {
		s.reducer = reducer
	}
}

// NewSession starts a session from state, normally game.New() for a fresh
// ledger or the result of a replay when resuming.
func NewSession(journal Journal, state game.State, opts ...SessionOption) (*Session, error) {
	if journal == nil {
		return nil, ErrJournalRequired
	}
	s := &Session{
		reducer: game.Default(),
		journal: journal,
		state:   state.Clone(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// State returns a copy of the committed state.
func (s *Session) State() game.State {
	return s.state.Clone()
}

// View returns the read-only view for seat.
func (s *Session) View(seat int) game.View {
	return s.state.View(seat)
}

// Flush persists synthesized events that are due but missing from the
// ledger, e.g. after a crash between a PASS and its ROUND_RESET.
func (s *Session) Flush(ctx context.Context) ([]event.Event, error) {
	return s.commit(ctx, s.reducer.Pending(s.state))
}

// Execute decides cmd against the committed state and persists the
// resulting events. A rejected command returns the decision together with
// its first rejection as the error; state and ledger are untouched.
//
// State advances one event at a time, each only after its append succeeded,
// so the in-memory state always equals a replay of the ledger.
func (s *Session) Execute(ctx context.Context, cmd command.Command) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "doudizhu.session.execute", trace.WithAttributes(
		attribute.String("doudizhu.command.type", string(cmd.Type)),
		attribute.Int("doudizhu.command.seat", cmd.Seat),
	))
	defer span.End()

	result, err := s.execute(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("doudizhu.error.code", string(apperrors.CodeOf(err))))
	}
	span.SetAttributes(attribute.Int("doudizhu.events.appended", len(result.Events)))
	return result, err
}

func (s *Session) execute(ctx context.Context, cmd command.Command) (Result, error) {
	flushed, err := s.Flush(ctx)
	if err != nil {
		return Result{Events: flushed, State: s.State()}, err
	}

	decision := s.reducer.Decide(s.state, cmd)
	if err := decision.Validate(); err != nil {
		return Result{Decision: decision, Events: flushed, State: s.State()}, err
	}
	if len(decision.Rejections) > 0 {
		return Result{Decision: decision, Events: flushed, State: s.State()}, decision.Err()
	}

	stored, err := s.commit(ctx, decision.Events)
	result := Result{Decision: decision, Events: append(flushed, stored...), State: s.State()}
	return result, err
}

func (s *Session) commit(ctx context.Context, drafts []event.Draft) ([]event.Event, error) {
	var stored []event.Event
	for _, draft := range drafts {
		if err := ctx.Err(); err != nil {
			return stored, err
		}
		evt, err := s.journal.Append(ctx, draft)
		if err != nil {
			return stored, persistenceFailure(err)
		}
		if evt.Seq != s.state.LastSeq+1 {
			return stored, wrapNonRetryable(apperrors.Wrap(
				apperrors.CodeLedgerCorruption,
				fmt.Sprintf("journal assigned seq %d, expected %d", evt.Seq, s.state.LastSeq+1),
				nil,
			))
		}
		next, err := s.reducer.Apply(s.state, evt)
		if err != nil {
			return stored, wrapNonRetryable(fmt.Errorf("apply persisted event %d: %w", evt.Seq, err))
		}
		s.state = next
		stored = append(stored, evt)
	}
	return stored, nil
}

// persistenceFailure keeps coded ledger errors and classifies anything else
// as a failed durable write.
func persistenceFailure(err error) error {
	if errors.Is(err, apperrors.ErrPersistenceFailure) || errors.Is(err, apperrors.ErrLedgerCorruption) {
		return err
	}
	return apperrors.Wrap(apperrors.CodePersistenceFailure, "append event", err)
}
