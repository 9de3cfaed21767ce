package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	apperrors "github.com/louisbranch/doudizhu/internal/platform/errors"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/command"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/event"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/game"
)

// DefaultMaxRejections is the number of refused intents tolerated from one
// seat in a row before Run gives up.
const DefaultMaxRejections = 3

var (
	// ErrSessionRequired indicates a missing session.
	ErrSessionRequired = errors.New("session is required")
	// ErrControllerRequired indicates a seat with no controller.
	ErrControllerRequired = errors.New("controller is required")
	// ErrNotDealt indicates Run was started before the DEAL event.
	ErrNotDealt = errors.New("game has not been dealt")
)

// Runner drives a dealt game to completion.
type Runner struct {
	Session     *Session
	Controllers [game.Seats]Controller
	// MaxRejections bounds consecutive refused intents; zero means
	// DefaultMaxRejections.
	MaxRejections int
	// Rand picks the landlord when every seat declined and the deal carries
	// no fallback. Nil picks the first bidder.
	Rand *rand.Rand
	// OnEvent observes each persisted event in order.
	OnEvent func(event.Event)
}

// Run asks controllers for intents until the game-over event is persisted.
// Illegal intents are reported back to the controller and asked again; any
// other error ends the run.
func (r Runner) Run(ctx context.Context) (game.State, error) {
	if r.Session == nil {
		return game.State{}, ErrSessionRequired
	}
	for seat, c := range r.Controllers {
		if c == nil {
			return r.Session.State(), fmt.Errorf("seat %d: %w", seat, ErrControllerRequired)
		}
	}
	limit := r.MaxRejections
	if limit <= 0 {
		limit = DefaultMaxRejections
	}

	flushed, err := r.Session.Flush(ctx)
	r.notify(flushed)
	if err != nil {
		return r.Session.State(), err
	}

	rejections := 0
	for {
		state := r.Session.State()
		if state.Concluded {
			return state, nil
		}
		if state.Phase == game.PhaseDealing {
			return state, ErrNotDealt
		}

		cmd, err := r.next(ctx, state)
		if err != nil {
			return state, err
		}
		result, err := r.Session.Execute(ctx, cmd)
		r.notify(result.Events)
		if err == nil {
			rejections = 0
			continue
		}
		if apperrors.CodeOf(err).Fatal() {
			return r.Session.State(), err
		}
		rejections++
		if rejections > limit {
			return r.Session.State(), fmt.Errorf("seat %d exceeded %d rejected intents: %w", cmd.Seat, limit, err)
		}
		if !game.ValidSeat(cmd.Seat) {
			continue
		}
		if observer, ok := r.Controllers[cmd.Seat].(RejectionObserver); ok {
			observer.Rejected(state.View(cmd.Seat), err)
		}
	}
}

// next asks the controller on turn for its intent, or resolves exhausted
// bidding without one.
func (r Runner) next(ctx context.Context, state game.State) (command.Command, error) {
	if state.BiddingExhausted() {
		seat := state.FirstBidder
		if r.Rand != nil {
			seat = r.Rand.IntN(game.Seats)
		}
		return command.AssignLandlord(seat), nil
	}
	seat := state.Turn
	if !game.ValidSeat(seat) {
		return command.Command{}, fmt.Errorf("no seat on turn in phase %s", state.Phase)
	}
	controller := r.Controllers[seat]
	view := state.View(seat)
	switch state.Phase {
	case game.PhaseBidding:
		bid, err := controller.DecideBid(ctx, view)
		if err != nil {
			return command.Command{}, fmt.Errorf("seat %d bid: %w", seat, err)
		}
		return command.Bid(seat, bid), nil
	case game.PhasePlaying:
		intent, err := controller.DecidePlay(ctx, view)
		if err != nil {
			return command.Command{}, fmt.Errorf("seat %d play: %w", seat, err)
		}
		if intent.Pass {
			return command.Pass(seat), nil
		}
		return command.Play(seat, intent.Cards), nil
	default:
		return command.Command{}, fmt.Errorf("no intent expected in phase %s", state.Phase)
	}
}

func (r Runner) notify(events []event.Event) {
	if r.OnEvent == nil {
		return
	}
	for _, evt := range events {
		r.OnEvent(evt)
	}
}
