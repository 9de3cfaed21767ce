package game

import (
	"github.com/louisbranch/doudizhu/internal/services/game/domain/command"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/event"
)

// Decide validates cmd against state with the default reducer.
func Decide(state State, cmd command.Command) command.Decision {
	return defaultReducer.Decide(state, cmd)
}

// Pending returns the synthesized events due in state with the default reducer.
func Pending(state State) []event.Draft {
	return defaultReducer.Pending(state)
}

// Decide turns a command into the drafts it would append: the primary event
// followed by every synthesized event it makes due. Each draft is validated
// by applying it, so an accepted decision always folds cleanly.
func (r Reducer) Decide(state State, cmd command.Command) command.Decision {
	draft, err := draftFor(cmd)
	if err != nil {
		return command.Reject(asRejection(err))
	}
	next, err := r.Apply(state, provisional(state, draft))
	if err != nil {
		return command.Reject(asRejection(err))
	}
	return command.Accept(append([]event.Draft{draft}, r.Pending(next)...)...)
}

// Pending returns the chain of events the rules synthesize from state without
// a controller intent: landlord assignment once bidding resolves, a trick reset
// after two passes and the game-over record once a hand empties.
func (r Reducer) Pending(state State) []event.Draft {
	var drafts []event.Draft
	for {
		draft, ok := synthesize(state)
		if !ok {
			return drafts
		}
		next, err := r.Apply(state, provisional(state, draft))
		if err != nil {
			return drafts
		}
		drafts = append(drafts, draft)
		state = next
	}
}

func synthesize(s State) (event.Draft, bool) {
	var (
		t       event.Type
		payload any
	)
	switch {
	case s.BiddingComplete() && s.HighestBid > 0:
		t, payload = event.TypeLandlordAssigned, event.LandlordAssignedPayload{Seat: s.HighestBidder}
	case s.BiddingExhausted() && s.Fallback != nil:
		t, payload = event.TypeLandlordAssigned, event.LandlordAssignedPayload{Seat: *s.Fallback}
	case s.ResetDue():
		t, payload = event.TypeRoundReset, event.RoundResetPayload{Leader: s.Leader}
	case s.Phase == PhaseFinished && !s.Concluded:
		t, payload = event.TypeGameOver, event.GameOverPayload{
			Winner: s.Winner,
			Role:   string(s.Players[s.Winner].Role),
		}
	default:
		return event.Draft{}, false
	}
	draft, err := event.NewDraft(t, payload)
	if err != nil {
		return event.Draft{}, false
	}
	return draft, true
}

func draftFor(cmd command.Command) (event.Draft, error) {
	switch cmd.Type {
	case command.TypeDeal:
		return event.NewDraft(event.TypeDeal, cmd.Deal)
	case command.TypeBid:
		return event.NewDraft(event.TypeBid, event.BidPayload{Seat: cmd.Seat, Bid: cmd.Bid})
	case command.TypePlay:
		return event.NewDraft(event.TypePlay, event.PlayPayload{Seat: cmd.Seat, Cards: cmd.Cards})
	case command.TypePass:
		return event.NewDraft(event.TypePass, event.PassPayload{Seat: cmd.Seat})
	case command.TypeAssignLandlord:
		return event.NewDraft(event.TypeLandlordAssigned, event.LandlordAssignedPayload{Seat: cmd.Seat})
	default:
		return event.Draft{}, reject(ErrUnknownCommand, "unknown command %q", cmd.Type)
	}
}

// provisional wraps a draft as the event it would become at the next seq.
func provisional(state State, draft event.Draft) event.Event {
	return event.Event{Seq: state.LastSeq + 1, Type: draft.Type, Payload: draft.Payload}
}
