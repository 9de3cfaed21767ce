package game

import (
	"github.com/louisbranch/doudizhu/internal/services/game/domain/card"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/event"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/pattern"
)

const (
	// HandSize is the number of cards dealt to each seat.
	HandSize = 17
	// BottomSize is the number of cards held back for the landlord.
	BottomSize = 3
	// MaxBid is the highest bid a seat may place.
	MaxBid = 3
)

// Reducer is the single authority for state transitions. Live play and
// replay both go through Apply.
type Reducer struct {
	Patterns *pattern.Registry
}

var defaultReducer = Reducer{Patterns: pattern.Default()}

// Default returns the reducer over the built-in pattern registry.
func Default() Reducer {
	return defaultReducer
}

// Apply folds one event into state with the default reducer.
func Apply(state State, evt event.Event) (State, error) {
	return defaultReducer.Apply(state, evt)
}

type foldFunc func(r Reducer, s *State, evt event.Event) error

var folds = map[event.Type]foldFunc{
	event.TypeDeal:             foldDeal,
	event.TypeBid:              foldBid,
	event.TypeLandlordAssigned: foldLandlordAssigned,
	event.TypePlay:             foldPlay,
	event.TypePass:             foldPass,
	event.TypeRoundReset:       foldRoundReset,
	event.TypeGameOver:         foldGameOver,
}

// Apply returns the state after evt, or a *command.Rejection. The input state
// is never modified and a rejected event leaves no trace.
func (r Reducer) Apply(state State, evt event.Event) (State, error) {
	fold, ok := folds[evt.Type]
	if !ok {
		return state, reject(ErrUnknownEvent, "unknown event type %q", evt.Type)
	}
	next := state.Clone()
	if err := fold(r, &next, evt); err != nil {
		return state, err
	}
	next.LastSeq = evt.Seq
	return next, nil
}

func decode(evt event.Event, target any) error {
	if err := evt.Decode(target); err != nil {
		return rejectCause(ErrMalformedPayload, err)
	}
	return nil
}

func foldDeal(_ Reducer, s *State, evt event.Event) error {
	if s.Phase != PhaseDealing {
		return reject(ErrWrongPhase, "deal during %s", s.Phase)
	}
	var p event.DealPayload
	if err := decode(evt, &p); err != nil {
		return err
	}
	if err := validateDeal(p); err != nil {
		return err
	}
	s.GameID = p.GameID
	for seat := range s.Players {
		s.Players[seat] = Player{
			Name: p.Players[seat],
			Seat: seat,
			Hand: card.Hand(p.Hands[seat]).Clone(),
		}
	}
	s.Bottom = card.Hand(p.Bottom).Clone()
	s.FirstBidder = p.FirstBidder
	if p.FallbackLandlord != nil {
		fallback := *p.FallbackLandlord
		s.Fallback = &fallback
	}
	s.Turn = p.FirstBidder
	s.Phase = PhaseBidding
	return nil
}

func validateDeal(p event.DealPayload) error {
	if len(p.Players) != Seats {
		return reject(ErrInvalidDeal, "deal names %d players", len(p.Players))
	}
	if len(p.Hands) != Seats {
		return reject(ErrInvalidDeal, "deal assigns %d hands", len(p.Hands))
	}
	seen := make(map[card.Card]bool, card.DeckSize)
	check := func(cards []card.Card) error {
		for _, c := range cards {
			if !c.Valid() {
				return reject(ErrInvalidDeal, "invalid card %d", uint8(c))
			}
			if seen[c] {
				return reject(ErrInvalidDeal, "card %s dealt twice", c)
			}
			seen[c] = true
		}
		return nil
	}
	for seat, hand := range p.Hands {
		if len(hand) != HandSize {
			return reject(ErrInvalidDeal, "seat %d dealt %d cards", seat, len(hand))
		}
		if err := check(hand); err != nil {
			return err
		}
	}
	if len(p.Bottom) != BottomSize {
		return reject(ErrInvalidDeal, "bottom holds %d cards", len(p.Bottom))
	}
	if err := check(p.Bottom); err != nil {
		return err
	}
	if !ValidSeat(p.FirstBidder) {
		return reject(ErrSeatOutOfRange, "first bidder %d", p.FirstBidder)
	}
	if p.FallbackLandlord != nil && !ValidSeat(*p.FallbackLandlord) {
		return reject(ErrSeatOutOfRange, "fallback landlord %d", *p.FallbackLandlord)
	}
	return nil
}

func foldBid(_ Reducer, s *State, evt event.Event) error {
	var p event.BidPayload
	if err := decode(evt, &p); err != nil {
		return err
	}
	if !ValidSeat(p.Seat) {
		return reject(ErrSeatOutOfRange, "seat %d", p.Seat)
	}
	if p.Bid < 0 || p.Bid > MaxBid {
		return reject(ErrBidOutOfRange, "bid %d", p.Bid)
	}
	if s.Phase != PhaseBidding {
		return reject(ErrWrongPhase, "bid during %s", s.Phase)
	}
	if s.BiddingComplete() {
		if s.BiddingExhausted() {
			return reject(ErrBiddingExhausted, "bid after every seat declined")
		}
		return reject(ErrWrongPhase, "bidding has concluded")
	}
	if p.Seat != s.Turn {
		return reject(ErrNotYourTurn, "seat %d bid on seat %d's turn", p.Seat, s.Turn)
	}
	s.Bids = append(s.Bids, Bid{Seat: p.Seat, Value: p.Bid})
	// Ties keep the earlier bidder.
	if p.Bid > s.HighestBid {
		s.HighestBid = p.Bid
		s.HighestBidder = p.Seat
	}
	s.Turn = nextSeat(p.Seat)
	if s.BiddingComplete() {
		s.Turn = NoSeat
	}
	return nil
}

func foldLandlordAssigned(_ Reducer, s *State, evt event.Event) error {
	var p event.LandlordAssignedPayload
	if err := decode(evt, &p); err != nil {
		return err
	}
	if !ValidSeat(p.Seat) {
		return reject(ErrSeatOutOfRange, "seat %d", p.Seat)
	}
	if s.Phase != PhaseBidding {
		return reject(ErrWrongPhase, "landlord assigned during %s", s.Phase)
	}
	if !s.BiddingComplete() {
		return reject(ErrBiddingInProgress, "%d of %d bids placed", len(s.Bids), Seats)
	}
	switch {
	case s.HighestBid > 0 && p.Seat != s.HighestBidder:
		return reject(ErrNotHighestBidder, "seat %d is not highest bidder %d", p.Seat, s.HighestBidder)
	case s.HighestBid == 0 && s.Fallback != nil && p.Seat != *s.Fallback:
		return reject(ErrNotFallbackLandlord, "seat %d is not fallback %d", p.Seat, *s.Fallback)
	}
	for seat := range s.Players {
		s.Players[seat].Role = RolePeasant
	}
	landlord := &s.Players[p.Seat]
	landlord.Role = RoleLandlord
	landlord.Hand = append(landlord.Hand, s.Bottom...)
	s.BottomTaken = true
	s.Landlord = p.Seat
	s.Turn = p.Seat
	s.Phase = PhasePlaying
	return nil
}

// checkActor runs the checks shared by PLAY and PASS.
func checkActor(s *State, seat int) error {
	if !ValidSeat(seat) {
		return reject(ErrSeatOutOfRange, "seat %d", seat)
	}
	if s.Phase != PhasePlaying {
		return reject(ErrWrongPhase, "move during %s", s.Phase)
	}
	if seat != s.Turn {
		return reject(ErrNotYourTurn, "seat %d moved on seat %d's turn", seat, s.Turn)
	}
	if s.ResetDue() {
		return reject(ErrRoundResetPending, "seat %d moved before the trick was reset", seat)
	}
	return nil
}

func foldPlay(r Reducer, s *State, evt event.Event) error {
	var p event.PlayPayload
	if err := decode(evt, &p); err != nil {
		return err
	}
	if err := checkActor(s, p.Seat); err != nil {
		return err
	}
	if len(p.Cards) == 0 {
		return reject(ErrUnrecognizedShape, "empty play")
	}
	player := &s.Players[p.Seat]
	remaining, err := player.Hand.Select(p.Cards)
	if err != nil {
		return rejectCause(ErrCardsNotInHand, err)
	}
	patterns := r.Patterns
	if patterns == nil {
		patterns = defaultReducer.Patterns
	}
	match, err := patterns.Classify(p.Cards)
	if err != nil {
		return rejectCause(ErrUnrecognizedShape, err)
	}
	if s.Incumbent != nil && !pattern.Beats(*s.Incumbent, match) {
		return reject(ErrDoesNotBeatIncumbent, "%s does not beat %s", match, *s.Incumbent)
	}

	player.Hand = remaining
	played := card.Hand(p.Cards).Clone()
	s.Played = append(s.Played, played...)
	s.Incumbent = &match
	s.IncumbentCards = played
	s.Leader = p.Seat
	s.PassesInRow = 0
	if len(remaining) == 0 {
		s.Phase = PhaseFinished
		s.Winner = p.Seat
		s.Turn = NoSeat
		return nil
	}
	s.Turn = nextSeat(p.Seat)
	return nil
}

func foldPass(_ Reducer, s *State, evt event.Event) error {
	var p event.PassPayload
	if err := decode(evt, &p); err != nil {
		return err
	}
	if err := checkActor(s, p.Seat); err != nil {
		return err
	}
	if s.Incumbent == nil {
		return reject(ErrIllegalPass, "seat %d leads the trick", p.Seat)
	}
	s.PassesInRow++
	s.Turn = nextSeat(p.Seat)
	return nil
}

func foldRoundReset(_ Reducer, s *State, evt event.Event) error {
	var p event.RoundResetPayload
	if err := decode(evt, &p); err != nil {
		return err
	}
	if !s.ResetDue() {
		return reject(ErrRoundResetNotDue, "%d passes in row", s.PassesInRow)
	}
	if p.Leader != s.Leader {
		return reject(ErrLeaderMismatch, "reset names seat %d, leader is %d", p.Leader, s.Leader)
	}
	s.Incumbent = nil
	s.IncumbentCards = nil
	s.PassesInRow = 0
	s.Turn = s.Leader
	return nil
}

func foldGameOver(_ Reducer, s *State, evt event.Event) error {
	var p event.GameOverPayload
	if err := decode(evt, &p); err != nil {
		return err
	}
	if s.Phase != PhaseFinished || s.Concluded {
		return reject(ErrWrongPhase, "game over during %s", s.Phase)
	}
	if p.Winner != s.Winner || Role(p.Role) != s.Players[s.Winner].Role {
		return reject(ErrWinnerMismatch, "game over names seat %d (%s), winner is %d", p.Winner, p.Role, s.Winner)
	}
	s.Concluded = true
	return nil
}
