package game

import (
	"slices"

	"github.com/louisbranch/doudizhu/internal/services/game/domain/card"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/pattern"
)

// Seats is the fixed table size.
const Seats = 3

// NoSeat marks an unset seat reference.
const NoSeat = -1

// Phase is the coarse lifecycle stage of a game.
type Phase string

const (
	PhaseDealing  Phase = "dealing"
	PhaseBidding  Phase = "bidding"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

// Role is assigned once, when bidding resolves.
type Role string

const (
	RoleUnassigned Role = ""
	RoleLandlord   Role = "landlord"
	RolePeasant    Role = "peasant"
)

// Player is one seat at the table.
type Player struct {
	Name string
	Seat int
	Role Role
	Hand card.Hand
}

// Bid is one entry of the bidding history.
type Bid struct {
	Seat  int
	Value int
}

// State is the authoritative game snapshot. It is only ever produced by
// Apply; callers receive copies and never share slices with the reducer.
type State struct {
	GameID  string
	Phase   Phase
	Players [Seats]Player

	// Bottom holds the three undealt cards until the landlord takes them.
	Bottom      []card.Card
	BottomTaken bool

	FirstBidder   int
	Fallback      *int
	Bids          []Bid
	HighestBid    int
	HighestBidder int
	Landlord      int

	// Turn is the seat expected to act next, NoSeat once the game ends.
	Turn int
	// Incumbent is the unbeaten play of the current trick, nil when the
	// trick is open.
	Incumbent      *pattern.Match
	IncumbentCards []card.Card
	// Leader is the seat whose play is the incumbent (or was, until a reset).
	Leader int
	// PassesInRow counts passes since the last PLAY or ROUND_RESET. Only the
	// PLAY, PASS and ROUND_RESET folds write it.
	PassesInRow int
	Played      []card.Card

	Winner    int
	Concluded bool
	LastSeq   uint64
}

// New returns the pre-deal state every game and every replay starts from.
func New() State {
	s := State{
		Phase:         PhaseDealing,
		FirstBidder:   NoSeat,
		HighestBidder: NoSeat,
		Landlord:      NoSeat,
		Turn:          NoSeat,
		Leader:        NoSeat,
		Winner:        NoSeat,
	}
	for seat := range s.Players {
		s.Players[seat].Seat = seat
	}
	return s
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := s
	for seat := range out.Players {
		out.Players[seat].Hand = s.Players[seat].Hand.Clone()
	}
	out.Bottom = slices.Clone(s.Bottom)
	out.Bids = slices.Clone(s.Bids)
	out.IncumbentCards = slices.Clone(s.IncumbentCards)
	out.Played = slices.Clone(s.Played)
	if s.Fallback != nil {
		fallback := *s.Fallback
		out.Fallback = &fallback
	}
	if s.Incumbent != nil {
		incumbent := *s.Incumbent
		out.Incumbent = &incumbent
	}
	return out
}

// CardCount totals cards in hands, the untaken bottom and play history. It
// is 54 in every state after DEAL.
func (s State) CardCount() int {
	total := len(s.Played)
	for _, p := range s.Players {
		total += len(p.Hand)
	}
	if !s.BottomTaken {
		total += len(s.Bottom)
	}
	return total
}

// BiddingComplete reports whether every seat has bid once.
func (s State) BiddingComplete() bool {
	return s.Phase == PhaseBidding && len(s.Bids) == Seats
}

// BiddingExhausted reports completed bidding where every seat declined.
func (s State) BiddingExhausted() bool {
	return s.BiddingComplete() && s.HighestBid == 0
}

// ResetDue reports whether the trick must be cleared before anyone acts.
func (s State) ResetDue() bool {
	return s.Phase == PhasePlaying && s.PassesInRow == Seats-1
}

func nextSeat(seat int) int {
	return (seat + 1) % Seats
}

// ValidSeat reports whether seat indexes a player.
func ValidSeat(seat int) bool {
	return seat >= 0 && seat < Seats
}
