package game

import (
	"slices"

	"github.com/louisbranch/doudizhu/internal/services/game/domain/card"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/pattern"
)

// View is the read-only snapshot a controller or renderer sees for one seat.
// Every slice is a fresh copy.
type View struct {
	GameID    string
	Seat      int
	Phase     Phase
	Turn      int
	Names     [Seats]string
	Roles     [Seats]Role
	HandSizes [Seats]int
	Hand      card.Hand
	Bids      []Bid
	// HighestBid is the bid a later seat must exceed to take the lead.
	HighestBid     int
	Landlord       int
	Bottom         []card.Card
	Incumbent      *pattern.Match
	IncumbentCards []card.Card
	Leader         int
	PassesInRow    int
	Winner         int
}

// Leading reports whether the viewer may play any recognized shape.
func (v View) Leading() bool {
	return v.Incumbent == nil
}

// View returns the snapshot for seat. The bottom cards are only revealed to
// the landlord.
func (s State) View(seat int) View {
	v := View{
		GameID:         s.GameID,
		Seat:           seat,
		Phase:          s.Phase,
		Turn:           s.Turn,
		Bids:           slices.Clone(s.Bids),
		HighestBid:     s.HighestBid,
		Landlord:       s.Landlord,
		IncumbentCards: slices.Clone(s.IncumbentCards),
		Leader:         s.Leader,
		PassesInRow:    s.PassesInRow,
		Winner:         s.Winner,
	}
	for i, p := range s.Players {
		v.Names[i] = p.Name
		v.Roles[i] = p.Role
		v.HandSizes[i] = len(p.Hand)
	}
	if ValidSeat(seat) {
		v.Hand = s.Players[seat].Hand.Sorted()
		if s.BottomTaken && seat == s.Landlord {
			v.Bottom = slices.Clone(s.Bottom)
		}
	}
	if s.Incumbent != nil {
		incumbent := *s.Incumbent
		v.Incumbent = &incumbent
	}
	return v
}
