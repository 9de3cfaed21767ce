package bot

import (
	"context"

	"github.com/louisbranch/doudizhu/internal/services/game/domain/card"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/engine"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/game"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/pattern"
)

// Naive bids on raw hand strength and always plays the weakest legal hint.
// It keeps bombs for beating opponents and never challenges its partner.
type Naive struct {
	// Patterns enumerates legal plays. Nil uses pattern.Default().
	Patterns *pattern.Registry
}

var _ engine.Controller = Naive{}

func (n Naive) registry() *pattern.Registry {
	if n.Patterns != nil {
		return n.Patterns
	}
	return pattern.Default()
}

// DecideBid bids the hand's strength when it beats the highest bid so far.
func (n Naive) DecideBid(_ context.Context, view game.View) (int, error) {
	bid := strength(view.Hand)
	if bid <= view.HighestBid {
		return 0, nil
	}
	return bid, nil
}

// strength scores a hand from 0 to game.MaxBid by its high cards and bombs.
func strength(hand card.Hand) int {
	var counts [card.RankCount]int
	for _, c := range hand {
		counts[c.Rank()]++
	}
	score := 0
	if counts[card.RankSmallJoker] > 0 && counts[card.RankBigJoker] > 0 {
		score += 4
	} else {
		score += 2 * (counts[card.RankSmallJoker] + counts[card.RankBigJoker])
	}
	score += counts[card.Rank2]
	for rank := card.Rank3; rank <= card.Rank2; rank++ {
		if counts[rank] == 4 {
			score += 3
		}
	}
	switch {
	case score >= 7:
		return game.MaxBid
	case score >= 5:
		return 2
	case score >= 3:
		return 1
	default:
		return 0
	}
}

// DecidePlay leads with the weakest non-bomb shape, or follows with the
// weakest hint that beats the incumbent.
func (n Naive) DecidePlay(_ context.Context, view game.View) (engine.Intent, error) {
	hints := n.registry().Hints(view.Hand, view.Incumbent)
	if view.Leading() {
		if len(hints) == 0 {
			return engine.PassIntent(), nil
		}
		for _, h := range hints {
			if h.Match.Priority < pattern.PriorityBomb {
				return engine.PlayIntent(h.Cards), nil
			}
		}
		return engine.PlayIntent(hints[0].Cards), nil
	}
	if partners(view, view.Leader) {
		return engine.PassIntent(), nil
	}
	for _, h := range hints {
		if h.Match.Priority >= pattern.PriorityBomb && !endangered(view) {
			continue
		}
		return engine.PlayIntent(h.Cards), nil
	}
	return engine.PassIntent(), nil
}

// partners reports whether seat plays on the viewer's side.
func partners(view game.View, seat int) bool {
	if seat == view.Seat || !game.ValidSeat(seat) {
		return false
	}
	return view.Roles[seat] == game.RolePeasant && view.Roles[view.Seat] == game.RolePeasant
}

// endangered reports whether an opponent is close enough to going out that a
// bomb is worth spending.
func endangered(view game.View) bool {
	for seat, size := range view.HandSizes {
		if seat == view.Seat || partners(view, seat) {
			continue
		}
		if size <= 4 {
			return true
		}
	}
	return false
}
