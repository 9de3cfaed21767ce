package game

import (
	"math/rand/v2"

	"github.com/louisbranch/doudizhu/internal/services/game/domain/card"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/event"
)

// NewDeal shuffles a fresh deck with rng and returns the concrete DEAL
// payload. The first bidder and the fallback landlord are drawn from the same
// source, so one seed reproduces a whole game setup.
func NewDeal(rng *rand.Rand, gameID string, players [Seats]string) event.DealPayload {
	deck := card.Deck()
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	hands := make([][]card.Card, Seats)
	for i := 0; i < HandSize*Seats; i++ {
		hands[i%Seats] = append(hands[i%Seats], deck[i])
	}
	for seat := range hands {
		card.Sort(hands[seat])
	}
	bottom := append([]card.Card(nil), deck[HandSize*Seats:]...)
	card.Sort(bottom)

	fallback := rng.IntN(Seats)
	return event.DealPayload{
		GameID:           gameID,
		Players:          players[:],
		Hands:            hands,
		Bottom:           bottom,
		FirstBidder:      rng.IntN(Seats),
		FallbackLandlord: &fallback,
	}
}
