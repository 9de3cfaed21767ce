package event

import "github.com/louisbranch/doudizhu/internal/services/game/domain/card"

// DealPayload records the concrete card assignment of a new game. Shuffling
// happens before the draft is built, so replay never re-derives randomness.
type DealPayload struct {
	GameID  string        `json:"game_id"`
	Players []string      `json:"players"`
	Hands   [][]card.Card `json:"hands"`
	Bottom  []card.Card   `json:"bottom"`
	// FirstBidder is the seat that bids first.
	FirstBidder int `json:"first_bidder"`
	// FallbackLandlord designates the landlord when every seat bids 0.
	FallbackLandlord *int `json:"fallback_landlord,omitempty"`
}

// BidPayload captures one seat's bid, 0 meaning no bid.
type BidPayload struct {
	Seat int `json:"seat"`
	Bid  int `json:"bid"`
}

// LandlordAssignedPayload names the seat that takes the bottom cards.
type LandlordAssignedPayload struct {
	Seat int `json:"seat"`
}

// PlayPayload lists the exact identities a seat plays.
type PlayPayload struct {
	Seat  int         `json:"seat"`
	Cards []card.Card `json:"cards"`
}

// PassPayload captures a seat declining to beat the incumbent play.
type PassPayload struct {
	Seat int `json:"seat"`
}

// RoundResetPayload names the seat that leads the next trick.
type RoundResetPayload struct {
	Leader int `json:"leader"`
}

// GameOverPayload records the seat that emptied its hand first.
type GameOverPayload struct {
	Winner int    `json:"winner"`
	Role   string `json:"role"`
}
