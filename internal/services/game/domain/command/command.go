package command

import (
	"github.com/louisbranch/doudizhu/internal/services/game/domain/card"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/event"
)

// Type identifies the command type string.
type Type string

const (
	TypeDeal           Type = "game.deal"
	TypeBid            Type = "game.bid"
	TypePlay           Type = "game.play"
	TypePass           Type = "game.pass"
	TypeAssignLandlord Type = "game.assign_landlord"
)

// Command captures one intent against the game state.
type Command struct {
	Type  Type
	Seat  int
	Bid   int
	Cards []card.Card
	Deal  event.DealPayload
}

// Deal starts a game from a concrete card assignment.
func Deal(payload event.DealPayload) Command {
	return Command{Type: TypeDeal, Deal: payload}
}

// Bid offers value for seat; 0 declines.
func Bid(seat, value int) Command {
	return Command{Type: TypeBid, Seat: seat, Bid: value}
}

// Play proposes the exact card identities for seat.
func Play(seat int, cards []card.Card) Command {
	return Command{Type: TypePlay, Seat: seat, Cards: cards}
}

// Pass declines to beat the incumbent play.
func Pass(seat int) Command {
	return Command{Type: TypePass, Seat: seat}
}

// AssignLandlord resolves exhausted bidding in favor of seat.
func AssignLandlord(seat int) Command {
	return Command{Type: TypeAssignLandlord, Seat: seat}
}
