// Package card models the 54-card deck: card identities, the canonical rank
// order and exact-identity selection from a hand.
//
// A Card is an identity, not a rank. Two cards of the same rank are distinct
// values, so removing cards from a hand never has to guess which suit the
// caller meant.
package card

import (
	"encoding/json"
	"fmt"
)

// Card is one of the 54 card identities. Values 0..51 encode rank*4+suit;
// 52 is the small joker and 53 the big joker.
type Card uint8

const (
	// SmallJoker is the black joker, ranked above every suited card.
	SmallJoker Card = 52
	// BigJoker is the red joker, the highest card in the deck.
	BigJoker Card = 53

	// DeckSize is the number of identities in one deck.
	DeckSize = 54
)

// Rank orders cards from 3 (lowest) to the big joker (highest).
type Rank uint8

const (
	Rank3 Rank = iota
	Rank4
	Rank5
	Rank6
	Rank7
	Rank8
	Rank9
	Rank10
	RankJ
	RankQ
	RankK
	RankA
	Rank2
	RankSmallJoker
	RankBigJoker
)

// RankCount is the number of distinct ranks including both jokers.
const RankCount = 15

var rankTokens = [RankCount]string{"3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A", "2", "BJ", "RJ"}

// String returns the canonical rank token.
func (r Rank) String() string {
	if int(r) >= len(rankTokens) {
		return fmt.Sprintf("Rank(%d)", uint8(r))
	}
	return rankTokens[r]
}

// Joker reports whether the rank belongs to a joker.
func (r Rank) Joker() bool {
	return r == RankSmallJoker || r == RankBigJoker
}

// Suit identifies the four suits of non-joker cards.
type Suit uint8

const (
	Spades Suit = iota
	Hearts
	Clubs
	Diamonds
)

var suitGlyphs = [4]string{"♠", "♥", "♣", "♦"}

// String returns the suit glyph.
func (s Suit) String() string {
	if int(s) >= len(suitGlyphs) {
		return fmt.Sprintf("Suit(%d)", uint8(s))
	}
	return suitGlyphs[s]
}

// New builds the suited card identity for rank r and suit s.
func New(r Rank, s Suit) (Card, error) {
	if r.Joker() || r >= RankCount {
		return 0, fmt.Errorf("rank %s has no suit", r)
	}
	if s > Diamonds {
		return 0, fmt.Errorf("unknown suit %d", s)
	}
	return Card(uint8(r)*4 + uint8(s)), nil
}

// Valid reports whether c is one of the 54 identities.
func (c Card) Valid() bool {
	return c < DeckSize
}

// Rank returns the card rank.
func (c Card) Rank() Rank {
	switch c {
	case SmallJoker:
		return RankSmallJoker
	case BigJoker:
		return RankBigJoker
	}
	return Rank(c / 4)
}

// Suit returns the card suit. Jokers carry no suit and report false.
func (c Card) Suit() (Suit, bool) {
	if c >= SmallJoker {
		return 0, false
	}
	return Suit(c % 4), true
}

// Value is the numeric comparison value: the rank index, 0 for a 3 up to 14
// for the big joker.
func (c Card) Value() int {
	return int(c.Rank())
}

// Code returns the textual code, e.g. "10♥" or "BJ".
func (c Card) Code() string {
	if !c.Valid() {
		return fmt.Sprintf("Card(%d)", uint8(c))
	}
	if suit, ok := c.Suit(); ok {
		return c.Rank().String() + suit.String()
	}
	return c.Rank().String()
}

// String implements fmt.Stringer.
func (c Card) String() string {
	return c.Code()
}

// MarshalJSON encodes the card as its textual code.
func (c Card) MarshalJSON() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid card %d", uint8(c))
	}
	return json.Marshal(c.Code())
}

// UnmarshalJSON decodes a textual card code.
func (c *Card) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return fmt.Errorf("card code: %w", err)
	}
	parsed, err := Parse(code)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Deck returns the 54 identities in canonical order.
func Deck() []Card {
	deck := make([]Card, DeckSize)
	for i := range deck {
		deck[i] = Card(i)
	}
	return deck
}
