package card

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrCardNotInHand is matched by every failed exact-identity selection.
var ErrCardNotInHand = errors.New("card not in hand")

// NotInHandError lists the requested identities a hand cannot supply.
type NotInHandError struct {
	Missing []string
}

func (e *NotInHandError) Error() string {
	return fmt.Sprintf("card not in hand: %s", strings.Join(e.Missing, " "))
}

// Is matches ErrCardNotInHand.
func (e *NotInHandError) Is(target error) bool {
	return target == ErrCardNotInHand
}

// Hand is an unordered multiset of card identities owned by one player.
type Hand []Card

// Clone returns an independent copy of the hand.
func (h Hand) Clone() Hand {
	if h == nil {
		return nil
	}
	return slices.Clone(h)
}

// Sorted returns a copy ordered by value, then suit.
func (h Hand) Sorted() Hand {
	sorted := h.Clone()
	Sort(sorted)
	return sorted
}

// Contains reports whether the hand holds identity c.
func (h Hand) Contains(c Card) bool {
	return slices.Contains(h, c)
}

// Select removes exactly the requested identities and returns the remaining
// hand. The receiver is not modified. Requesting an identity more times than
// the hand holds it fails the same way as requesting an absent one.
func (h Hand) Select(cards []Card) (Hand, error) {
	held := make(map[Card]int, len(h))
	for _, c := range h {
		held[c]++
	}
	var missing []string
	for _, c := range cards {
		if held[c] == 0 {
			missing = append(missing, c.Code())
			continue
		}
		held[c]--
	}
	if len(missing) > 0 {
		return nil, &NotInHandError{Missing: missing}
	}
	remaining := make(Hand, 0, len(h)-len(cards))
	for _, c := range h {
		if held[c] > 0 {
			remaining = append(remaining, c)
			held[c]--
		}
	}
	return remaining, nil
}

// SelectCodes resolves textual codes against the hand. A token that names a
// rank but no identity, such as "3", is never matched to a suit on the
// caller's behalf.
func (h Hand) SelectCodes(tokens []string) ([]Card, Hand, error) {
	cards := make([]Card, 0, len(tokens))
	var missing []string
	for _, token := range tokens {
		c, err := Parse(token)
		if err != nil {
			missing = append(missing, token)
			continue
		}
		cards = append(cards, c)
	}
	if len(missing) > 0 {
		return nil, nil, &NotInHandError{Missing: missing}
	}
	remaining, err := h.Select(cards)
	if err != nil {
		return nil, nil, err
	}
	return cards, remaining, nil
}

// Sort orders cards in place by value, then suit.
func Sort(cards []Card) {
	slices.SortFunc(cards, compare)
}

func compare(a, b Card) int {
	if a.Value() != b.Value() {
		return a.Value() - b.Value()
	}
	return int(a) - int(b)
}
