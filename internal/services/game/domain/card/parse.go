package card

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// variationSelector is appended by some terminals to render suits as emoji.
const variationSelector = "\ufe0f"

var rankAliases = map[string]Rank{
	"3": Rank3, "4": Rank4, "5": Rank5, "6": Rank6, "7": Rank7, "8": Rank8, "9": Rank9,
	"10": Rank10, "T": Rank10,
	"J": RankJ, "Q": RankQ, "K": RankK,
	"A": RankA, "1": RankA, "01": RankA,
	"2": Rank2,
}

var suitAliases = map[string]Suit{
	"♠": Spades, "♤": Spades, "S": Spades,
	"♥": Hearts, "♡": Hearts, "H": Hearts,
	"♣": Clubs, "♧": Clubs, "C": Clubs,
	"♦": Diamonds, "♢": Diamonds, "D": Diamonds,
}

// ParseError reports a token that does not name a card identity.
type ParseError struct {
	Token  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse card %q: %s", e.Token, e.Reason)
}

// Parse reads a textual card code: a rank token followed by one suit, or one
// of the joker literals BJ and RJ. Matching is case-insensitive and accepts
// full-width input.
func Parse(token string) (Card, error) {
	normalized := normalizeToken(token)
	if normalized == "" {
		return 0, &ParseError{Token: token, Reason: "empty token"}
	}
	switch normalized {
	case "BJ":
		return SmallJoker, nil
	case "RJ":
		return BigJoker, nil
	}

	last, size := utf8.DecodeLastRuneInString(normalized)
	suit, ok := suitAliases[string(last)]
	if !ok {
		if _, isRank := rankAliases[normalized]; isRank {
			return 0, &ParseError{Token: token, Reason: "rank without suit"}
		}
		return 0, &ParseError{Token: token, Reason: "missing suit"}
	}
	rank, ok := rankAliases[normalized[:len(normalized)-size]]
	if !ok {
		return 0, &ParseError{Token: token, Reason: "unknown rank"}
	}
	return New(rank, suit)
}

// ParseAll parses every token, failing on the first invalid one.
func ParseAll(tokens []string) ([]Card, error) {
	cards := make([]Card, 0, len(tokens))
	for _, token := range tokens {
		c, err := Parse(token)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// MustParse parses codes and panics on failure. Intended for fixtures.
func MustParse(tokens ...string) []Card {
	cards, err := ParseAll(tokens)
	if err != nil {
		panic(err)
	}
	return cards
}

// Codes returns the textual code of each card.
func Codes(cards []Card) []string {
	codes := make([]string, len(cards))
	for i, c := range cards {
		codes[i] = c.Code()
	}
	return codes
}

func normalizeToken(token string) string {
	token = strings.ReplaceAll(token, variationSelector, "")
	token = width.Fold.String(token)
	return strings.ToUpper(strings.TrimSpace(token))
}
