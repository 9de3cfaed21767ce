package pattern

import "github.com/louisbranch/doudizhu/internal/services/game/domain/card"

var builtins = []struct {
	kind  Kind
	match Matcher
}{
	{KindRocket, matchRocket},
	{KindBomb, matchBomb},
	{KindFourWithTwoPairs, matchFourWithTwoPairs},
	{KindFourWithTwoSingles, matchFourWithTwoSingles},
	{KindAirplaneWithPairs, matchAirplaneWithPairs},
	{KindAirplaneWithSingles, matchAirplaneWithSingles},
	{KindAirplane, matchAirplane},
	{KindPairSequence, matchPairSequence},
	{KindStraight, matchStraight},
	{KindTripleWithPair, matchTripleWithPair},
	{KindTripleWithSingle, matchTripleWithSingle},
	{KindTriple, matchTriple},
	{KindPair, matchPair},
	{KindSingle, matchSingle},
}

const (
	minStraight     = 5
	minPairSequence = 3
	minAirplane     = 2
)

// tally counts cards per rank.
type tally struct {
	counts [card.RankCount]int
	valid  bool
}

func count(cards []card.Card) tally {
	t := tally{valid: true}
	for _, c := range cards {
		if !c.Valid() {
			t.valid = false
			continue
		}
		t.counts[c.Rank()]++
	}
	return t
}

// ranksWith returns, ascending, the ranks held exactly n times.
func (t tally) ranksWith(n int) []card.Rank {
	var ranks []card.Rank
	for r, c := range t.counts {
		if c == n {
			ranks = append(ranks, card.Rank(r))
		}
	}
	return ranks
}

// only reports whether every held rank appears one of the allowed number of times.
func (t tally) only(allowed ...int) bool {
	for _, c := range t.counts {
		if c == 0 {
			continue
		}
		ok := false
		for _, a := range allowed {
			if c == a {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func (t tally) rocketSplit() bool {
	return t.counts[card.RankSmallJoker] > 0 && t.counts[card.RankBigJoker] > 0
}

// consecutive reports whether ranks form an unbroken run below the 2.
func consecutive(ranks []card.Rank) bool {
	if len(ranks) == 0 {
		return false
	}
	for i, r := range ranks {
		if r >= card.Rank2 {
			return false
		}
		if i > 0 && r != ranks[i-1]+1 {
			return false
		}
	}
	return true
}

func normal(key card.Rank, dimension int) Match {
	return Match{Priority: PriorityNormal, Key: int(key), Dimension: dimension}
}

func matchRocket(cards []card.Card) (Match, bool) {
	t := count(cards)
	if len(cards) != 2 || !t.valid {
		return Match{}, false
	}
	if t.counts[card.RankSmallJoker] != 1 || t.counts[card.RankBigJoker] != 1 {
		return Match{}, false
	}
	return Match{Priority: PriorityRocket, Key: int(card.RankBigJoker)}, true
}

func matchBomb(cards []card.Card) (Match, bool) {
	t := count(cards)
	if len(cards) != 4 || !t.valid {
		return Match{}, false
	}
	quads := t.ranksWith(4)
	if len(quads) != 1 {
		return Match{}, false
	}
	return Match{Priority: PriorityBomb, Key: int(quads[0])}, true
}

func matchFourWithTwoSingles(cards []card.Card) (Match, bool) {
	t := count(cards)
	if len(cards) != 6 || !t.valid || !t.only(4, 1) || t.rocketSplit() {
		return Match{}, false
	}
	quads := t.ranksWith(4)
	if len(quads) != 1 || len(t.ranksWith(1)) != 2 {
		return Match{}, false
	}
	return Match{Priority: PriorityStrong, Key: int(quads[0])}, true
}

func matchFourWithTwoPairs(cards []card.Card) (Match, bool) {
	t := count(cards)
	if len(cards) != 8 || !t.valid || !t.only(4, 2) {
		return Match{}, false
	}
	quads := t.ranksWith(4)
	if len(quads) != 1 || len(t.ranksWith(2)) != 2 {
		return Match{}, false
	}
	return Match{Priority: PriorityStrong, Key: int(quads[0])}, true
}

func matchAirplane(cards []card.Card) (Match, bool) {
	t := count(cards)
	if len(cards) < 3*minAirplane || len(cards)%3 != 0 || !t.valid || !t.only(3) {
		return Match{}, false
	}
	triples := t.ranksWith(3)
	if !consecutive(triples) {
		return Match{}, false
	}
	return normal(triples[0], len(triples)), true
}

func matchAirplaneWithSingles(cards []card.Card) (Match, bool) {
	t := count(cards)
	if len(cards) < 4*minAirplane || len(cards)%4 != 0 || !t.valid || !t.only(3, 1) || t.rocketSplit() {
		return Match{}, false
	}
	n := len(cards) / 4
	triples := t.ranksWith(3)
	if len(triples) != n || len(t.ranksWith(1)) != n || !consecutive(triples) {
		return Match{}, false
	}
	return normal(triples[0], n), true
}

func matchAirplaneWithPairs(cards []card.Card) (Match, bool) {
	t := count(cards)
	if len(cards) < 5*minAirplane || len(cards)%5 != 0 || !t.valid || !t.only(3, 2) {
		return Match{}, false
	}
	n := len(cards) / 5
	triples := t.ranksWith(3)
	if len(triples) != n || len(t.ranksWith(2)) != n || !consecutive(triples) {
		return Match{}, false
	}
	return normal(triples[0], n), true
}

func matchPairSequence(cards []card.Card) (Match, bool) {
	t := count(cards)
	if len(cards) < 2*minPairSequence || len(cards)%2 != 0 || !t.valid || !t.only(2) {
		return Match{}, false
	}
	pairs := t.ranksWith(2)
	if !consecutive(pairs) {
		return Match{}, false
	}
	return normal(pairs[0], len(pairs)), true
}

func matchStraight(cards []card.Card) (Match, bool) {
	t := count(cards)
	if len(cards) < minStraight || !t.valid || !t.only(1) {
		return Match{}, false
	}
	ranks := t.ranksWith(1)
	if !consecutive(ranks) {
		return Match{}, false
	}
	return normal(ranks[0], len(ranks)), true
}

func matchTripleWithPair(cards []card.Card) (Match, bool) {
	t := count(cards)
	if len(cards) != 5 || !t.valid || !t.only(3, 2) {
		return Match{}, false
	}
	triples := t.ranksWith(3)
	if len(triples) != 1 || len(t.ranksWith(2)) != 1 {
		return Match{}, false
	}
	return normal(triples[0], 0), true
}

func matchTripleWithSingle(cards []card.Card) (Match, bool) {
	t := count(cards)
	if len(cards) != 4 || !t.valid || !t.only(3, 1) {
		return Match{}, false
	}
	triples := t.ranksWith(3)
	if len(triples) != 1 {
		return Match{}, false
	}
	return normal(triples[0], 0), true
}

func matchTriple(cards []card.Card) (Match, bool) {
	t := count(cards)
	if len(cards) != 3 || !t.valid {
		return Match{}, false
	}
	triples := t.ranksWith(3)
	if len(triples) != 1 {
		return Match{}, false
	}
	return normal(triples[0], 0), true
}

func matchPair(cards []card.Card) (Match, bool) {
	t := count(cards)
	if len(cards) != 2 || !t.valid {
		return Match{}, false
	}
	pairs := t.ranksWith(2)
	if len(pairs) != 1 {
		return Match{}, false
	}
	return normal(pairs[0], 0), true
}

func matchSingle(cards []card.Card) (Match, bool) {
	if len(cards) != 1 || !cards[0].Valid() {
		return Match{}, false
	}
	return normal(cards[0].Rank(), 0), true
}
