package pattern

import (
	"cmp"
	"slices"
	"strings"

	"github.com/louisbranch/doudizhu/internal/services/game/domain/card"
)

// Hint is a play a hand can make, already classified.
type Hint struct {
	Cards []card.Card `json:"cards"`
	Match Match       `json:"match"`
}

// Hints enumerates plays from hand that beat incumbent, or every leading
// play when incumbent is nil. Attachments use the lowest available ranks.
// Results are ordered weakest first: by priority, then key, then larger
// plays before smaller ones of equal key.
func (r *Registry) Hints(hand []card.Card, incumbent *Match) []Hint {
	g := groupByRank(hand)
	seen := map[string]bool{}
	var hints []Hint
	for _, candidate := range g.candidates() {
		m, err := r.Classify(candidate)
		if err != nil {
			continue
		}
		if incumbent != nil && !Beats(*incumbent, m) {
			continue
		}
		card.Sort(candidate)
		key := strings.Join(card.Codes(candidate), ",")
		if seen[key] {
			continue
		}
		seen[key] = true
		hints = append(hints, Hint{Cards: candidate, Match: m})
	}
	slices.SortStableFunc(hints, func(a, b Hint) int {
		if c := cmp.Compare(a.Match.Priority, b.Match.Priority); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Match.Key, b.Match.Key); c != 0 {
			return c
		}
		return cmp.Compare(b.Match.Size, a.Match.Size)
	})
	return hints
}

type rankGroups [card.RankCount][]card.Card

func groupByRank(hand []card.Card) rankGroups {
	var g rankGroups
	sorted := slices.Clone(hand)
	card.Sort(sorted)
	for _, c := range sorted {
		if c.Valid() {
			g[c.Rank()] = append(g[c.Rank()], c)
		}
	}
	return g
}

func (g rankGroups) candidates() [][]card.Card {
	var out [][]card.Card
	for r := range g {
		rank := card.Rank(r)
		held := g[r]
		for size := 1; size <= len(held) && size <= 4; size++ {
			out = append(out, slices.Clone(held[:size]))
		}
		if len(held) >= 3 {
			triple := held[:3]
			out = append(out, g.attach(triple, []card.Rank{rank}, 1, 1)...)
			out = append(out, g.attach(triple, []card.Rank{rank}, 1, 2)...)
		}
		if len(held) == 4 {
			out = append(out, g.attach(held, []card.Rank{rank}, 2, 1)...)
			out = append(out, g.attach(held, []card.Rank{rank}, 2, 2)...)
		}
	}
	if len(g[card.RankSmallJoker]) > 0 && len(g[card.RankBigJoker]) > 0 {
		out = append(out, []card.Card{g[card.RankSmallJoker][0], g[card.RankBigJoker][0]})
	}
	out = append(out, g.runs(1, minStraight)...)
	out = append(out, g.runs(2, minPairSequence)...)
	for _, run := range g.runs(3, minAirplane) {
		out = append(out, run)
		n := len(run) / 3
		var runRanks []card.Rank
		for i := 0; i < len(run); i += 3 {
			runRanks = append(runRanks, run[i].Rank())
		}
		out = append(out, g.attach(run, runRanks, n, 1)...)
		out = append(out, g.attach(run, runRanks, n, 2)...)
	}
	return out
}

// runs returns every consecutive run of width cards per rank with at least
// minLength ranks, all below the 2.
func (g rankGroups) runs(width, minLength int) [][]card.Card {
	var out [][]card.Card
	for start := card.Rank3; start < card.Rank2; start++ {
		var run []card.Card
		for r := start; r < card.Rank2 && len(g[r]) >= width; r++ {
			run = append(run, g[r][:width]...)
			if int(r-start)+1 >= minLength {
				out = append(out, slices.Clone(run))
			}
		}
	}
	return out
}

// attach adds count groups of width cards from the lowest ranks outside
// exclude. It returns nothing when the hand cannot supply them.
func (g rankGroups) attach(core []card.Card, exclude []card.Rank, count, width int) [][]card.Card {
	play := slices.Clone(core)
	picked := 0
	usedJoker := false
	for r := range g {
		if picked == count {
			break
		}
		rank := card.Rank(r)
		if slices.Contains(exclude, rank) || len(g[r]) < width {
			continue
		}
		if rank.Joker() {
			if usedJoker {
				continue
			}
			usedJoker = true
		}
		play = append(play, g[r][:width]...)
		picked++
	}
	if picked < count {
		return nil
	}
	return [][]card.Card{play}
}
