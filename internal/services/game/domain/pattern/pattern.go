// Package pattern classifies candidate plays into hand shapes and orders them.
//
// Shapes are a tagged variant: a Kind plus a ranking key. Matchers are pure
// functions held in a registration-ordered table, so new shapes can be added
// without touching the comparison rule.
package pattern

import "fmt"

// Kind names a recognized hand shape.
type Kind string

const (
	KindSingle              Kind = "single"
	KindPair                Kind = "pair"
	KindTriple              Kind = "triple"
	KindTripleWithSingle    Kind = "triple_with_single"
	KindTripleWithPair      Kind = "triple_with_pair"
	KindStraight            Kind = "straight"
	KindPairSequence        Kind = "pair_sequence"
	KindAirplane            Kind = "airplane"
	KindAirplaneWithSingles Kind = "airplane_with_singles"
	KindAirplaneWithPairs   Kind = "airplane_with_pairs"
	KindFourWithTwoSingles  Kind = "four_with_two_singles"
	KindFourWithTwoPairs    Kind = "four_with_two_pairs"
	KindBomb                Kind = "bomb"
	KindRocket              Kind = "rocket"
)

// Priority is the cross-shape dominance tier.
type Priority int

const (
	PriorityNormal Priority = 10
	PriorityStrong Priority = 20
	PriorityBomb   Priority = 90
	PriorityRocket Priority = 100
)

// Match is the classification of a concrete set of cards.
type Match struct {
	Kind     Kind     `json:"kind"`
	Priority Priority `json:"priority"`
	// Dimension separates same-kind matches that may not be compared, such as
	// straights of different length. Zero for fixed-size shapes.
	Dimension int `json:"dimension,omitempty"`
	// Key orders matches of the same kind and dimension.
	Key  int `json:"key"`
	Size int `json:"size"`
}

func (m Match) String() string {
	if m.Dimension > 0 {
		return fmt.Sprintf("%s(%d) key=%d", m.Kind, m.Dimension, m.Key)
	}
	return fmt.Sprintf("%s key=%d", m.Kind, m.Key)
}

// Beats reports whether challenger may replace incumbent.
//
// A higher tier always wins. Within a tier the challenger must repeat the
// incumbent's kind and dimension and carry a greater key; every other pairing
// is illegal.
func Beats(incumbent, challenger Match) bool {
	if challenger.Priority != incumbent.Priority {
		return challenger.Priority > incumbent.Priority
	}
	if challenger.Kind != incumbent.Kind || challenger.Dimension != incumbent.Dimension {
		return false
	}
	return challenger.Key > incumbent.Key
}
