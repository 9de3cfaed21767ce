package pattern

import (
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/doudizhu/internal/services/game/domain/card"
)

// ErrNoMatch indicates the cards form no registered shape.
var ErrNoMatch = errors.New("cards form no recognized shape")

// Matcher classifies cards into one shape. It must not retain or modify the
// slice it receives.
type Matcher func(cards []card.Card) (Match, bool)

type entry struct {
	kind  Kind
	match Matcher
}

// Registry holds matchers in registration order.
type Registry struct {
	entries []entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Default returns a registry with every built-in shape registered.
func Default() *Registry {
	r := NewRegistry()
	for _, b := range builtins {
		if err := r.Register(b.kind, b.match); err != nil {
			panic(fmt.Sprintf("register built-in pattern %s: %v", b.kind, err))
		}
	}
	return r
}

// Register appends a matcher for kind. Kinds are unique per registry.
func (r *Registry) Register(kind Kind, matcher Matcher) error {
	if r == nil {
		return errors.New("registry is required")
	}
	if strings.TrimSpace(string(kind)) == "" {
		return errors.New("pattern kind is required")
	}
	if matcher == nil {
		return fmt.Errorf("pattern %s: matcher is required", kind)
	}
	for _, e := range r.entries {
		if e.kind == kind {
			return fmt.Errorf("pattern %s already registered", kind)
		}
	}
	r.entries = append(r.entries, entry{kind: kind, match: matcher})
	return nil
}

// Kinds lists registered kinds in registration order.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, len(r.entries))
	for i, e := range r.entries {
		kinds[i] = e.kind
	}
	return kinds
}

// Classify returns the first registered shape the cards form.
func (r *Registry) Classify(cards []card.Card) (Match, error) {
	if len(cards) == 0 {
		return Match{}, ErrNoMatch
	}
	for _, e := range r.entries {
		if m, ok := e.match(cards); ok {
			m.Kind = e.kind
			m.Size = len(cards)
			return m, nil
		}
	}
	return Match{}, ErrNoMatch
}

// ClassifyAll returns every registered shape the cards form. Built-in shapes
// are mutually exclusive, so a well-formed registry yields at most one.
func (r *Registry) ClassifyAll(cards []card.Card) []Match {
	var matches []Match
	if len(cards) == 0 {
		return matches
	}
	for _, e := range r.entries {
		if m, ok := e.match(cards); ok {
			m.Kind = e.kind
			m.Size = len(cards)
			matches = append(matches, m)
		}
	}
	return matches
}
