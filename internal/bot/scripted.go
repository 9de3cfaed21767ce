package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/doudizhu/internal/services/game/domain/card"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/engine"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/game"
)

// ErrScriptExhausted indicates a scripted controller was asked for more
// intents than it holds and has no fallback.
var ErrScriptExhausted = errors.New("script exhausted")

// Scripted answers from fixed queues of bids and plays, then defers to
// Fallback. Rejected intents are recorded and not retried.
type Scripted struct {
	Bids  []int
	Plays []engine.Intent
	// Fallback answers once the queues are empty. Nil returns
	// ErrScriptExhausted.
	Fallback engine.Controller
	// Rejections collects every refusal reported by the runner.
	Rejections []error
}

var (
	_ engine.Controller        = (*Scripted)(nil)
	_ engine.RejectionObserver = (*Scripted)(nil)
)

// ParsePlays reads one intent per entry: "pass", or space separated card
// codes such as "3♠ 3♥".
func ParsePlays(lines ...string) ([]engine.Intent, error) {
	intents := make([]engine.Intent, 0, len(lines))
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 1 && strings.EqualFold(fields[0], "pass") {
			intents = append(intents, engine.PassIntent())
			continue
		}
		cards, err := card.ParseAll(fields)
		if err != nil {
			return nil, fmt.Errorf("play %d: %w", i+1, err)
		}
		intents = append(intents, engine.PlayIntent(cards))
	}
	return intents, nil
}

// DecideBid returns the next scripted bid.
func (s *Scripted) DecideBid(ctx context.Context, view game.View) (int, error) {
	if len(s.Bids) > 0 {
		bid := s.Bids[0]
		s.Bids = s.Bids[1:]
		return bid, nil
	}
	if s.Fallback != nil {
		return s.Fallback.DecideBid(ctx, view)
	}
	return 0, fmt.Errorf("seat %d bid: %w", view.Seat, ErrScriptExhausted)
}

// DecidePlay returns the next scripted play.
func (s *Scripted) DecidePlay(ctx context.Context, view game.View) (engine.Intent, error) {
	if len(s.Plays) > 0 {
		intent := s.Plays[0]
		s.Plays = s.Plays[1:]
		return intent, nil
	}
	if s.Fallback != nil {
		return s.Fallback.DecidePlay(ctx, view)
	}
	return engine.Intent{}, fmt.Errorf("seat %d play: %w", view.Seat, ErrScriptExhausted)
}

// Rejected records err.
func (s *Scripted) Rejected(_ game.View, err error) {
	s.Rejections = append(s.Rejections, err)
}
