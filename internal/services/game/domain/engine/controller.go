package engine

import (
	"context"

	"github.com/louisbranch/doudizhu/internal/services/game/domain/card"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/game"
)

// Intent is an unvalidated move proposal: either a pass or a set of exact
// card identities.
type Intent struct {
	Pass  bool
	Cards []card.Card
}

// PlayIntent proposes playing cards.
func PlayIntent(cards []card.Card) Intent {
	return Intent{Cards: cards}
}

// PassIntent proposes passing.
func PassIntent() Intent {
	return Intent{Pass: true}
}

// Controller supplies intents for one seat. Calls may block, e.g. while
// waiting on a human; the engine validates whatever comes back.
type Controller interface {
	// DecideBid returns a bid in [0,3], 0 meaning no bid.
	DecideBid(ctx context.Context, view game.View) (int, error)
	DecidePlay(ctx context.Context, view game.View) (Intent, error)
}

// RejectionObserver is implemented by controllers that want to learn why an
// intent was refused before they are asked again.
type RejectionObserver interface {
	Rejected(view game.View, err error)
}
