package replay

import (
	"context"
	"errors"
	"math/rand/v2"
	"reflect"
	"testing"

	apperrors "github.com/louisbranch/doudizhu/internal/platform/errors"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/command"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/event"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/game"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/pattern"
)

type memoryStore struct {
	events []event.Event
	err    error
}

func (s *memoryStore) ListEvents(_ context.Context, afterSeq uint64, limit int) ([]event.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []event.Event
	for _, evt := range s.events {
		if evt.Seq <= afterSeq {
			continue
		}
		out = append(out, evt)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// playGame runs a seeded game to completion, recording every event and the
// live state after each one.
func playGame(t *testing.T, seed uint64) (*memoryStore, []game.State) {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, 7))
	state := game.New()
	store := &memoryStore{}
	states := []game.State{state}
	commit := func(cmd command.Command) {
		decision := game.Decide(state, cmd)
		if err := decision.Err(); err != nil {
			t.Fatalf("%s: %v", cmd.Type, err)
		}
		for _, draft := range decision.Events {
			evt := event.Event{Seq: state.LastSeq + 1, Type: draft.Type, Payload: draft.Payload}
			next, err := game.Apply(state, evt)
			if err != nil {
				t.Fatalf("apply %s: %v", evt.Type, err)
			}
			store.events = append(store.events, evt)
			state = next
			states = append(states, state)
		}
	}

	commit(command.Deal(game.NewDeal(rng, "replay", [game.Seats]string{"a", "b", "c"})))
	for state.Phase == game.PhaseBidding {
		commit(command.Bid(state.Turn, rng.IntN(game.MaxBid+1)))
	}
	registry := pattern.Default()
	for state.Phase == game.PhasePlaying {
		seat := state.Turn
		hints := registry.Hints(state.Players[seat].Hand, state.Incumbent)
		if len(hints) == 0 {
			commit(command.Pass(seat))
			continue
		}
		commit(command.Play(seat, hints[0].Cards))
	}
	return store, states
}

func TestRebuildMatchesLiveState(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		store, states := playGame(t, seed)
		result, err := Rebuild(context.Background(), store, Options{PageSize: 7})
		if err != nil {
			t.Fatalf("seed %d: rebuild: %v", seed, err)
		}
		live := states[len(states)-1]
		if !reflect.DeepEqual(result.State, live) {
			t.Fatalf("seed %d: replayed state differs from live state", seed)
		}
		if result.Applied != len(store.events) || result.LastSeq != uint64(len(store.events)) {
			t.Fatalf("seed %d: expected %d applied, got %d (last seq %d)", seed, len(store.events), result.Applied, result.LastSeq)
		}
	}
}

func TestRebuildUntilSeq(t *testing.T) {
	store, states := playGame(t, 11)
	for _, until := range []uint64{1, 3, uint64(len(store.events) / 2)} {
		result, err := Rebuild(context.Background(), store, Options{UntilSeq: until})
		if err != nil {
			t.Fatalf("until %d: %v", until, err)
		}
		if !reflect.DeepEqual(result.State, states[until]) {
			t.Fatalf("until %d: state differs from live state at that seq", until)
		}
	}
}

func TestRebuildDetectsGap(t *testing.T) {
	store, _ := playGame(t, 3)
	store.events = append(store.events[:2:2], store.events[3:]...)
	result, err := Rebuild(context.Background(), store, Options{})
	if !errors.Is(err, apperrors.ErrLedgerCorruption) {
		t.Fatalf("expected ledger corruption, got %v", err)
	}
	if result.LastSeq != 2 {
		t.Fatalf("expected replay to stop at seq 2, got %d", result.LastSeq)
	}
	var coded *apperrors.Error
	if !errors.As(err, &coded) || coded.Metadata["seq"] != "3" {
		t.Fatalf("expected seq 3 in metadata, got %v", err)
	}
}

func TestRebuildRejectsIllegalEvent(t *testing.T) {
	store, _ := playGame(t, 5)
	// Make the first bid come from the wrong seat.
	store.events[1].Payload = []byte(`{"seat":9,"bid":0}`)
	_, err := Rebuild(context.Background(), store, Options{})
	if !errors.Is(err, apperrors.ErrLedgerCorruption) {
		t.Fatalf("expected ledger corruption, got %v", err)
	}
	if !errors.Is(err, game.ErrSeatOutOfRange) {
		t.Fatalf("expected the rejection in the chain, got %v", err)
	}
}

func TestRebuildRequiresStore(t *testing.T) {
	if _, err := Rebuild(context.Background(), nil, Options{}); !errors.Is(err, ErrEventStoreRequired) {
		t.Fatalf("expected ErrEventStoreRequired, got %v", err)
	}
	boom := errors.New("boom")
	if _, err := Rebuild(context.Background(), &memoryStore{err: boom}, Options{}); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}
