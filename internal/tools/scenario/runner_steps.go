package scenario

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/louisbranch/doudizhu/internal/services/game/domain/card"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/command"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/event"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/game"
)

var defaultPlayers = []string{"Alice", "Bob", "Carol"}

func (r *Runner) runStep(ctx context.Context, state *scenarioState, stepNumber int, step Step) error {
	if step.Kind != "expect_rejected" {
		if err := r.checkUnconsumedRejection(state); err != nil {
			return err
		}
	}

	switch step.Kind {
	case "deal":
		return r.runDeal(ctx, state, stepNumber, step)
	case "bid":
		seat, err := r.seatArg(step, "seat")
		if err != nil {
			return err
		}
		value, err := r.intArg(step, "bid")
		if err != nil {
			return err
		}
		return r.execute(ctx, state, stepNumber, command.Bid(seat, value))
	case "play":
		seat, err := r.seatArg(step, "seat")
		if err != nil {
			return err
		}
		codes := stringList(step.Args["cards"])
		if len(codes) == 0 {
			return r.failf("play needs at least one card")
		}
		cards, err := card.ParseAll(codes)
		if err != nil {
			return r.failf("play cards: %v", err)
		}
		return r.execute(ctx, state, stepNumber, command.Play(seat, cards))
	case "pass":
		seat, err := r.seatArg(step, "seat")
		if err != nil {
			return err
		}
		return r.execute(ctx, state, stepNumber, command.Pass(seat))
	case "assign_landlord":
		seat, err := r.seatArg(step, "seat")
		if err != nil {
			return err
		}
		return r.execute(ctx, state, stepNumber, command.AssignLandlord(seat))
	case "expect_rejected":
		return r.runExpectRejected(state, step)
	default:
		return r.runExpectation(state.session.State(), step)
	}
}

// runDeal builds the DEAL payload from a seed or from explicit hands.
func (r *Runner) runDeal(ctx context.Context, state *scenarioState, stepNumber int, step Step) error {
	players := stringList(step.Args["players"])
	if len(players) == 0 {
		players = defaultPlayers
	}
	if len(players) != game.Seats {
		return r.failf("deal needs %d players, got %d", game.Seats, len(players))
	}
	var names [game.Seats]string
	copy(names[:], players)
	gameID := state.handle.Locator.GameID

	var payload event.DealPayload
	if _, ok := step.Args["seed"]; ok {
		seed, err := r.intArg(step, "seed")
		if err != nil {
			return err
		}
		rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
		payload = game.NewDeal(rng, gameID, names)
	} else {
		var err error
		payload, err = r.explicitDeal(step, gameID, names)
		if err != nil {
			return err
		}
	}
	return r.execute(ctx, state, stepNumber, command.Deal(payload))
}

func (r *Runner) explicitDeal(step Step, gameID string, names [game.Seats]string) (event.DealPayload, error) {
	rawHands, ok := step.Args["hands"].([]any)
	if !ok {
		return event.DealPayload{}, r.failf("deal needs a seed or hands")
	}
	hands := make([][]card.Card, 0, len(rawHands))
	for seat, raw := range rawHands {
		cards, err := card.ParseAll(stringList(raw))
		if err != nil {
			return event.DealPayload{}, r.failf("hand %d: %v", seat, err)
		}
		hands = append(hands, cards)
	}
	bottom, err := card.ParseAll(stringList(step.Args["bottom"]))
	if err != nil {
		return event.DealPayload{}, r.failf("bottom: %v", err)
	}

	firstBidder := 0
	if _, ok := step.Args["first_bidder"]; ok {
		if firstBidder, err = r.intArg(step, "first_bidder"); err != nil {
			return event.DealPayload{}, err
		}
	}
	payload := event.DealPayload{
		GameID:      gameID,
		Players:     names[:],
		Hands:       hands,
		Bottom:      bottom,
		FirstBidder: firstBidder,
	}
	if _, ok := step.Args["fallback"]; ok {
		fallback, err := r.intArg(step, "fallback")
		if err != nil {
			return event.DealPayload{}, err
		}
		payload.FallbackLandlord = &fallback
	}
	return payload, nil
}

// execute runs cmd through the session. A rejection is held for the next
// expect_rejected step; any other error ends the scenario.
func (r *Runner) execute(ctx context.Context, state *scenarioState, stepNumber int, cmd command.Command) error {
	result, err := state.session.Execute(ctx, cmd)
	var rejection *command.Rejection
	if errors.As(err, &rejection) {
		state.rejected = rejection
		state.rejectedStep = stepNumber
		r.logf("  rejected: %s", rejection.Code)
		return nil
	}
	if err != nil {
		return err
	}
	for _, evt := range result.Events {
		r.logf("  #%d %s", evt.Seq, evt.Type)
	}
	return nil
}

func (r *Runner) runExpectRejected(state *scenarioState, step Step) error {
	code, err := r.stringArg(step, "code")
	if err != nil {
		return err
	}
	rejected := state.rejected
	state.rejected = nil
	if rejected == nil {
		return r.assertf("expected rejection %s, but the previous action was accepted", code)
	}
	if rejected.Code != code && string(rejected.Kind) != code {
		return r.assertf("expected rejection %s, got %s (%s)", code, rejected.Code, rejected.Kind)
	}
	return nil
}

func (r *Runner) runExpectation(current game.State, step Step) error {
	switch step.Kind {
	case "expect_phase":
		phase, err := r.stringArg(step, "phase")
		if err != nil {
			return err
		}
		if string(current.Phase) != phase {
			return r.assertf("phase = %s, want %s", current.Phase, phase)
		}
	case "expect_turn":
		seat, err := r.intArg(step, "seat")
		if err != nil {
			return err
		}
		if current.Turn != seat {
			return r.assertf("turn = %d, want %d", current.Turn, seat)
		}
	case "expect_landlord":
		seat, err := r.seatArg(step, "seat")
		if err != nil {
			return err
		}
		if current.Landlord != seat {
			return r.assertf("landlord = %d, want %d", current.Landlord, seat)
		}
	case "expect_winner":
		seat, err := r.seatArg(step, "seat")
		if err != nil {
			return err
		}
		if !current.Concluded || current.Winner != seat {
			return r.assertf("winner = %d (concluded %t), want %d", current.Winner, current.Concluded, seat)
		}
		if role, ok := step.Args["role"].(string); ok && string(current.Players[seat].Role) != role {
			return r.assertf("winner role = %s, want %s", current.Players[seat].Role, role)
		}
	case "expect_hand_size":
		seat, err := r.seatArg(step, "seat")
		if err != nil {
			return err
		}
		size, err := r.intArg(step, "size")
		if err != nil {
			return err
		}
		if got := len(current.Players[seat].Hand); got != size {
			return r.assertf("seat %d hand size = %d, want %d", seat, got, size)
		}
	case "expect_passes":
		count, err := r.intArg(step, "count")
		if err != nil {
			return err
		}
		if current.PassesInRow != count {
			return r.assertf("passes in a row = %d, want %d", current.PassesInRow, count)
		}
	case "expect_incumbent":
		kind, err := r.stringArg(step, "kind")
		if err != nil {
			return err
		}
		switch {
		case kind == "none" && current.Incumbent != nil:
			return r.assertf("incumbent = %s, want an open trick", current.Incumbent.Kind)
		case kind != "none" && current.Incumbent == nil:
			return r.assertf("open trick, want incumbent %s", kind)
		case kind != "none" && string(current.Incumbent.Kind) != kind:
			return r.assertf("incumbent = %s, want %s", current.Incumbent.Kind, kind)
		}
	case "expect_seq":
		seq, err := r.intArg(step, "seq")
		if err != nil {
			return err
		}
		if current.LastSeq != uint64(seq) {
			return r.assertf("last seq = %d, want %d", current.LastSeq, seq)
		}
	default:
		return r.failf("unknown step kind %q", step.Kind)
	}
	return nil
}

func (r *Runner) intArg(step Step, key string) (int, error) {
	switch v := step.Args[key].(type) {
	case int:
		return v, nil
	case float64:
		return 0, r.failf("%s must be an integer, got %v", key, v)
	case nil:
		return 0, r.failf("%s is required", key)
	default:
		return 0, r.failf("%s must be a number, got %T", key, v)
	}
}

func (r *Runner) seatArg(step Step, key string) (int, error) {
	seat, err := r.intArg(step, key)
	if err != nil {
		return 0, err
	}
	if !game.ValidSeat(seat) {
		return 0, r.failf("%s %d out of range", key, seat)
	}
	return seat, nil
}

func (r *Runner) stringArg(step Step, key string) (string, error) {
	value, ok := step.Args[key].(string)
	if !ok || value == "" {
		return "", r.failf("%s is required", key)
	}
	return value, nil
}

// stateDiff names the first field where got and want disagree.
func stateDiff(got, want game.State) string {
	switch {
	case got.LastSeq != want.LastSeq:
		return fmt.Sprintf("last seq %d != %d", got.LastSeq, want.LastSeq)
	case got.Phase != want.Phase:
		return fmt.Sprintf("phase %s != %s", got.Phase, want.Phase)
	case got.Turn != want.Turn:
		return fmt.Sprintf("turn %d != %d", got.Turn, want.Turn)
	case got.Landlord != want.Landlord:
		return fmt.Sprintf("landlord %d != %d", got.Landlord, want.Landlord)
	case got.Winner != want.Winner || got.Concluded != want.Concluded:
		return fmt.Sprintf("winner %d != %d", got.Winner, want.Winner)
	case got.PassesInRow != want.PassesInRow:
		return fmt.Sprintf("passes %d != %d", got.PassesInRow, want.PassesInRow)
	}
	for seat := range got.Players {
		if !slices.Equal(got.Players[seat].Hand, want.Players[seat].Hand) {
			return fmt.Sprintf("seat %d hand differs", seat)
		}
	}
	if !slices.Equal(got.Played, want.Played) {
		return "play history differs"
	}
	return ""
}
