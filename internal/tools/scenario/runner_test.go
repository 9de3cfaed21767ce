package scenario

import (
	"bytes"
	"context"
	"errors"
	"log"
	"path/filepath"
	"strings"
	"testing"

	"github.com/louisbranch/doudizhu/internal/services/game/domain/game"
	"github.com/louisbranch/doudizhu/internal/services/game/storage/backend"
	"github.com/louisbranch/doudizhu/internal/services/game/storage/integrity"
)

const testDeal = `game:deal{
  hands = {
    "3♠ 4♠ 5♠ 6♠ 7♠ 8♠ 9♠ 10♠ J♠ Q♠ K♠ A♠ 2♥ 2♣ 2♦ 4♥ 4♣",
    "3♥ 3♣ 3♦ 4♦ 5♥ 5♣ 5♦ 6♥ 6♣ 6♦ 7♥ 7♣ 7♦ 8♥ 8♣ A♥ A♣",
    "8♦ 9♥ 9♣ 9♦ 10♥ 10♣ 10♦ J♥ J♣ J♦ Q♥ Q♣ Q♦ K♥ K♣ K♦ A♦",
  },
  bottom = "BJ RJ 2♠",
  first_bidder = 0,
}
`

func TestRunFileTestdata(t *testing.T) {
	tests := []struct {
		file     string
		phase    game.Phase
		lastSeq  uint64
		landlord int
	}{
		{file: "landlord_sweep.lua", phase: game.PhaseFinished, lastSeq: 18, landlord: 0},
		{file: "trick_rules.lua", phase: game.PhasePlaying, lastSeq: 12, landlord: 0},
		{file: "fallback_landlord.lua", phase: game.PhasePlaying, lastSeq: 5, landlord: 2},
	}
	for _, tc := range tests {
		t.Run(tc.file, func(t *testing.T) {
			report, err := RunFile(context.Background(), Config{}, filepath.Join("testdata", tc.file))
			if err != nil {
				t.Fatalf("run scenario: %v", err)
			}
			if report.State.Phase != tc.phase || report.State.LastSeq != tc.lastSeq {
				t.Fatalf("state = %s at seq %d, want %s at %d", report.State.Phase, report.State.LastSeq, tc.phase, tc.lastSeq)
			}
			if report.State.Landlord != tc.landlord {
				t.Fatalf("landlord = %d, want %d", report.State.Landlord, tc.landlord)
			}
		})
	}
}

func TestRunScenarioOnSQLite(t *testing.T) {
	keyring, err := integrity.NewKeyring(map[string][]byte{"v1": []byte("scenario-secret")}, "v1")
	if err != nil {
		t.Fatalf("keyring: %v", err)
	}
	dbPath := filepath.Join(t.TempDir(), "scenarios.db")
	cfg := Config{Backend: "sqlite", LedgerPath: dbPath, Keyring: keyring}

	report, err := RunFile(context.Background(), cfg, filepath.Join("testdata", "landlord_sweep.lua"))
	if err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	if report.Locator.Kind != backend.KindSQLite || report.Locator.Path != dbPath {
		t.Fatalf("locator = %+v", report.Locator)
	}

	events, err := backend.ReadAll(context.Background(), report.Locator, backend.Options{Keyring: keyring})
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(events) != 18 {
		t.Fatalf("events = %d, want 18", len(events))
	}
	for _, evt := range events {
		if evt.Signature == "" {
			t.Fatalf("event %d is unsigned", evt.Seq)
		}
	}
}

func TestRunScenarioSeededDeal(t *testing.T) {
	path := writeScenarioFixture(t, `local game = Game.new("seeded")
game:deal{seed = 11}
game:expect_phase("bidding")
game:expect_hand_size(0, 17):expect_hand_size(1, 17):expect_hand_size(2, 17)
game:expect_seq(1)
return game
`)

	report, err := RunFile(context.Background(), Config{}, path)
	if err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	if report.State.CardCount() != 54 {
		t.Fatalf("card count = %d, want 54", report.State.CardCount())
	}
}

func TestRunScenarioFailsUnmetExpectation(t *testing.T) {
	path := writeScenarioFixture(t, "local game = Game.new(\"wrong turn\")\n"+testDeal+`game:expect_turn(2)
return game
`)

	_, err := RunFile(context.Background(), Config{}, path)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "turn = 0, want 2") || !strings.Contains(err.Error(), "line 11") {
		t.Fatalf("error = %q, want turn mismatch at line 11", err.Error())
	}
}

func TestRunScenarioFailsUnexpectedRejection(t *testing.T) {
	path := writeScenarioFixture(t, "local game = Game.new(\"rejected\")\n"+testDeal+`game:bid(1, 1)
game:bid(0, 1)
return game
`)

	_, err := RunFile(context.Background(), Config{}, path)
	if err == nil || !strings.Contains(err.Error(), "NOT_YOUR_TURN") {
		t.Fatalf("error = %v, want unconsumed NOT_YOUR_TURN", err)
	}
}

func TestRunScenarioFailsAcceptedWhenRejectionExpected(t *testing.T) {
	path := writeScenarioFixture(t, "local game = Game.new(\"accepted\")\n"+testDeal+`game:bid(0, 1)
game:expect_rejected("NOT_YOUR_TURN")
return game
`)

	_, err := RunFile(context.Background(), Config{}, path)
	if err == nil || !strings.Contains(err.Error(), "was accepted") {
		t.Fatalf("error = %v, want accepted action", err)
	}
}

func TestRunScenarioLogOnlyContinues(t *testing.T) {
	path := writeScenarioFixture(t, "local game = Game.new(\"log only\")\n"+testDeal+`game:expect_turn(2)
game:expect_phase("finished")
game:bid(0, 3):bid(1, 0):bid(2, 0)
game:expect_landlord(0)
return game
`)

	var logs bytes.Buffer
	cfg := Config{Assertions: AssertionLogOnly, Logger: log.New(&logs, "", 0)}
	report, err := RunFile(context.Background(), cfg, path)
	if err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	if report.Failed != 2 {
		t.Fatalf("failed = %d, want 2", report.Failed)
	}
	if !strings.Contains(logs.String(), "expectation failed: turn = 0, want 2") {
		t.Fatalf("logs = %q", logs.String())
	}
	if report.State.Landlord != 0 {
		t.Fatalf("landlord = %d, want 0", report.State.Landlord)
	}
}

func TestRunScenarioScriptErrors(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{
			name:   "bad card",
			script: testDeal + "game:bid(0, 3)\ngame:play(0, \"3X\")\n",
			want:   "play cards",
		},
		{
			name:   "seat out of range",
			script: "game:pass(3)\n",
			want:   "seat 3 out of range",
		},
		{
			name:   "deal without hands",
			script: "game:deal{first_bidder = 1}\n",
			want:   "deal needs a seed or hands",
		},
		{
			name:   "wrong player count",
			script: "game:deal{seed = 1, players = {\"A\", \"B\"}}\n",
			want:   "deal needs 3 players",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeScenarioFixture(t, "local game = Game.new(\"errors\")\n"+tc.script+"return game\n")
			_, err := RunFile(context.Background(), Config{}, path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestVerboseLogsSteps(t *testing.T) {
	var logs bytes.Buffer
	cfg := Config{Verbose: true, Logger: log.New(&logs, "", 0)}
	if _, err := RunFile(context.Background(), cfg, filepath.Join("testdata", "fallback_landlord.lua")); err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	output := logs.String()
	for _, want := range []string{"scenario start: fallback_landlord", "#5 LANDLORD_ASSIGNED", "scenario done"} {
		if !strings.Contains(output, want) {
			t.Fatalf("logs missing %q:\n%s", want, output)
		}
	}
}

func TestNewRunnerRejectsUnknownBackend(t *testing.T) {
	if _, err := NewRunner(Config{Backend: "postgres"}); !errors.Is(err, backend.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestRunScenarioRequiresScenario(t *testing.T) {
	runner, err := NewRunner(DefaultConfig())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if _, err := runner.RunScenario(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}
}
