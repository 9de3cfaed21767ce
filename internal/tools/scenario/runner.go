package scenario

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/louisbranch/doudizhu/internal/services/game/domain/command"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/engine"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/game"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/replay"
	"github.com/louisbranch/doudizhu/internal/services/game/storage"
	"github.com/louisbranch/doudizhu/internal/services/game/storage/backend"
	"github.com/louisbranch/doudizhu/internal/services/game/storage/integrity"
)

// Config controls scenario execution.
type Config struct {
	// Backend selects the ledger backend; empty means jsonl.
	Backend string
	// LedgerPath is the JSONL directory or SQLite file scenarios write to.
	// Empty runs each scenario in a temporary directory that is removed
	// afterwards.
	LedgerPath string
	Keyring    *integrity.Keyring
	Timeout    time.Duration
	Assertions AssertionMode
	Verbose    bool
	Logger     *log.Logger
}

// DefaultConfig returns default runner configuration.
func DefaultConfig() Config {
	return Config{
		Backend:    string(backend.KindJSONL),
		Timeout:    10 * time.Second,
		Assertions: AssertionStrict,
		Verbose:    false,
	}
}

// Report describes a finished scenario run.
type Report struct {
	Name    string
	Steps   int
	Locator backend.Locator
	State   game.State
	// Failed counts expectations logged in log-only mode.
	Failed int
}

// Runner executes Lua scenarios against a fresh ledger per scenario.
type Runner struct {
	kind       backend.Kind
	ledgerPath string
	keyring    *integrity.Keyring
	assertions *Assertions
	logger     *log.Logger
	verbose    bool
	timeout    time.Duration
}

// NewRunner validates cfg and prepares a scenario runner.
func NewRunner(cfg Config) (*Runner, error) {
	kind, err := backend.ParseKind(cfg.Backend)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", 0)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Runner{
		kind:       kind,
		ledgerPath: cfg.LedgerPath,
		keyring:    cfg.Keyring,
		assertions: &Assertions{Mode: cfg.Assertions, Logger: logger},
		logger:     logger,
		verbose:    cfg.Verbose,
		timeout:    timeout,
	}, nil
}

// RunFile loads and executes a scenario file.
func RunFile(ctx context.Context, cfg Config, path string) (Report, error) {
	runner, err := NewRunner(cfg)
	if err != nil {
		return Report{}, err
	}

	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		return Report{}, err
	}
	return runner.RunScenario(ctx, scenario)
}

// scenarioState tracks one run.
type scenarioState struct {
	handle  *backend.Handle
	session *engine.Session
	// rejected holds the rejection of the last action until an
	// expect_rejected step consumes it.
	rejected     *command.Rejection
	rejectedStep int
}

// RunScenario executes the scenario steps, then verifies that the ledger it
// wrote replays to the state the session ended with.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) (Report, error) {
	if scenario == nil {
		return Report{}, errors.New("scenario is required")
	}
	r.logf("scenario start: %s (%d steps)", scenario.Name, len(scenario.Steps))

	path, cleanup, err := r.prepareLedgerPath()
	if err != nil {
		return Report{}, err
	}
	defer cleanup()

	handle, err := backend.Create(ctx, r.kind, path, r.backendOptions())
	if err != nil {
		return Report{}, fmt.Errorf("create ledger: %w", err)
	}
	defer handle.Close()

	session, err := engine.NewSession(handle.Ledger, game.New())
	if err != nil {
		return Report{}, err
	}
	state := &scenarioState{handle: handle, session: session}
	failedBefore := r.assertions.Failed

	for index, step := range scenario.Steps {
		stepNumber := index + 1
		r.logf("step %d/%d start: %s%s", stepNumber, len(scenario.Steps), step.Kind, lineSuffix(step))
		stepStart := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := r.runStep(stepCtx, state, stepNumber, step)
		cancel()
		if err != nil {
			return Report{}, fmt.Errorf("step %d (%s%s): %w", stepNumber, step.Kind, lineSuffix(step), err)
		}
		r.logf("step %d/%d done: %s (%s)", stepNumber, len(scenario.Steps), step.Kind, time.Since(stepStart))
	}
	if err := r.checkUnconsumedRejection(state); err != nil {
		return Report{}, err
	}

	final := session.State()
	if err := r.verifyReplay(ctx, handle, final); err != nil {
		return Report{}, err
	}

	report := Report{
		Name:    scenario.Name,
		Steps:   len(scenario.Steps),
		Locator: handle.Locator,
		State:   final,
		Failed:  r.assertions.Failed - failedBefore,
	}
	r.logf("scenario done: %s (seq %d, %d expectations failed)", scenario.Name, final.LastSeq, report.Failed)
	return report, nil
}

func (r *Runner) prepareLedgerPath() (string, func(), error) {
	path := r.ledgerPath
	cleanup := func() {}
	if path == "" {
		dir, err := os.MkdirTemp("", "doudizhu-scenario-*")
		if err != nil {
			return "", nil, fmt.Errorf("create scenario dir: %w", err)
		}
		cleanup = func() { _ = os.RemoveAll(dir) }
		path = dir
		if r.kind == backend.KindSQLite {
			path = filepath.Join(dir, "scenario.db")
		}
	}
	return path, cleanup, nil
}

func (r *Runner) backendOptions() backend.Options {
	return backend.Options{Keyring: r.keyring, Logger: r.logger}
}

// verifyReplay rebuilds state from the stored ledger and compares it with the
// session's committed state.
func (r *Runner) verifyReplay(ctx context.Context, handle *backend.Handle, want game.State) error {
	events, err := handle.Ledger.ListEvents(ctx, 0, 0)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	result, err := replay.Rebuild(ctx, storage.EventList(events), replay.Options{})
	if err != nil {
		return fmt.Errorf("replay ledger: %w", err)
	}
	if diff := stateDiff(result.State, want); diff != "" {
		return r.failf("replayed state differs from live state: %s", diff)
	}
	return nil
}

func (r *Runner) checkUnconsumedRejection(state *scenarioState) error {
	if state.rejected == nil {
		return nil
	}
	rejected := state.rejected
	state.rejected = nil
	return r.assertf("step %d was rejected: %s (%s)", state.rejectedStep, rejected.Code, rejected.Error())
}

func (r *Runner) failf(format string, args ...any) error {
	return r.assertions.Failf(format, args...)
}

func (r *Runner) assertf(format string, args ...any) error {
	return r.assertions.Assertf(format, args...)
}

func (r *Runner) logf(format string, args ...any) {
	if !r.verbose || r.logger == nil {
		return
	}
	r.logger.Printf(format, args...)
}

func lineSuffix(step Step) string {
	if step.Line <= 0 {
		return ""
	}
	return fmt.Sprintf(" at line %d", step.Line)
}
