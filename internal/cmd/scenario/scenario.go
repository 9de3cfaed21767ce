// Package scenario parses scenario command flags and runs Lua scenario files.
package scenario

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/doudizhu/internal/platform/cmd"
	"github.com/louisbranch/doudizhu/internal/services/game/storage/integrity"
	"github.com/louisbranch/doudizhu/internal/tools/scenario"
)

// Config holds scenario command configuration.
type Config struct {
	Scenarios  []string      `env:"DOUDIZHU_SCENARIO_FILE"     envSeparator:","`
	Backend    string        `env:"DOUDIZHU_SCENARIO_BACKEND"  envDefault:"jsonl"`
	LedgerPath string        `env:"DOUDIZHU_SCENARIO_LEDGER"`
	Assertions bool          `env:"DOUDIZHU_SCENARIO_ASSERT"   envDefault:"true"`
	Verbose    bool          `env:"DOUDIZHU_SCENARIO_VERBOSE"`
	Timeout    time.Duration `env:"DOUDIZHU_SCENARIO_TIMEOUT"  envDefault:"10s"`
}

// ParseConfig parses environment and flags into a Config. Positional
// arguments are scenario files too.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	files := strings.Join(cfg.Scenarios, ",")
	fs.StringVar(&files, "scenario", files, "comma-separated scenario lua files")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "ledger backend: jsonl or sqlite")
	fs.StringVar(&cfg.LedgerPath, "ledger", cfg.LedgerPath, "JSONL directory or SQLite file to keep ledgers in (default: temporary)")
	fs.BoolVar(&cfg.Assertions, "assert", cfg.Assertions, "enable assertions (disable to log expectations)")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable verbose logging")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "timeout per step")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}

	cfg.Scenarios = nil
	for _, file := range strings.Split(files, ",") {
		if file = strings.TrimSpace(file); file != "" {
			cfg.Scenarios = append(cfg.Scenarios, file)
		}
	}
	cfg.Scenarios = append(cfg.Scenarios, fs.Args()...)
	return cfg, nil
}

// Run executes every configured scenario and reports each outcome.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if len(cfg.Scenarios) == 0 {
		return errors.New("scenario path is required")
	}

	keyring, err := integrity.KeyringFromEnv()
	if err != nil && !errors.Is(err, integrity.ErrKeyringNotConfigured) {
		return fmt.Errorf("load keyring: %w", err)
	}

	mode := scenario.AssertionStrict
	if !cfg.Assertions {
		mode = scenario.AssertionLogOnly
	}

	logger := log.New(errOut, "", 0)
	runCfg := scenario.Config{
		Backend:    cfg.Backend,
		LedgerPath: cfg.LedgerPath,
		Keyring:    keyring,
		Timeout:    cfg.Timeout,
		Assertions: mode,
		Verbose:    cfg.Verbose,
		Logger:     logger,
	}

	var failed []string
	for _, path := range cfg.Scenarios {
		report, err := scenario.RunFile(ctx, runCfg, path)
		if err != nil {
			fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
			failed = append(failed, path)
			continue
		}
		fmt.Fprintf(out, "ok   %s (%d steps, seq %d, %s)\n", report.Name, report.Steps, report.State.LastSeq, report.State.Phase)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d scenarios failed", len(failed), len(cfg.Scenarios))
	}
	return nil
}
