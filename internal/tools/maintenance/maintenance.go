// Package maintenance verifies stored ledgers and replays them through the
// reducer to report the state they describe.
package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/louisbranch/doudizhu/internal/platform/errors"
	platformcmd "github.com/louisbranch/doudizhu/internal/platform/cmd"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/card"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/game"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/replay"
	"github.com/louisbranch/doudizhu/internal/services/game/storage"
	"github.com/louisbranch/doudizhu/internal/services/game/storage/backend"
	"github.com/louisbranch/doudizhu/internal/services/game/storage/integrity"
	"github.com/louisbranch/doudizhu/internal/services/game/storage/pointer"
)

// ErrCorrupted indicates at least one ledger failed verification or replay.
var ErrCorrupted = apperrors.New(apperrors.CodeLedgerCorruption, "ledger verification failed")

// Config holds maintenance command configuration.
type Config struct {
	Ledger      string
	Ledgers     string
	PointerPath string        `env:"DOUDIZHU_POINTER_PATH" envDefault:"data/ledgers/_latest.txt"`
	Timeout     time.Duration `env:"DOUDIZHU_MAINTENANCE_TIMEOUT" envDefault:"1m"`
	UntilSeq    uint64
	VerifyOnly  bool
	JSONOutput  bool
}

// ParseConfig parses env defaults and then flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Ledger, "ledger", "", "ledger locator: a .jsonl path or sqlite:<db>#<game id> (default: session pointer)")
	fs.StringVar(&cfg.Ledgers, "ledgers", "", "comma-separated ledger locators")
	fs.StringVar(&cfg.PointerPath, "pointer", cfg.PointerPath, "session pointer used when no ledger is given")
	fs.Uint64Var(&cfg.UntilSeq, "until-seq", 0, "replay up to this event sequence (0 = latest)")
	fs.BoolVar(&cfg.VerifyOnly, "verify", false, "check the hash chain without replaying")
	fs.BoolVar(&cfg.JSONOutput, "json", false, "output JSON reports")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Report is the outcome for one ledger.
type Report struct {
	Ledger     string          `json:"ledger"`
	Events     int             `json:"events"`
	Signed     int             `json:"signed"`
	LastSeq    uint64          `json:"last_seq"`
	Replayed   bool            `json:"replayed"`
	Phase      game.Phase      `json:"phase,omitempty"`
	Turn       int             `json:"turn"`
	Landlord   int             `json:"landlord"`
	Winner     int             `json:"winner"`
	HandSizes  [game.Seats]int `json:"hand_sizes"`
	CardCount  int             `json:"card_count"`
	Conserved  bool            `json:"conserved"`
	CorruptSeq uint64          `json:"corrupt_seq,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Run verifies and replays every selected ledger. It returns ErrCorrupted
// when any ledger fails so the command exits non-zero.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	locators, err := resolveLedgers(cfg)
	if err != nil {
		return err
	}
	keyring, err := integrity.KeyringFromEnv()
	if errors.Is(err, integrity.ErrKeyringNotConfigured) {
		keyring = nil
	} else if err != nil {
		return fmt.Errorf("load keyring: %w", err)
	}

	failed := 0
	for _, value := range locators {
		report := check(ctx, value, backend.Options{Keyring: keyring}, cfg)
		if report.Error != "" {
			failed++
		}
		if cfg.JSONOutput {
			outputJSON(out, errOut, report)
			continue
		}
		printReport(out, errOut, report)
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d ledgers", ErrCorrupted, failed, len(locators))
	}
	return nil
}

func resolveLedgers(cfg Config) ([]string, error) {
	if cfg.Ledger != "" && cfg.Ledgers != "" {
		return nil, fmt.Errorf("-ledger cannot be combined with -ledgers")
	}
	if cfg.Ledger != "" {
		return []string{cfg.Ledger}, nil
	}
	if cfg.Ledgers != "" {
		values := splitCSV(cfg.Ledgers)
		if len(values) == 0 {
			return nil, fmt.Errorf("-ledgers must contain at least one ledger")
		}
		return values, nil
	}
	target, err := pointer.Read(cfg.PointerPath)
	if err != nil {
		return nil, fmt.Errorf("-ledger is required: %w", err)
	}
	return []string{target}, nil
}

func check(ctx context.Context, value string, opts backend.Options, cfg Config) Report {
	report := Report{Ledger: value, Turn: game.NoSeat, Landlord: game.NoSeat, Winner: game.NoSeat}
	loc, err := backend.ParseLocator(value)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	events, err := backend.ReadAll(ctx, loc, opts)
	if err != nil {
		return failed(report, err)
	}
	report.Events = len(events)
	for _, evt := range events {
		if evt.Signature != "" {
			report.Signed++
		}
	}
	if len(events) > 0 {
		report.LastSeq = events[len(events)-1].Seq
	}
	if cfg.VerifyOnly {
		return report
	}

	result, err := replay.Rebuild(ctx, storage.EventList(events), replay.Options{UntilSeq: cfg.UntilSeq})
	if err != nil {
		return failed(report, err)
	}
	state := result.State
	report.Replayed = true
	report.LastSeq = result.LastSeq
	report.Phase = state.Phase
	report.Turn = state.Turn
	report.Landlord = state.Landlord
	report.Winner = state.Winner
	for seat, p := range state.Players {
		report.HandSizes[seat] = len(p.Hand)
	}
	report.CardCount = state.CardCount()
	report.Conserved = state.Phase == game.PhaseDealing || report.CardCount == card.DeckSize
	if !report.Conserved {
		report.Error = fmt.Sprintf("card count %d, want %d", report.CardCount, card.DeckSize)
	}
	return report
}

// failed records err on report, extracting the corrupt seq when known.
func failed(report Report, err error) Report {
	report.Error = err.Error()
	var corruption *storage.CorruptionError
	if errors.As(err, &corruption) {
		report.CorruptSeq = corruption.Seq
		return report
	}
	var coded *apperrors.Error
	if errors.As(err, &coded) {
		if seq, err := strconv.ParseUint(coded.Metadata["seq"], 10, 64); err == nil {
			report.CorruptSeq = seq
		}
	}
	return report
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	output := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		output = append(output, trimmed)
	}
	return output
}

func outputJSON(out io.Writer, errOut io.Writer, report Report) {
	encoded, err := json.Marshal(report)
	if err != nil {
		fmt.Fprintf(errOut, "Error: encode report: %v\n", err)
		return
	}
	fmt.Fprintln(out, string(encoded))
}

func printReport(out io.Writer, errOut io.Writer, report Report) {
	if report.Error != "" {
		if report.CorruptSeq > 0 {
			fmt.Fprintf(errOut, "[%s] Error at seq %d: %s\n", report.Ledger, report.CorruptSeq, report.Error)
		} else {
			fmt.Fprintf(errOut, "[%s] Error: %s\n", report.Ledger, report.Error)
		}
		return
	}
	fmt.Fprintf(out, "[%s] Verified %d events through seq %d (%d signed)\n", report.Ledger, report.Events, report.LastSeq, report.Signed)
	if !report.Replayed {
		return
	}
	fmt.Fprintf(out, "[%s] Phase %s, turn %s, landlord %s, winner %s\n",
		report.Ledger, report.Phase, seatLabel(report.Turn), seatLabel(report.Landlord), seatLabel(report.Winner))
	fmt.Fprintf(out, "[%s] Hand sizes %v, %d cards accounted for\n", report.Ledger, report.HandSizes, report.CardCount)
}

func seatLabel(seat int) string {
	if !game.ValidSeat(seat) {
		return "-"
	}
	return fmt.Sprintf("%d", seat)
}
