// Package play parses play command flags and runs one hand between bots,
// dealing a new game or resuming the one named by the session pointer.
package play

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/louisbranch/doudizhu/internal/bot"
	entrypoint "github.com/louisbranch/doudizhu/internal/platform/cmd"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/card"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/command"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/engine"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/event"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/game"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/replay"
	"github.com/louisbranch/doudizhu/internal/services/game/storage"
	"github.com/louisbranch/doudizhu/internal/services/game/storage/backend"
	"github.com/louisbranch/doudizhu/internal/services/game/storage/integrity"
	"github.com/louisbranch/doudizhu/internal/services/game/storage/pointer"
)

// Config holds play command configuration.
type Config struct {
	LedgerDir     string   `env:"DOUDIZHU_LEDGER_DIR"      envDefault:"data/ledgers"`
	Backend       string   `env:"DOUDIZHU_LEDGER_BACKEND"  envDefault:"jsonl"`
	SQLitePath    string   `env:"DOUDIZHU_SQLITE_PATH"     envDefault:"data/doudizhu.db"`
	PointerPath   string   `env:"DOUDIZHU_POINTER_PATH"    envDefault:"data/ledgers/_latest.txt"`
	Players       []string `env:"DOUDIZHU_PLAYERS"         envDefault:"Alice,Bob,Carol"`
	Seed          uint64   `env:"DOUDIZHU_SEED"`
	Resume        bool     `env:"DOUDIZHU_RESUME"`
	MaxRejections int      `env:"DOUDIZHU_MAX_REJECTIONS"  envDefault:"3"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	players := strings.Join(cfg.Players, ",")
	fs.StringVar(&cfg.LedgerDir, "ledger-dir", cfg.LedgerDir, "directory for JSONL ledgers")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "ledger backend: jsonl or sqlite")
	fs.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "SQLite ledger database")
	fs.StringVar(&cfg.PointerPath, "pointer", cfg.PointerPath, "session pointer file")
	fs.StringVar(&players, "players", players, "comma-separated names of the three players")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "shuffle seed (0 = time based)")
	fs.BoolVar(&cfg.Resume, "resume", cfg.Resume, "resume the game named by the session pointer")
	fs.IntVar(&cfg.MaxRejections, "max-rejections", cfg.MaxRejections, "rejected intents tolerated per seat in a row")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	cfg.Players = splitNames(players)
	return cfg, nil
}

func splitNames(value string) []string {
	var names []string
	for _, name := range strings.Split(value, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Run plays one hand to completion under telemetry.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServicePlay, func(ctx context.Context) error {
		_, err := play(ctx, cfg, out)
		return err
	})
}

func play(ctx context.Context, cfg Config, out io.Writer) (game.State, error) {
	if out == nil {
		out = io.Discard
	}
	if len(cfg.Players) != game.Seats {
		return game.State{}, fmt.Errorf("need %d player names, got %d", game.Seats, len(cfg.Players))
	}
	kind, err := backend.ParseKind(cfg.Backend)
	if err != nil {
		return game.State{}, err
	}
	keyring, err := integrity.KeyringFromEnv()
	if errors.Is(err, integrity.ErrKeyringNotConfigured) {
		keyring = nil
	} else if err != nil {
		return game.State{}, fmt.Errorf("load keyring: %w", err)
	}
	opts := backend.Options{Keyring: keyring}

	handle, state, err := openLedger(ctx, cfg, kind, opts)
	if err != nil {
		return game.State{}, err
	}
	defer func() {
		if err := handle.Close(); err != nil {
			log.Printf("close ledger: %v", err)
		}
	}()
	log.Printf("ledger %s at seq %d", handle.Locator, state.LastSeq)

	session, err := engine.NewSession(handle.Ledger, state)
	if err != nil {
		return game.State{}, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1))

	if state.Phase == game.PhaseDealing {
		var names [game.Seats]string
		copy(names[:], cfg.Players)
		deal := game.NewDeal(rng, handle.Locator.GameID, names)
		result, err := session.Execute(ctx, command.Deal(deal))
		if err != nil {
			return session.State(), fmt.Errorf("deal: %w", err)
		}
		printEvents(out, session.State(), result.Events)
	}

	runner := engine.Runner{
		Session:       session,
		Controllers:   [game.Seats]engine.Controller{bot.Naive{}, bot.Naive{}, bot.Naive{}},
		MaxRejections: cfg.MaxRejections,
		Rand:          rng,
		OnEvent: func(evt event.Event) {
			printEvents(out, session.State(), []event.Event{evt})
		},
	}
	final, err := runner.Run(ctx)
	if err != nil {
		return final, err
	}
	fmt.Fprintf(out, "%s (%s) wins. Ledger: %s\n", final.Players[final.Winner].Name, final.Players[final.Winner].Role, handle.Locator)
	return final, nil
}

// openLedger creates a new ledger and points the session pointer at it, or
// reopens the pointer's ledger and replays it when resuming.
func openLedger(ctx context.Context, cfg Config, kind backend.Kind, opts backend.Options) (*backend.Handle, game.State, error) {
	if !cfg.Resume {
		path := cfg.LedgerDir
		if kind == backend.KindSQLite {
			path = cfg.SQLitePath
		}
		handle, err := backend.Create(ctx, kind, path, opts)
		if err != nil {
			return nil, game.State{}, err
		}
		if err := pointer.Write(cfg.PointerPath, handle.Locator.String()); err != nil {
			_ = handle.Close()
			return nil, game.State{}, err
		}
		return handle, game.New(), nil
	}

	target, err := pointer.Read(cfg.PointerPath)
	if err != nil {
		return nil, game.State{}, fmt.Errorf("resume: %w", err)
	}
	loc, err := backend.ParseLocator(target)
	if err != nil {
		return nil, game.State{}, fmt.Errorf("resume: %w", err)
	}
	handle, err := backend.Open(ctx, loc, opts)
	if err != nil {
		return nil, game.State{}, fmt.Errorf("resume %s: %w", loc, err)
	}
	result, err := replay.Rebuild(ctx, storage.EventList(handle.Events), replay.Options{})
	if err != nil {
		_ = handle.Close()
		return nil, game.State{}, fmt.Errorf("resume %s: %w", loc, err)
	}
	return handle, result.State, nil
}

// printEvents writes one line per event using names from state.
func printEvents(out io.Writer, state game.State, events []event.Event) {
	for _, evt := range events {
		fmt.Fprintf(out, "#%d %s\n", evt.Seq, describe(state, evt))
	}
}

func describe(state game.State, evt event.Event) string {
	name := func(seat int) string {
		if !game.ValidSeat(seat) {
			return "-"
		}
		if n := state.Players[seat].Name; n != "" {
			return n
		}
		return fmt.Sprintf("seat %d", seat)
	}
	switch evt.Type {
	case event.TypeDeal:
		var p event.DealPayload
		if err := evt.Decode(&p); err != nil {
			break
		}
		return fmt.Sprintf("deal %s to %s, %s bids first", p.GameID, strings.Join(p.Players, ", "), name(p.FirstBidder))
	case event.TypeBid:
		var p event.BidPayload
		if err := evt.Decode(&p); err != nil {
			break
		}
		return fmt.Sprintf("%s bids %d", name(p.Seat), p.Bid)
	case event.TypeLandlordAssigned:
		var p event.LandlordAssignedPayload
		if err := evt.Decode(&p); err != nil {
			break
		}
		return fmt.Sprintf("%s is landlord", name(p.Seat))
	case event.TypePlay:
		var p event.PlayPayload
		if err := evt.Decode(&p); err != nil {
			break
		}
		return fmt.Sprintf("%s plays %s", name(p.Seat), strings.Join(card.Codes(p.Cards), " "))
	case event.TypePass:
		var p event.PassPayload
		if err := evt.Decode(&p); err != nil {
			break
		}
		return fmt.Sprintf("%s passes", name(p.Seat))
	case event.TypeRoundReset:
		var p event.RoundResetPayload
		if err := evt.Decode(&p); err != nil {
			break
		}
		return fmt.Sprintf("trick cleared, %s leads", name(p.Leader))
	case event.TypeGameOver:
		var p event.GameOverPayload
		if err := evt.Decode(&p); err != nil {
			break
		}
		return fmt.Sprintf("game over, %s (%s) wins", name(p.Winner), p.Role)
	}
	return string(evt.Type)
}
