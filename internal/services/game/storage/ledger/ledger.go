package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/louisbranch/doudizhu/internal/platform/errors"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/event"
	"github.com/louisbranch/doudizhu/internal/services/game/storage"
	"github.com/louisbranch/doudizhu/internal/services/game/storage/integrity"
)

const (
	filePrefix = "ledger_"
	fileExt    = ".jsonl"
	tracerName = "github.com/louisbranch/doudizhu/internal/services/game/storage/ledger"
)

// Options configures a ledger file.
type Options struct {
	// Keyring signs appended records and verifies signatures on read. Nil
	// leaves records unsigned and skips signature checks.
	Keyring *integrity.Keyring
	// ID scopes signing keys. Defaults to the uuid in the file name.
	ID string
	// Logger receives torn-tail warnings. Defaults to log.Default().
	Logger *log.Logger
	// Now stamps appended records. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.Default()
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// file is the subset of *os.File the ledger writes through.
type file interface {
	io.Writer
	Sync() error
	Truncate(size int64) error
	Close() error
}

// Ledger is an append-only JSONL file holding one game. One record is one
// line; a record is durable once its line has been written and synced.
type Ledger struct {
	mu       sync.Mutex
	path     string
	id       string
	opts     Options
	file     file
	size     int64
	lastSeq  uint64
	lastHash string
	events   []event.Event
	tracer   trace.Tracer
}

// FileName returns the ledger file name for id.
func FileName(id string) string {
	return filePrefix + id + fileExt
}

// IDFromPath extracts the ledger id from a ledger_<id>.jsonl path. Other
// names yield the base name without extension.
func IDFromPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), fileExt)
	return strings.TrimPrefix(base, filePrefix)
}

// Create starts a new, empty ledger file under dir named after a fresh uuid.
func Create(dir string, opts Options) (*Ledger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
		opts.ID = id
	}
	path := filepath.Join(dir, FileName(id))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create ledger %s: %w", path, err)
	}
	return &Ledger{
		path:     path,
		id:       id,
		opts:     opts,
		file:     f,
		lastHash: event.GenesisHash,
		tracer:   otel.Tracer(tracerName),
	}, nil
}

// Open verifies an existing ledger and opens it for appending. A torn final
// record is truncated away with a warning; any other verification failure is
// returned as a *storage.CorruptionError and the file is left untouched.
func Open(path string, opts Options) (*Ledger, error) {
	if opts.ID == "" {
		opts.ID = IDFromPath(path)
	}
	report, err := Inspect(path, opts)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	size := report.ValidSize
	if report.TornTail {
		if err := f.Truncate(size); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("truncate torn record: %w", err)
		}
	}
	if report.Unterminated {
		// The last record is intact but lost its newline; restore it so the
		// next append starts on its own line.
		if _, err := f.Write([]byte("\n")); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("terminate last record: %w", err)
		}
		size++
	}
	l := &Ledger{
		path:     path,
		id:       opts.ID,
		opts:     opts,
		file:     f,
		size:     size,
		lastSeq:  report.LastSeq,
		lastHash: report.LastHash,
		events:   report.Events,
		tracer:   otel.Tracer(tracerName),
	}
	return l, nil
}

// Path returns the ledger file path.
func (l *Ledger) Path() string { return l.path }

// ID returns the ledger id used to scope signing keys.
func (l *Ledger) ID() string { return l.id }

// LastSeq returns the latest stored sequence number.
func (l *Ledger) LastSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSeq
}

// Append writes the next record with a single write followed by fsync. When
// either fails the file is truncated back to its previous length and the
// error is a PERSISTENCE_FAILURE; the ledger is unchanged.
func (l *Ledger) Append(ctx context.Context, draft event.Draft) (event.Event, error) {
	ctx, span := l.tracer.Start(ctx, "doudizhu.ledger.append", trace.WithAttributes(
		attribute.String("doudizhu.event.type", string(draft.Type)),
	))
	defer span.End()

	evt, err := l.append(ctx, draft)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return event.Event{}, err
	}
	span.SetAttributes(attribute.Int64("doudizhu.event.seq", int64(evt.Seq)))
	return evt, nil
}

func (l *Ledger) append(ctx context.Context, draft event.Draft) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if err := draft.Validate(); err != nil {
		return event.Event{}, apperrors.Wrap(apperrors.CodeInvalidEvent, "validate draft", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return event.Event{}, storage.ErrClosed
	}

	evt := event.Event{
		Seq:     l.lastSeq + 1,
		Type:    draft.Type,
		Payload: draft.Payload,
		TS:      event.FormatTimestamp(l.opts.now()),
	}
	evt, err := integrity.Seal(evt, l.lastHash, l.opts.Keyring, l.id)
	if err != nil {
		return event.Event{}, apperrors.Wrap(apperrors.CodePersistenceFailure, "seal record", err)
	}
	line, err := encodeRecord(evt)
	if err != nil {
		return event.Event{}, apperrors.Wrap(apperrors.CodePersistenceFailure, "encode record", err)
	}

	n, err := l.file.Write(line)
	if err == nil && n != len(line) {
		err = io.ErrShortWrite
	}
	if err == nil {
		err = l.file.Sync()
	}
	if err != nil {
		if truncErr := l.file.Truncate(l.size); truncErr != nil {
			err = errors.Join(err, fmt.Errorf("truncate after failed append: %w", truncErr))
		}
		return event.Event{}, apperrors.Wrap(apperrors.CodePersistenceFailure, fmt.Sprintf("append seq %d", evt.Seq), err)
	}

	l.size += int64(len(line))
	l.lastSeq = evt.Seq
	l.lastHash = evt.Hash
	l.events = append(l.events, evt)
	return evt, nil
}

// ListEvents returns stored events after afterSeq, at most limit of them.
func (l *Ledger) ListEvents(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return storage.EventList(l.events).ListEvents(ctx, afterSeq, limit)
}

// Close closes the underlying file. Further appends fail.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func encodeRecord(evt event.Event) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(evt); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
