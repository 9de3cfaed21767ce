package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/louisbranch/doudizhu/internal/services/game/domain/event"
	"github.com/louisbranch/doudizhu/internal/services/game/storage"
	"github.com/louisbranch/doudizhu/internal/services/game/storage/integrity"
)

// Report describes a verified ledger file.
type Report struct {
	Path     string
	Events   []event.Event
	LastSeq  uint64
	LastHash string
	Signed   int
	// ValidSize is the byte length of the verified records.
	ValidSize int64
	// TornTail reports a dropped, partially written final record.
	TornTail bool
	// Unterminated reports an intact final record missing its newline.
	Unterminated bool
}

// ReadAll reads and verifies every record of the ledger at path.
func ReadAll(path string, opts Options) ([]event.Event, error) {
	report, err := Inspect(path, opts)
	if err != nil {
		return nil, err
	}
	return report.Events, nil
}

// Inspect verifies the ledger at path without modifying it. The chain is
// checked from genesis: each record must carry the next seq, link to the
// previous hash and hash to its own content. A final line lacking its newline
// that fails these checks is a torn write and is dropped with a warning,
// unless it begins with a complete valid record: an interrupted write never
// leaves bytes after a whole record, so that is corruption.
func Inspect(path string, opts Options) (Report, error) {
	if opts.ID == "" {
		opts.ID = IDFromPath(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("read ledger %s: %w", path, err)
	}

	report := Report{Path: path, LastHash: event.GenesisHash}
	offset := 0
	for offset < len(data) {
		rest := data[offset:]
		end := bytes.IndexByte(rest, '\n')
		terminated := end >= 0
		line := rest
		if terminated {
			line = rest[:end]
		}

		evt, reason, cause := verifyLine(line, report, opts)
		if reason != "" {
			if !terminated {
				if seq, ok := intactPrefix(line, report, opts); ok {
					return report, &storage.CorruptionError{Seq: seq, Reason: "unexpected bytes after record", Err: cause}
				}
				opts.logger().Printf("ledger %s: dropping torn record after seq %d: %s", path, report.LastSeq, reason)
				report.TornTail = true
				break
			}
			return report, &storage.CorruptionError{Seq: report.LastSeq + 1, Reason: reason, Err: cause}
		}

		report.Events = append(report.Events, evt)
		report.LastSeq = evt.Seq
		report.LastHash = evt.Hash
		if evt.Signature != "" {
			report.Signed++
		}
		if !terminated {
			report.Unterminated = true
			offset = len(data)
			break
		}
		offset += end + 1
	}
	report.ValidSize = int64(offset)
	return report, nil
}

// verifyLine decodes one record and checks it against the chain so far. A
// non-empty reason means the record is not valid.
func verifyLine(line []byte, report Report, opts Options) (event.Event, string, error) {
	var evt event.Event
	if len(bytes.TrimSpace(line)) == 0 {
		return evt, "empty record", nil
	}
	if err := checkFields(line); err != nil {
		return event.Event{}, "unreadable record", err
	}
	if err := json.Unmarshal(line, &evt); err != nil {
		return event.Event{}, "unreadable record", err
	}
	expected := report.LastSeq + 1
	if evt.Seq != expected {
		return evt, fmt.Sprintf("expected seq %d, found %d", expected, evt.Seq), nil
	}
	if !evt.Type.Known() {
		return evt, fmt.Sprintf("unknown event type %q", evt.Type), nil
	}
	if _, err := event.ParseTimestamp(evt.TS); err != nil {
		return evt, "invalid timestamp", err
	}
	if err := integrity.Verify(evt, report.LastHash, opts.Keyring, opts.ID); err != nil {
		return evt, "integrity check failed", err
	}
	return evt, "", nil
}

// recordFields are the exact top-level keys a record may carry. Decoding into
// event.Event alone would accept any casing of them.
var recordFields = map[string]bool{
	"seq": true, "type": true, "payload": true, "ts": true,
	"prev_hash": true, "hash": true, "sig": true, "key_id": true,
}

func checkFields(line []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return err
	}
	for key := range fields {
		if !recordFields[key] {
			return fmt.Errorf("unexpected field %q", key)
		}
	}
	return nil
}

// intactPrefix reports the seq of a complete, valid record at the start of an
// unterminated line.
func intactPrefix(line []byte, report Report, opts Options) (uint64, bool) {
	var raw json.RawMessage
	if err := json.NewDecoder(bytes.NewReader(line)).Decode(&raw); err != nil {
		return 0, false
	}
	evt, reason, _ := verifyLine(raw, report, opts)
	if reason != "" {
		return 0, false
	}
	return evt.Seq, true
}
