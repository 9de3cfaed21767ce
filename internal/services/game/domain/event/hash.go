package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/doudizhu/internal/services/game/domain/core/encoding"
)

// GenesisHash is the prev_hash of the first record in every ledger.
var GenesisHash = strings.Repeat("0", 64)

// TimestampLayout is the stored form of ts: RFC 3339, UTC, milliseconds.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in the stored ts form.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Millisecond).Format(TimestampLayout)
}

// ParseTimestamp reads a stored ts value.
func ParseTimestamp(ts string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse ts %q: %w", ts, err)
	}
	return t.UTC(), nil
}

// Envelope returns the canonical serialization of the hashed record fields:
// payload, seq, ts and type.
func Envelope(evt Event) ([]byte, error) {
	payload := evt.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	canonical, err := encoding.CanonicalJSON(map[string]any{
		"payload": payload,
		"seq":     evt.Seq,
		"ts":      evt.TS,
		"type":    string(evt.Type),
	})
	if err != nil {
		return nil, fmt.Errorf("canonical envelope seq=%d: %w", evt.Seq, err)
	}
	return canonical, nil
}

// ChainHash computes hex(sha256(prevHash || Envelope(evt))).
func ChainHash(evt Event, prevHash string) (string, error) {
	envelope, err := Envelope(evt)
	if err != nil {
		return "", err
	}
	return encoding.SHA256Hex([]byte(prevHash), envelope), nil
}
