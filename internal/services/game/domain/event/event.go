package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// Type identifies an event type.
type Type string

const (
	TypeDeal             Type = "DEAL"
	TypeBid              Type = "BID"
	TypeLandlordAssigned Type = "LANDLORD_ASSIGNED"
	TypePlay             Type = "PLAY"
	TypePass             Type = "PASS"
	TypeRoundReset       Type = "ROUND_RESET"
	TypeGameOver         Type = "GAME_OVER"
)

var types = []Type{
	TypeDeal,
	TypeBid,
	TypeLandlordAssigned,
	TypePlay,
	TypePass,
	TypeRoundReset,
	TypeGameOver,
}

var (
	// ErrTypeUnknown indicates an event type outside the ledger vocabulary.
	ErrTypeUnknown = errors.New("event type is not registered")
	// ErrPayloadInvalid indicates a payload that is not a JSON object.
	ErrPayloadInvalid = errors.New("payload json must be a valid object")
)

// Types lists every event type in lifecycle order.
func Types() []Type {
	return slices.Clone(types)
}

// Known reports whether t is part of the ledger vocabulary.
func (t Type) Known() bool {
	return slices.Contains(types, t)
}

// Draft is an accepted but not yet persisted event.
type Draft struct {
	Type    Type
	Payload json.RawMessage
}

// Event is a persisted ledger record.
type Event struct {
	Seq      uint64          `json:"seq"`
	Type     Type            `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	TS       string          `json:"ts"`
	PrevHash string          `json:"prev_hash"`
	Hash     string          `json:"hash"`
	// Signature and KeyID are present only when the ledger signs records.
	Signature string `json:"sig,omitempty"`
	KeyID     string `json:"key_id,omitempty"`
}

// NewDraft marshals payload into a draft of type t.
func NewDraft(t Type, payload any) (Draft, error) {
	if !t.Known() {
		return Draft{}, fmt.Errorf("%w: %s", ErrTypeUnknown, t)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Draft{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Draft{Type: t, Payload: data}, nil
}

// Validate checks the envelope fields a ledger needs before appending.
func (d Draft) Validate() error {
	if !d.Type.Known() {
		return fmt.Errorf("%w: %q", ErrTypeUnknown, d.Type)
	}
	var obj map[string]json.RawMessage
	if len(d.Payload) == 0 || json.Unmarshal(d.Payload, &obj) != nil || obj == nil {
		return fmt.Errorf("%s: %w", d.Type, ErrPayloadInvalid)
	}
	return nil
}

// Draft returns the type and payload of a persisted event.
func (e Event) Draft() Draft {
	return Draft{Type: e.Type, Payload: e.Payload}
}

// Decode unmarshals the event payload into target.
func (e Event) Decode(target any) error {
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
