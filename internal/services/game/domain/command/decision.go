package command

import (
	"errors"

	"github.com/louisbranch/doudizhu/internal/services/game/domain/event"
)

// Decision represents the pure outcome of handling a command.
type Decision struct {
	Events     []event.Draft
	Rejections []Rejection
}

// Accept returns a decision that emits the provided drafts.
func Accept(drafts ...event.Draft) Decision {
	return Decision{Events: append([]event.Draft(nil), drafts...)}
}

// Reject returns a decision that carries the provided rejections.
func Reject(rejections ...Rejection) Decision {
	return Decision{Rejections: append([]Rejection(nil), rejections...)}
}

// Validate checks that a decision either emits events or rejects, never both
// and never neither.
func (d Decision) Validate() error {
	if len(d.Events) == 0 && len(d.Rejections) == 0 {
		return errors.New("decision must emit events or rejections")
	}
	if len(d.Events) > 0 && len(d.Rejections) > 0 {
		return errors.New("decision cannot emit both events and rejections")
	}
	return nil
}

// Err returns the first rejection as an error, or nil when accepted.
func (d Decision) Err() error {
	if len(d.Rejections) == 0 {
		return nil
	}
	r := d.Rejections[0]
	return &r
}
