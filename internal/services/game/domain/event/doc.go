// Package event defines the ledger event envelope, the payload of every event
// type and the hash that chains each record to its predecessor.
//
// Events are immutable facts emitted by accepted decisions. A Draft carries
// only type and payload; the ledger assigns sequence, timestamp and hashes
// when it persists the draft, producing an Event.
package event
