package integrity

import (
	"fmt"

	"github.com/louisbranch/doudizhu/internal/services/game/domain/event"
)

// ChainHash computes the SHA-256 hash that links a record to its predecessor.
//
// Delegates to the event package so the envelope is defined in one place and
// cannot drift between ledger backends.
func ChainHash(evt event.Event, prevHash string) (string, error) {
	return event.ChainHash(evt, prevHash)
}

// Seal fills prev_hash and hash for a record that follows prevHash, and signs
// the hash when a keyring is given.
func Seal(evt event.Event, prevHash string, keyring *Keyring, ledgerID string) (event.Event, error) {
	hash, err := ChainHash(evt, prevHash)
	if err != nil {
		return event.Event{}, err
	}
	evt.PrevHash = prevHash
	evt.Hash = hash
	evt.Signature, evt.KeyID = "", ""
	if keyring != nil {
		sig, keyID, err := keyring.SignChainHash(ledgerID, hash)
		if err != nil {
			return event.Event{}, fmt.Errorf("sign seq %d: %w", evt.Seq, err)
		}
		evt.Signature, evt.KeyID = sig, keyID
	}
	return evt, nil
}

// Verify checks that a record links to prevHash, that its hash matches its
// content and, with a keyring, that its signature is valid. Without a keyring
// signatures are not checked.
func Verify(evt event.Event, prevHash string, keyring *Keyring, ledgerID string) error {
	if evt.PrevHash != prevHash {
		return fmt.Errorf("prev_hash %.12s does not match previous record hash %.12s", evt.PrevHash, prevHash)
	}
	hash, err := ChainHash(evt, prevHash)
	if err != nil {
		return err
	}
	if hash != evt.Hash {
		return fmt.Errorf("hash mismatch: stored %.12s computed %.12s", evt.Hash, hash)
	}
	if keyring == nil {
		return nil
	}
	if evt.Signature == "" {
		return fmt.Errorf("record is not signed")
	}
	return keyring.VerifyChainHash(ledgerID, hash, evt.Signature, evt.KeyID)
}
