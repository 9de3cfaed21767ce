// Package storage defines the ledger boundary shared by the storage backends.
//
// A ledger is the append-only, hash-chained record of one game. The JSONL
// file backend and the SQLite backend live in subpackages and store the same
// record fields under the same chain rules, so a ledger verified by one can be
// replayed the same way as the other.
//
// Common error types:
//   - CorruptionError: the chain breaks at a specific sequence number
//   - ErrClosed: append after Close
package storage
