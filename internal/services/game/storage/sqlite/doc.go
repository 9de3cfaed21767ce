// Package sqlite stores game ledgers in a SQLite database.
//
// Rows carry the same fields and hash chain as the JSONL ledger, one row per
// event keyed by game id and seq, so either backend can be verified and
// replayed the same way. Appends run in a transaction that re-checks the head
// of the chain; the schema comes from embedded migrations applied at open.
package sqlite
