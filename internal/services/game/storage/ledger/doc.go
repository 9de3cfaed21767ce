// Package ledger stores a game's events as an append-only JSONL file.
//
// Each line is one record: seq, type, payload, ts, prev_hash and hash, plus
// sig and key_id when a keyring signs the ledger. The file is named
// ledger_<uuid>.jsonl and holds exactly one game.
package ledger
