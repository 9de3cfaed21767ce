// Package migrations embeds the SQL schema history of the SQLite ledger so a
// fresh database and an older one converge on the same tables at open time.
package migrations
