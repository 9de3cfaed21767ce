// Package integrity links ledger records into a hash chain and optionally
// signs each record hash with an HMAC key derived per ledger.
//
// The chain makes any edit to a stored record detectable. A signature also
// proves the record was written by a holder of the keyring, so a rewritten
// ledger with a recomputed chain still fails verification.
package integrity
