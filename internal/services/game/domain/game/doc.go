// Package game holds the authoritative game state and the reducer that
// advances it.
//
// Apply is the only way state changes, for live play and for replay alike. It
// is pure: no I/O, no clock and no randomness beyond the concrete card
// assignment recorded in a DEAL event. Decide wraps Apply for commands and
// appends the events the rules synthesize on their own (landlord assignment,
// trick reset, game over).
package game
