// Package engine is the commit path between controllers and the ledger.
//
// A Session owns the single in-memory game state of a session. It decides a
// command with the reducer, appends each resulting event to the journal and
// folds it into state only once the append has succeeded. Run drives a game
// by asking one Controller per seat for intents until the game is over.
package engine
