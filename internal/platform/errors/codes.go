// Package errors provides coded errors shared by the engine, its storage
// backends and the command-line tools.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Reducer rejections
	CodeInvalidEvent     Code = "INVALID_EVENT"
	CodeIllegalMove      Code = "ILLEGAL_MOVE"
	CodeBiddingExhausted Code = "BIDDING_EXHAUSTED"

	// Ledger errors
	CodeLedgerCorruption   Code = "LEDGER_CORRUPTION"
	CodePersistenceFailure Code = "PERSISTENCE_FAILURE"
)

// Fatal reports whether errors with this code must end the session rather
// than be retried by the caller.
func (c Code) Fatal() bool {
	switch c {
	case CodeInvalidEvent, CodeIllegalMove, CodeBiddingExhausted:
		return false
	}
	return true
}
