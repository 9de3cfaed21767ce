package config

import (
	"errors"
	"fmt"
	"os"

	apperrors "github.com/louisbranch/doudizhu/internal/platform/errors"
)

// Exit statuses reported by the commands.
const (
	StatusFailure     = 1
	StatusCorruption  = 3
	StatusPersistence = 4
)

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(StatusFailure)
}

// Exit writes err to stderr and exits with ExitStatus(err).
func Exit(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitStatus(err))
}

// ExitStatus maps err to a process exit status so scripts can tell a
// corrupt ledger from a failed write or an ordinary failure.
func ExitStatus(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, apperrors.ErrLedgerCorruption):
		return StatusCorruption
	case errors.Is(err, apperrors.ErrPersistenceFailure):
		return StatusPersistence
	default:
		return StatusFailure
	}
}
