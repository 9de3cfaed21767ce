package config_test

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/louisbranch/doudizhu/internal/platform/config"
	apperrors "github.com/louisbranch/doudizhu/internal/platform/errors"
)

// TestExitf_ExitsWithCode1 uses the subprocess test pattern because os.Exit
// cannot be intercepted in-process.
func TestExitf_ExitsWithCode1(t *testing.T) {
	if os.Getenv("TEST_EXITF_SUBPROCESS") == "1" {
		config.Exitf("fatal: %s", "something broke")
		return
	}

	out, code := runSubprocess(t, "^TestExitf_ExitsWithCode1$", "TEST_EXITF_SUBPROCESS=1")
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(out, "fatal: something broke") {
		t.Fatalf("expected stderr to contain %q, got %q", "fatal: something broke", out)
	}
}

func TestExit_UsesCorruptionStatus(t *testing.T) {
	if os.Getenv("TEST_EXIT_SUBPROCESS") == "1" {
		config.Exit(apperrors.Wrap(apperrors.CodeLedgerCorruption, "seq 4", nil))
		return
	}

	out, code := runSubprocess(t, "^TestExit_UsesCorruptionStatus$", "TEST_EXIT_SUBPROCESS=1")
	if code != config.StatusCorruption {
		t.Fatalf("expected exit code %d, got %d", config.StatusCorruption, code)
	}
	if !strings.Contains(out, "Error: ") {
		t.Fatalf("expected error prefix, got %q", out)
	}
}

func TestExitStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "plain", err: errors.New("boom"), want: config.StatusFailure},
		{name: "corruption", err: fmt.Errorf("open: %w", apperrors.New(apperrors.CodeLedgerCorruption, "bad hash")), want: config.StatusCorruption},
		{name: "persistence", err: apperrors.Wrap(apperrors.CodePersistenceFailure, "append", errors.New("disk full")), want: config.StatusPersistence},
		{name: "illegal move", err: apperrors.New(apperrors.CodeIllegalMove, "not your turn"), want: config.StatusFailure},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := config.ExitStatus(tc.err); got != tc.want {
				t.Fatalf("ExitStatus = %d, want %d", got, tc.want)
			}
		})
	}
}

func runSubprocess(t *testing.T, pattern, env string) (string, int) {
	t.Helper()
	cmd := exec.Command(os.Args[0], "-test.run="+pattern)
	cmd.Env = append(os.Environ(), env)

	out, err := cmd.CombinedOutput()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *exec.ExitError, got %T: %v", err, err)
	}
	return string(out), exitErr.ExitCode()
}
