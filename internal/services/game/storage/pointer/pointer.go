// Package pointer keeps the session pointer: a plain-text file naming the
// most recently active ledger so a later run can offer to resume it.
package pointer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultName is the pointer file name used next to the ledgers.
const DefaultName = "_latest.txt"

// ErrNoPointer indicates that no pointer file has been written yet.
var ErrNoPointer = errors.New("no session pointer")

// Write records target in the pointer file at path. The file is replaced
// atomically so a reader sees either the old target or the new one.
func Write(path, target string) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return fmt.Errorf("pointer target is required")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create pointer dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".pointer-*.tmp")
	if err != nil {
		return fmt.Errorf("create pointer temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.WriteString(target + "\n"); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write pointer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync pointer: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close pointer: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace pointer: %w", err)
	}
	return nil
}

// Read returns the target recorded at path, or ErrNoPointer when the file
// does not exist or is empty.
func Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNoPointer
	}
	if err != nil {
		return "", fmt.Errorf("read pointer: %w", err)
	}
	target := strings.TrimSpace(string(data))
	if target == "" {
		return "", ErrNoPointer
	}
	return target, nil
}
