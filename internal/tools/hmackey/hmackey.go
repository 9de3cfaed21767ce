// Package hmackey generates signing keys for the ledger keyring.
package hmackey

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/louisbranch/doudizhu/internal/services/game/storage/integrity"
)

// Config holds configuration for HMAC key generation.
type Config struct {
	Bytes int
	// KeyID, when set, is printed as DOUDIZHU_EVENT_HMAC_KEY_ID.
	KeyID string
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Bytes: 32}
	fs.IntVar(&cfg.Bytes, "bytes", cfg.Bytes, "number of random bytes (default: 32)")
	fs.StringVar(&cfg.KeyID, "key-id", "", "key id to print alongside the key")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run generates the key, checks that it loads as a keyring and writes the
// environment assignment to out.
func Run(cfg Config, out io.Writer, reader io.Reader) error {
	if cfg.Bytes <= 0 {
		return errors.New("bytes must be greater than zero")
	}
	if out == nil {
		return errors.New("output is required")
	}
	if reader == nil {
		reader = rand.Reader
	}

	buf := make([]byte, cfg.Bytes)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return fmt.Errorf("generate random bytes: %w", err)
	}
	key := hex.EncodeToString(buf)
	keyID := strings.TrimSpace(cfg.KeyID)
	if _, err := (integrity.KeyConfig{Key: key, KeyID: keyID}).Keyring(); err != nil {
		return fmt.Errorf("load generated key: %w", err)
	}

	if _, err := fmt.Fprintf(out, "DOUDIZHU_EVENT_HMAC_KEY=%s\n", key); err != nil {
		return err
	}
	if keyID != "" {
		_, err := fmt.Fprintf(out, "DOUDIZHU_EVENT_HMAC_KEY_ID=%s\n", keyID)
		return err
	}
	return nil
}
