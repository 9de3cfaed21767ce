package integrity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/doudizhu/internal/platform/config"
)

const defaultKeyID = "v1"

// ErrKeyringNotConfigured indicates that no signing key is set in the
// environment. Signing is optional, so callers usually treat it as "unsigned".
var ErrKeyringNotConfigured = errors.New("DOUDIZHU_EVENT_HMAC_KEY is required")

// KeyConfig holds the keyring environment settings.
type KeyConfig struct {
	// Keys is a comma-separated list of id=secret entries for key rotation.
	Keys  string `env:"DOUDIZHU_EVENT_HMAC_KEYS"`
	Key   string `env:"DOUDIZHU_EVENT_HMAC_KEY"`
	KeyID string `env:"DOUDIZHU_EVENT_HMAC_KEY_ID" envDefault:"v1"`
}

// KeyringFromEnv loads the HMAC keyring configuration from environment variables.
func KeyringFromEnv() (*Keyring, error) {
	var cfg KeyConfig
	if err := config.ParseEnv(&cfg); err != nil {
		return nil, err
	}
	return cfg.Keyring()
}

// Keyring builds the keyring described by the config.
func (c KeyConfig) Keyring() (*Keyring, error) {
	keyID := strings.TrimSpace(c.KeyID)
	if keyID == "" {
		keyID = defaultKeyID
	}

	keySpec := strings.TrimSpace(c.Keys)
	if keySpec == "" {
		raw := strings.TrimSpace(c.Key)
		if raw == "" {
			return nil, ErrKeyringNotConfigured
		}
		return NewKeyring(map[string][]byte{keyID: []byte(raw)}, keyID)
	}

	keys := make(map[string][]byte)
	for _, entry := range strings.Split(keySpec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, value, ok := strings.Cut(entry, "=")
		id = strings.TrimSpace(id)
		value = strings.TrimSpace(value)
		if !ok || id == "" || value == "" {
			return nil, fmt.Errorf("invalid DOUDIZHU_EVENT_HMAC_KEYS entry %q", id)
		}
		keys[id] = []byte(value)
	}
	return NewKeyring(keys, keyID)
}
