// Package auth provides password hashing, token issuance and verification.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// Token keys are 256 bits; PASETO v4 requires exactly that.
	keyLength    = 32
	keyHexLength = 64
)

// LoadOrGenerateKey loads the token signing key from <dataPath>/auth.key,
// generating and saving a new random key when the file does not exist.
func LoadOrGenerateKey(dataPath string) ([]byte, error) {
	keyPath := filepath.Join(dataPath, "auth.key")

	//#nosec G304 -- path derived from the configured data directory
	if keyBytes, err := os.ReadFile(keyPath); err == nil {
		keyHex := strings.TrimSpace(string(keyBytes))
		if len(keyHex) != keyHexLength {
			return nil, fmt.Errorf("invalid auth key length: expected %d hex chars, got %d", keyHexLength, len(keyHex))
		}

		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("invalid auth key format: not valid hex: %w", err)
		}
		return key, nil
	}

	key := make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate auth key: %w", err)
	}

	if err := os.MkdirAll(dataPath, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(key)), 0o600); err != nil {
		return nil, fmt.Errorf("failed to save auth key: %w", err)
	}

	return key, nil
}

// KeyFromSecret derives a 32-byte key from a configured secret. A 64-character
// hex secret is used as-is; anything else is hashed with SHA-256.
func KeyFromSecret(secret string) []byte {
	if len(secret) == keyHexLength {
		if key, err := hex.DecodeString(secret); err == nil {
			return key
		}
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}
