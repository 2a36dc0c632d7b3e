package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const refreshSecretBytes = 32 // 256 bits

// GenerateRefreshSecret returns an opaque URL-safe bearer secret. It is handed
// to the client once and only its hash is stored.
func GenerateRefreshSecret() (string, error) {
	b := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token.GenerateRefreshSecret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashRefreshSecret is a deterministic SHA-256 digest used as the store lookup key.
func HashRefreshSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
