package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// opaqueTokenBytes is the entropy of a refresh token.
// 32 bytes = 256 bits, hex-encoded to 64 characters.
const opaqueTokenBytes = 32

// newOpaqueToken creates a cryptographically random hex-encoded token.
func newOpaqueToken() (string, error) {
	b := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashToken returns hex(SHA-256(raw)). Opaque tokens are stored hashed so
// a leaked table cannot be replayed; SHA-256 keeps the lookup a single
// indexed equality instead of a per-row comparison.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
