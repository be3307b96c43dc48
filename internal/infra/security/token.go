package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	// SessionTokenBytes is the entropy of an opaque session token; hex
	// encoding yields a 128-character string.
	SessionTokenBytes = 64
	// ResetTokenBytes is the entropy of a password-reset token.
	ResetTokenBytes = 32
)

// GenerateSecureToken returns a lowercase hex string built from byteLength
// bytes of a cryptographically secure random source.
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf("token length must be positive")
	}

	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

// GenerateSessionToken produces a fresh opaque session token.
func GenerateSessionToken() (string, error) {
	return GenerateSecureToken(SessionTokenBytes)
}

// GenerateResetToken produces a single-use password-reset token.
func GenerateResetToken() (string, error) {
	return GenerateSecureToken(ResetTokenBytes)
}

// HashToken calculates the deterministic SHA-256 digest of a token, for
// flows that store tokens in hashed form. Session tokens are looked up by
// raw value and are never passed through this.
func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
