package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// tokenBytes is the entropy behind API tokens and generated session secrets.
const tokenBytes = 32

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateAPIToken returns a new bearer token and the hash stored in its place.
// The plaintext is handed to the client once and never persisted.
func GenerateAPIToken() (plaintext string, hash string, err error) {
	plaintext, err = randomHex(tokenBytes)
	if err != nil {
		return "", "", err
	}
	return plaintext, HashToken(plaintext), nil
}

// HashToken is the lookup key for a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// GenerateSessionSecret creates a hex-encoded secret for CSRF token signing.
func GenerateSessionSecret() (string, error) {
	return randomHex(tokenBytes)
}
