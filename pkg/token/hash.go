// Package token provides token hashing and identifier utilities.
package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

const (
	// HashPrefix is the prefix for token hashes (sensitive, uses underscore).
	HashPrefix = "pvth_"

	// HashLength is the total token hash length (prefix + hex SHA-256).
	HashLength = 5 + 64 // pvth_ + 64 = 69
)

// Hash computes the SHA-256 hash of a token.
// Returns the hash in format: pvth_{hex_sha256} (69 characters total).
// Only the hash is ever persisted; the raw token stays with the caller.
func Hash(token string) string {
	h := sha256.Sum256([]byte(token))
	return HashPrefix + hex.EncodeToString(h[:])
}

// Verify verifies a token against an expected hash.
//
// Uses constant-time comparison to prevent timing attacks.
func Verify(token, expectedHash string) bool {
	actualHash := Hash(token)
	return subtle.ConstantTimeCompare([]byte(actualHash), []byte(expectedHash)) == 1
}

// ValidHash checks if a string has valid token hash format.
func ValidHash(hash string) bool {
	if len(hash) != HashLength {
		return false
	}
	if !strings.HasPrefix(hash, HashPrefix) {
		return false
	}
	_, err := hex.DecodeString(hash[len(HashPrefix):])
	return err == nil
}

// Mask masks a token for safe logging.
// Example: eyJhbGci...R5cQ
func Mask(token string) string {
	if len(token) < 12 {
		return "***REDACTED***"
	}
	return token[:8] + "..." + token[len(token)-4:]
}
