// Package token provides token hashing and identifier utilities.
package token

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	// IDPrefix is the prefix for token identifiers.
	IDPrefix = "pvtk-"

	// IDLength is the total identifier length (prefix + ULID).
	IDLength = 5 + 26 // pvtk- + 26 = 31
)

// NewID generates a new token identifier using ULID.
// Format: pvtk-{ulid_lowercase}, 31 characters total.
// Identifiers are sortable by issuance time and safe to log.
func NewID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return IDPrefix + strings.ToLower(id.String()), nil
}

// ValidID checks if a string is a valid token identifier.
func ValidID(id string) bool {
	if len(id) != IDLength {
		return false
	}
	if !strings.HasPrefix(id, IDPrefix) {
		return false
	}
	_, err := ulid.ParseStrict(strings.ToUpper(id[len(IDPrefix):]))
	return err == nil
}
