// Package domain defines the core domain models for PlotVault.
package domain

import (
	"strings"
	"time"

	"github.com/plotvault/plotvault-go/pkg/token"
)

// Token constraints.
const (
	MaxGroupLength       = 128
	MaxAudienceLength    = 128
	MaxFingerprintLength = 128
)

// TokenEntry is one issued credential as persisted in the token table.
//
// The table is keyed by the SHA-256 hash of the signed token string; the
// raw value is returned to the caller once at issuance and never stored.
// Entries are immutable after creation: revocation removes the entry, it
// never edits one.
type TokenEntry struct {
	// Hash is the pvth_-prefixed SHA-256 of the token value. It is the
	// table key and is not serialized inside the entry itself.
	Hash string `json:"-"`

	// ID is the unique token identifier (pvtk-{ulid}), used for auditing
	// and revocation by ID. Carried as the jti claim.
	ID string `json:"id,omitempty"`

	// Group is the tenant namespace the token grants access to.
	Group string `json:"group"`

	// IssuedAt is the issuance timestamp (Unix seconds).
	IssuedAt int64 `json:"issued_at"`

	// ExpiresAt is the absolute expiry timestamp (Unix seconds).
	ExpiresAt int64 `json:"expires_at"`

	// NotBefore is the activation timestamp (Unix seconds).
	NotBefore int64 `json:"not_before"`

	// Audience is the optional target-service identifier (aud claim).
	Audience string `json:"audience,omitempty"`

	// Fingerprint optionally binds the token to a calling context
	// (fp claim). When set, verification requires a matching value.
	Fingerprint string `json:"fingerprint,omitempty"`
}

// NewTokenEntry creates an entry for a fresh issuance: a generated ID,
// IssuedAt and NotBefore set to now, ExpiresAt set to now+ttl.
func NewTokenEntry(group string, ttl time.Duration) (*TokenEntry, error) {
	id, err := token.NewID()
	if err != nil {
		return nil, ErrInternal.WithCause(err)
	}

	now := time.Now().Unix()
	return &TokenEntry{
		ID:        id,
		Group:     group,
		IssuedAt:  now,
		NotBefore: now,
		ExpiresAt: now + int64(ttl/time.Second),
	}, nil
}

// Validate checks the entry against its invariants:
// non-empty group and NotBefore <= IssuedAt < ExpiresAt.
func (e *TokenEntry) Validate() error {
	var violations []string

	if e.Group == "" {
		violations = append(violations, "group is required")
	}
	if len(e.Group) > MaxGroupLength {
		violations = append(violations, "group exceeds 128 characters")
	}
	if len(e.Audience) > MaxAudienceLength {
		violations = append(violations, "audience exceeds 128 characters")
	}
	if len(e.Fingerprint) > MaxFingerprintLength {
		violations = append(violations, "fingerprint exceeds 128 characters")
	}
	if e.NotBefore > e.IssuedAt {
		violations = append(violations, "not_before is after issued_at")
	}
	if e.IssuedAt >= e.ExpiresAt {
		violations = append(violations, "expires_at is not after issued_at")
	}

	if len(violations) > 0 {
		return ErrInvalidInput.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}

// IsExpired reports whether the entry has expired at the given time.
// Expiry is strict: a token is rejected from the instant now >= ExpiresAt.
func (e *TokenEntry) IsExpired(now int64) bool {
	return now >= e.ExpiresAt
}

// NotYetValid reports whether the entry's activation lies in the future,
// allowing leeway seconds of clock skew.
func (e *TokenEntry) NotYetValid(now, leeway int64) bool {
	return now < e.NotBefore-leeway
}

// Clone creates a copy of the entry.
func (e *TokenEntry) Clone() *TokenEntry {
	clone := *e
	return &clone
}

// IssuedAtTime returns IssuedAt as time.Time.
func (e *TokenEntry) IssuedAtTime() time.Time {
	return time.Unix(e.IssuedAt, 0)
}

// ExpiresAtTime returns ExpiresAt as time.Time.
func (e *TokenEntry) ExpiresAtTime() time.Time {
	return time.Unix(e.ExpiresAt, 0)
}

// NotBeforeTime returns NotBefore as time.Time.
func (e *TokenEntry) NotBeforeTime() time.Time {
	return time.Unix(e.NotBefore, 0)
}
