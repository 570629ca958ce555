// Package service provides the domain services for PlotVault.
package service

import (
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v4"

	"github.com/plotvault/plotvault-go/internal/core/domain"
)

// MinSecretLength is the smallest accepted signing secret.
const MinSecretLength = 16

// Custom claim names carried in a signed token, next to the registered
// iat/exp/nbf/aud/jti set.
const (
	claimGroup       = "group"
	claimFingerprint = "fp"
)

// Codec signs token entries into their wire form and decodes them back.
//
// The codec is stateless and deliberately does not judge expiry or
// revocation: those depend on the token table and on time, which Auth
// owns. Decode proves integrity (signature and structure), nothing
// more.
type Codec struct {
	secret []byte
	parser *jwt.Parser
}

// NewCodec creates a codec signing with HMAC-SHA256.
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, domain.ErrInvalidInput.WithDetails(
			fmt.Sprintf("signing secret must be at least %d bytes", MinSecretLength))
	}
	return &Codec{
		secret: secret,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// Issue signs entry into its portable string form. The string is
// returned to the caller once; only its hash is ever stored.
func (c *Codec) Issue(entry *domain.TokenEntry) (string, error) {
	if entry == nil {
		return "", domain.ErrInvalidInput.WithDetails("entry is required")
	}
	if err := entry.Validate(); err != nil {
		return "", err
	}

	claims := jwt.MapClaims{
		claimGroup: entry.Group,
		"iat":      entry.IssuedAt,
		"exp":      entry.ExpiresAt,
		"nbf":      entry.NotBefore,
	}
	if entry.ID != "" {
		claims["jti"] = entry.ID
	}
	if entry.Audience != "" {
		claims["aud"] = entry.Audience
	}
	if entry.Fingerprint != "" {
		claims[claimFingerprint] = entry.Fingerprint
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", domain.ErrInternal.WithCause(err)
	}
	return signed, nil
}

// Decode verifies the signature and structure of a signed token and
// returns the claims as an entry. Any parse or signature failure maps
// to the malformed-token rejection; callers never learn which part
// failed.
func (c *Codec) Decode(signed string) (*domain.TokenEntry, error) {
	claims := jwt.MapClaims{}
	_, err := c.parser.ParseWithClaims(signed, claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, domain.ErrTokenMalformed.WithCause(err)
	}

	group, _ := claims[claimGroup].(string)
	if group == "" {
		return nil, domain.ErrTokenMalformed.WithDetails("missing group claim")
	}

	entry := &domain.TokenEntry{
		Group:     group,
		IssuedAt:  claimInt64(claims, "iat"),
		ExpiresAt: claimInt64(claims, "exp"),
		NotBefore: claimInt64(claims, "nbf"),
	}
	entry.ID, _ = claims["jti"].(string)
	entry.Audience, _ = claims["aud"].(string)
	entry.Fingerprint, _ = claims[claimFingerprint].(string)
	return entry, nil
}

// claimInt64 reads a numeric claim; JSON decoding delivers numbers as
// float64 unless the parser was configured otherwise.
func claimInt64(claims jwt.MapClaims, name string) int64 {
	switch v := claims[name].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}
