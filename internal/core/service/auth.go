// Package service provides the domain services for PlotVault.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/plotvault/plotvault-go/internal/core/domain"
	"github.com/plotvault/plotvault-go/internal/telemetry/logger"
	"github.com/plotvault/plotvault-go/internal/telemetry/metric"
	"github.com/plotvault/plotvault-go/pkg/token"
)

// Issuance defaults.
const (
	DefaultTokenTTL = 30 * 24 * time.Hour
	DefaultAudience = "plotvault"
	DefaultLeeway   = 5 * time.Second
)

// TokenRepository is the durable token table consumed by Auth.
//
// Implementations refresh from durable state before answering reads,
// so revocations and issuances by other processes sharing the table
// are observed by the next call.
type TokenRepository interface {
	Put(ctx context.Context, entry *domain.TokenEntry) error
	Get(ctx context.Context, hash string) (*domain.TokenEntry, error)
	Delete(ctx context.Context, hash string) (bool, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
	DeleteExpired(ctx context.Context, now int64) (int, error)
}

// AuthConfig holds issuance and verification settings.
type AuthConfig struct {
	// DefaultTTL applies when Create receives a zero TTL.
	DefaultTTL time.Duration

	// Audience is the service identity stamped into issued tokens. A
	// verification that supplies no audience is checked against this
	// value instead.
	Audience string

	// Leeway absorbs clock skew between issuing and verifying hosts on
	// the not-before check. Expiry has no leeway.
	Leeway time.Duration
}

// DefaultAuthConfig returns the issuance defaults: 30-day tokens for
// the plotvault audience with 5 seconds of not-before leeway.
func DefaultAuthConfig() *AuthConfig {
	return &AuthConfig{
		DefaultTTL: DefaultTokenTTL,
		Audience:   DefaultAudience,
		Leeway:     DefaultLeeway,
	}
}

// Auth issues, verifies and revokes tokens against the durable table.
//
// Verification is possession-based: the presented token is hashed and
// looked up; no entry means no access, whether the token was revoked,
// expired away, or never existed. All rejections share one message so
// callers cannot probe which check failed; the distinct codes are for
// the operator's logs.
type Auth struct {
	repo  TokenRepository
	codec *Codec
	cfg   AuthConfig
	log   logger.Logger
	met   *metric.Metrics
}

// AuthOption configures Auth.
type AuthOption func(*Auth)

// WithAuthLogger sets the service logger.
func WithAuthLogger(log logger.Logger) AuthOption {
	return func(a *Auth) {
		if log != nil {
			a.log = log
		}
	}
}

// WithAuthMetrics attaches instrumentation.
func WithAuthMetrics(met *metric.Metrics) AuthOption {
	return func(a *Auth) { a.met = met }
}

// NewAuth creates the auth service. A nil config uses the defaults;
// zero fields inside a config are filled from them.
func NewAuth(repo TokenRepository, codec *Codec, cfg *AuthConfig, opts ...AuthOption) *Auth {
	if cfg == nil {
		cfg = DefaultAuthConfig()
	}
	effective := *cfg
	if effective.DefaultTTL <= 0 {
		effective.DefaultTTL = DefaultTokenTTL
	}
	if effective.Audience == "" {
		effective.Audience = DefaultAudience
	}
	if effective.Leeway < 0 {
		effective.Leeway = DefaultLeeway
	}

	a := &Auth{
		repo:  repo,
		codec: codec,
		cfg:   effective,
		log:   logger.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// opLog returns the service logger enriched with the request ID the
// host placed on ctx, if any.
func (a *Auth) opLog(ctx context.Context) logger.Logger {
	if id := logger.RequestIDFromContext(ctx); id != "" {
		return a.log.With("request_id", id)
	}
	return a.log
}

// Create issues a signed token granting access to group. A zero ttl
// uses the configured default; a negative ttl is invalid. The returned
// string is the only copy of the token; the table keeps its hash.
func (a *Auth) Create(ctx context.Context, group string, ttl time.Duration, audience, fingerprint string) (string, error) {
	if group == "" {
		return "", domain.ErrInvalidInput.WithDetails("group is required")
	}
	if ttl < 0 {
		return "", domain.ErrInvalidInput.WithDetails("ttl must not be negative")
	}
	if ttl == 0 {
		ttl = a.cfg.DefaultTTL
	}
	if audience == "" {
		audience = a.cfg.Audience
	}

	entry, err := domain.NewTokenEntry(group, ttl)
	if err != nil {
		return "", err
	}
	entry.Audience = audience
	entry.Fingerprint = fingerprint

	signed, err := a.codec.Issue(entry)
	if err != nil {
		return "", err
	}
	entry.Hash = token.Hash(signed)

	if err := a.repo.Put(ctx, entry); err != nil {
		if errors.Is(err, domain.ErrPersistence) {
			a.met.PersistenceFailure("tokens")
		}
		a.opLog(ctx).Error("token issuance failed to persist",
			"token_id", entry.ID, "group", group, "error", err)
		return "", err
	}

	a.met.TokenIssued()
	a.opLog(ctx).Info("token issued",
		"token_id", entry.ID,
		"group", group,
		"audience", entry.Audience,
		"expires_at", entry.ExpiresAt)
	return signed, nil
}

// Verify establishes which group a presented token grants access to.
//
// The checks run in a fixed order: signature and structure, table
// membership, expiry (strict), not-before (with leeway), audience,
// fingerprint binding, then a cross-check of the decoded claims
// against the stored entry.
func (a *Auth) Verify(ctx context.Context, signed, audience, fingerprint string) (string, error) {
	start := time.Now()
	group, err := a.verify(ctx, signed, audience, fingerprint)
	a.met.ObserveOp("verify", time.Since(start).Seconds())
	a.met.TokenVerified(verifyResult(err))
	return group, err
}

func (a *Auth) verify(ctx context.Context, signed, audience, fingerprint string) (string, error) {
	decoded, err := a.codec.Decode(signed)
	if err != nil {
		a.opLog(ctx).Warn("token rejected", "code", domain.GetErrorCode(err))
		return "", err
	}

	stored, err := a.repo.Get(ctx, token.Hash(signed))
	if err != nil {
		if errors.Is(err, domain.ErrTokenUnknown) {
			a.opLog(ctx).Warn("token rejected",
				"token_id", decoded.ID, "code", domain.GetErrorCode(err))
		}
		return "", err
	}

	now := time.Now().Unix()
	leeway := int64(a.cfg.Leeway / time.Second)

	switch {
	case stored.IsExpired(now):
		return "", a.reject(ctx, stored, domain.ErrTokenExpired)
	case stored.NotYetValid(now, leeway):
		return "", a.reject(ctx, stored, domain.ErrTokenNotYetValid)
	}

	if audience == "" {
		audience = a.cfg.Audience
	}
	if stored.Audience != "" && stored.Audience != audience {
		return "", a.reject(ctx, stored, domain.ErrAudienceMismatch)
	}

	if stored.Fingerprint != "" &&
		subtle.ConstantTimeCompare([]byte(stored.Fingerprint), []byte(fingerprint)) != 1 {
		return "", a.reject(ctx, stored, domain.ErrFingerprintMismatch)
	}

	// The table is authoritative; a signed token whose claims disagree
	// with it is treated as hostile.
	if decoded.Group != stored.Group {
		return "", a.reject(ctx, stored, domain.ErrClaimsMismatch)
	}

	return stored.Group, nil
}

func (a *Auth) reject(ctx context.Context, stored *domain.TokenEntry, sentinel *domain.DomainError) error {
	a.opLog(ctx).Warn("token rejected",
		"token_id", stored.ID,
		"group", stored.Group,
		"code", sentinel.Code)
	return sentinel
}

// Revoke removes the presented token from the table, reporting whether
// it was there. A revoked token fails verification exactly like one
// that never existed.
func (a *Auth) Revoke(ctx context.Context, signed string) (bool, error) {
	present, err := a.repo.Delete(ctx, token.Hash(signed))
	if err != nil {
		return false, err
	}
	if present {
		a.met.TokenRevoked()
		a.opLog(ctx).Info("token revoked", "token_hash", token.Hash(signed))
	}
	return present, nil
}

// RevokeByID removes the entry whose token ID matches id, for
// audit-driven revocation when only the ID was recorded at issuance.
func (a *Auth) RevokeByID(ctx context.Context, id string) (bool, error) {
	present, err := a.repo.DeleteByID(ctx, id)
	if err != nil {
		return false, err
	}
	if present {
		a.met.TokenRevoked()
		a.opLog(ctx).Info("token revoked", "token_id", id)
	}
	return present, nil
}

// PurgeExpired removes every expired entry from the table and returns
// how many were removed.
func (a *Auth) PurgeExpired(ctx context.Context) (int, error) {
	n, err := a.repo.DeleteExpired(ctx, time.Now().Unix())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		a.met.TokensPurged(n)
		a.opLog(ctx).Info("expired tokens purged", "count", n)
	}
	return n, nil
}

// verifyResult maps a verification outcome to its metric label.
func verifyResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, domain.ErrTokenUnknown):
		return "unknown"
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrTokenNotYetValid):
		return "not_yet_valid"
	case errors.Is(err, domain.ErrAudienceMismatch):
		return "audience_mismatch"
	case errors.Is(err, domain.ErrFingerprintMismatch):
		return "fingerprint_mismatch"
	case errors.Is(err, domain.ErrClaimsMismatch):
		return "claims_mismatch"
	default:
		return "error"
	}
}
