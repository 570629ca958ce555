// Package service provides the domain services for PlotVault.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/plotvault/plotvault-go/internal/core/domain"
	"github.com/plotvault/plotvault-go/internal/telemetry/logger"
	"github.com/plotvault/plotvault-go/internal/telemetry/metric"
)

// SweeperConfig holds retention settings.
type SweeperConfig struct {
	// MaxAge is the retention age applied by scheduled sweeps. Zero
	// purges every artifact.
	MaxAge time.Duration

	// Schedule is the cron expression for periodic sweeps.
	Schedule string

	// Rate caps deletions per second so a large purge does not
	// monopolize the shared metadata file. Zero or negative means
	// unpaced.
	Rate float64

	// Burst is the deletion rate burst.
	Burst int

	// OrphanGrace spares blob files younger than this from orphan
	// cleanup, leaving room for saves that wrote their blob but not
	// yet their record.
	OrphanGrace time.Duration
}

// DefaultSweeperConfig returns the retention defaults: hourly sweeps
// purging artifacts older than 30 days, paced at 50 deletions per
// second, with an hour of orphan grace.
func DefaultSweeperConfig() *SweeperConfig {
	return &SweeperConfig{
		MaxAge:      30 * 24 * time.Hour,
		Schedule:    "@hourly",
		Rate:        50,
		Burst:       10,
		OrphanGrace: time.Hour,
	}
}

// Summary reports one full sweep pass.
type Summary struct {
	ArtifactsPurged int
	OrphansRemoved  int
	TokensPurged    int
	Duration        time.Duration
}

// Sweeper enforces retention age across all groups and reclaims
// orphaned blobs and expired tokens. It is an administrative actor,
// not a tenant: it sees every group.
type Sweeper struct {
	meta    MetadataRepository
	blobs   BlobRepository
	vault   *Vault
	auth    *Auth
	limiter *rate.Limiter
	log     logger.Logger
	met     *metric.Metrics

	maxAge   time.Duration
	schedule string
	grace    time.Duration

	mu   sync.Mutex
	cron *cron.Cron
}

// SweeperOption configures the Sweeper.
type SweeperOption func(*Sweeper)

// WithSweeperLogger sets the sweeper logger.
func WithSweeperLogger(log logger.Logger) SweeperOption {
	return func(s *Sweeper) {
		if log != nil {
			s.log = log
		}
	}
}

// WithSweeperMetrics attaches instrumentation.
func WithSweeperMetrics(met *metric.Metrics) SweeperOption {
	return func(s *Sweeper) { s.met = met }
}

// WithSweeperAuth lets scheduled sweeps also purge expired tokens.
func WithSweeperAuth(auth *Auth) SweeperOption {
	return func(s *Sweeper) { s.auth = auth }
}

// NewSweeper creates the retention sweeper. Deletions go through vault
// so record, alias and blob come off together; meta and blobs are read
// directly for enumeration. A nil config uses the defaults.
func NewSweeper(vault *Vault, meta MetadataRepository, blobs BlobRepository, cfg *SweeperConfig, opts ...SweeperOption) *Sweeper {
	if cfg == nil {
		cfg = DefaultSweeperConfig()
	}

	limit := rate.Inf
	burst := cfg.Burst
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
		if burst < 1 {
			burst = 1
		}
	}

	s := &Sweeper{
		meta:     meta,
		blobs:    blobs,
		vault:    vault,
		limiter:  rate.NewLimiter(limit, burst),
		log:      logger.Default(),
		maxAge:   cfg.MaxAge,
		schedule: cfg.Schedule,
		grace:    cfg.OrphanGrace,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Purge deletes every artifact older than maxAge, across all groups.
// Zero deletes everything; negative is invalid. A failure on one
// artifact is logged and skipped so the rest of the sweep proceeds.
// Returns how many artifacts were deleted.
func (s *Sweeper) Purge(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge < 0 {
		return 0, domain.ErrInvalidInput.WithDetails("max age must not be negative")
	}

	records, err := s.meta.All(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now().Unix()
	cutoff := int64(maxAge / time.Second)
	deleted := 0
	for _, rec := range records {
		if maxAge != 0 && rec.AgeSeconds(now) <= cutoff {
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return deleted, fmt.Errorf("retention purge interrupted: %w", err)
		}
		removed, err := s.vault.Delete(ctx, rec.Group, rec.GUID)
		if err != nil {
			s.log.Warn("retention delete failed, continuing sweep",
				"guid", rec.GUID, "group", rec.Group, "error", err)
			continue
		}
		if removed {
			deleted++
		}
	}
	return deleted, nil
}

// CleanOrphans removes blob files no metadata record references. Blobs
// younger than the grace window are spared: they may belong to a save
// that has written its blob but not yet its record.
func (s *Sweeper) CleanOrphans(ctx context.Context) (int, error) {
	records, err := s.meta.All(ctx)
	if err != nil {
		return 0, err
	}
	referenced := make(map[string]struct{}, len(records))
	for _, rec := range records {
		referenced[rec.GUID] = struct{}{}
	}

	blobs, err := s.blobs.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-s.grace)
	removed := 0
	for _, blob := range blobs {
		if _, ok := referenced[blob.GUID]; ok {
			continue
		}
		if blob.ModTime.After(cutoff) {
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return removed, fmt.Errorf("orphan cleanup interrupted: %w", err)
		}
		ok, err := s.blobs.Delete(ctx, blob.GUID, blob.Format)
		if err != nil {
			s.log.Warn("orphan blob removal failed",
				"guid", blob.GUID, "format", blob.Format, "error", err)
			continue
		}
		if ok {
			removed++
			s.log.Debug("orphaned blob removed", "guid", blob.GUID, "format", blob.Format)
		}
	}
	return removed, nil
}

// PurgeExpiredTokens sweeps expired entries out of the token table, if
// the sweeper was wired to auth.
func (s *Sweeper) PurgeExpiredTokens(ctx context.Context) (int, error) {
	if s.auth == nil {
		return 0, nil
	}
	return s.auth.PurgeExpired(ctx)
}

// Run executes one full pass: retention purge, orphan cleanup, token
// sweep. Stage failures are logged; the pass always completes and
// reports what it removed.
func (s *Sweeper) Run(ctx context.Context) Summary {
	start := time.Now()
	var sum Summary

	n, err := s.Purge(ctx, s.maxAge)
	sum.ArtifactsPurged = n
	if err != nil {
		s.log.Error("retention purge failed", "error", err)
	}

	n, err = s.CleanOrphans(ctx)
	sum.OrphansRemoved = n
	if err != nil {
		s.log.Error("orphan cleanup failed", "error", err)
	}

	n, err = s.PurgeExpiredTokens(ctx)
	sum.TokensPurged = n
	if err != nil {
		s.log.Error("token sweep failed", "error", err)
	}

	sum.Duration = time.Since(start)
	s.met.SweepCompleted(sum.ArtifactsPurged, sum.OrphansRemoved, sum.TokensPurged, sum.Duration.Seconds())
	s.log.Info("sweep complete",
		"artifacts_purged", sum.ArtifactsPurged,
		"orphans_removed", sum.OrphansRemoved,
		"tokens_purged", sum.TokensPurged,
		"duration", sum.Duration.String())
	return sum
}

// Start schedules periodic sweeps. Starting an already-started sweeper
// is a no-op.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() {
		s.Run(context.Background())
	}); err != nil {
		return domain.ErrInvalidInput.
			WithDetails("invalid sweep schedule: " + s.schedule).
			WithCause(err)
	}
	c.Start()
	s.cron = c

	s.log.Info("retention sweeper started",
		"schedule", s.schedule,
		"max_age", s.maxAge.String())
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
	s.log.Info("retention sweeper stopped")
}
