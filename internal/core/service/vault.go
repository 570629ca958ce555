// Package service provides the domain services for PlotVault.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/plotvault/plotvault-go/internal/core/domain"
	"github.com/plotvault/plotvault-go/internal/telemetry/logger"
	"github.com/plotvault/plotvault-go/internal/telemetry/metric"
)

// BlobInfo describes one blob file on disk.
type BlobInfo struct {
	GUID      string
	Format    string
	SizeBytes int64
	ModTime   time.Time
}

// MetadataRepository is the durable artifact table consumed by Vault.
// Implementations enforce group ownership: operations naming a record
// owned by another group answer not-found.
type MetadataRepository interface {
	Save(ctx context.Context, rec *domain.ArtifactRecord) error
	Get(ctx context.Context, guid, group string) (*domain.ArtifactRecord, error)
	Resolve(ctx context.Context, identifier, group string) (string, error)
	List(ctx context.Context, group string) ([]*domain.ArtifactRecord, error)
	All(ctx context.Context) ([]*domain.ArtifactRecord, error)
	Delete(ctx context.Context, guid, group string) (bool, error)
	RegisterAlias(ctx context.Context, alias, guid, group string) error
	UnregisterAlias(ctx context.Context, alias, group string) (bool, error)
}

// BlobRepository stores immutable payloads addressed by GUID and
// format.
type BlobRepository interface {
	Put(ctx context.Context, data []byte, format string) (string, error)
	Get(ctx context.Context, guid, format string) ([]byte, error)
	Delete(ctx context.Context, guid, format string) (bool, error)
	DetectFormat(guid string) (string, bool)
	List(ctx context.Context) ([]BlobInfo, error)
}

// Vault is the artifact surface behind authentication. Every operation
// takes the group that Auth.Verify established and threads it into
// group-checked storage calls; an artifact outside the caller's group
// is indistinguishable from one that does not exist.
type Vault struct {
	meta  MetadataRepository
	blobs BlobRepository
	log   logger.Logger
	met   *metric.Metrics
}

// VaultOption configures Vault.
type VaultOption func(*Vault)

// WithVaultLogger sets the service logger.
func WithVaultLogger(log logger.Logger) VaultOption {
	return func(v *Vault) {
		if log != nil {
			v.log = log
		}
	}
}

// WithVaultMetrics attaches instrumentation.
func WithVaultMetrics(met *metric.Metrics) VaultOption {
	return func(v *Vault) { v.met = met }
}

// NewVault creates the artifact service over the two stores.
func NewVault(meta MetadataRepository, blobs BlobRepository, opts ...VaultOption) *Vault {
	v := &Vault{
		meta:  meta,
		blobs: blobs,
		log:   logger.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// opLog returns the service logger enriched with the request ID the
// host placed on ctx, if any.
func (v *Vault) opLog(ctx context.Context) logger.Logger {
	if id := logger.RequestIDFromContext(ctx); id != "" {
		return v.log.With("request_id", id)
	}
	return v.log
}

// Save stores one rendered artifact for group and returns its record.
// The blob is written first; if the metadata write then fails, the blob
// is removed again so a failed save leaves nothing behind.
func (v *Vault) Save(ctx context.Context, group string, data []byte, format, alias string) (*domain.ArtifactRecord, error) {
	start := time.Now()
	defer func() { v.met.ObserveOp("save", time.Since(start).Seconds()) }()

	if group == "" {
		return nil, domain.ErrInvalidInput.WithDetails("group is required")
	}
	if len(data) == 0 {
		return nil, domain.ErrInvalidInput.WithDetails("payload is empty")
	}
	format = domain.NormalizeFormat(format)
	if !domain.ValidFormat(format) {
		return nil, domain.ErrInvalidInput.WithDetails(
			"format must be 1-8 lowercase letters or digits")
	}
	if alias != "" {
		if !domain.ValidAlias(alias) {
			return nil, domain.ErrAliasInvalid.WithDetails(
				"alias must be 3-64 characters of letters, digits, hyphen or underscore")
		}
		if domain.IsGUID(alias) {
			return nil, domain.ErrAliasInvalid.WithDetails("alias must not look like a UUID")
		}
	}

	guid, err := v.blobs.Put(ctx, data, format)
	if err != nil {
		if errors.Is(err, domain.ErrPersistence) {
			v.met.PersistenceFailure("blobs")
		}
		return nil, err
	}

	rec := &domain.ArtifactRecord{
		GUID:      guid,
		Format:    format,
		SizeBytes: int64(len(data)),
		CreatedAt: time.Now().Unix(),
		Group:     group,
		Alias:     alias,
	}
	if err := v.meta.Save(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrPersistence) {
			v.met.PersistenceFailure("metadata")
		}
		// The blob must not survive a failed save as the end state.
		if _, derr := v.blobs.Delete(ctx, guid, format); derr != nil {
			v.opLog(ctx).Warn("orphaned blob left behind by failed save",
				"guid", guid, "format", format, "error", derr)
		}
		return nil, err
	}

	v.met.ArtifactSaved(len(data))
	v.opLog(ctx).Info("artifact saved",
		"guid", guid,
		"group", group,
		"format", format,
		"size_bytes", len(data),
		"alias", alias)
	return rec, nil
}

// Fetch returns the record and payload for a GUID or alias within
// group. When the recorded format has no blob on disk, the store
// falls back to detecting the blob's actual extension before giving
// up; a record whose blob is truly gone answers not-found.
func (v *Vault) Fetch(ctx context.Context, group, identifier string) (*domain.ArtifactRecord, []byte, error) {
	start := time.Now()
	defer func() { v.met.ObserveOp("fetch", time.Since(start).Seconds()) }()

	rec, err := v.Stat(ctx, group, identifier)
	if err != nil {
		return nil, nil, err
	}

	data, err := v.blobs.Get(ctx, rec.GUID, rec.Format)
	if err != nil {
		if !errors.Is(err, domain.ErrArtifactNotFound) {
			return nil, nil, err
		}
		detected, ok := v.blobs.DetectFormat(rec.GUID)
		if !ok {
			v.opLog(ctx).Warn("artifact record has no blob on disk",
				"guid", rec.GUID, "group", group, "format", rec.Format)
			return nil, nil, domain.ErrArtifactNotFound
		}
		data, err = v.blobs.Get(ctx, rec.GUID, detected)
		if err != nil {
			return nil, nil, domain.ErrArtifactNotFound
		}
		v.opLog(ctx).Warn("artifact format recovered from blob extension",
			"guid", rec.GUID, "recorded", rec.Format, "detected", detected)
		rec.Format = detected
	}

	v.met.ArtifactFetched(len(data))
	return rec, data, nil
}

// Stat returns the record for a GUID or alias within group, without
// touching the blob.
func (v *Vault) Stat(ctx context.Context, group, identifier string) (*domain.ArtifactRecord, error) {
	if group == "" {
		return nil, domain.ErrInvalidInput.WithDetails("group is required")
	}
	guid, err := v.meta.Resolve(ctx, identifier, group)
	if err != nil {
		return nil, err
	}
	return v.meta.Get(ctx, guid, group)
}

// Resolve maps a GUID or alias to its GUID within group.
func (v *Vault) Resolve(ctx context.Context, group, identifier string) (string, error) {
	if group == "" {
		return "", domain.ErrInvalidInput.WithDetails("group is required")
	}
	return v.meta.Resolve(ctx, identifier, group)
}

// Exists reports whether identifier resolves within group.
func (v *Vault) Exists(ctx context.Context, group, identifier string) (bool, error) {
	_, err := v.Resolve(ctx, group, identifier)
	if errors.Is(err, domain.ErrArtifactNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns the records owned by group.
func (v *Vault) List(ctx context.Context, group string) ([]*domain.ArtifactRecord, error) {
	if group == "" {
		return nil, domain.ErrInvalidInput.WithDetails("group is required")
	}
	return v.meta.List(ctx, group)
}

// Delete removes an artifact: record and alias first, then the blob,
// so no surviving record ever references a missing blob. A blob whose
// removal fails is left for the orphan sweep. Reports whether the
// artifact existed in group.
func (v *Vault) Delete(ctx context.Context, group, identifier string) (bool, error) {
	start := time.Now()
	defer func() { v.met.ObserveOp("delete", time.Since(start).Seconds()) }()

	if group == "" {
		return false, domain.ErrInvalidInput.WithDetails("group is required")
	}

	guid, err := v.meta.Resolve(ctx, identifier, group)
	if errors.Is(err, domain.ErrArtifactNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	rec, err := v.meta.Get(ctx, guid, group)
	if errors.Is(err, domain.ErrArtifactNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	removed, err := v.meta.Delete(ctx, guid, group)
	if err != nil {
		if errors.Is(err, domain.ErrPersistence) {
			v.met.PersistenceFailure("metadata")
		}
		return false, err
	}
	if !removed {
		return false, nil
	}

	if _, err := v.blobs.Delete(ctx, guid, rec.Format); err != nil {
		v.opLog(ctx).Warn("blob removal failed after metadata delete, orphan sweep will reclaim it",
			"guid", guid, "format", rec.Format, "error", err)
	}

	v.met.ArtifactDeleted()
	v.opLog(ctx).Info("artifact deleted", "guid", guid, "group", group)
	return true, nil
}

// RegisterAlias names an existing artifact within group. The previous
// alias of that artifact, if any, is replaced.
func (v *Vault) RegisterAlias(ctx context.Context, group, alias, identifier string) error {
	if group == "" {
		return domain.ErrInvalidInput.WithDetails("group is required")
	}
	guid, err := v.meta.Resolve(ctx, identifier, group)
	if err != nil {
		return err
	}
	if err := v.meta.RegisterAlias(ctx, alias, guid, group); err != nil {
		return err
	}
	v.opLog(ctx).Info("alias registered", "alias", alias, "guid", guid, "group", group)
	return nil
}

// UnregisterAlias removes alias from group, leaving the artifact
// itself in place. Reports whether the alias was registered.
func (v *Vault) UnregisterAlias(ctx context.Context, group, alias string) (bool, error) {
	if group == "" {
		return false, domain.ErrInvalidInput.WithDetails("group is required")
	}
	removed, err := v.meta.UnregisterAlias(ctx, alias, group)
	if err != nil {
		return false, err
	}
	if removed {
		v.opLog(ctx).Info("alias removed", "alias", alias, "group", group)
	}
	return removed, nil
}
