// Package metastore persists artifact metadata records.
package metastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/plotvault/plotvault-go/internal/core/domain"
	"github.com/plotvault/plotvault-go/internal/storage"
	"github.com/plotvault/plotvault-go/internal/telemetry/logger"
	"github.com/plotvault/plotvault-go/pkg/fslock"
)

const (
	fileVersion = 1
	filePerm    = 0o600
	dirPerm     = 0o750
	lockSuffix  = ".lock"
)

// metaFile is the on-disk envelope for the artifact table.
type metaFile struct {
	Version int                               `json:"version"`
	Records map[string]*domain.ArtifactRecord `json:"records"`
}

// Store is the durable artifact metadata table, keyed by GUID. The
// alias index (group, alias) -> GUID is derived from the records on
// every load and rebuilt after every mutation, so it can never drift
// from the table it summarizes.
//
// Like the token table, the file is shared between processes: mutations
// are read-modify-write under an advisory lock, reads refresh when the
// file changed, and memory adopts a mutation only after the atomic
// write lands.
type Store struct {
	path   string
	lock   *fslock.Lock
	log    logger.Logger
	strict bool

	mu      sync.RWMutex
	records map[string]*domain.ArtifactRecord
	aliases map[string]map[string]string
	state   storage.FileState
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithStrict makes Open fail on an unreadable table instead of
// quarantining it and starting empty.
func WithStrict(strict bool) Option {
	return func(s *Store) { s.strict = strict }
}

// Open loads the artifact table at path, creating the parent directory
// if needed.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:    path,
		lock:    fslock.New(path + lockSuffix),
		log:     logger.Default(),
		records: make(map[string]*domain.ArtifactRecord),
		aliases: make(map[string]map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, domain.ErrPersistence.WithCause(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the durable file path.
func (s *Store) Path() string {
	return s.path
}

// Save persists a record. A missing GUID or CreatedAt is filled in and
// written back to rec on success. Saving an alias already taken by a
// different artifact in the same group fails with an alias conflict.
func (s *Store) Save(ctx context.Context, rec *domain.ArtifactRecord) error {
	if rec == nil {
		return domain.ErrInvalidInput.WithDetails("record is required")
	}

	clone := rec.Clone()
	if clone.GUID == "" {
		guid, err := domain.NewGUID()
		if err != nil {
			return err
		}
		clone.GUID = guid
	}
	if clone.CreatedAt == 0 {
		clone.CreatedAt = time.Now().Unix()
	}
	clone.Format = domain.NormalizeFormat(clone.Format)
	if err := clone.Validate(); err != nil {
		return err
	}

	err := s.rmw(ctx, func(next map[string]*domain.ArtifactRecord) (bool, error) {
		if _, exists := next[clone.GUID]; exists {
			return false, domain.ErrInvalidInput.WithDetails("guid already exists: " + clone.GUID)
		}
		if clone.Alias != "" {
			if guid, taken := s.aliases[clone.Group][clone.Alias]; taken && guid != clone.GUID {
				return false, domain.ErrAliasConflict.WithDetails(
					fmt.Sprintf("alias %q is already taken in group %q", clone.Alias, clone.Group))
			}
		}
		next[clone.GUID] = clone
		return true, nil
	})
	if err != nil {
		return err
	}

	rec.GUID = clone.GUID
	rec.CreatedAt = clone.CreatedAt
	rec.Format = clone.Format
	return nil
}

// Get returns the record for guid if it is owned by group. A record
// owned by another group is reported as not found.
func (s *Store) Get(_ context.Context, guid, group string) (*domain.ArtifactRecord, error) {
	if err := s.reload(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[guid]
	if !ok || rec.Group != group {
		return nil, domain.ErrArtifactNotFound
	}
	return rec.Clone(), nil
}

// Resolve maps a GUID or alias to the owning record's GUID within
// group. UUID-shaped identifiers are looked up directly; everything
// else goes through the alias index.
func (s *Store) Resolve(_ context.Context, identifier, group string) (string, error) {
	if err := s.reload(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if guid, ok := domain.CanonicalGUID(identifier); ok {
		rec, found := s.records[guid]
		if !found || rec.Group != group {
			return "", domain.ErrArtifactNotFound
		}
		return rec.GUID, nil
	}

	if guid, ok := s.aliases[group][identifier]; ok {
		return guid, nil
	}
	return "", domain.ErrArtifactNotFound
}

// List returns the records owned by group.
func (s *Store) List(_ context.Context, group string) ([]*domain.ArtifactRecord, error) {
	if err := s.reload(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.ArtifactRecord, 0)
	for _, rec := range s.records {
		if rec.Group == group {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

// All returns every record across groups, for retention sweeps.
func (s *Store) All(_ context.Context) ([]*domain.ArtifactRecord, error) {
	if err := s.reload(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.ArtifactRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	return out, nil
}

// Delete removes the record for guid if group owns it, reporting
// whether a record was removed. The record and its alias entry go in
// the same durable write.
func (s *Store) Delete(ctx context.Context, guid, group string) (bool, error) {
	var present bool
	err := s.rmw(ctx, func(next map[string]*domain.ArtifactRecord) (bool, error) {
		rec, ok := next[guid]
		if !ok || rec.Group != group {
			return false, nil
		}
		present = true
		delete(next, guid)
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return present, nil
}

// RegisterAlias points alias at the record for guid within group. An
// alias already naming a different artifact in the group conflicts;
// re-registering the same mapping is a no-op. A record's previous alias
// is replaced in the same write.
func (s *Store) RegisterAlias(ctx context.Context, alias, guid, group string) error {
	if !domain.ValidAlias(alias) {
		return domain.ErrAliasInvalid.WithDetails(
			"alias must be 3-64 characters of letters, digits, hyphen or underscore")
	}
	if domain.IsGUID(alias) {
		return domain.ErrAliasInvalid.WithDetails("alias must not look like a UUID")
	}

	return s.rmw(ctx, func(next map[string]*domain.ArtifactRecord) (bool, error) {
		rec, ok := next[guid]
		if !ok || rec.Group != group {
			return false, domain.ErrArtifactNotFound
		}
		if existing, taken := s.aliases[group][alias]; taken {
			if existing == guid {
				return false, nil
			}
			return false, domain.ErrAliasConflict.WithDetails(
				fmt.Sprintf("alias %q is already taken in group %q", alias, group))
		}
		updated := rec.Clone()
		updated.Alias = alias
		next[guid] = updated
		return true, nil
	})
}

// UnregisterAlias removes alias from group, reporting whether it was
// registered. The artifact itself stays.
func (s *Store) UnregisterAlias(ctx context.Context, alias, group string) (bool, error) {
	var removed bool
	err := s.rmw(ctx, func(next map[string]*domain.ArtifactRecord) (bool, error) {
		guid, ok := s.aliases[group][alias]
		if !ok {
			return false, nil
		}
		rec, ok := next[guid]
		if !ok {
			return false, nil
		}
		removed = true
		updated := rec.Clone()
		updated.Alias = ""
		next[guid] = updated
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// Count returns the number of records currently loaded.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// CountByGroup returns the number of records per group.
func (s *Store) CountByGroup() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.aliases))
	for _, rec := range s.records {
		out[rec.Group]++
	}
	return out
}

// rmw runs fn inside the cross-process critical section. fn edits a
// copy of the records map and may consult the current alias index; the
// copy is written atomically before memory and index adopt it. Records
// inside the copy are shared with live memory, so fn must replace a
// record with a clone rather than edit it in place.
func (s *Store) rmw(ctx context.Context, fn func(next map[string]*domain.ArtifactRecord) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Acquire(ctx); err != nil {
		return domain.ErrPersistence.WithCause(err)
	}
	defer s.lock.Release()

	if err := s.reloadLocked(); err != nil {
		return err
	}

	next := make(map[string]*domain.ArtifactRecord, len(s.records)+1)
	for guid, rec := range s.records {
		next[guid] = rec
	}

	dirty, err := fn(next)
	if err != nil {
		return err
	}
	if !dirty {
		return nil
	}

	if err := s.writeLocked(next); err != nil {
		return err
	}
	s.records = next
	s.rebuildAliasesLocked()
	return nil
}

// reload refreshes memory when the durable file changed since the last
// load.
func (s *Store) reload() error {
	st, err := storage.StatFile(s.path)
	if err != nil {
		return domain.ErrPersistence.WithCause(err)
	}

	s.mu.RLock()
	changed := st.Changed(s.state)
	s.mu.RUnlock()
	if !changed {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// reloadLocked is reload for callers already holding mu.
func (s *Store) reloadLocked() error {
	st, err := storage.StatFile(s.path)
	if err != nil {
		return domain.ErrPersistence.WithCause(err)
	}
	if !st.Changed(s.state) {
		return nil
	}
	return s.loadLocked()
}

// loadLocked reads the durable table and rebuilds the alias index.
// Callers hold mu.
func (s *Store) loadLocked() error {
	st, err := storage.StatFile(s.path)
	if err != nil {
		return domain.ErrPersistence.WithCause(err)
	}
	if !st.Exists {
		s.records = make(map[string]*domain.ArtifactRecord)
		s.rebuildAliasesLocked()
		s.state = st
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.records = make(map[string]*domain.ArtifactRecord)
			s.rebuildAliasesLocked()
			s.state = storage.FileState{}
			return nil
		}
		return domain.ErrPersistence.WithCause(err)
	}

	var f metaFile
	if err := json.Unmarshal(data, &f); err != nil {
		return s.recoverCorrupt(fmt.Errorf("metastore: parse table: %w", err))
	}
	if f.Records == nil {
		f.Records = make(map[string]*domain.ArtifactRecord)
	}
	for guid, rec := range f.Records {
		if rec.GUID == "" {
			rec.GUID = guid
		}
	}

	s.records = f.Records
	s.rebuildAliasesLocked()
	s.state = st
	return nil
}

// recoverCorrupt moves an unreadable table aside and starts empty, or
// refuses in strict mode.
func (s *Store) recoverCorrupt(cause error) error {
	if s.strict {
		return domain.ErrCorruptState.WithDetails(s.path).WithCause(cause)
	}

	quarantined, err := storage.Quarantine(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return domain.ErrPersistence.WithCause(err)
		}
		quarantined = ""
	}

	s.log.Error("artifact table unreadable, quarantined and starting empty",
		"path", s.path,
		"quarantined", quarantined,
		"error", cause)

	s.records = make(map[string]*domain.ArtifactRecord)
	s.rebuildAliasesLocked()
	s.state = storage.FileState{}
	return nil
}

// writeLocked persists the table atomically and records the resulting
// file state. Callers hold mu and the advisory lock.
func (s *Store) writeLocked(records map[string]*domain.ArtifactRecord) error {
	data, err := json.MarshalIndent(metaFile{Version: fileVersion, Records: records}, "", "  ")
	if err != nil {
		return domain.ErrPersistence.WithCause(err)
	}
	if err := storage.WriteFileAtomic(s.path, data, filePerm); err != nil {
		return domain.ErrPersistence.WithCause(err)
	}

	st, err := storage.StatFile(s.path)
	if err != nil {
		return domain.ErrPersistence.WithCause(err)
	}
	s.state = st
	return nil
}

// rebuildAliasesLocked derives the (group, alias) -> GUID index from
// the records. Callers hold mu.
func (s *Store) rebuildAliasesLocked() {
	aliases := make(map[string]map[string]string)
	for guid, rec := range s.records {
		if rec.Alias == "" {
			continue
		}
		group, ok := aliases[rec.Group]
		if !ok {
			group = make(map[string]string)
			aliases[rec.Group] = group
		}
		group[rec.Alias] = guid
	}
	s.aliases = aliases
}
