// Package tokenstore persists the table of currently-valid tokens.
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/plotvault/plotvault-go/internal/core/domain"
	"github.com/plotvault/plotvault-go/internal/storage"
	"github.com/plotvault/plotvault-go/internal/telemetry/logger"
	"github.com/plotvault/plotvault-go/pkg/fslock"
	"github.com/plotvault/plotvault-go/pkg/token"
)

const (
	fileVersion = 1
	filePerm    = 0o600
	dirPerm     = 0o750
	lockSuffix  = ".lock"
)

// tokenFile is the on-disk envelope for the token table.
type tokenFile struct {
	Version int                           `json:"version"`
	Tokens  map[string]*domain.TokenEntry `json:"tokens"`
}

// Store is the durable token table, keyed by token hash. Multiple
// processes may open the same file: every mutation runs as a
// read-modify-write under an advisory file lock, and reads refresh
// from disk whenever the file visibly changed, so a revocation in one
// process is observed by the next check in another.
//
// In-memory state is committed only after the durable write succeeds.
type Store struct {
	path   string
	lock   *fslock.Lock
	log    logger.Logger
	strict bool
	sealer *sealer

	passphrase []byte

	mu      sync.RWMutex
	entries map[string]*domain.TokenEntry
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

// WithPassphrase seals the table at rest. A store opened with a
// passphrase still reads plain tables and seals them on the next write.
func WithPassphrase(passphrase []byte) Option {
	return func(s *Store) { s.passphrase = passphrase }
}

// Open loads the token table at path, creating the parent directory if
// needed. A missing file is an empty table; an unreadable one is
// quarantined unless the store is strict.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:    path,
		lock:    fslock.New(path + lockSuffix),
		log:     logger.Default(),
		entries: make(map[string]*domain.TokenEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.passphrase) > 0 {
		sl, err := newSealer(s.passphrase)
		if err != nil {
			return nil, err
		}
		s.sealer = sl
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

// Put persists a new entry keyed by its token hash. Memory reflects the
// entry only after the write lands.
func (s *Store) Put(ctx context.Context, entry *domain.TokenEntry) error {
	if entry == nil {
		return domain.ErrInvalidInput.WithDetails("entry is required")
	}
	if !token.ValidHash(entry.Hash) {
		return domain.ErrInvalidInput.WithDetails("entry hash is not a token hash")
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	return s.rmw(ctx, func(next map[string]*domain.TokenEntry) (bool, error) {
		next[entry.Hash] = entry.Clone()
		return true, nil
	})
}

// Get returns the entry for a token hash. Absent covers both revoked
// and never-issued tokens.
func (s *Store) Get(_ context.Context, hash string) (*domain.TokenEntry, error) {
	if err := s.reload(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[hash]
	if !ok {
		return nil, domain.ErrTokenUnknown
	}
	return e.Clone(), nil
}

// Delete removes the entry for a token hash, reporting whether it was
// present.
func (s *Store) Delete(ctx context.Context, hash string) (bool, error) {
	var present bool
	err := s.rmw(ctx, func(next map[string]*domain.TokenEntry) (bool, error) {
		if _, ok := next[hash]; !ok {
			return false, nil
		}
		present = true
		delete(next, hash)
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return present, nil
}

// DeleteByID removes the entry whose token ID matches id.
func (s *Store) DeleteByID(ctx context.Context, id string) (bool, error) {
	var present bool
	err := s.rmw(ctx, func(next map[string]*domain.TokenEntry) (bool, error) {
		for hash, e := range next {
			if e.ID == id {
				present = true
				delete(next, hash)
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return false, err
	}
	return present, nil
}

// DeleteExpired removes every entry expired at now in one durable
// write and returns how many were removed.
func (s *Store) DeleteExpired(ctx context.Context, now int64) (int, error) {
	count := 0
	err := s.rmw(ctx, func(next map[string]*domain.TokenEntry) (bool, error) {
		for hash, e := range next {
			if e.IsExpired(now) {
				delete(next, hash)
				count++
			}
		}
		return count > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// List returns a snapshot of every entry in the table.
func (s *Store) List(_ context.Context) ([]*domain.TokenEntry, error) {
	if err := s.reload(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.TokenEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Clone())
	}
	return out, nil
}

// Count returns the number of entries currently loaded.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// rmw runs fn inside the cross-process critical section: the advisory
// lock is held, memory is refreshed from disk, fn edits a copy of the
// table, and the copy is written atomically before memory adopts it.
func (s *Store) rmw(ctx context.Context, fn func(next map[string]*domain.TokenEntry) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Acquire(ctx); err != nil {
		return domain.ErrPersistence.WithCause(err)
	}
	defer s.lock.Release()

	if err := s.reloadLocked(); err != nil {
		return err
	}

	next := make(map[string]*domain.TokenEntry, len(s.entries)+1)
	for hash, e := range s.entries {
		next[hash] = e
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
	s.entries = next
	return nil
}

// reload refreshes memory when the durable file changed since the last
// load, making other processes' writes observable.
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

// loadLocked reads the durable table into memory. The file state is
// taken before the read, so a write racing in between only causes one
// redundant reload later. Callers hold mu.
func (s *Store) loadLocked() error {
	st, err := storage.StatFile(s.path)
	if err != nil {
		return domain.ErrPersistence.WithCause(err)
	}
	if !st.Exists {
		s.entries = make(map[string]*domain.TokenEntry)
		s.state = st
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.entries = make(map[string]*domain.TokenEntry)
			s.state = storage.FileState{}
			return nil
		}
		return domain.ErrPersistence.WithCause(err)
	}

	entries, err := s.decode(data)
	if err != nil {
		return s.recoverCorrupt(err)
	}

	s.entries = entries
	s.state = st
	return nil
}

// decode parses a table payload, unsealing it first when it carries
// the envelope.
func (s *Store) decode(data []byte) (map[string]*domain.TokenEntry, error) {
	if IsSealed(data) {
		if s.sealer == nil {
			return nil, fmt.Errorf("tokenstore: table is sealed and no passphrase is configured")
		}
		plain, err := s.sealer.unseal(data)
		if err != nil {
			return nil, err
		}
		data = plain
	}

	var f tokenFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("tokenstore: parse table: %w", err)
	}
	if f.Tokens == nil {
		f.Tokens = make(map[string]*domain.TokenEntry)
	}
	for hash, e := range f.Tokens {
		e.Hash = hash
	}
	return f.Tokens, nil
}

// recoverCorrupt moves an unreadable table aside and starts empty, or
// refuses in strict mode. Quarantining preserves the bytes for manual
// inspection instead of overwriting them on the next put.
func (s *Store) recoverCorrupt(cause error) error {
	if s.strict {
		return domain.ErrCorruptState.WithDetails(s.path).WithCause(cause)
	}

	quarantined, err := storage.Quarantine(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return domain.ErrPersistence.WithCause(err)
		}
		// Another process got to it first; start empty like it did.
		quarantined = ""
	}

	s.log.Error("token table unreadable, quarantined and starting empty",
		"path", s.path,
		"quarantined", quarantined,
		"error", cause)

	s.entries = make(map[string]*domain.TokenEntry)
	s.state = storage.FileState{}
	return nil
}

// writeLocked persists the table atomically and records the resulting
// file state. Callers hold mu and the advisory lock.
func (s *Store) writeLocked(entries map[string]*domain.TokenEntry) error {
	data, err := json.MarshalIndent(tokenFile{Version: fileVersion, Tokens: entries}, "", "  ")
	if err != nil {
		return domain.ErrPersistence.WithCause(err)
	}
	if s.sealer != nil {
		sealed, err := s.sealer.seal(data)
		if err != nil {
			return domain.ErrPersistence.WithCause(err)
		}
		data = sealed
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
