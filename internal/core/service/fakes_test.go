package service

import (
	"context"
	"sync"
	"time"

	"github.com/plotvault/plotvault-go/internal/core/domain"
)

// fakeTokenRepo is an in-memory TokenRepository for service tests.
type fakeTokenRepo struct {
	mu      sync.Mutex
	entries map[string]*domain.TokenEntry
	putErr  error
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{entries: make(map[string]*domain.TokenEntry)}
}

func (r *fakeTokenRepo) Put(_ context.Context, entry *domain.TokenEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.putErr != nil {
		return r.putErr
	}
	r.entries[entry.Hash] = entry.Clone()
	return nil
}

func (r *fakeTokenRepo) Get(_ context.Context, hash string) (*domain.TokenEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[hash]
	if !ok {
		return nil, domain.ErrTokenUnknown
	}
	return e.Clone(), nil
}

func (r *fakeTokenRepo) Delete(_ context.Context, hash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[hash]; !ok {
		return false, nil
	}
	delete(r.entries, hash)
	return true, nil
}

func (r *fakeTokenRepo) DeleteByID(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, e := range r.entries {
		if e.ID == id {
			delete(r.entries, hash)
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTokenRepo) DeleteExpired(_ context.Context, now int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for hash, e := range r.entries {
		if e.IsExpired(now) {
			delete(r.entries, hash)
			n++
		}
	}
	return n, nil
}

// overwrite replaces a stored entry, bypassing Put, so tests can plant
// table state that disagrees with the signed claims.
func (r *fakeTokenRepo) overwrite(entry *domain.TokenEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.Hash] = entry.Clone()
}

// fakeMetaRepo is an in-memory MetadataRepository for service tests.
type fakeMetaRepo struct {
	mu        sync.Mutex
	records   map[string]*domain.ArtifactRecord
	saveErr   error
	deleteErr error
}

func newFakeMetaRepo() *fakeMetaRepo {
	return &fakeMetaRepo{records: make(map[string]*domain.ArtifactRecord)}
}

func (r *fakeMetaRepo) Save(_ context.Context, rec *domain.ArtifactRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if rec.GUID == "" {
		guid, err := domain.NewGUID()
		if err != nil {
			return err
		}
		rec.GUID = guid
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().Unix()
	}
	if rec.Alias != "" {
		for _, other := range r.records {
			if other.Group == rec.Group && other.Alias == rec.Alias && other.GUID != rec.GUID {
				return domain.ErrAliasConflict
			}
		}
	}
	r.records[rec.GUID] = rec.Clone()
	return nil
}

func (r *fakeMetaRepo) Get(_ context.Context, guid, group string) (*domain.ArtifactRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[guid]
	if !ok || rec.Group != group {
		return nil, domain.ErrArtifactNotFound
	}
	return rec.Clone(), nil
}

func (r *fakeMetaRepo) Resolve(_ context.Context, identifier, group string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if guid, ok := domain.CanonicalGUID(identifier); ok {
		rec, found := r.records[guid]
		if !found || rec.Group != group {
			return "", domain.ErrArtifactNotFound
		}
		return rec.GUID, nil
	}
	for _, rec := range r.records {
		if rec.Group == group && rec.Alias == identifier {
			return rec.GUID, nil
		}
	}
	return "", domain.ErrArtifactNotFound
}

func (r *fakeMetaRepo) List(_ context.Context, group string) ([]*domain.ArtifactRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.ArtifactRecord, 0)
	for _, rec := range r.records {
		if rec.Group == group {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

func (r *fakeMetaRepo) All(_ context.Context) ([]*domain.ArtifactRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.ArtifactRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.Clone())
	}
	return out, nil
}

func (r *fakeMetaRepo) Delete(_ context.Context, guid, group string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return false, r.deleteErr
	}
	rec, ok := r.records[guid]
	if !ok || rec.Group != group {
		return false, nil
	}
	delete(r.records, guid)
	return true, nil
}

func (r *fakeMetaRepo) RegisterAlias(_ context.Context, alias, guid, group string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[guid]
	if !ok || rec.Group != group {
		return domain.ErrArtifactNotFound
	}
	for _, other := range r.records {
		if other.Group == group && other.Alias == alias && other.GUID != guid {
			return domain.ErrAliasConflict
		}
	}
	updated := rec.Clone()
	updated.Alias = alias
	r.records[guid] = updated
	return nil
}

func (r *fakeMetaRepo) UnregisterAlias(_ context.Context, alias, group string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for guid, rec := range r.records {
		if rec.Group == group && rec.Alias == alias {
			updated := rec.Clone()
			updated.Alias = ""
			r.records[guid] = updated
			return true, nil
		}
	}
	return false, nil
}

// fakeBlobRepo is an in-memory BlobRepository for service tests. It
// records deletions so tests can assert cleanup behavior.
type fakeBlobRepo struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	modTimes map[string]time.Time
	putErr   error
	deleted  []string
}

func newFakeBlobRepo() *fakeBlobRepo {
	return &fakeBlobRepo{
		blobs:    make(map[string][]byte),
		modTimes: make(map[string]time.Time),
	}
}

func blobKey(guid, format string) string {
	return guid + "." + format
}

func (r *fakeBlobRepo) Put(_ context.Context, data []byte, format string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.putErr != nil {
		return "", r.putErr
	}
	guid, err := domain.NewGUID()
	if err != nil {
		return "", err
	}
	r.blobs[blobKey(guid, format)] = append([]byte(nil), data...)
	r.modTimes[blobKey(guid, format)] = time.Now()
	return guid, nil
}

// plant inserts a blob under a fixed GUID with a chosen mod time.
func (r *fakeBlobRepo) plant(guid, format string, data []byte, modTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blobs[blobKey(guid, format)] = append([]byte(nil), data...)
	r.modTimes[blobKey(guid, format)] = modTime
}

func (r *fakeBlobRepo) Get(_ context.Context, guid, format string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.blobs[blobKey(guid, format)]
	if !ok {
		return nil, domain.ErrArtifactNotFound
	}
	return append([]byte(nil), data...), nil
}

func (r *fakeBlobRepo) Delete(_ context.Context, guid, format string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := blobKey(guid, format)
	if _, ok := r.blobs[key]; !ok {
		return false, nil
	}
	delete(r.blobs, key)
	delete(r.modTimes, key)
	r.deleted = append(r.deleted, key)
	return true, nil
}

func (r *fakeBlobRepo) DetectFormat(guid string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prefix := guid + "."
	for key := range r.blobs {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			return key[len(prefix):], true
		}
	}
	return "", false
}

func (r *fakeBlobRepo) List(_ context.Context) ([]BlobInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]BlobInfo, 0, len(r.blobs))
	for key, data := range r.blobs {
		// Keys are {canonical-uuid}.{format}; a canonical UUID is 36 chars.
		if len(key) < 38 {
			continue
		}
		out = append(out, BlobInfo{
			GUID:      key[:36],
			Format:    key[37:],
			SizeBytes: int64(len(data)),
			ModTime:   r.modTimes[key],
		})
	}
	return out, nil
}

func (r *fakeBlobRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.blobs)
}
