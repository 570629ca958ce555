// Package blobstore holds artifact payloads as flat {guid}.{format}
// files.
package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/plotvault/plotvault-go/internal/core/domain"
	"github.com/plotvault/plotvault-go/internal/core/service"
	"github.com/plotvault/plotvault-go/internal/storage"
	"github.com/plotvault/plotvault-go/internal/telemetry/logger"
)

const (
	filePerm = 0o600
	dirPerm  = 0o750

	// maxPutAttempts bounds GUID redraws on the practically impossible
	// collision of a fresh UUID v4 with an existing blob.
	maxPutAttempts = 5

	tmpSuffix = ".tmp"
)

// Store holds blob payloads as flat files named {guid}.{format}. Blobs
// are immutable: they are written once via temp file and atomic rename,
// then only ever read or removed. There is no blob index; the directory
// is the index.
type Store struct {
	dir string
	log logger.Logger
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

// Open prepares the blob directory.
func Open(dir string, opts ...Option) (*Store, error) {
	s := &Store{
		dir: dir,
		log: logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, domain.ErrPersistence.WithCause(err)
	}
	return s, nil
}

// Dir returns the blob directory.
func (s *Store) Dir() string {
	return s.dir
}

// Put writes a payload under a fresh GUID and returns it. The GUID is
// redrawn if it is somehow already taken, so an existing blob is never
// overwritten.
func (s *Store) Put(_ context.Context, data []byte, format string) (string, error) {
	format = domain.NormalizeFormat(format)
	if !domain.ValidFormat(format) {
		return "", domain.ErrInvalidInput.WithDetails(
			"format must be 1-8 lowercase letters or digits")
	}
	if len(data) == 0 {
		return "", domain.ErrInvalidInput.WithDetails("payload is empty")
	}

	for attempt := 0; attempt < maxPutAttempts; attempt++ {
		guid, err := domain.NewGUID()
		if err != nil {
			return "", err
		}
		if _, taken := s.DetectFormat(guid); taken {
			continue
		}
		if err := storage.WriteFileAtomic(s.blobPath(guid, format), data, filePerm); err != nil {
			return "", domain.ErrPersistence.WithCause(err)
		}
		return guid, nil
	}
	return "", domain.ErrInternal.WithDetails("could not allocate an unused GUID")
}

// Get returns the payload for guid and format.
func (s *Store) Get(_ context.Context, guid, format string) ([]byte, error) {
	if !domain.IsGUID(guid) || !domain.ValidFormat(format) {
		return nil, domain.ErrArtifactNotFound
	}
	data, err := os.ReadFile(s.blobPath(guid, format))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrArtifactNotFound
		}
		return nil, domain.ErrPersistence.WithCause(err)
	}
	return data, nil
}

// Delete removes the blob for guid and format, reporting whether it
// existed.
func (s *Store) Delete(_ context.Context, guid, format string) (bool, error) {
	if !domain.IsGUID(guid) || !domain.ValidFormat(format) {
		return false, nil
	}
	if err := os.Remove(s.blobPath(guid, format)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, domain.ErrPersistence.WithCause(err)
	}
	return true, nil
}

// Exists reports whether the blob for guid and format is on disk.
func (s *Store) Exists(guid, format string) bool {
	if !domain.IsGUID(guid) || !domain.ValidFormat(format) {
		return false
	}
	_, err := os.Stat(s.blobPath(guid, format))
	return err == nil
}

// DetectFormat finds the format of an existing blob for guid by its
// file extension, for records whose recorded format lost its blob.
func (s *Store) DetectFormat(guid string) (string, bool) {
	if !domain.IsGUID(guid) {
		return "", false
	}
	matches, err := filepath.Glob(filepath.Join(s.dir, guid+".*"))
	if err != nil {
		return "", false
	}
	for _, match := range matches {
		format := strings.TrimPrefix(filepath.Ext(match), ".")
		if domain.ValidFormat(format) {
			return format, true
		}
	}
	return "", false
}

// List enumerates the blobs on disk, skipping in-flight temp files and
// anything that does not look like a blob. The orphan sweep diffs this
// against the metadata table.
func (s *Store) List(_ context.Context) ([]service.BlobInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, domain.ErrPersistence.WithCause(err)
	}

	out := make([]service.BlobInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, tmpSuffix) {
			continue
		}
		dot := strings.LastIndexByte(name, '.')
		if dot <= 0 {
			continue
		}
		guid, format := name[:dot], name[dot+1:]
		if !domain.IsGUID(guid) || !domain.ValidFormat(format) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, service.BlobInfo{
			GUID:      guid,
			Format:    format,
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
		})
	}
	return out, nil
}

func (s *Store) blobPath(guid, format string) string {
	return filepath.Join(s.dir, guid+"."+format)
}
