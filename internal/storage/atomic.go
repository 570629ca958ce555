// Package storage provides shared persistence primitives for PlotVault's
// file-backed stores.
package storage

import (
	"fmt"
	"os"
	"time"
)

// WriteFileAtomic writes data so a reader observes either the previous
// content or the new content, never a partial write: the bytes go to a
// temp file beside the target, are fsynced, then renamed over it.
//
// Callers that share the target across processes hold the store's
// advisory lock around the whole read-modify-write, so the fixed temp
// name cannot collide.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmpPath := path + ".tmp"

	file, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("storage: create temp file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("storage: write temp file: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("storage: sync temp file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("storage: close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("storage: rename temp file: %w", err)
	}

	return nil
}

// QuarantinePath returns the quarantine name for a corrupt file.
func QuarantinePath(path string, now time.Time) string {
	return path + ".corrupt-" + now.UTC().Format("20060102T150405Z")
}

// Quarantine renames a corrupt file aside so a fresh store can start
// without destroying the evidence. Returns the quarantine path.
func Quarantine(path string) (string, error) {
	qpath := QuarantinePath(path, time.Now())
	if err := os.Rename(path, qpath); err != nil {
		return "", fmt.Errorf("storage: quarantine %s: %w", path, err)
	}
	return qpath, nil
}

// FileState identifies one observed version of a file, used by the
// stores' reload-on-read checks.
type FileState struct {
	ModTime time.Time
	Size    int64
	Exists  bool
}

// StatFile captures the current state of a file. A missing file is a
// valid state, not an error.
func StatFile(path string) (FileState, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileState{}, nil
		}
		return FileState{}, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return FileState{ModTime: info.ModTime(), Size: info.Size(), Exists: true}, nil
}

// Changed reports whether the file has visibly changed relative to a
// previously captured state.
func (s FileState) Changed(prev FileState) bool {
	return s.Exists != prev.Exists || s.Size != prev.Size || !s.ModTime.Equal(prev.ModTime)
}
