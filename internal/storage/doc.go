// Package storage provides shared persistence primitives for PlotVault's
// file-backed stores.
//
// The stores themselves live in subpackages:
//
//   - tokenstore: the JSON-backed token table
//   - metastore: the JSON-backed artifact metadata table
//   - blobstore: artifact payloads as one file per blob
//
// This package holds what they have in common: atomic file replacement
// (temp file, fsync, rename), quarantine of corrupt files, and the
// FileState stat snapshot the stores use to notice writes from other
// processes.
package storage
