// Package metastore persists artifact metadata records.
//
// Records live in a single JSON table keyed by GUID; each record names
// its owning group, blob format, size, creation time and optional
// alias. The (group, alias) -> GUID index is derived from the records,
// never stored, so record and alias can never disagree on disk.
//
// Group ownership is enforced at this layer: lookups and deletes that
// name a record owned by another group report not-found, making a
// foreign artifact indistinguishable from a missing one.
//
// The table shares its concurrency model with the token store:
// advisory-locked read-modify-write for mutations, atomic rename for
// visibility, stat-based reload for reads, quarantine for unreadable
// files.
package metastore
