// Package tokenstore persists the table of currently-valid tokens.
//
// The table is a single JSON file keyed by token hash; possession of a
// signed token is proven by hashing it and looking the hash up here.
// Deleting an entry revokes the token, and a revoked token is
// indistinguishable from one that never existed.
//
// The file is shared between independent server processes:
//
//   - Mutations run as read-modify-write under an advisory file lock
//   - Writes land via temp file, fsync and atomic rename
//   - Reads refresh from disk when the file visibly changed
//
// An unreadable table is quarantined to a timestamped sibling and the
// store starts empty, unless opened strict. With a passphrase the table
// is sealed at rest with an AEAD envelope keyed via Argon2id.
package tokenstore
