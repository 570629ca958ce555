// Package token provides token hashing and identifier utilities.
//
// Token Hash Format:
//
//   - Prefix: pvth_ (5 characters)
//   - Body: 64 characters of hex-encoded SHA-256 hash
//   - Total: 69 characters
//
// Token ID Format:
//
//   - Prefix: pvtk- (5 characters)
//   - Body: 26 characters of lowercase ULID
//   - Total: 31 characters
//
// Security:
//
//   - SHA-256 hashing with constant-time comparison
//   - Raw token values are never persisted, only hashes
//   - IDs carry no secret material and may appear in logs
package token
