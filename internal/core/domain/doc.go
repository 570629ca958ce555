// Package domain defines the core domain models for PlotVault.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling. This package contains:
//
//   - TokenEntry: Issued credential as persisted in the token table
//   - ArtifactRecord: One stored artifact and its alias
//   - Errors: Domain-specific error definitions
//
// All domain models implement validation and deep copying; stored
// state never escapes by reference.
package domain
