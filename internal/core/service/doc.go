// Package service provides the domain services for PlotVault.
//
// Services contain the business logic and orchestrate operations on
// domain models. They define interfaces for storage dependencies,
// allowing for dependency injection and testability.
//
// This package contains:
//
//   - Codec: token signing and decoding (HMAC-SHA256)
//   - Auth: token issuance, verification and revocation
//   - Vault: group-scoped artifact save, fetch, alias and delete
//   - Sweeper: retention purge, orphan cleanup, token expiry sweep
//
// Services are stateless apart from their store handles and are safe
// for concurrent use; durable state and its locking live behind the
// repository interfaces.
package service
