// Package domain defines the core domain models for PlotVault.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// DomainError represents a business domain error with a structured error code.
// Codes are stable machine identifiers; messages are what callers see.
type DomainError struct {
	Code    string // Error code (e.g., "PV-ART-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Request Errors (REQ)
// ============================================================================

var (
	// ErrInvalidInput indicates the caller supplied bad parameters.
	ErrInvalidInput = NewDomainError("PV-REQ-4000", "invalid input")

	// ErrAliasInvalid indicates the alias violates the format rule
	// (3-64 characters, letters/digits/hyphen/underscore).
	ErrAliasInvalid = NewDomainError("PV-REQ-4001", "invalid alias")
)

// ============================================================================
// Authentication Errors (AUTH)
//
// Every authentication failure carries the same message so a caller cannot
// probe which check rejected a token; the codes stay distinct for operator
// logs. Revoked tokens and never-issued tokens both surface as
// ErrTokenUnknown.
// ============================================================================

var (
	// ErrTokenMalformed indicates the token structure or signature is invalid.
	ErrTokenMalformed = NewDomainError("PV-AUTH-4010", "authentication failed")

	// ErrTokenUnknown indicates the token is absent from the token table.
	ErrTokenUnknown = NewDomainError("PV-AUTH-4011", "authentication failed")

	// ErrTokenExpired indicates the token's expiry has passed.
	ErrTokenExpired = NewDomainError("PV-AUTH-4012", "authentication failed")

	// ErrTokenNotYetValid indicates the token's not-before is in the future.
	ErrTokenNotYetValid = NewDomainError("PV-AUTH-4013", "authentication failed")

	// ErrAudienceMismatch indicates the stored audience differs from the
	// supplied one.
	ErrAudienceMismatch = NewDomainError("PV-AUTH-4014", "authentication failed")

	// ErrFingerprintMismatch indicates the stored fingerprint differs from
	// the supplied one.
	ErrFingerprintMismatch = NewDomainError("PV-AUTH-4015", "authentication failed")

	// ErrClaimsMismatch indicates the decoded claims disagree with the
	// stored entry.
	ErrClaimsMismatch = NewDomainError("PV-AUTH-4016", "authentication failed")
)

// ============================================================================
// Artifact Errors (ART)
// ============================================================================

var (
	// ErrArtifactNotFound indicates the artifact does not exist within the
	// caller's group. True absence and cross-group access are deliberately
	// indistinguishable.
	ErrArtifactNotFound = NewDomainError("PV-ART-4040", "artifact not found")

	// ErrAliasConflict indicates the alias already names a different
	// artifact in the same group.
	ErrAliasConflict = NewDomainError("PV-ART-4090", "alias already in use")
)

// ============================================================================
// Storage Errors (STORE)
// ============================================================================

var (
	// ErrPersistence indicates a durable write could not complete. The
	// operation's in-memory state is unchanged when this is returned.
	ErrPersistence = NewDomainError("PV-STORE-5000", "persistence failure")

	// ErrCorruptState indicates a store file failed to load. Surfaced from
	// Open in strict mode; otherwise the file is quarantined and logged.
	ErrCorruptState = NewDomainError("PV-STORE-5030", "corrupt store state")
)

// ============================================================================
// System Errors (INT)
// ============================================================================

var (
	// ErrInternal indicates an unexpected internal failure.
	ErrInternal = NewDomainError("PV-INT-5000", "internal error")
)

// IsUnauthorized reports whether err belongs to the authentication failure
// class.
func IsUnauthorized(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return strings.HasPrefix(de.Code, "PV-AUTH-")
	}
	return false
}

// IsNotFound reports whether err is the artifact-not-found class.
func IsNotFound(err error) bool {
	return IsDomainError(err, ErrArtifactNotFound.Code)
}

// IsInvalidInput reports whether err is a caller-input error.
func IsInvalidInput(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return strings.HasPrefix(de.Code, "PV-REQ-")
	}
	return false
}
