// Package domain defines the core domain models for PlotVault.
package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Artifact constraints.
const (
	AliasMinLength  = 3
	AliasMaxLength  = 64
	FormatMaxLength = 8
)

var (
	aliasPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{3,64}$`)
	formatPattern = regexp.MustCompile(`^[a-z0-9]{1,8}$`)
)

// ArtifactRecord is one stored artifact.
//
// GUID, Format, SizeBytes, CreatedAt and Group are immutable once the
// record exists; only Alias may be (re)assigned or removed afterwards.
// Every record owns exactly one blob file named {GUID}.{Format}.
type ArtifactRecord struct {
	// GUID is the UUID v4 identifying the artifact. Never reused.
	GUID string `json:"guid"`

	// Format is the short format tag (png, svg, pdf, ...). Lowercase.
	Format string `json:"format"`

	// SizeBytes is the blob payload size.
	SizeBytes int64 `json:"size_bytes"`

	// CreatedAt is the save timestamp (Unix seconds).
	CreatedAt int64 `json:"created_at"`

	// Group is the owning tenant.
	Group string `json:"group"`

	// Alias is the optional human-friendly name, unique within Group.
	Alias string `json:"alias,omitempty"`
}

// NewArtifactRecord creates a record with a fresh GUID and CreatedAt set
// to now. The format is normalized to lowercase.
func NewArtifactRecord(group, format string, sizeBytes int64) (*ArtifactRecord, error) {
	guid, err := NewGUID()
	if err != nil {
		return nil, err
	}

	rec := &ArtifactRecord{
		GUID:      guid,
		Format:    NormalizeFormat(format),
		SizeBytes: sizeBytes,
		CreatedAt: time.Now().Unix(),
		Group:     group,
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// NewGUID generates a UUID v4 in canonical text form.
func NewGUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", ErrInternal.WithCause(err)
	}
	return id.String(), nil
}

// IsGUID reports whether the identifier parses as a UUID. Resolution tries
// this first, so aliases are forbidden from taking a UUID shape.
func IsGUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}

// CanonicalGUID parses identifier as a UUID and returns its canonical
// lowercase hyphenated form, so lookups hit records stored under the
// canonical key regardless of the spelling a caller used.
func CanonicalGUID(identifier string) (string, bool) {
	id, err := uuid.Parse(identifier)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// ValidAlias reports whether the alias satisfies the format rule:
// 3-64 characters, letters/digits/hyphen/underscore, case-sensitive.
func ValidAlias(alias string) bool {
	return aliasPattern.MatchString(alias)
}

// ValidFormat reports whether the format tag is acceptable: 1-8 lowercase
// letters/digits.
func ValidFormat(format string) bool {
	return formatPattern.MatchString(format)
}

// NormalizeFormat lowercases and trims a format tag.
func NormalizeFormat(format string) string {
	return strings.ToLower(strings.TrimSpace(format))
}

// Validate checks the record against its invariants.
func (r *ArtifactRecord) Validate() error {
	var violations []string

	if !IsGUID(r.GUID) {
		violations = append(violations, "guid is not a valid UUID")
	}
	if r.Group == "" {
		violations = append(violations, "group is required")
	}
	if len(r.Group) > MaxGroupLength {
		violations = append(violations, "group exceeds 128 characters")
	}
	if !ValidFormat(r.Format) {
		violations = append(violations, "format must be 1-8 lowercase letters/digits")
	}
	if r.SizeBytes < 0 {
		violations = append(violations, "size_bytes is negative")
	}
	if r.Alias != "" {
		if !ValidAlias(r.Alias) {
			violations = append(violations, "alias must be 3-64 characters, alphanumeric with hyphens/underscores")
		} else if IsGUID(r.Alias) {
			violations = append(violations, "alias must not be UUID-shaped")
		}
	}

	if len(violations) > 0 {
		return ErrInvalidInput.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}

// Clone creates a copy of the record.
func (r *ArtifactRecord) Clone() *ArtifactRecord {
	clone := *r
	return &clone
}

// BlobName returns the blob file name for this record: {guid}.{format}.
func (r *ArtifactRecord) BlobName() string {
	return r.GUID + "." + r.Format
}

// AgeSeconds returns the record's age at the given time.
func (r *ArtifactRecord) AgeSeconds(now int64) int64 {
	return now - r.CreatedAt
}

// CreatedAtTime returns CreatedAt as time.Time.
func (r *ArtifactRecord) CreatedAtTime() time.Time {
	return time.Unix(r.CreatedAt, 0)
}

// mimeTypes maps format tags to MIME types for transport callers.
var mimeTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"svg":  "image/svg+xml",
	"pdf":  "application/pdf",
	"bmp":  "image/bmp",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// MIMEType returns the MIME type for a format tag, or
// application/octet-stream when the format is unknown.
func MIMEType(format string) string {
	if mt, ok := mimeTypes[NormalizeFormat(format)]; ok {
		return mt
	}
	return "application/octet-stream"
}
