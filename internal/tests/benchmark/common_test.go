package benchmark

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/plotvault/plotvault-go/internal/core/domain"
	"github.com/plotvault/plotvault-go/internal/core/service"
	"github.com/plotvault/plotvault-go/internal/storage/blobstore"
	"github.com/plotvault/plotvault-go/internal/storage/metastore"
	"github.com/plotvault/plotvault-go/internal/storage/tokenstore"
	"github.com/plotvault/plotvault-go/internal/telemetry/logger"
)

// prefillCounts are the table sizes lookups are measured against. The
// stores rewrite the whole table per mutation, so prefill stays
// moderate; lookup cost is what scales with these.
var prefillCounts = []int{100, 1000}

const benchSecret = "benchmark-secret-0123456789abcdef"

// benchStack is the library wired over one temp directory with logging
// silenced.
type benchStack struct {
	tokens *tokenstore.Store
	meta   *metastore.Store
	blobs  *blobstore.Store
	codec  *service.Codec
	auth   *service.Auth
	vault  *service.Vault
}

func newBenchStack(b *testing.B) *benchStack {
	b.Helper()
	dir := b.TempDir()
	quiet, err := logger.New(logger.Config{Level: "error", Format: "json", Output: io.Discard})
	if err != nil {
		b.Fatalf("logger.New: %v", err)
	}

	tokens, err := tokenstore.Open(filepath.Join(dir, "auth", "tokens.json"),
		tokenstore.WithLogger(quiet))
	if err != nil {
		b.Fatalf("Open token table: %v", err)
	}
	meta, err := metastore.Open(filepath.Join(dir, "storage", "metadata.json"),
		metastore.WithLogger(quiet))
	if err != nil {
		b.Fatalf("Open metadata table: %v", err)
	}
	blobs, err := blobstore.Open(filepath.Join(dir, "storage", "blobs"),
		blobstore.WithLogger(quiet))
	if err != nil {
		b.Fatalf("Open blob dir: %v", err)
	}

	codec, err := service.NewCodec([]byte(benchSecret))
	if err != nil {
		b.Fatalf("NewCodec: %v", err)
	}

	return &benchStack{
		tokens: tokens,
		meta:   meta,
		blobs:  blobs,
		codec:  codec,
		auth:   service.NewAuth(tokens, codec, nil, service.WithAuthLogger(quiet)),
		vault:  service.NewVault(meta, blobs, service.WithVaultLogger(quiet)),
	}
}

// benchPayload returns size random bytes.
func benchPayload(b *testing.B, size int) []byte {
	b.Helper()
	data := make([]byte, size)
	if _, err := rand.Read(data); err != nil {
		b.Fatalf("rand.Read: %v", err)
	}
	return data
}

// issueTokens creates count tokens spread over a few groups and returns
// the signed strings.
func issueTokens(b *testing.B, s *benchStack, count int) []string {
	b.Helper()
	ctx := context.Background()
	tokens := make([]string, count)
	for i := range tokens {
		signed, err := s.auth.Create(ctx, fmt.Sprintf("group-%d", i%16), time.Hour, "", "")
		if err != nil {
			b.Fatalf("Create: %v", err)
		}
		tokens[i] = signed
	}
	return tokens
}

// saveArtifacts stores count small artifacts in one group and returns
// their records. With aliased set, each gets a distinct alias.
func saveArtifacts(b *testing.B, s *benchStack, count int, aliased bool) []*domain.ArtifactRecord {
	b.Helper()
	ctx := context.Background()
	data := benchPayload(b, 512)
	recs := make([]*domain.ArtifactRecord, count)
	for i := range recs {
		alias := ""
		if aliased {
			alias = fmt.Sprintf("chart-%d", i)
		}
		rec, err := s.vault.Save(ctx, "bench-group", data, "png", alias)
		if err != nil {
			b.Fatalf("Save: %v", err)
		}
		recs[i] = rec
	}
	return recs
}

// runWithCounts runs benchFn once per prefill count.
func runWithCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("records_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}

// sizeLabel returns a human-readable size label.
func sizeLabel(size int) string {
	switch {
	case size >= 1024*1024:
		return fmt.Sprintf("%dMB", size/(1024*1024))
	case size >= 1024:
		return fmt.Sprintf("%dKB", size/1024)
	default:
		return fmt.Sprintf("%dB", size)
	}
}
