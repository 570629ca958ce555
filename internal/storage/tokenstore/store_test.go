package tokenstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/plotvault/plotvault-go/internal/core/domain"
	"github.com/plotvault/plotvault-go/pkg/token"
)

func testEntry(t *testing.T, group, seed string) *domain.TokenEntry {
	t.Helper()
	e, err := domain.NewTokenEntry(group, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenEntry: %v", err)
	}
	e.Hash = token.Hash("signed-" + seed)
	return e
}

func expiredEntry(t *testing.T, group, seed string) *domain.TokenEntry {
	t.Helper()
	now := time.Now().Unix()
	e := &domain.TokenEntry{
		Hash:      token.Hash("signed-" + seed),
		Group:     group,
		IssuedAt:  now - 7200,
		NotBefore: now - 7200,
		ExpiresAt: now - 3600,
	}
	return e
}

func TestOpenMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth", "tokens.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := s.Count(); got != 0 {
		t.Errorf("Count() = %d, want 0", got)
	}
	if _, err := s.Get(context.Background(), token.Hash("nope")); !errors.Is(err, domain.ErrTokenUnknown) {
		t.Errorf("Get on empty store = %v, want ErrTokenUnknown", err)
	}
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	e := testEntry(t, "finance", "a")
	e.Audience = "plotvault"
	e.Fingerprint = "fp-1"
	if err := s.Put(ctx, e); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, e.Hash)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Hash != e.Hash || got.ID != e.ID || got.Group != "finance" {
		t.Errorf("Get = %+v, want hash/id/group of put entry", got)
	}
	if got.Audience != "plotvault" || got.Fingerprint != "fp-1" {
		t.Errorf("Get lost optional claims: %+v", got)
	}
	if got.ExpiresAt != e.ExpiresAt || got.IssuedAt != e.IssuedAt || got.NotBefore != e.NotBefore {
		t.Errorf("Get timestamps = %d/%d/%d, want %d/%d/%d",
			got.IssuedAt, got.NotBefore, got.ExpiresAt, e.IssuedAt, e.NotBefore, e.ExpiresAt)
	}

	// Mutating the returned entry must not leak into the store.
	got.Group = "changed"
	again, err := s.Get(ctx, e.Hash)
	if err != nil {
		t.Fatalf("Get again: %v", err)
	}
	if again.Group != "finance" {
		t.Error("stored entry mutated through returned clone")
	}
}

func TestPutValidation(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "tokens.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := s.Put(ctx, nil); !domain.IsInvalidInput(err) {
		t.Errorf("Put(nil) = %v, want invalid input", err)
	}

	e := testEntry(t, "finance", "a")
	e.Hash = "not-a-hash"
	if err := s.Put(ctx, e); !domain.IsInvalidInput(err) {
		t.Errorf("Put with bad hash = %v, want invalid input", err)
	}

	e = testEntry(t, "", "b")
	if err := s.Put(ctx, e); !domain.IsInvalidInput(err) {
		t.Errorf("Put with empty group = %v, want invalid input", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "tokens.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	e := testEntry(t, "finance", "a")
	if err := s.Put(ctx, e); err != nil {
		t.Fatalf("Put: %v", err)
	}

	present, err := s.Delete(ctx, e.Hash)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !present {
		t.Error("Delete of present entry = false, want true")
	}

	if _, err := s.Get(ctx, e.Hash); !errors.Is(err, domain.ErrTokenUnknown) {
		t.Errorf("Get after delete = %v, want ErrTokenUnknown", err)
	}

	present, err = s.Delete(ctx, e.Hash)
	if err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if present {
		t.Error("Delete of absent entry = true, want false")
	}
}

func TestDeleteByID(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "tokens.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	e := testEntry(t, "finance", "a")
	if err := s.Put(ctx, e); err != nil {
		t.Fatalf("Put: %v", err)
	}

	present, err := s.DeleteByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if !present {
		t.Error("DeleteByID of present entry = false, want true")
	}
	if present, _ := s.DeleteByID(ctx, e.ID); present {
		t.Error("DeleteByID of absent entry = true, want false")
	}
}

func TestDeleteExpired(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "tokens.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	live := testEntry(t, "finance", "live")
	if err := s.Put(ctx, live); err != nil {
		t.Fatalf("Put live: %v", err)
	}
	for _, seed := range []string{"old1", "old2"} {
		if err := s.Put(ctx, expiredEntry(t, "finance", seed)); err != nil {
			t.Fatalf("Put expired %s: %v", seed, err)
		}
	}

	n, err := s.DeleteExpired(ctx, time.Now().Unix())
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteExpired = %d, want 2", n)
	}
	if got := s.Count(); got != 1 {
		t.Errorf("Count after sweep = %d, want 1", got)
	}
	if _, err := s.Get(ctx, live.Hash); err != nil {
		t.Errorf("live entry swept: %v", err)
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "tokens.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	for _, seed := range []string{"a", "b", "c"} {
		if err := s.Put(ctx, testEntry(t, "finance", seed)); err != nil {
			t.Fatalf("Put %s: %v", seed, err)
		}
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("List = %d entries, want 3", len(entries))
	}
	for _, e := range entries {
		if e.Hash == "" {
			t.Error("listed entry has empty hash")
		}
	}
}

func TestReopenSeesData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.json")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	e := testEntry(t, "finance", "a")
	if err := s1.Put(ctx, e); err != nil {
		t.Fatalf("Put: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := s2.Get(ctx, e.Hash)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.ID != e.ID {
		t.Errorf("reopened entry ID = %q, want %q", got.ID, e.ID)
	}
}

func TestTwoStoresObserveEachOther(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.json")

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open a: %v", err)
	}
	b, err := Open(path)
	if err != nil {
		t.Fatalf("Open b: %v", err)
	}

	e := testEntry(t, "finance", "shared")
	if err := a.Put(ctx, e); err != nil {
		t.Fatalf("a.Put: %v", err)
	}

	// b opened before the put; its next read refreshes from disk.
	if _, err := b.Get(ctx, e.Hash); err != nil {
		t.Fatalf("b.Get after a.Put: %v", err)
	}

	present, err := b.Delete(ctx, e.Hash)
	if err != nil {
		t.Fatalf("b.Delete: %v", err)
	}
	if !present {
		t.Fatal("b.Delete = false, want true")
	}

	// A revocation through b is visible to a on its next check.
	if _, err := a.Get(ctx, e.Hash); !errors.Is(err, domain.ErrTokenUnknown) {
		t.Errorf("a.Get after b.Delete = %v, want ErrTokenUnknown", err)
	}
}

func TestCorruptTableQuarantined(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open on corrupt table: %v", err)
	}
	if got := s.Count(); got != 0 {
		t.Errorf("Count after quarantine = %d, want 0", got)
	}

	quarantined, err := filepath.Glob(path + ".corrupt-*")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(quarantined) != 1 {
		t.Fatalf("quarantined files = %d, want 1", len(quarantined))
	}
	data, err := os.ReadFile(quarantined[0])
	if err != nil || string(data) != "{not json" {
		t.Errorf("quarantined bytes = %q, %v; want original content preserved", data, err)
	}

	// The store is usable after recovery.
	if err := s.Put(ctx, testEntry(t, "finance", "fresh")); err != nil {
		t.Fatalf("Put after quarantine: %v", err)
	}
}

func TestCorruptTableStrict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	if _, err := Open(path, WithStrict(true)); !errors.Is(err, domain.ErrCorruptState) {
		t.Fatalf("Open strict on corrupt table = %v, want ErrCorruptState", err)
	}

	// Strict mode must not move the file aside.
	if _, err := os.Stat(path); err != nil {
		t.Errorf("corrupt file gone after strict open: %v", err)
	}
}

func TestSealedAtRest(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.json")
	passphrase := []byte("correct horse battery")

	s, err := Open(path, WithPassphrase(passphrase))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	e := testEntry(t, "finance", "sealed")
	if err := s.Put(ctx, e); err != nil {
		t.Fatalf("Put: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read raw file: %v", err)
	}
	if !IsSealed(raw) {
		t.Fatal("table on disk is not sealed")
	}

	s2, err := Open(path, WithPassphrase(passphrase))
	if err != nil {
		t.Fatalf("reopen with passphrase: %v", err)
	}
	if _, err := s2.Get(ctx, e.Hash); err != nil {
		t.Fatalf("Get from sealed table: %v", err)
	}

	// The wrong passphrase must fail loudly in strict mode, not decode
	// to an empty table.
	if _, err := Open(path, WithPassphrase([]byte("wrong passphrase")), WithStrict(true)); !errors.Is(err, domain.ErrCorruptState) {
		t.Fatalf("Open with wrong passphrase = %v, want ErrCorruptState", err)
	}
}

func TestShortPassphraseRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	if _, err := Open(path, WithPassphrase([]byte("short"))); !domain.IsInvalidInput(err) {
		t.Fatalf("Open with short passphrase = %v, want invalid input", err)
	}
}

func TestPlainTableSealedOnNextWrite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.json")

	plain, err := Open(path)
	if err != nil {
		t.Fatalf("Open plain: %v", err)
	}
	e1 := testEntry(t, "finance", "one")
	if err := plain.Put(ctx, e1); err != nil {
		t.Fatalf("Put plain: %v", err)
	}

	sealed, err := Open(path, WithPassphrase([]byte("correct horse battery")))
	if err != nil {
		t.Fatalf("Open with passphrase over plain table: %v", err)
	}
	if _, err := sealed.Get(ctx, e1.Hash); err != nil {
		t.Fatalf("Get plain entry through sealing store: %v", err)
	}

	e2 := testEntry(t, "finance", "two")
	if err := sealed.Put(ctx, e2); err != nil {
		t.Fatalf("Put through sealing store: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read raw file: %v", err)
	}
	if !IsSealed(raw) {
		t.Error("table still plain after write through sealing store")
	}
}

func TestConcurrentPutsTwoStores(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.json")

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open a: %v", err)
	}
	b, err := Open(path)
	if err != nil {
		t.Fatalf("Open b: %v", err)
	}

	const perStore = 25
	entriesA := make([]*domain.TokenEntry, perStore)
	entriesB := make([]*domain.TokenEntry, perStore)
	for i := 0; i < perStore; i++ {
		entriesA[i] = testEntry(t, "finance", string(rune('a'+i))+"-a")
		entriesB[i] = testEntry(t, "finance", string(rune('a'+i))+"-b")
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2*perStore)
	for i := 0; i < perStore; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			errs <- a.Put(ctx, entriesA[i])
		}(i)
		go func(i int) {
			defer wg.Done()
			errs <- b.Put(ctx, entriesB[i])
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Put: %v", err)
		}
	}

	// No lost updates: a fresh store sees every entry.
	fresh, err := Open(path)
	if err != nil {
		t.Fatalf("Open fresh: %v", err)
	}
	if got := fresh.Count(); got != 2*perStore {
		t.Errorf("Count = %d, want %d", got, 2*perStore)
	}
}

func TestWriteFailureLeavesMemoryConsistent(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "auth")
	path := filepath.Join(dir, "tokens.json")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Put(ctx, testEntry(t, "finance", "first")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Pull the directory out from under the store so the next durable
	// write cannot land.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("remove dir: %v", err)
	}

	e := testEntry(t, "finance", "doomed")
	if err := s.Put(ctx, e); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("Put into missing dir = %v, want ErrPersistence", err)
	}

	// The failed entry must not be visible in memory afterwards.
	if _, err := s.Get(ctx, e.Hash); !errors.Is(err, domain.ErrTokenUnknown) {
		t.Errorf("Get of failed entry = %v, want ErrTokenUnknown", err)
	}
}
