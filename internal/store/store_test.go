package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"soulcast/internal/quota"
	"soulcast/internal/services"
	"soulcast/internal/store"
	"soulcast/internal/testsupport"
)

func TestPutGetDelete(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}
	if err := s.Put(ctx, "alpha", "1"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, "alpha", "2"); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	value, ok, err := s.Get(ctx, "alpha")
	if err != nil || !ok || value != "2" {
		t.Fatalf("expected alpha=2, got %q ok=%v err=%v", value, ok, err)
	}
	if err := s.Delete(ctx, "alpha"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "alpha"); ok {
		t.Fatal("expected alpha deleted")
	}
	if err := s.Delete(ctx, "alpha"); err != nil {
		t.Fatalf("Delete absent key: %v", err)
	}
}

func TestPutRequiresKey(t *testing.T) {
	s := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	err := s.Put(context.Background(), "  ", "x")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestClearAndKeys(t *testing.T) {
	s := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	for _, key := range []string{"b", "a", "c"} {
		if err := s.Put(ctx, key, key); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}
	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 3 || keys[0] != "a" || keys[2] != "c" {
		t.Fatalf("unexpected keys: %v", keys)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	keys, err = s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys after clear: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected empty store, got %v", keys)
	}
}

func TestReopenKeepsData(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Put(context.Background(), "persisted", "yes"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	if reopened.Path() != filepath.Join(cfg.Paths.StateDir, "state.db") {
		t.Fatalf("unexpected path %s", reopened.Path())
	}
	value, ok, err := reopened.Get(context.Background(), "persisted")
	if err != nil || !ok || value != "yes" {
		t.Fatalf("expected persisted value, got %q ok=%v err=%v", value, ok, err)
	}
}

func TestLedgerStoreRoundTrip(t *testing.T) {
	s := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ledgerStore := store.NewLedgerStore(s)
	ctx := context.Background()

	if _, ok, err := ledgerStore.LoadLedger(ctx); err != nil || ok {
		t.Fatalf("expected no ledger yet, ok=%v err=%v", ok, err)
	}

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ledger := quota.Load(ctx, ledgerStore, quota.Options{Now: func() time.Time { return now }})
	ledger.RecordUsage(ctx, 11250)

	restored := quota.Load(ctx, ledgerStore, quota.Options{Now: func() time.Time { return now }})
	snap := restored.Snapshot(ctx)
	if snap.TotalUsed != 11250 || snap.Limit != quota.DefaultMonthlyLimit || !snap.PeriodStart.Equal(now) {
		t.Fatalf("unexpected restored ledger: %+v", snap)
	}

	raw, ok, err := s.Get(ctx, store.LedgerKey)
	if err != nil || !ok {
		t.Fatalf("expected raw ledger record, ok=%v err=%v", ok, err)
	}
	for _, field := range []string{"total_characters_used", "last_reset_date", "monthly_limit"} {
		if !strings.Contains(raw, field) {
			t.Fatalf("expected %s in record %s", field, raw)
		}
	}
}

func TestLedgerStoreUndecodableFallsBackToDefaults(t *testing.T) {
	s := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	if err := s.Put(ctx, store.LedgerKey, "{not json"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	ledgerStore := store.NewLedgerStore(s)
	if _, _, err := ledgerStore.LoadLedger(ctx); err == nil {
		t.Fatal("expected decode error")
	}
	ledger := quota.Load(ctx, ledgerStore, quota.Options{})
	if snap := ledger.Snapshot(ctx); snap.TotalUsed != 0 || snap.Limit != quota.DefaultMonthlyLimit {
		t.Fatalf("expected defaults, got %+v", snap)
	}
}
