package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cbag-ai/cbag-web/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	s := repo.(*SQLiteStore)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoadProfileMissingReturnsNil(t *testing.T) {
	s := newTestStore(t)

	profile, err := s.LoadProfile(context.Background(), "anon_missing")
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	if profile != nil {
		t.Errorf("Expected nil profile for missing device, got %+v", profile)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := &domain.Profile{
		DeviceID:  "anon_abc123",
		Identity:  domain.NewRegistered("maria@example.com", ""),
		UsesCount: 2,
		CreatedAt: time.Now(),
	}
	if err := s.SaveProfile(ctx, in); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}

	got, err := s.LoadProfile(ctx, "anon_abc123")
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected profile, got nil")
	}
	if !got.Identity.Registered || got.Identity.Email != "maria@example.com" {
		t.Errorf("Identity did not round-trip: %+v", got.Identity)
	}
	if got.UsesCount != 2 {
		t.Errorf("Expected uses_count 2, got %d", got.UsesCount)
	}
}

func TestSaveProfileOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &domain.Profile{DeviceID: "anon_dev", Identity: domain.Anonymous(), UsesCount: 1}
	if err := s.SaveProfile(ctx, first); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}

	second := &domain.Profile{DeviceID: "anon_dev", Identity: domain.Anonymous(), UsesCount: 2}
	if err := s.SaveProfile(ctx, second); err != nil {
		t.Fatalf("SaveProfile (overwrite) failed: %v", err)
	}

	got, err := s.LoadProfile(ctx, "anon_dev")
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	if got.UsesCount != 2 {
		t.Errorf("Expected uses_count 2 after overwrite, got %d", got.UsesCount)
	}
}

func TestLoadProfileCorruptIdentityFallsBackToAnonymous(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (device_id, identity_json, uses_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		"anon_corrupt", "{not json", 1, now, now)
	if err != nil {
		t.Fatalf("Failed to insert corrupt row: %v", err)
	}

	got, err := s.LoadProfile(ctx, "anon_corrupt")
	if err != nil {
		t.Fatalf("LoadProfile should tolerate corrupt identity, got error: %v", err)
	}
	if !got.Identity.IsAnonymous() {
		t.Errorf("Expected anonymous fallback identity, got %+v", got.Identity)
	}
	if got.UsesCount != 1 {
		t.Errorf("Expected uses_count 1 to survive, got %d", got.UsesCount)
	}
}

func TestLoadProfileNegativeCounterResets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (device_id, identity_json, uses_count, created_at, updated_at)
		 VALUES (?, '{}', -5, ?, ?)`,
		"anon_negative", now, now)
	if err != nil {
		t.Fatalf("Failed to insert row: %v", err)
	}

	got, err := s.LoadProfile(ctx, "anon_negative")
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	if got.UsesCount != 0 {
		t.Errorf("Expected negative counter reset to 0, got %d", got.UsesCount)
	}
}
