package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cbag-ai/cbag-web/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS profiles (
		device_id TEXT PRIMARY KEY,
		identity_json TEXT NOT NULL DEFAULT '{}',
		uses_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_profiles_updated ON profiles(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// LoadProfile retrieves the persisted projection for a device. A corrupt
// identity column or a negative counter is treated as absence of that
// value: the session must start rather than crash.
func (s *SQLiteStore) LoadProfile(ctx context.Context, deviceID string) (*domain.Profile, error) {
	query := `
		SELECT device_id, identity_json, uses_count, created_at, updated_at
		FROM profiles WHERE device_id = ?`

	row := s.db.QueryRowContext(ctx, query, deviceID)

	var profile domain.Profile
	var identityJSON string
	var createdAt, updatedAt int64

	err := row.Scan(&profile.DeviceID, &identityJSON, &profile.UsesCount, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile row: %w", err)
	}

	if err := json.Unmarshal([]byte(identityJSON), &profile.Identity); err != nil {
		slog.Warn("corrupt identity record, falling back to anonymous", "device_id", deviceID, "error", err)
		profile.Identity = domain.Anonymous()
	}
	if profile.UsesCount < 0 {
		slog.Warn("negative uses_count in store, resetting to 0", "device_id", deviceID, "uses_count", profile.UsesCount)
		profile.UsesCount = 0
	}

	profile.CreatedAt = time.Unix(createdAt, 0)
	profile.UpdatedAt = time.Unix(updatedAt, 0)

	return &profile, nil
}

// SaveProfile creates or updates the projection for a device. Transient
// SQLITE_BUSY conflicts are retried with backoff before giving up.
func (s *SQLiteStore) SaveProfile(ctx context.Context, profile *domain.Profile) error {
	identityJSON, err := json.Marshal(profile.Identity)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}

	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		err = s.saveProfileOnce(ctx, profile, string(identityJSON))
		if err == nil {
			return nil
		}
		if isSQLiteConflict(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("SaveProfile hit SQLITE_BUSY, retrying",
				"device_id", profile.DeviceID,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}
		break
	}

	return fmt.Errorf("save profile for %s: %w", profile.DeviceID, err)
}

func (s *SQLiteStore) saveProfileOnce(ctx context.Context, profile *domain.Profile, identityJSON string) error {
	query := `
	INSERT INTO profiles (device_id, identity_json, uses_count, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(device_id) DO UPDATE SET
		identity_json = excluded.identity_json,
		uses_count = excluded.uses_count,
		updated_at = excluded.updated_at`

	createdAt := profile.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, query,
		profile.DeviceID, identityJSON, profile.UsesCount,
		createdAt.Unix(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// isSQLiteConflict checks for SQLITE_BUSY / "database is locked" errors,
// which warrant a retry.
func isSQLiteConflict(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "SQLITE_BUSY") ||
		strings.Contains(err.Error(), "database is locked")
}
