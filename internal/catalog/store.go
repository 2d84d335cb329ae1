package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"airlift/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; users will need to clear the catalog database afterwards.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store manages asset and dispatch persistence backed by SQLite. It is the
// secondary record behind the audit logs: the aggregator reads its counts as
// advisory data, never as the source of truth for platform status.
type Store struct {
	db   *sql.DB
	path string
}

// Counts summarizes catalog contents for status snapshots.
type Counts struct {
	Assets     int `json:"assets"`
	Dispatches int `json:"dispatches"`
}

// Open initializes or connects to the catalog database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "catalog.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return tx.Commit()
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to rebuild)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// RecordAsset upserts a known media asset.
func (s *Store) RecordAsset(ctx context.Context, assetID, title, sourcePath string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assets (asset_id, title, source_path, created_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(asset_id) DO UPDATE SET title = excluded.title, source_path = excluded.source_path`,
		assetID, title, sourcePath, now,
	)
	if err != nil {
		return fmt.Errorf("record asset %s: %w", assetID, err)
	}
	return nil
}

// RecordDispatch appends one dispatch attempt row.
func (s *Store) RecordDispatch(ctx context.Context, attemptID, platform, assetID string, accountID int64, status, errorMessage string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dispatches (attempt_id, platform, asset_id, account_id, status, error, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		attemptID, platform, assetID, accountID, status, errorMessage, now,
	)
	if err != nil {
		return fmt.Errorf("record dispatch %s/%s: %w", platform, assetID, err)
	}
	return nil
}

// Counts returns asset and dispatch totals.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var counts Counts
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM assets").Scan(&counts.Assets); err != nil {
		return Counts{}, fmt.Errorf("count assets: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM dispatches").Scan(&counts.Dispatches); err != nil {
		return Counts{}, fmt.Errorf("count dispatches: %w", err)
	}
	return counts, nil
}
