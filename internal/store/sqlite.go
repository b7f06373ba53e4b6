// Package store provides storage backends for valsync.
//
// This file implements the SQLite-backed store, the default for client
// devices.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/edustack/valsync/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// SaveQueue replaces the persisted queue snapshot inside one transaction so
// a crash never leaves a half-written queue.
func (s *SQLiteStore) SaveQueue(queue []models.ValidationRequest) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save queue begin failed: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sync_queue`); err != nil {
		return fmt.Errorf("save queue clear failed: %w", err)
	}
	for i, req := range queue {
		_, err := tx.Exec(
			`INSERT INTO sync_queue (position, id, kind, item_id, action, actor_user_id, actor_user_name, actor_role, payload_json, enqueued_at, status, retry_count, last_error)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, req.ID, req.Kind, req.ItemID, req.Action,
			req.Actor.UserID, req.Actor.UserName, req.Actor.Role,
			nilIfEmpty(req.PayloadJSON), req.EnqueuedAt, req.Status, req.RetryCount, nilIfEmpty(req.LastError),
		)
		if err != nil {
			return fmt.Errorf("save queue insert %s failed: %w", req.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save queue commit failed: %w", err)
	}
	slog.Debug("SQLiteStore.SaveQueue succeeded", "count", len(queue))
	return nil
}

// LoadQueue returns the persisted queue in enqueue order.
func (s *SQLiteStore) LoadQueue() ([]models.ValidationRequest, error) {
	rows, err := s.db.Query(
		`SELECT id, kind, item_id, action, actor_user_id, actor_user_name, actor_role, payload_json, enqueued_at, status, retry_count, last_error
		 FROM sync_queue ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("load queue query failed: %w", err)
	}
	defer rows.Close()

	var queue []models.ValidationRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		queue = append(queue, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load queue iteration failed: %w", err)
	}
	slog.Debug("SQLiteStore.LoadQueue succeeded", "count", len(queue))
	return queue, nil
}

// SaveHistory replaces the persisted history snapshot, most-recent-first.
func (s *SQLiteStore) SaveHistory(history []models.HistoryRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save history begin failed: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM validation_history`); err != nil {
		return fmt.Errorf("save history clear failed: %w", err)
	}
	for i, rec := range history {
		_, err := tx.Exec(
			`INSERT INTO validation_history (position, id, item_id, kind, action, actor_user_id, actor_user_name, actor_role, timestamp, comment, origin)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, rec.ID, rec.ItemID, rec.Kind, rec.Action,
			rec.Actor.UserID, rec.Actor.UserName, rec.Actor.Role,
			rec.Timestamp, nilIfEmpty(rec.Comment), rec.Origin,
		)
		if err != nil {
			return fmt.Errorf("save history insert %s failed: %w", rec.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save history commit failed: %w", err)
	}
	slog.Debug("SQLiteStore.SaveHistory succeeded", "count", len(history))
	return nil
}

// LoadHistory returns the persisted history, most-recent-first.
func (s *SQLiteStore) LoadHistory() ([]models.HistoryRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, item_id, kind, action, actor_user_id, actor_user_name, actor_role, timestamp, comment, origin
		 FROM validation_history ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("load history query failed: %w", err)
	}
	defer rows.Close()

	var history []models.HistoryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load history iteration failed: %w", err)
	}
	slog.Debug("SQLiteStore.LoadHistory succeeded", "count", len(history))
	return history, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
