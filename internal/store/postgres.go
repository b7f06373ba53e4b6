// Package store provides storage backends for valsync.
//
// This file implements a PostgreSQL-backed store for branch-server
// deployments where a local Postgres instance is available.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/edustack/valsync/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// SaveQueue replaces the persisted queue snapshot inside one transaction.
func (s *PostgresStore) SaveQueue(queue []models.ValidationRequest) error {
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
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
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
	slog.Debug("PostgresStore.SaveQueue succeeded", "count", len(queue))
	return nil
}

// LoadQueue returns the persisted queue in enqueue order.
func (s *PostgresStore) LoadQueue() ([]models.ValidationRequest, error) {
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
	return queue, nil
}

// SaveHistory replaces the persisted history snapshot, most-recent-first.
func (s *PostgresStore) SaveHistory(history []models.HistoryRecord) error {
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
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
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
	slog.Debug("PostgresStore.SaveHistory succeeded", "count", len(history))
	return nil
}

// LoadHistory returns the persisted history, most-recent-first.
func (s *PostgresStore) LoadHistory() ([]models.HistoryRecord, error) {
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
	return history, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
