// Package store provides durable storage backends for the valsync engine.
//
// The engine persists the pending sync queue and the completed history as
// whole snapshots. On restart, LoadQueue and LoadHistory reconstruct state
// exactly as last durably saved.
package store

import "github.com/edustack/valsync/internal/models"

// Store defines the durable persistence contract for the sync engine.
// The engine is the single writer; saves replace the previous snapshot.
type Store interface {
	// SaveQueue durably replaces the persisted sync queue snapshot.
	SaveQueue(queue []models.ValidationRequest) error

	// LoadQueue returns the persisted sync queue in enqueue order.
	LoadQueue() ([]models.ValidationRequest, error)

	// SaveHistory durably replaces the persisted history snapshot,
	// most-recent-first.
	SaveHistory(history []models.HistoryRecord) error

	// LoadHistory returns the persisted history, most-recent-first.
	LoadHistory() ([]models.HistoryRecord, error)

	// Close releases any resources held by the store.
	Close() error
}

// Opts holds configuration values for store constructors.
type Opts struct {
	// DSN is the data source name: a file path for SQLite, a connection
	// string for Postgres.
	DSN string
}

// Option configures store construction.
type Option func(*Opts)

// WithDSN sets the data source name.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}
