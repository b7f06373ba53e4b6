// Package engine provides the history ledger: a durable, bounded,
// append-only audit trail of confirmed validations.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/edustack/valsync/internal/events"
	"github.com/edustack/valsync/internal/models"
)

// History returns ledger entries most-recent-first, truncated to limit.
// A non-positive limit returns the full ledger.
func (e *Engine) History(limit int) []models.HistoryRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.history)
	if limit > 0 && limit < n {
		n = limit
	}
	return append([]models.HistoryRecord(nil), e.history[:n]...)
}

// HistoryCount returns the number of ledger entries.
func (e *Engine) HistoryCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.history)
}

// ClearHistory empties the ledger. Explicit operator action; the sync queue
// is unaffected.
func (e *Engine) ClearHistory() error {
	e.mu.Lock()
	if err := e.store.SaveHistory(nil); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("clear history: %w", err)
	}
	dropped := len(e.history)
	e.history = nil
	e.mu.Unlock()

	slog.Info("Engine.ClearHistory: history cleared", "dropped", dropped)
	e.notifier.Publish(events.Event{Type: events.EventHistoryChanged, At: e.clock.Now()})
	return nil
}

// appendBounded returns a new ledger with rec at the front, evicting from
// the tail when the bound is exceeded. Eviction always removes the oldest
// entry first. Caller holds e.mu.
func (e *Engine) appendBounded(rec models.HistoryRecord) []models.HistoryRecord {
	newHistory := make([]models.HistoryRecord, 0, len(e.history)+1)
	newHistory = append(newHistory, rec)
	newHistory = append(newHistory, e.history...)
	if len(newHistory) > e.historyLimit {
		newHistory = newHistory[:e.historyLimit]
	}
	return newHistory
}

// historyContains reports whether the ledger already holds an entry for the
// given request id. Caller holds e.mu.
func (e *Engine) historyContains(id string) bool {
	for _, rec := range e.history {
		if rec.ID == id {
			return true
		}
	}
	return false
}
