// Package engine provides sync queue operations.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/edustack/valsync/internal/events"
	"github.com/edustack/valsync/internal/models"
	"github.com/edustack/valsync/internal/util"
)

// Enqueue records a validation action for later delivery. It validates the
// request against the closed kind/action sets and the payload schema,
// persists the queue, and returns the assigned request id. It never blocks
// on network reachability; a persistence failure surfaces as an error and
// the action is not queued.
func (e *Engine) Enqueue(kind models.ValidationKind, itemID string, action models.ValidationAction, actor models.Actor, payload models.Payload) (string, error) {
	if !models.IsValidKind(kind) {
		return "", fmt.Errorf("%w: %s", models.ErrInvalidKind, kind)
	}
	if !models.IsValidAction(action) {
		return "", fmt.Errorf("%w: %s", models.ErrInvalidAction, action)
	}
	if itemID == "" {
		return "", models.ErrEmptyItemID
	}
	if actor.UserID == "" {
		return "", models.ErrMissingActor
	}
	if payload == nil {
		return "", models.ErrNilPayload
	}
	if payload.Kind() != kind {
		return "", fmt.Errorf("%w: payload is %s, request is %s", models.ErrPayloadKind, payload.Kind(), kind)
	}
	if err := models.ValidateForAction(payload, action); err != nil {
		return "", err
	}

	payloadJSON, err := models.EncodePayload(payload)
	if err != nil {
		return "", err
	}

	req := models.ValidationRequest{
		ID:          util.GenerateRequestID(),
		Kind:        kind,
		ItemID:      itemID,
		Action:      action,
		Actor:       actor,
		PayloadJSON: payloadJSON,
		EnqueuedAt:  e.clock.Now(),
		Status:      models.StatusPending,
	}

	e.mu.Lock()
	newQueue := append(append([]models.ValidationRequest(nil), e.queue...), req)
	if err := e.store.SaveQueue(newQueue); err != nil {
		e.mu.Unlock()
		slog.Error("Engine.Enqueue: persistence failed, action not queued", "id", req.ID, "itemID", itemID, "error", err)
		return "", fmt.Errorf("enqueue validation for %s: %w", itemID, err)
	}
	e.queue = newQueue
	e.mu.Unlock()

	slog.Info("Engine.Enqueue: validation queued", "id", req.ID, "kind", kind, "itemID", itemID, "action", action, "actor", actor.UserID)
	e.notifier.Publish(events.Event{Type: events.EventQueueChanged, At: e.clock.Now()})
	e.scheduleDebouncedSync()
	return req.ID, nil
}

// Drainable returns all pending entries in enqueue order. Failed entries are
// excluded until explicitly retried.
func (e *Engine) Drainable() []models.ValidationRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	var batch []models.ValidationRequest
	for _, req := range e.queue {
		if req.Status == models.StatusPending {
			batch = append(batch, req)
		}
	}
	return batch
}

// markSucceeded promotes a request into the history ledger and removes it
// from the queue. The two in-memory mutations happen under one lock so no
// reader observes the request in neither collection. The ledger write is
// persisted before the queue write: a crash between the two leaves the item
// in both, which re-delivery (idempotent server-side) and the ledger's
// duplicate check resolve without loss.
func (e *Engine) markSucceeded(id string) {
	e.mu.Lock()
	idx := e.indexOf(id)
	if idx < 0 {
		// Queue was cleared mid-cycle.
		e.mu.Unlock()
		slog.Warn("Engine.markSucceeded: request no longer queued", "id", id)
		return
	}
	req := e.queue[idx]

	historyChanged := false
	if !e.historyContains(id) {
		rec := models.HistoryRecord{
			ID:        req.ID,
			ItemID:    req.ItemID,
			Kind:      req.Kind,
			Action:    req.Action,
			Actor:     req.Actor,
			Timestamp: e.clock.Now(),
			Comment:   displayComment(req),
			Origin:    models.OriginSynced,
		}
		newHistory := e.appendBounded(rec)
		if err := e.store.SaveHistory(newHistory); err != nil {
			// Leave the request queued; the next cycle resubmits it.
			e.mu.Unlock()
			slog.Error("Engine.markSucceeded: history persistence failed, request stays queued", "id", id, "error", err)
			return
		}
		e.history = newHistory
		historyChanged = true
	}

	newQueue := append(append([]models.ValidationRequest(nil), e.queue[:idx]...), e.queue[idx+1:]...)
	if err := e.store.SaveQueue(newQueue); err != nil {
		// The record is already in durable history; keep the in-memory
		// removal so readers see a consistent promotion. After a restart the
		// stale queue entry is resubmitted and the duplicate check skips a
		// second ledger append.
		slog.Error("Engine.markSucceeded: queue persistence failed after promotion", "id", id, "error", err)
	}
	e.queue = newQueue
	e.mu.Unlock()

	e.notifier.Publish(events.Event{Type: events.EventItemSucceeded, RequestID: id, At: e.clock.Now()})
	e.notifier.Publish(events.Event{Type: events.EventQueueChanged, At: e.clock.Now()})
	if historyChanged {
		e.notifier.Publish(events.Event{Type: events.EventHistoryChanged, At: e.clock.Now()})
	}
}

// markFailed increments retry bookkeeping for a failed delivery. Once the
// retry ceiling is reached the request is marked failed and excluded from
// automatic drains until RetryFailed is called.
func (e *Engine) markFailed(id string, cause error) {
	e.mu.Lock()
	idx := e.indexOf(id)
	if idx < 0 {
		e.mu.Unlock()
		slog.Warn("Engine.markFailed: request no longer queued", "id", id)
		return
	}

	newQueue := append([]models.ValidationRequest(nil), e.queue...)
	req := &newQueue[idx]
	req.RetryCount++
	req.LastError = cause.Error()
	if req.RetryCount >= e.maxRetries {
		req.Status = models.StatusFailed
		slog.Warn("Engine.markFailed: retry ceiling reached", "id", id, "retryCount", req.RetryCount, "maxRetries", e.maxRetries)
	}

	if err := e.store.SaveQueue(newQueue); err != nil {
		slog.Error("Engine.markFailed: queue persistence failed", "id", id, "error", err)
	}
	e.queue = newQueue
	e.mu.Unlock()

	e.notifier.Publish(events.Event{Type: events.EventItemFailed, RequestID: id, Err: cause.Error(), At: e.clock.Now()})
	e.notifier.Publish(events.Event{Type: events.EventQueueChanged, At: e.clock.Now()})
}

// RetryFailed resets every failed entry to pending with a fresh retry budget
// and, if the gateway is currently reachable, triggers an immediate drain.
func (e *Engine) RetryFailed() error {
	e.mu.Lock()
	newQueue := append([]models.ValidationRequest(nil), e.queue...)
	reset := 0
	for i := range newQueue {
		if newQueue[i].Status == models.StatusFailed {
			newQueue[i].Status = models.StatusPending
			newQueue[i].RetryCount = 0
			newQueue[i].LastError = ""
			reset++
		}
	}
	if reset == 0 {
		e.mu.Unlock()
		return nil
	}
	if err := e.store.SaveQueue(newQueue); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("retry failed requests: %w", err)
	}
	e.queue = newQueue
	e.mu.Unlock()

	slog.Info("Engine.RetryFailed: failed requests reset", "count", reset)
	e.notifier.Publish(events.Event{Type: events.EventQueueChanged, At: e.clock.Now()})
	if e.monitor.IsReachable() {
		e.requestSync()
	}
	return nil
}

// ClearQueue empties the queue without producing history records. Data loss
// is intentional; callers must treat this as a deliberate operator action.
func (e *Engine) ClearQueue() error {
	e.mu.Lock()
	if err := e.store.SaveQueue(nil); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("clear queue: %w", err)
	}
	dropped := len(e.queue)
	e.queue = nil
	e.mu.Unlock()

	slog.Info("Engine.ClearQueue: queue cleared", "dropped", dropped)
	e.notifier.Publish(events.Event{Type: events.EventQueueChanged, At: e.clock.Now()})
	return nil
}

// Queue returns a snapshot of the current queue in enqueue order.
func (e *Engine) Queue() []models.ValidationRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.ValidationRequest(nil), e.queue...)
}

// PendingCount returns the number of entries awaiting delivery.
func (e *Engine) PendingCount() int {
	return e.countStatus(models.StatusPending)
}

// FailedCount returns the number of entries that exhausted their retries.
// Consumers are expected to surface a non-zero count prominently.
func (e *Engine) FailedCount() int {
	return e.countStatus(models.StatusFailed)
}

func (e *Engine) countStatus(status models.RequestStatus) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, req := range e.queue {
		if req.Status == status {
			n++
		}
	}
	return n
}

// indexOf returns the queue position of a request id. Caller holds e.mu.
func (e *Engine) indexOf(id string) int {
	for i, req := range e.queue {
		if req.ID == id {
			return i
		}
	}
	return -1
}

// displayComment extracts the display subset of a request's payload. A
// payload that no longer decodes yields an empty comment rather than an
// error; the ledger entry is still written.
func displayComment(req models.ValidationRequest) string {
	payload, err := models.DecodePayload(req.Kind, req.PayloadJSON)
	if err != nil {
		slog.Warn("displayComment: payload undecodable", "id", req.ID, "error", err)
		return ""
	}
	return payload.DisplayComment()
}
