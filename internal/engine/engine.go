// Package engine implements the offline validation synchronization engine.
//
// The engine owns the sync queue and the history ledger exclusively. All
// mutations happen inside one mutex-guarded critical section, while gateway
// submissions run on a single drain goroutine outside that lock so enqueue
// callers never wait on a network round trip.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/edustack/valsync/internal/connectivity"
	"github.com/edustack/valsync/internal/events"
	"github.com/edustack/valsync/internal/gateway"
	"github.com/edustack/valsync/internal/models"
	"github.com/edustack/valsync/internal/store"
)

// Default engine configuration.
const (
	// DefaultMaxRetries is the delivery attempt ceiling per request.
	DefaultMaxRetries = 3
	// DefaultHistoryLimit bounds the history ledger.
	DefaultHistoryLimit = 1000
	// DefaultSyncInterval is the periodic drain interval.
	DefaultSyncInterval = 30 * time.Second
	// DefaultDebounceDelay is how long a drain is deferred after an enqueue
	// so a burst of offline actions triggers a single cycle.
	DefaultDebounceDelay = 2 * time.Second
	// DefaultSubmitTimeout bounds a single gateway submission.
	DefaultSubmitTimeout = 15 * time.Second
)

// Engine is the offline validation sync engine.
type Engine struct {
	store    store.Store
	gateway  gateway.Gateway
	monitor  connectivity.Monitor
	notifier *events.Notifier
	clock    Clock

	maxRetries    int
	historyLimit  int
	syncInterval  time.Duration
	debounceDelay time.Duration
	submitTimeout time.Duration

	// mu guards queue and history. Never held across a gateway submission.
	mu      sync.Mutex
	queue   []models.ValidationRequest
	history []models.HistoryRecord

	// kick coalesces drain triggers; capacity 1 so overlapping triggers
	// collapse into a single pending cycle.
	kick chan struct{}

	debounceMu    sync.Mutex
	debounceTimer Timer
}

// Option configures engine construction.
type Option func(*Engine)

// WithClock injects a Clock (tests use FakeClock).
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithNotifier injects a shared event notifier.
func WithNotifier(n *events.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithMaxRetries sets the delivery attempt ceiling per request.
func WithMaxRetries(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxRetries = n
		}
	}
}

// WithHistoryLimit sets the history ledger bound.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.historyLimit = n
		}
	}
}

// WithSyncInterval sets the periodic drain interval.
func WithSyncInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.syncInterval = d
		}
	}
}

// WithDebounceDelay sets the post-enqueue drain debounce.
func WithDebounceDelay(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.debounceDelay = d
		}
	}
}

// WithSubmitTimeout bounds each gateway submission.
func WithSubmitTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.submitTimeout = d
		}
	}
}

// New creates an engine with injected collaborators and reloads the queue
// and history from the durable store, reconstructing state exactly as last
// saved.
func New(st store.Store, gw gateway.Gateway, mon connectivity.Monitor, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:         st,
		gateway:       gw,
		monitor:       mon,
		maxRetries:    DefaultMaxRetries,
		historyLimit:  DefaultHistoryLimit,
		syncInterval:  DefaultSyncInterval,
		debounceDelay: DefaultDebounceDelay,
		submitTimeout: DefaultSubmitTimeout,
		kick:          make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.clock == nil {
		e.clock = NewRealClock()
	}
	if e.notifier == nil {
		e.notifier = events.NewNotifier()
	}

	queue, err := st.LoadQueue()
	if err != nil {
		return nil, err
	}
	history, err := st.LoadHistory()
	if err != nil {
		return nil, err
	}
	e.queue = queue
	e.history = history

	// Edge-triggered reachability transition starts a drain cycle.
	mon.OnBecameReachable(func() {
		slog.Info("Engine: gateway became reachable, requesting sync")
		e.requestSync()
	})

	slog.Info("Engine.New: state reloaded", "pending", e.PendingCount(), "failed", e.FailedCount(), "history", len(history))
	return e, nil
}

// Subscribe registers a handler for an engine event type and returns an
// unsubscribe function.
func (e *Engine) Subscribe(t events.EventType, h events.Handler) func() {
	return e.notifier.Subscribe(t, h)
}

// ForceSync requests a drain cycle. It never blocks; if a cycle is already
// in flight or pending, the request coalesces with it.
func (e *Engine) ForceSync() {
	slog.Debug("Engine.ForceSync: sync requested")
	e.requestSync()
}

// Run starts the drain loop. It blocks until the context is cancelled.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("Engine.Run: starting sync loop", "syncInterval", e.syncInterval, "maxRetries", e.maxRetries)

	ticker := e.clock.NewTicker(e.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Engine.Run: stopping")
			e.stopDebounce()
			return
		case <-ticker.Chan():
			e.drain(ctx)
		case <-e.kick:
			e.drain(ctx)
		}
	}
}

// requestSync arms the drain trigger without blocking.
func (e *Engine) requestSync() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// scheduleDebouncedSync (re)arms the post-enqueue debounce timer. Each new
// enqueue pushes the deadline out so a burst collapses to one cycle.
func (e *Engine) scheduleDebouncedSync() {
	e.debounceMu.Lock()
	defer e.debounceMu.Unlock()
	if e.debounceTimer != nil {
		e.debounceTimer.Stop()
	}
	e.debounceTimer = e.clock.AfterFunc(e.debounceDelay, e.requestSync)
}

func (e *Engine) stopDebounce() {
	e.debounceMu.Lock()
	defer e.debounceMu.Unlock()
	if e.debounceTimer != nil {
		e.debounceTimer.Stop()
		e.debounceTimer = nil
	}
}

// drain runs one delivery pass. Only the Run goroutine calls it, so no two
// drains ever overlap. Items are submitted sequentially in enqueue order:
// later actions on the same item may depend on earlier ones having landed.
func (e *Engine) drain(ctx context.Context) {
	if !e.monitor.IsReachable() {
		slog.Debug("Engine.drain: gateway unreachable, skipping cycle")
		return
	}

	batch := e.Drainable()
	e.notifier.Publish(events.Event{Type: events.EventSyncStarted, At: e.clock.Now()})
	slog.Debug("Engine.drain: cycle started", "drainable", len(batch))

	for _, req := range batch {
		if ctx.Err() != nil {
			break
		}
		submitCtx, cancel := context.WithTimeout(ctx, e.submitTimeout)
		err := e.gateway.Submit(submitCtx, req)
		cancel()

		if err != nil {
			slog.Warn("Engine.drain: submission failed", "id", req.ID, "itemID", req.ItemID, "error", err)
			e.markFailed(req.ID, err)
			continue
		}
		slog.Debug("Engine.drain: submission confirmed", "id", req.ID, "itemID", req.ItemID)
		e.markSucceeded(req.ID)
	}

	e.notifier.Publish(events.Event{Type: events.EventSyncEnded, At: e.clock.Now()})
	slog.Debug("Engine.drain: cycle ended")
}
