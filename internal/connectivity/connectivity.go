// Package connectivity maintains the reachability signal for the remote
// validation gateway.
//
// Monitors emit edge transitions only, never level-triggered repeats. The
// engine depends on the Monitor interface; the probing implementation is an
// environment detail.
package connectivity

import (
	"log/slog"
	"sync"
)

// Monitor exposes the boolean reachability signal and edge subscriptions.
type Monitor interface {
	// IsReachable reports whether the remote gateway is currently callable.
	IsReachable() bool
	// OnBecameReachable registers a callback for unreachable -> reachable
	// transitions.
	OnBecameReachable(fn func())
	// OnBecameUnreachable registers a callback for reachable -> unreachable
	// transitions.
	OnBecameUnreachable(fn func())
}

// Compile-time check that ManualMonitor implements Monitor.
var _ Monitor = (*ManualMonitor)(nil)

// ManualMonitor is a Monitor whose state is set by the host: tests, or
// applications that receive a platform connectivity signal directly.
type ManualMonitor struct {
	mu        sync.Mutex
	reachable bool
	onUp      []func()
	onDown    []func()
}

// NewManualMonitor creates a monitor with the given initial state. No edge
// callbacks fire for the initial state.
func NewManualMonitor(reachable bool) *ManualMonitor {
	return &ManualMonitor{reachable: reachable}
}

func (m *ManualMonitor) IsReachable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reachable
}

func (m *ManualMonitor) OnBecameReachable(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUp = append(m.onUp, fn)
}

func (m *ManualMonitor) OnBecameUnreachable(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDown = append(m.onDown, fn)
}

// SetReachable updates the state. Callbacks fire only on an actual edge;
// repeated sets of the same level are no-ops.
func (m *ManualMonitor) SetReachable(reachable bool) {
	m.mu.Lock()
	if m.reachable == reachable {
		m.mu.Unlock()
		return
	}
	m.reachable = reachable
	var fns []func()
	if reachable {
		fns = append(fns, m.onUp...)
	} else {
		fns = append(fns, m.onDown...)
	}
	m.mu.Unlock()

	slog.Debug("ManualMonitor.SetReachable: edge transition", "reachable", reachable, "callbacks", len(fns))
	for _, fn := range fns {
		fn()
	}
}
