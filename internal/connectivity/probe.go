// Package connectivity provides the HTTP health probe Monitor implementation.
package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Default probe configuration.
const (
	// DefaultProbeInterval is how often the health endpoint is probed.
	DefaultProbeInterval = 15 * time.Second
	// DefaultProbeTimeout bounds a single probe request.
	DefaultProbeTimeout = 5 * time.Second
)

// Compile-time check that HTTPProbe implements Monitor.
var _ Monitor = (*HTTPProbe)(nil)

// HTTPProbe periodically issues HEAD requests against a health URL and
// derives the reachability signal from the result. Edge callbacks are
// delegated to an embedded ManualMonitor so the transition logic exists in
// one place.
type HTTPProbe struct {
	state     *ManualMonitor
	healthURL string
	interval  time.Duration
	timeout   time.Duration
	client    *http.Client
}

// NewHTTPProbe creates a probe against the given health URL. A non-positive
// interval falls back to DefaultProbeInterval. The monitor starts
// unreachable until the first successful probe.
func NewHTTPProbe(healthURL string, interval time.Duration) *HTTPProbe {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &HTTPProbe{
		state:     NewManualMonitor(false),
		healthURL: healthURL,
		interval:  interval,
		timeout:   DefaultProbeTimeout,
		client:    http.DefaultClient,
	}
}

func (p *HTTPProbe) IsReachable() bool { return p.state.IsReachable() }

func (p *HTTPProbe) OnBecameReachable(fn func()) { p.state.OnBecameReachable(fn) }

func (p *HTTPProbe) OnBecameUnreachable(fn func()) { p.state.OnBecameUnreachable(fn) }

// Run starts the probe loop. It probes once immediately, then on every tick,
// and blocks until the context is cancelled.
func (p *HTTPProbe) Run(ctx context.Context) {
	slog.Info("HTTPProbe.Run: starting connectivity probe", "url", p.healthURL, "interval", p.interval)

	p.probe(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("HTTPProbe.Run: stopping")
			return
		case <-ticker.C:
			p.probe(ctx)
		}
	}
}

func (p *HTTPProbe) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, p.healthURL, nil)
	if err != nil {
		slog.Error("HTTPProbe.probe: failed to build request", "error", err)
		p.state.SetReachable(false)
		return
	}

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Debug("HTTPProbe.probe: gateway unreachable", "error", err)
		p.state.SetReachable(false)
		return
	}
	resp.Body.Close()

	reachable := resp.StatusCode < 500
	slog.Debug("HTTPProbe.probe: probe completed", "status", resp.StatusCode, "reachable", reachable)
	p.state.SetReachable(reachable)
}
