// Package health probes the aircraft database and reports whether it is
// reachable. The HTTP API exposes the report on /health.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/dreamware/acdb/internal/transport"
)

// Status is the database state as seen by the monitor.
type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// DefaultMaxFailures is the number of consecutive failed probes before the
// database is marked unhealthy.
const DefaultMaxFailures = 3

// Report is a snapshot of the probe state.
type Report struct {
	Status           Status    `json:"status"`
	Target           string    `json:"target"`
	LastCheck        time.Time `json:"last_check"`
	LastHealthy      time.Time `json:"last_healthy"`
	LastError        string    `json:"last_error,omitempty"`
	ConsecutiveFails int       `json:"consecutive_fails"`
}

// Monitor periodically fetches one database document and tracks the result.
// Thread-safe: all methods may be called concurrently.
type Monitor struct {
	fetcher     transport.Fetcher
	onChange    func(Status)
	log         logr.Logger
	path        string
	report      Report
	interval    time.Duration
	maxFailures int
	mu          sync.RWMutex
}

// NewMonitor creates a monitor probing path every interval. The probe
// bypasses the shard cache so every check reaches the server.
//
// Example:
//
//	mon := health.NewMonitor(fetcher, enrich.DefaultTypesPath, time.Minute, log)
//	go mon.Run(ctx)
func NewMonitor(fetcher transport.Fetcher, path string, interval time.Duration, log logr.Logger) *Monitor {
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Monitor{
		fetcher:     fetcher,
		path:        path,
		interval:    interval,
		maxFailures: DefaultMaxFailures,
		log:         log.WithName("health"),
		report:      Report{Status: StatusUnknown, Target: path},
	}
}

// SetOnChange registers a callback invoked when the status changes. The
// callback runs without the monitor's lock held.
func (m *Monitor) SetOnChange(fn func(Status)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Run checks immediately, then every interval, until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.log.Info("health monitor started", "target", m.path, "interval", m.interval)
	m.Check(ctx)

	for {
		select {
		case <-ticker.C:
			m.Check(ctx)
		case <-ctx.Done():
			m.log.Info("health monitor stopped")
			return
		}
	}
}

// Check performs one probe, updates the report and returns the probe error.
func (m *Monitor) Check(ctx context.Context) error {
	_, err := m.fetcher.GetJSON(ctx, m.path)
	now := time.Now()

	m.mu.Lock()
	prev := m.report.Status
	m.report.LastCheck = now
	if err != nil {
		m.report.ConsecutiveFails++
		m.report.LastError = err.Error()
		m.log.V(1).Info("probe failed", "attempt", m.report.ConsecutiveFails, "max", m.maxFailures, "err", err.Error())
		if m.report.ConsecutiveFails >= m.maxFailures {
			m.report.Status = StatusUnhealthy
		}
	} else {
		m.report.Status = StatusHealthy
		m.report.ConsecutiveFails = 0
		m.report.LastError = ""
		m.report.LastHealthy = now
	}
	next := m.report.Status
	onChange := m.onChange
	m.mu.Unlock()

	if next != prev {
		if next == StatusUnhealthy {
			m.log.Error(err, "database marked unhealthy", "target", m.path)
		} else {
			m.log.Info("database status changed", "from", prev, "to", next)
		}
		if onChange != nil {
			onChange(next)
		}
	}
	return err
}

// Report returns a copy of the current state.
func (m *Monitor) Report() Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.report
}

// Healthy reports whether the database has not been marked unhealthy.
// A monitor that has not completed a probe yet counts as healthy.
func (m *Monitor) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.report.Status != StatusUnhealthy
}
