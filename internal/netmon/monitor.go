// Package netmon tracks server reachability and the current sync
// activity state, and fans both out to subscribers.
package netmon

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Status is the coarse sync state surfaced to status displays
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusError   Status = "error"
	StatusOffline Status = "offline"
)

// Snapshot is the state delivered to listeners
type Snapshot struct {
	Online bool
	Status Status
}

// Listener receives state snapshots. Invoked once immediately on
// subscribe, then on every change.
type Listener func(Snapshot)

// HealthChecker is the probe dependency, satisfied by the sync client
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Monitor holds connectivity and sync state. Safe for concurrent use.
type Monitor struct {
	mu        sync.Mutex
	online    bool
	status    Status
	listeners map[int]Listener
	nextID    int
}

// New returns a monitor that starts offline and idle
func New() *Monitor {
	return &Monitor{
		status:    StatusOffline,
		listeners: make(map[int]Listener),
	}
}

// IsOnline reports current connectivity
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Status returns the current sync state
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// AddListener subscribes fn to state changes and returns an
// unsubscribe func. fn is invoked once with the current state before
// AddListener returns.
func (m *Monitor) AddListener(fn Listener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	snap := Snapshot{Online: m.online, Status: m.status}
	m.mu.Unlock()

	fn(snap)

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// SetOnline records a connectivity transition. Going offline forces
// status to offline; coming back online restores idle unless a sync is
// running.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	if !online {
		m.status = StatusOffline
	} else if m.status == StatusOffline {
		m.status = StatusIdle
	}
	snap := Snapshot{Online: m.online, Status: m.status}
	fns := m.listenersLocked()
	m.mu.Unlock()

	slog.Debug("connectivity changed", "online", online)
	for _, fn := range fns {
		fn(snap)
	}
}

// SetStatus records a sync state transition
func (m *Monitor) SetStatus(status Status) {
	m.mu.Lock()
	if m.status == status {
		m.mu.Unlock()
		return
	}
	m.status = status
	snap := Snapshot{Online: m.online, Status: m.status}
	fns := m.listenersLocked()
	m.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (m *Monitor) listenersLocked() []Listener {
	fns := make([]Listener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	return fns
}

// StartProbe polls the server health endpoint until ctx is cancelled,
// feeding reachability transitions into the monitor. The first probe
// runs immediately.
func (m *Monitor) StartProbe(ctx context.Context, hc HealthChecker, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	probe := func() {
		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		err := hc.HealthCheck(probeCtx)
		m.SetOnline(err == nil)
		if err != nil {
			slog.Debug("health probe failed", "error", err)
		}
	}

	go func() {
		probe()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				probe()
			case <-ctx.Done():
				return
			}
		}
	}()
}
