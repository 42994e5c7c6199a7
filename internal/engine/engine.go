// Package engine drains the local mutation queue against the server,
// uploads captured evidence, and reconciles server data back into the
// local mirror.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marcus/fieldsync/internal/netmon"
	"github.com/marcus/fieldsync/internal/store"
	"github.com/marcus/fieldsync/internal/syncclient"
)

// Engine coordinates sync passes. One instance per process; TriggerSync
// is single-flight.
type Engine struct {
	store  *store.Store
	client *syncclient.Client
	mon    *netmon.Monitor

	now               func() time.Time
	maxRetries        int
	maxUploadAttempts int
	deviceID          string

	inFlight atomic.Bool

	autoMu     sync.Mutex
	autoCancel context.CancelFunc
	autoUnsub  func()
}

// Option configures an Engine
type Option func(*Engine)

// WithClock injects a time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMaxRetries caps queue entry retries before abandonment
func WithMaxRetries(n int) Option {
	return func(e *Engine) { e.maxRetries = n }
}

// WithMaxUploadAttempts caps evidence upload attempts
func WithMaxUploadAttempts(n int) Option {
	return func(e *Engine) { e.maxUploadAttempts = n }
}

// WithDeviceID tags sync history rows with the device identity
func WithDeviceID(id string) Option {
	return func(e *Engine) { e.deviceID = id }
}

// New constructs an engine
func New(s *store.Store, c *syncclient.Client, mon *netmon.Monitor, opts ...Option) *Engine {
	e := &Engine{
		store:             s,
		client:            c,
		mon:               mon,
		now:               time.Now,
		maxRetries:        defaultMaxRetries,
		maxUploadAttempts: defaultMaxUploadAttempts,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TriggerSync runs one full sync pass: drain the mutation queue, then
// upload evidence. Returns immediately with an explanatory result when
// offline or when a pass is already running.
func (e *Engine) TriggerSync(ctx context.Context) (*Result, error) {
	res := &Result{StartedAt: e.now()}

	if !e.mon.IsOnline() {
		res.Errors = append(res.Errors, "Network unavailable")
		res.FinishedAt = e.now()
		return res, nil
	}

	if !e.inFlight.CompareAndSwap(false, true) {
		res.Errors = append(res.Errors, "Sync already in progress")
		res.FinishedAt = e.now()
		return res, nil
	}
	defer e.inFlight.Store(false)

	e.mon.SetStatus(netmon.StatusSyncing)
	slog.Info("sync started")

	queueErr := e.processQueue(ctx, res)
	uploadErr := e.uploadEvidence(ctx, res)

	res.Success = res.FailedItems == 0
	res.FinishedAt = e.now()

	// Per-item failures are contained outcomes, already counted in the
	// result; the error status is reserved for a pass that could not
	// read its own work out of the store.
	if queueErr != nil || uploadErr != nil {
		e.mon.SetStatus(netmon.StatusError)
	} else {
		e.mon.SetStatus(netmon.StatusIdle)
	}

	slog.Info("sync finished",
		"synced", res.SyncedItems,
		"failed", res.FailedItems,
		"duration", res.FinishedAt.Sub(res.StartedAt))

	return res, nil
}

// StartAutoSync begins periodic sync passes. A pass also fires
// whenever the monitor reports a transition back online, including
// immediately if the monitor is already online. Calling it again
// replaces the previous schedule.
func (e *Engine) StartAutoSync(interval time.Duration) {
	if interval <= 0 {
		interval = defaultAutoSyncInterval
	}

	e.autoMu.Lock()
	defer e.autoMu.Unlock()

	e.stopAutoSyncLocked()

	ctx, cancel := context.WithCancel(context.Background())
	e.autoCancel = cancel

	kick := make(chan struct{}, 1)
	e.autoUnsub = e.mon.AddListener(func(s netmon.Snapshot) {
		if s.Online {
			select {
			case kick <- struct{}{}:
			default:
			}
		}
	})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			case <-kick:
			}
			if _, err := e.TriggerSync(ctx); err != nil {
				slog.Warn("auto-sync pass failed", "error", err)
			}
		}
	}()

	slog.Debug("auto-sync started", "interval", interval)
}

// StopAutoSync cancels the periodic schedule. Safe to call when
// auto-sync is not running.
func (e *Engine) StopAutoSync() {
	e.autoMu.Lock()
	defer e.autoMu.Unlock()
	e.stopAutoSyncLocked()
}

func (e *Engine) stopAutoSyncLocked() {
	if e.autoCancel != nil {
		e.autoCancel()
		e.autoCancel = nil
	}
	if e.autoUnsub != nil {
		e.autoUnsub()
		e.autoUnsub = nil
	}
}

// parseServerTime decodes the timestamp formats the server emits,
// falling back to the current clock so a malformed timestamp never
// blocks a sync.
func (e *Engine) parseServerTime(v string) time.Time {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return e.now()
}
