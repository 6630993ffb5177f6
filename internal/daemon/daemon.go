// Package daemon manages the background sync process: single-instance
// enforcement via a pid file in the cache root, the periodic scheduling
// loop, and the external stop/status control surface.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jfarrell/icloud-cli/internal/cache"
	"github.com/jfarrell/icloud-cli/internal/sync"
)

// CycleFunc runs one sync cycle and returns per-domain outcomes.
type CycleFunc func(ctx context.Context) ([]sync.Outcome, error)

// Daemon is the long-running scheduler. One instance per cache root.
type Daemon struct {
	pid      *pidFile
	interval time.Duration
	cycle    CycleFunc
	log      *slog.Logger
}

// New creates a daemon that runs cycle every interval. The interval must be
// positive.
func New(cacheDir string, interval time.Duration, cycle CycleFunc, log *slog.Logger) (*Daemon, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sync interval must be positive, got %s", interval)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Daemon{
		pid:      newPIDFile(cacheDir),
		interval: interval,
		cycle:    cycle,
		log:      log,
	}, nil
}

// Run claims the lock and loops until ctx is cancelled: one cycle, then an
// interruptible sleep. A failed cycle is logged and retried on the next
// tick; it never exits the loop. The lock is released on every return path.
//
// Callers wire ctx to SIGINT/SIGTERM via signal.NotifyContext so an
// external stop (or Ctrl+C) cancels the sleep immediately.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.pid.acquire(); err != nil {
		return err
	}
	defer func() {
		if err := d.pid.release(); err != nil {
			d.log.Warn("remove pid file", "err", err)
		}
	}()

	d.log.Info("daemon started", "interval", d.interval, "pid_file", d.pid.Path())

	timer := time.NewTimer(0) // first cycle runs immediately
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("daemon stopping")
			return nil
		case <-timer.C:
		}

		if _, err := d.cycle(ctx); err != nil {
			// Reentrance cannot happen here; anything else is a cache
			// I/O problem that the next tick may recover from.
			d.log.Warn("sync cycle failed", "err", err)
		}

		d.log.Info("next sync scheduled", "in", d.interval)
		timer.Reset(d.interval)
	}
}

// StopResult describes what Stop found and did.
type StopResult int

const (
	// Stopped: a live daemon was signalled to terminate.
	Stopped StopResult = iota
	// NotRunning: no pid file exists.
	NotRunning
	// Stale: the pid file referenced a dead process; it was removed.
	Stale
	// Corrupt: the pid file content was invalid; it was removed.
	Corrupt
)

// Stop signals the daemon recorded in the cache root's pid file. It never
// starts anything and performs no filesystem mutation when no lock exists.
func Stop(cacheDir string) (StopResult, int, error) {
	pf := newPIDFile(cacheDir)

	pid, err := pf.read()
	switch {
	case errors.Is(err, ErrNotRunning):
		return NotRunning, 0, nil
	case errors.Is(err, ErrCorruptPID):
		if rmErr := pf.release(); rmErr != nil {
			return Corrupt, 0, rmErr
		}
		return Corrupt, 0, nil
	case err != nil:
		return NotRunning, 0, err
	}

	if !isProcessAlive(pid) {
		if rmErr := pf.release(); rmErr != nil {
			return Stale, pid, rmErr
		}
		return Stale, pid, nil
	}

	if err := terminateProcess(pid); err != nil {
		return Stopped, pid, fmt.Errorf("signal pid %d: %w", pid, err)
	}
	return Stopped, pid, nil
}

// Status is a point-in-time report of the daemon and its cache.
type Status struct {
	Running   bool          `json:"running"`
	PID       int           `json:"pid,omitempty"`
	Interval  time.Duration `json:"-"`
	LastSync  string        `json:"last_sync"` // RFC 3339, or "" if never synced
	CacheRoot string        `json:"cache_root"`
}

// GetStatus reports whether a live daemon holds the lock, plus the last
// sync timestamp from the cache. Pure read. A missing or corrupt status
// document reads as "never synced"; a stale or corrupt pid file reads as
// not running (cleanup is left to start/stop).
func GetStatus(store *cache.Store, interval time.Duration) Status {
	st := Status{
		Interval:  interval,
		CacheRoot: store.Root(),
	}

	pf := newPIDFile(store.Root())
	if pid, err := pf.read(); err == nil && isProcessAlive(pid) {
		st.Running = true
		st.PID = pid
	}

	if s, err := store.ReadStatus(); err == nil {
		st.LastSync = s.Timestamp
	}

	return st
}
