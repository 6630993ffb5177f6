// Package sync runs one synchronization cycle across all data domains and
// records results in the local cache. A cycle attempts every domain
// regardless of individual failures; only after all domains have been tried
// is the status document written.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jfarrell/icloud-cli/internal/cache"
)

// Record is one synced item in domain-specific field form.
type Record map[string]any

// Adapter wraps one domain's fetcher behind a uniform contract. Sync must
// capture all fetch failures and return them as errors; it must never panic
// across its boundary.
type Adapter interface {
	Domain() string
	Sync(ctx context.Context) ([]Record, error)
}

// ErrSkipped is returned by an adapter that cannot run because it is not
// configured (notes without IMAP credentials). Skipped is not failed: the
// domain's cache document is left untouched and no warning is raised.
var ErrSkipped = errors.New("sync skipped")

// ErrCycleInProgress is returned when RunCycle is called while another
// cycle is still running. Cycles are non-reentrant.
var ErrCycleInProgress = errors.New("sync cycle already in progress")

// Status classifies a domain's outcome within one cycle.
type Status int

const (
	StatusSynced Status = iota
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusSynced:
		return "synced"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	}
	return "unknown"
}

// Outcome is one domain's result for one cycle.
type Outcome struct {
	Domain string
	Status Status
	Count  int
	Err    error
}

// Config holds orchestrator tuning knobs.
type Config struct {
	// AdapterTimeout bounds each domain's fetch. Zero means no timeout.
	AdapterTimeout time.Duration

	// Logger for cycle activity.
	Logger *slog.Logger

	// Now is the clock used for the status document timestamp.
	Now func() time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		AdapterTimeout: 2 * time.Minute,
		Logger:         slog.Default(),
		Now:            time.Now,
	}
}

// Orchestrator runs sync cycles against a cache store.
type Orchestrator struct {
	store    *cache.Store
	adapters []Adapter
	cfg      *Config

	running atomic.Bool
}

// New creates an orchestrator. Adapters are invoked in the order given.
func New(store *cache.Store, adapters []Adapter, cfg *Config) *Orchestrator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{store: store, adapters: adapters, cfg: cfg}
}

// RunCycle attempts to sync every domain, writing each successful domain's
// cache document and finally the status document. A single domain's failure
// never aborts the cycle; the returned outcomes report per-domain results.
// The returned error is non-nil only for fatal conditions: a concurrent
// cycle, an unwritable cache root, or a failed status write.
func (o *Orchestrator) RunCycle(ctx context.Context) ([]Outcome, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrCycleInProgress
	}
	defer o.running.Store(false)

	if err := o.store.EnsureRoot(); err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(o.adapters))
	for _, a := range o.adapters {
		outcomes = append(outcomes, o.syncDomain(ctx, a))
	}

	// Written unconditionally: the status records that a cycle was
	// attempted, not that every domain succeeded.
	if err := o.store.WriteStatus(o.cfg.Now()); err != nil {
		return outcomes, fmt.Errorf("write sync status: %w", err)
	}

	return outcomes, nil
}

func (o *Orchestrator) syncDomain(ctx context.Context, a Adapter) Outcome {
	domain := a.Domain()

	if o.cfg.AdapterTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.AdapterTimeout)
		defer cancel()
	}

	records, err := a.Sync(ctx)
	if err != nil {
		if errors.Is(err, ErrSkipped) {
			o.cfg.Logger.Info("sync skipped", "domain", domain)
			return Outcome{Domain: domain, Status: StatusSkipped, Err: err}
		}
		o.cfg.Logger.Warn("sync failed", "domain", domain, "err", err)
		return Outcome{Domain: domain, Status: StatusFailed, Err: err}
	}

	if err := o.store.Write(domain, records); err != nil {
		o.cfg.Logger.Warn("cache write failed", "domain", domain, "err", err)
		return Outcome{Domain: domain, Status: StatusFailed, Err: err}
	}

	o.cfg.Logger.Info("sync complete", "domain", domain, "count", len(records))
	return Outcome{Domain: domain, Status: StatusSynced, Count: len(records)}
}
