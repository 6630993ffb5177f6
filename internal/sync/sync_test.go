package sync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jfarrell/icloud-cli/internal/cache"
)

type stubAdapter struct {
	domain  string
	records []Record
	err     error
	block   chan struct{} // if set, Sync waits until closed
}

func (s *stubAdapter) Domain() string { return s.domain }

func (s *stubAdapter) Sync(ctx context.Context) ([]Record, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.records, s.err
}

func quietConfig() *Config {
	cfg := DefaultConfig()
	cfg.Logger = slog.New(slog.DiscardHandler)
	return cfg
}

func records(n int) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{"id": i}
	}
	return out
}

func TestCycleFaultIsolation(t *testing.T) {
	store := cache.New(t.TempDir())

	// Pre-existing reminders document must survive the failed fetch.
	prior := []Record{{"id": "old-1"}, {"id": "old-2"}}
	if err := store.Write("reminders", prior); err != nil {
		t.Fatalf("seed reminders: %v", err)
	}

	adapters := []Adapter{
		&stubAdapter{domain: "calendar", records: records(3)},
		&stubAdapter{domain: "reminders", err: errors.New("rate limited")},
		&stubAdapter{domain: "notes", err: ErrSkipped},
		&stubAdapter{domain: "devices", records: records(1)},
	}

	o := New(store, adapters, quietConfig())
	outcomes, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}

	want := []struct {
		domain string
		status Status
		count  int
	}{
		{"calendar", StatusSynced, 3},
		{"reminders", StatusFailed, 0},
		{"notes", StatusSkipped, 0},
		{"devices", StatusSynced, 1},
	}
	if len(outcomes) != len(want) {
		t.Fatalf("got %d outcomes, want %d", len(outcomes), len(want))
	}
	for i, w := range want {
		got := outcomes[i]
		if got.Domain != w.domain || got.Status != w.status || got.Count != w.count {
			t.Errorf("outcome[%d] = %+v, want %+v", i, got, w)
		}
	}

	var cal []Record
	if err := store.Read("calendar", &cal); err != nil || len(cal) != 3 {
		t.Errorf("calendar.json: %v (%d records)", err, len(cal))
	}

	// Failed domain's document is unchanged, not overwritten with empty.
	var rem []Record
	if err := store.Read("reminders", &rem); err != nil {
		t.Fatalf("reminders.json: %v", err)
	}
	if len(rem) != 2 || rem[0]["id"] != "old-1" {
		t.Errorf("reminders.json was touched: %v", rem)
	}

	// Skipped domain writes nothing.
	if store.Exists("notes") {
		t.Error("notes.json should not exist after skip")
	}

	var dev []Record
	if err := store.Read("devices", &dev); err != nil || len(dev) != 1 {
		t.Errorf("devices.json: %v (%d records)", err, len(dev))
	}

	if _, err := store.ReadStatus(); err != nil {
		t.Errorf("last_sync.json: %v", err)
	}
}

func TestStatusWrittenWhenAllDomainsFail(t *testing.T) {
	store := cache.New(t.TempDir())

	adapters := []Adapter{
		&stubAdapter{domain: "calendar", err: errors.New("down")},
		&stubAdapter{domain: "reminders", err: errors.New("down")},
		&stubAdapter{domain: "notes", err: errors.New("down")},
		&stubAdapter{domain: "devices", err: errors.New("down")},
	}

	cfg := quietConfig()
	cycleEnd := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	cfg.Now = func() time.Time { return cycleEnd }

	o := New(store, adapters, cfg)
	outcomes, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	for _, oc := range outcomes {
		if oc.Status != StatusFailed {
			t.Errorf("%s status = %v, want failed", oc.Domain, oc.Status)
		}
	}

	st, err := store.ReadStatus()
	if err != nil {
		t.Fatalf("read status: %v", err)
	}
	if st.Timestamp != cycleEnd.Format(time.RFC3339) {
		t.Errorf("timestamp = %q", st.Timestamp)
	}
}

func TestCycleNonReentrant(t *testing.T) {
	store := cache.New(t.TempDir())

	block := make(chan struct{})
	o := New(store, []Adapter{&stubAdapter{domain: "calendar", block: block}}, quietConfig())

	var wg sync.WaitGroup
	wg.Add(1)
	started := make(chan struct{})
	go func() {
		defer wg.Done()
		close(started)
		if _, err := o.RunCycle(context.Background()); err != nil {
			t.Errorf("first cycle: %v", err)
		}
	}()

	<-started
	// Wait until the first cycle is inside the adapter.
	deadline := time.Now().Add(time.Second)
	for !o.running.Load() {
		if time.Now().After(deadline) {
			t.Fatal("first cycle never started")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := o.RunCycle(context.Background()); !errors.Is(err, ErrCycleInProgress) {
		t.Errorf("second cycle err = %v, want ErrCycleInProgress", err)
	}

	close(block)
	wg.Wait()

	// Once the first cycle finishes, another may run.
	if _, err := o.RunCycle(context.Background()); err != nil {
		t.Errorf("third cycle: %v", err)
	}
}

func TestAdapterTimeout(t *testing.T) {
	store := cache.New(t.TempDir())

	cfg := quietConfig()
	cfg.AdapterTimeout = 10 * time.Millisecond

	hung := &stubAdapter{domain: "calendar", block: make(chan struct{})}
	o := New(store, []Adapter{hung, &stubAdapter{domain: "devices", records: records(2)}}, cfg)

	outcomes, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if outcomes[0].Status != StatusFailed {
		t.Errorf("hung adapter status = %v, want failed", outcomes[0].Status)
	}
	if outcomes[1].Status != StatusSynced || outcomes[1].Count != 2 {
		t.Errorf("devices outcome = %+v", outcomes[1])
	}
}
