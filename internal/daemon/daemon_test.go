package daemon

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/jfarrell/icloud-cli/internal/cache"
	"github.com/jfarrell/icloud-cli/internal/sync"
)

// deadPID is far outside the valid pid range on every supported platform.
const deadPID = 1 << 29

func writePIDFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, PIDFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	return path
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func noopCycle(ctx context.Context) ([]sync.Outcome, error) {
	return nil, nil
}

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()
	pf := newPIDFile(dir)

	if err := pf.acquire(); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	pid, err := pf.read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}

	if err := pf.release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := os.Stat(pf.Path()); !os.IsNotExist(err) {
		t.Error("pid file should be removed")
	}
}

func TestAcquireRejectsLiveHolder(t *testing.T) {
	dir := t.TempDir()
	// Our own pid is definitely alive.
	path := writePIDFile(t, dir, strconv.Itoa(os.Getpid()))

	pf := newPIDFile(dir)
	err := pf.acquire()
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("err = %v, want ErrAlreadyRunning", err)
	}

	// The existing lock is untouched.
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatalf("read pid file: %v", readErr)
	}
	if string(data) != strconv.Itoa(os.Getpid()) {
		t.Errorf("lock was rewritten: %q", data)
	}
}

func TestAcquireReplacesStaleLock(t *testing.T) {
	dir := t.TempDir()
	writePIDFile(t, dir, strconv.Itoa(deadPID))

	pf := newPIDFile(dir)
	if err := pf.acquire(); err != nil {
		t.Fatalf("acquire over stale lock: %v", err)
	}

	pid, err := pf.read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want current process %d", pid, os.Getpid())
	}
}

func TestAcquireReplacesCorruptLock(t *testing.T) {
	dir := t.TempDir()
	writePIDFile(t, dir, "not-a-pid\n")

	pf := newPIDFile(dir)
	if err := pf.acquire(); err != nil {
		t.Fatalf("acquire over corrupt lock: %v", err)
	}
}

func TestReadClassifiesLock(t *testing.T) {
	dir := t.TempDir()
	pf := newPIDFile(dir)

	if _, err := pf.read(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("absent file err = %v, want ErrNotRunning", err)
	}

	writePIDFile(t, dir, "garbage")
	if _, err := pf.read(); !errors.Is(err, ErrCorruptPID) {
		t.Errorf("corrupt file err = %v, want ErrCorruptPID", err)
	}

	writePIDFile(t, dir, "-4")
	if _, err := pf.read(); !errors.Is(err, ErrCorruptPID) {
		t.Errorf("negative pid err = %v, want ErrCorruptPID", err)
	}

	writePIDFile(t, dir, " 1234 \n")
	pid, err := pf.read()
	if err != nil || pid != 1234 {
		t.Errorf("read = %d, %v; want 1234", pid, err)
	}
}

func TestStopNotRunning(t *testing.T) {
	dir := t.TempDir()

	res, _, err := Stop(dir)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if res != NotRunning {
		t.Errorf("result = %v, want NotRunning", res)
	}

	// No filesystem mutation.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("stop created files: %v", entries)
	}
}

func TestStopStaleLock(t *testing.T) {
	dir := t.TempDir()
	path := writePIDFile(t, dir, strconv.Itoa(deadPID))

	res, pid, err := Stop(dir)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if res != Stale {
		t.Errorf("result = %v, want Stale", res)
	}
	if pid != deadPID {
		t.Errorf("pid = %d, want %d", pid, deadPID)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("stale pid file should be removed")
	}
}

func TestStopCorruptLock(t *testing.T) {
	dir := t.TempDir()
	path := writePIDFile(t, dir, "???")

	res, _, err := Stop(dir)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if res != Corrupt {
		t.Errorf("result = %v, want Corrupt", res)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt pid file should be removed")
	}
}

func TestNewRejectsNonPositiveInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Minute} {
		if _, err := New(t.TempDir(), interval, noopCycle, quietLogger()); err == nil {
			t.Errorf("interval %v: expected error", interval)
		}
	}
}

func TestRunRejectsSecondInstance(t *testing.T) {
	dir := t.TempDir()
	writePIDFile(t, dir, strconv.Itoa(os.Getpid()))

	d, err := New(dir, time.Minute, noopCycle, quietLogger())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := d.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("run err = %v, want ErrAlreadyRunning", err)
	}
}

func TestRunCyclesAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	store := cache.New(dir)

	// Each cycle stamps the status document with a distinct timestamp,
	// like the real orchestrator does at cycle end.
	var cycles int
	fakeNow := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	stamps := make(chan string, 16)
	cycle := func(ctx context.Context) ([]sync.Outcome, error) {
		cycles++
		ts := fakeNow.Add(time.Duration(cycles) * time.Minute)
		if err := store.WriteStatus(ts); err != nil {
			return nil, err
		}
		stamps <- ts.Format(time.RFC3339)
		return nil, nil
	}

	d, err := New(dir, 20*time.Millisecond, cycle, quietLogger())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// Two consecutive ticks produce two distinct status timestamps.
	first := <-stamps
	second := <-stamps
	if first == second {
		t.Errorf("timestamps not distinct: %q", first)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop on cancel")
	}

	// Lock removal runs on every exit path.
	if _, err := os.Stat(filepath.Join(dir, PIDFileName)); !os.IsNotExist(err) {
		t.Error("pid file should be removed after shutdown")
	}
}

func TestRunSurvivesCycleErrors(t *testing.T) {
	dir := t.TempDir()

	calls := make(chan struct{}, 16)
	cycle := func(ctx context.Context) ([]sync.Outcome, error) {
		calls <- struct{}{}
		return nil, errors.New("upstream down")
	}

	d, err := New(dir, 10*time.Millisecond, cycle, quietLogger())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// The loop keeps ticking despite cycle errors.
	<-calls
	<-calls
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestGetStatus(t *testing.T) {
	dir := t.TempDir()
	store := cache.New(dir)

	st := GetStatus(store, 15*time.Minute)
	if st.Running {
		t.Error("should not be running")
	}
	if st.LastSync != "" {
		t.Errorf("last sync = %q, want empty", st.LastSync)
	}
	if st.CacheRoot != dir {
		t.Errorf("cache root = %q", st.CacheRoot)
	}

	// Live lock plus a recorded sync.
	writePIDFile(t, dir, strconv.Itoa(os.Getpid()))
	syncTime := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	if err := store.WriteStatus(syncTime); err != nil {
		t.Fatalf("write status: %v", err)
	}

	st = GetStatus(store, 15*time.Minute)
	if !st.Running || st.PID != os.Getpid() {
		t.Errorf("status = %+v, want running with current pid", st)
	}
	if st.LastSync != syncTime.Format(time.RFC3339) {
		t.Errorf("last sync = %q", st.LastSync)
	}

	// Corrupt status document reads as never synced, still a pure read.
	if err := os.WriteFile(store.Path(cache.StatusDomain), []byte("junk"), 0o644); err != nil {
		t.Fatalf("corrupt status: %v", err)
	}
	st = GetStatus(store, 15*time.Minute)
	if st.LastSync != "" {
		t.Errorf("last sync = %q, want empty for corrupt document", st.LastSync)
	}
}
