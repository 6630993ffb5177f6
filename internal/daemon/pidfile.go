package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PIDFileName is the lock file kept in the cache root while a daemon runs.
const PIDFileName = "icloud-cli-daemon.pid"

// Sentinel errors for lock conditions.
var (
	// ErrAlreadyRunning means a live daemon holds the lock.
	ErrAlreadyRunning = errors.New("daemon already running")
	// ErrNotRunning means no lock file exists.
	ErrNotRunning = errors.New("daemon not running")
	// ErrCorruptPID means the lock file content is not a valid pid.
	ErrCorruptPID = errors.New("corrupt pid file")
)

// pidFile is the on-disk single-instance marker. The file holds the owning
// process id in plain text. Its existence alone does not imply a live
// daemon; holders are probed with a signal-0 check before being believed.
type pidFile struct {
	path string
}

func newPIDFile(cacheDir string) *pidFile {
	return &pidFile{path: filepath.Join(cacheDir, PIDFileName)}
}

func (p *pidFile) Path() string {
	return p.path
}

// read returns the recorded pid. ErrNotRunning if the file is absent,
// ErrCorruptPID if its content does not parse.
func (p *pidFile) read() (int, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotRunning
		}
		return 0, fmt.Errorf("read pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, ErrCorruptPID
	}
	return pid, nil
}

// acquire claims the lock for the current process. A live holder yields
// ErrAlreadyRunning (wrapped with its pid); a stale or corrupt lock is
// removed and replaced.
func (p *pidFile) acquire() error {
	pid, err := p.read()
	switch {
	case err == nil:
		if isProcessAlive(pid) {
			return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
		}
		// Stale: holder is dead.
		os.Remove(p.path)
	case errors.Is(err, ErrCorruptPID):
		os.Remove(p.path)
	case errors.Is(err, ErrNotRunning):
		// No lock to contend with.
	default:
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

// release removes the lock. Safe to call when the file is already gone.
func (p *pidFile) release() error {
	err := os.Remove(p.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
