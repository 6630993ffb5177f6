//go:build unix

package daemon

import (
	"errors"
	"os"
	"syscall"
)

// isProcessAlive checks if a process with the given pid is still running.
// A permission error counts as alive: the pid exists, it just belongs to
// another user.
func isProcessAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix, FindProcess always succeeds; send signal 0 to check if process exists
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}

// terminateProcess asks the process to shut down gracefully.
func terminateProcess(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return process.Signal(syscall.SIGTERM)
}
