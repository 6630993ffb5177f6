//go:build windows

package daemon

import (
	"os"

	"golang.org/x/sys/windows"
)

// isProcessAlive checks if a process with the given pid is still running.
func isProcessAlive(pid int) bool {
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		// Access denied still means the pid exists.
		return err == windows.ERROR_ACCESS_DENIED
	}
	defer windows.CloseHandle(handle)

	var exitCode uint32
	if err := windows.GetExitCodeProcess(handle, &exitCode); err != nil {
		return false
	}

	// STILL_ACTIVE (259) means process is running
	return exitCode == 259
}

// terminateProcess stops the process. Windows has no SIGTERM delivery for
// unrelated processes, so this kills outright; the daemon's pid file is
// cleaned up by the stop command afterwards.
func terminateProcess(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return process.Kill()
}
