//go:build windows

package cli

import (
	"os"
	"os/exec"
	"syscall"
)

// setSysProcAttr is a no-op on Windows. For production deployments, use a
// Windows service wrapper such as NSSM or run with --foreground.
func setSysProcAttr(cmd *exec.Cmd) {}

// isProcessRunning checks whether a process is alive on Windows by opening
// it and reading its exit code; no signal is sent to the process.
func isProcessRunning(pid int) bool {
	h, err := syscall.OpenProcess(syscall.PROCESS_QUERY_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer syscall.CloseHandle(h)
	var code uint32
	if err := syscall.GetExitCodeProcess(h, &code); err != nil {
		return false
	}
	// 259 is STILL_ACTIVE, the exit code Windows reports for a live process.
	return code == 259
}

// stopProcess kills the process on Windows (no graceful SIGTERM support).
func stopProcess(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}
