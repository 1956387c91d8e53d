//go:build !windows

package process

import "syscall"

// KillProcessGroup kills a process and all its children by sending
// SIGKILL to the process group (negative PID), then to the process
// itself in case it was never made a group leader.
func KillProcessGroup(pid int) {
	// Best-effort cleanup; errors ignored as the caller polls Alive
	// afterwards and reports stragglers.
	_ = syscall.Kill(-pid, syscall.SIGKILL)
	_ = syscall.Kill(pid, syscall.SIGKILL)
}
