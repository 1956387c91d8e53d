//go:build !windows

package process

import (
	"errors"
	"syscall"
)

// Alive reports whether the process still exists. Signal 0 performs
// permission and existence checks without delivering anything; EPERM
// means the process exists but belongs to another user.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}
