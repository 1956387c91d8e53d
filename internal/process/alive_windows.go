//go:build windows

package process

import (
	"os/exec"
	"strconv"
	"strings"
)

// Alive reports whether the process still exists. tasklist prints an
// INFO line instead of a table row when the PID filter matches nothing.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	out, err := exec.Command("tasklist", "/FI", "PID eq "+strconv.Itoa(pid), "/NH", "/FO", "CSV").Output()
	if err != nil {
		return false
	}
	return strings.Contains(string(out), ","+strconv.Itoa(pid)+",") ||
		strings.Contains(string(out), "\""+strconv.Itoa(pid)+"\"")
}
