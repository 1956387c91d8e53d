//go:build !windows

package process

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ListByName returns the pids of all running processes whose
// executable name matches one of names (case-insensitive, exact match
// on the comm name). Unreadable /proc entries are skipped; scanning
// the process table is inherently racy and callers treat the result
// as a snapshot.
func ListByName(names []string) []int {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[strings.ToLower(n)] = true
	}

	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil
	}

	var pids []int
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		comm, err := os.ReadFile(filepath.Join("/proc", e.Name(), "comm"))
		if err != nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(string(comm)))
		if wanted[name] {
			pids = append(pids, pid)
		}
	}
	return pids
}

// HasVisibleWindow reports whether the process owns a visible
// top-level window. Headless Unix workers never do; the orphan
// heuristic therefore treats every candidate as windowless here.
func HasVisibleWindow(pid int) bool {
	return false
}
