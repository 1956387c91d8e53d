//go:build windows

package process

import (
	"encoding/csv"
	"os/exec"
	"strconv"
	"strings"
)

// ListByName returns the pids of all running processes whose image
// name matches one of names (case-insensitive, with or without .exe).
func ListByName(names []string) []int {
	wanted := make(map[string]bool, len(names)*2)
	for _, n := range names {
		n = strings.ToLower(n)
		wanted[n] = true
		wanted[strings.TrimSuffix(n, ".exe")] = true
	}

	rows := tasklistRows()
	var pids []int
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		image := strings.ToLower(row[0])
		if !wanted[image] && !wanted[strings.TrimSuffix(image, ".exe")] {
			continue
		}
		if pid, err := strconv.Atoi(row[1]); err == nil {
			pids = append(pids, pid)
		}
	}
	return pids
}

// HasVisibleWindow reports whether the process owns a visible
// top-level window. tasklist /V reports "N/A" as the window title for
// windowless processes.
func HasVisibleWindow(pid int) bool {
	out, err := exec.Command("tasklist", "/V", "/FI", "PID eq "+strconv.Itoa(pid), "/NH", "/FO", "CSV").Output()
	if err != nil {
		return false
	}
	rows, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	if err != nil || len(rows) == 0 {
		return false
	}
	row := rows[0]
	title := row[len(row)-1]
	return title != "" && title != "N/A"
}

// tasklistRows runs tasklist once and parses its CSV output.
func tasklistRows() [][]string {
	out, err := exec.Command("tasklist", "/NH", "/FO", "CSV").Output()
	if err != nil {
		return nil
	}
	rows, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	if err != nil {
		return nil
	}
	return rows
}
