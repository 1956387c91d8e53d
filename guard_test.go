package office2pdf

// Notes:
// - The kill tests spawn real sleep processes, so they are unix-only;
//   everything else runs everywhere.

import (
	"os"
	"os/exec"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-office2pdf/internal/process"
)

// ownComm returns this test binary's process name as the kernel sees
// it, so ListByName during the test can match the running test itself.
func ownComm(t *testing.T) string {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("requires /proc")
	}
	data, err := os.ReadFile("/proc/self/comm")
	if err != nil {
		t.Fatalf("reading /proc/self/comm: %v", err)
	}
	return strings.TrimSpace(string(data))
}

func spawnSleeper(t *testing.T) int {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("unix-only: spawns sleep")
	}
	cmd := exec.Command("sleep", "60")
	if err := cmd.Start(); err != nil {
		t.Fatalf("starting sleep: %v", err)
	}
	pid := cmd.Process.Pid
	t.Cleanup(func() { _ = cmd.Process.Kill() })
	// Reap so the child does not linger as a zombie, which would keep
	// kill-0 liveness checks reporting it alive.
	go func() { _, _ = cmd.Process.Wait() }()
	return pid
}

// ---------------------------------------------------------------------------
// TestGuard_Register - Tracking and the Pre-Existing Exemption
// ---------------------------------------------------------------------------

func TestGuard_RegisterAndUnregister(t *testing.T) {
	t.Parallel()

	g := NewProcessGuard([]string{"definitely-not-running-xyz"})

	g.RegisterProcess(11111)
	g.RegisterProcess(22222)
	g.RegisterProcess(0)
	g.RegisterProcess(-5)

	got := g.Tracked()
	want := []int{11111, 22222}
	if len(got) != len(want) {
		t.Fatalf("Tracked() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Tracked() = %v, want %v", got, want)
		}
	}

	g.UnregisterProcess(11111)
	if got := g.Tracked(); len(got) != 1 || got[0] != 22222 {
		t.Errorf("Tracked() after unregister = %v, want [22222]", got)
	}
}

func TestGuard_PreexistingPidIsExempt(t *testing.T) {
	t.Parallel()

	// Watch our own process name so the construction snapshot contains
	// our pid, then try to register it: the guard must refuse.
	name := ownComm(t)
	g := NewProcessGuard([]string{name})

	self := os.Getpid()
	g.RegisterProcess(self)

	for _, pid := range g.Tracked() {
		if pid == self {
			t.Fatal("pre-existing pid was registered as a kill target")
		}
	}
}

// ---------------------------------------------------------------------------
// TestGuard_Kill - Force Termination with Bounded Wait
// ---------------------------------------------------------------------------

func TestGuard_KillAllOurProcesses(t *testing.T) {
	t.Parallel()

	pid := spawnSleeper(t)

	g := NewProcessGuard([]string{"definitely-not-running-xyz"})
	g.RegisterProcess(pid)

	killed := g.KillAllOurProcesses()
	if len(killed) != 1 || killed[0] != pid {
		t.Fatalf("KillAllOurProcesses() = %v, want [%d]", killed, pid)
	}
	if len(g.Tracked()) != 0 {
		t.Errorf("Tracked() = %v after kill, want empty", g.Tracked())
	}

	deadline := time.Now().Add(2 * time.Second)
	for process.Alive(pid) && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if process.Alive(pid) {
		t.Errorf("pid %d still alive after KillAllOurProcesses", pid)
	}
}

func TestGuard_KillSkipsAlreadyDead(t *testing.T) {
	t.Parallel()

	pid := spawnSleeper(t)
	g := NewProcessGuard([]string{"definitely-not-running-xyz"})
	g.RegisterProcess(pid)

	// Kill it out-of-band first; the guard should not report it killed.
	process.KillProcessGroup(pid)
	deadline := time.Now().Add(2 * time.Second)
	for process.Alive(pid) && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}

	if killed := g.KillAllOurProcesses(); len(killed) != 0 {
		t.Errorf("KillAllOurProcesses() = %v for dead process, want empty", killed)
	}
}

func TestGuard_KillWithNothingTracked(t *testing.T) {
	t.Parallel()

	g := NewProcessGuard([]string{"definitely-not-running-xyz"})
	if killed := g.KillAllOurProcesses(); len(killed) != 0 {
		t.Errorf("KillAllOurProcesses() = %v with empty tracking, want empty", killed)
	}
}

// ---------------------------------------------------------------------------
// TestGuard_Orphans - Report, Never Kill
// ---------------------------------------------------------------------------

func TestGuard_FindPotentiallyOrphaned(t *testing.T) {
	t.Parallel()

	name := ownComm(t)

	// Snapshot taken with a name nothing matches: our own pid is NOT
	// pre-existing, so a scan watching our name reports us as a
	// candidate until registered.
	g := NewProcessGuard([]string{"definitely-not-running-xyz"})
	g.names = []string{name}

	self := os.Getpid()

	found := false
	for _, pid := range g.FindPotentiallyOrphaned() {
		if pid == self {
			found = true
		}
	}
	if !found {
		t.Fatal("unregistered watched process not reported as orphan candidate")
	}

	// Registering the pid removes it from the candidate set.
	g.RegisterProcess(self)
	for _, pid := range g.FindPotentiallyOrphaned() {
		if pid == self {
			t.Fatal("tracked pid reported as orphan candidate")
		}
	}

	// The scan must never have killed anything.
	if !process.Alive(self) {
		t.Fatal("scan killed a process")
	}
}

func TestGuard_FindPotentiallyOrphanedExemptsPreexisting(t *testing.T) {
	t.Parallel()

	name := ownComm(t)
	g := NewProcessGuard([]string{name})

	self := os.Getpid()
	for _, pid := range g.FindPotentiallyOrphaned() {
		if pid == self {
			t.Fatal("pre-existing pid reported as orphan candidate")
		}
	}
}

// ---------------------------------------------------------------------------
// TestWatchedProcessNames
// ---------------------------------------------------------------------------

func TestWatchedProcessNames(t *testing.T) {
	t.Parallel()

	for _, want := range []string{"soffice", "chrome"} {
		found := false
		for _, n := range watchedProcessNames {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("watched names %v missing %q", watchedProcessNames, want)
		}
	}
}
