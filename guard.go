package office2pdf

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-office2pdf/internal/process"
)

// defaultKillWait bounds how long KillAllOurProcesses waits for each
// terminated process to actually exit.
const defaultKillWait = 5 * time.Second

// killPollInterval is how often the kill wait re-checks liveness.
const killPollInterval = 50 * time.Millisecond

// ProcessGuard tracks OS-level worker processes spawned by the
// conversion backends and force-terminates any still alive at
// shutdown. Processes of the watched kinds that were already running
// when the guard was constructed are permanently exempt: the guard
// must never touch a LibreOffice or Chrome instance the user started
// themselves.
type ProcessGuard struct {
	names    []string
	killWait time.Duration
	log      *zap.Logger

	mu          sync.Mutex
	preexisting map[int]struct{}
	tracked     map[int]struct{}
}

// GuardOption configures a ProcessGuard.
type GuardOption func(*ProcessGuard)

// WithGuardLogger sets the guard's logger (default: no-op).
func WithGuardLogger(log *zap.Logger) GuardOption {
	return func(g *ProcessGuard) { g.log = log }
}

// WithKillWait overrides the bounded wait for killed processes.
func WithKillWait(d time.Duration) GuardOption {
	return func(g *ProcessGuard) {
		if d > 0 {
			g.killWait = d
		}
	}
}

// NewProcessGuard snapshots the currently running processes of the
// watched kinds. The snapshot is taken exactly once; pids in it stay
// exempt even if a later RegisterProcess names them.
func NewProcessGuard(watchedNames []string, opts ...GuardOption) *ProcessGuard {
	g := &ProcessGuard{
		names:       watchedNames,
		killWait:    defaultKillWait,
		log:         zap.NewNop(),
		preexisting: make(map[int]struct{}),
		tracked:     make(map[int]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}

	for _, pid := range process.ListByName(watchedNames) {
		g.preexisting[pid] = struct{}{}
	}
	if len(g.preexisting) > 0 {
		g.log.Info("process guard exempting pre-existing processes",
			zap.Int("count", len(g.preexisting)))
	}

	return g
}

// RegisterProcess tracks a worker process the system spawned. A pid
// matching the construction snapshot is ignored: pid reuse must not
// turn a user's own process into a kill target.
func (g *ProcessGuard) RegisterProcess(pid int) {
	if pid <= 0 {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exempt := g.preexisting[pid]; exempt {
		g.log.Debug("ignoring register of pre-existing pid", zap.Int("pid", pid))
		return
	}
	g.tracked[pid] = struct{}{}
}

// UnregisterProcess removes tracking after a clean exit.
func (g *ProcessGuard) UnregisterProcess(pid int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.tracked, pid)
}

// Tracked returns the currently tracked pids, sorted.
func (g *ProcessGuard) Tracked() []int {
	g.mu.Lock()
	defer g.mu.Unlock()

	pids := make([]int, 0, len(g.tracked))
	for pid := range g.tracked {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids
}

// KillAllOurProcesses force-terminates every still-tracked process,
// waits up to the configured window for each to exit, and clears
// tracking. Called on disposal; returns the pids that were killed.
func (g *ProcessGuard) KillAllOurProcesses() []int {
	g.mu.Lock()
	pids := make([]int, 0, len(g.tracked))
	for pid := range g.tracked {
		pids = append(pids, pid)
	}
	g.tracked = make(map[int]struct{})
	g.mu.Unlock()

	sort.Ints(pids)

	var killed []int
	for _, pid := range pids {
		if !process.Alive(pid) {
			continue
		}

		g.log.Warn("killing leftover worker process", zap.Int("pid", pid))
		process.KillProcessGroup(pid)
		killed = append(killed, pid)

		deadline := time.Now().Add(g.killWait)
		for process.Alive(pid) && time.Now().Before(deadline) {
			time.Sleep(killPollInterval)
		}
		if process.Alive(pid) {
			g.log.Error("worker process survived kill window", zap.Int("pid", pid))
		}
	}

	return killed
}

// FindPotentiallyOrphaned scans for processes of the watched kinds
// that are neither pre-existing nor tracked and show no visible
// top-level window. These are likely workers leaked by an abnormal
// session end. They are reported for external remediation, never
// auto-killed: the heuristic cannot prove ownership.
func (g *ProcessGuard) FindPotentiallyOrphaned() []int {
	current := process.ListByName(g.names)

	g.mu.Lock()
	defer g.mu.Unlock()

	var orphans []int
	for _, pid := range current {
		if _, ok := g.preexisting[pid]; ok {
			continue
		}
		if _, ok := g.tracked[pid]; ok {
			continue
		}
		if process.HasVisibleWindow(pid) {
			continue
		}
		orphans = append(orphans, pid)
	}
	sort.Ints(orphans)
	return orphans
}
