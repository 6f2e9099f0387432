package startup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/appmanager/appman/internal/logging"
)

var log = logging.L("startup")

// Engine owns one reconciliation pass: probe every source, merge by
// identity, then enrich each merged entry with policy, runtime, and
// last-ran evidence. All platform access goes through the injected
// providers so the pass logic itself is host-independent.
type Engine struct {
	Registry  RegistryAccess
	Shortcuts ShortcutResolver
	Tasks     TaskScheduler
	Services  ServiceManager
	Processes ProcessProvider

	PrefetchDir      string
	UserStartupDir   string
	CommonStartupDir string
	IncludeServices  bool

	// ProductName resolves an executable path to its PE product name.
	// Optional; nil leaves Product empty.
	ProductName func(path string) string

	mu sync.Mutex
}

// Warning records a non-fatal probe failure. The pass still returns every
// entry the remaining sources produced.
type Warning struct {
	Source string
	Err    error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %v", w.Source, w.Err)
}

// Report is the outcome of one reconciliation pass.
type Report struct {
	Entries            []*Entry
	Orphans            []PolicyOrphan
	Warnings           []Warning
	PrefetchAccessible bool
	CollectedAt        time.Time
	Duration           time.Duration
}

// Run executes one full pass. Probes run concurrently; a panicking or
// failing probe degrades to a warning instead of aborting the pass.
// Passes are serialized so two concurrent callers cannot interleave
// reads against a store one of them is about to write.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	started := time.Now()
	report := &Report{CollectedAt: started}

	raws, warnings := e.collect(ctx)
	report.Warnings = warnings

	if err := ctx.Err(); err != nil {
		return report, err
	}

	entries := Aggregate(raws)

	policy := LoadPolicy(e.Registry)
	prefetch := OpenPrefetch(e.PrefetchDir)
	report.PrefetchAccessible = prefetch.Accessible()

	procIx := e.snapshotProcesses(ctx, report)

	for _, entry := range entries {
		rec, explicit := policy.Lookup(entry)
		entry.Policy = ResolvePolicyState(entry, rec, explicit)

		var procStart time.Time
		entry.Runtime, procStart = CorrelateRuntime(entry, procIx)

		entry.LastRan = ResolveLastRan(entry, procStart, prefetch, rec, explicit)

		if e.ProductName != nil && entry.Identity.Exe != "" {
			entry.Product = e.ProductName(entry.Identity.Exe)
		}
	}

	report.Entries = entries
	report.Orphans = policy.Orphans()
	report.Duration = time.Since(started)

	log.Info("reconciliation pass complete",
		"entries", len(report.Entries),
		"orphans", len(report.Orphans),
		"warnings", len(report.Warnings),
		"duration", report.Duration)

	return report, nil
}

// collect runs every configured probe concurrently and joins their output.
func (e *Engine) collect(ctx context.Context) ([]RawEntry, []Warning) {
	probes := e.probes()

	var (
		mu       sync.Mutex
		raws     []RawEntry
		warnings []Warning
		wg       sync.WaitGroup
	)

	for _, probe := range probes {
		wg.Add(1)
		go func(p Probe) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					warnings = append(warnings, Warning{Source: p.Name(), Err: fmt.Errorf("panic: %v", r)})
					mu.Unlock()
					log.Error("probe panicked", "probe", p.Name(), "panic", r)
				}
			}()

			entries, err := p.Collect(ctx)
			mu.Lock()
			defer mu.Unlock()
			raws = append(raws, entries...)
			if err != nil {
				warnings = append(warnings, Warning{Source: p.Name(), Err: err})
				log.Warn("probe degraded", "probe", p.Name(), "error", err)
			}
		}(probe)
	}
	wg.Wait()

	return raws, warnings
}

func (e *Engine) probes() []Probe {
	probes := []Probe{
		&RegistryRunProbe{Reg: e.Registry},
		&StartupFolderProbe{
			UserDir:   e.UserStartupDir,
			CommonDir: e.CommonStartupDir,
			Shortcuts: e.Shortcuts,
		},
		&TaskSchedulerProbe{Tasks: e.Tasks},
	}
	if e.IncludeServices {
		probes = append(probes, &ServiceAutostartProbe{Svc: e.Services})
	}
	return probes
}

func (e *Engine) snapshotProcesses(ctx context.Context, report *Report) *processIndex {
	if e.Processes == nil {
		return indexProcesses(nil)
	}
	procs, err := e.Processes.Snapshot(ctx)
	if err != nil {
		report.Warnings = append(report.Warnings, Warning{Source: "process-snapshot", Err: err})
		log.Warn("process snapshot degraded", "error", err)
	}
	return indexProcesses(procs)
}
