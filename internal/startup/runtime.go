package startup

import "time"

// processIndex holds the per-pass process snapshot keyed by normalized
// image path. The earliest start time per path is kept so multi-instance
// programs report when they first came up.
type processIndex struct {
	starts map[string]time.Time
}

func indexProcesses(procs []Process) *processIndex {
	ix := &processIndex{starts: make(map[string]time.Time, len(procs))}
	for _, p := range procs {
		if p.ImagePath == "" {
			continue
		}
		path := foldPath(p.ImagePath)
		if existing, ok := ix.starts[path]; !ok || (!p.StartTime.IsZero() && p.StartTime.Before(existing)) {
			ix.starts[path] = p.StartTime
		}
	}
	return ix
}

// CorrelateRuntime decides whether an entry is running by matching its
// resolved executable path against the snapshot's image paths. Matching is
// by full path, not name, so same-named binaries in different locations do
// not produce false positives. An entry whose executable could not be
// resolved is reported Stopped: running state must stay a definite fact.
func CorrelateRuntime(e *Entry, ix *processIndex) (RunState, time.Time) {
	if e.Identity.Exe == "" || ix == nil {
		return RunStateStopped, time.Time{}
	}
	start, ok := ix.starts[e.Identity.Exe]
	if !ok {
		return RunStateStopped, time.Time{}
	}
	return RunStateRunning, start
}
