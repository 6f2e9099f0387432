// Package procsnap captures point-in-time process snapshots for runtime
// correlation.
package procsnap

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/appmanager/appman/internal/startup"
)

// Provider implements startup.ProcessProvider.
type Provider struct{}

// Snapshot lists every process whose image path is readable. Processes the
// caller cannot inspect (typically other users' or protected ones) are
// skipped rather than failing the snapshot.
func (Provider) Snapshot(ctx context.Context) ([]startup.Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := make([]startup.Process, 0, len(procs))
	for _, p := range procs {
		exe, err := p.ExeWithContext(ctx)
		if err != nil || exe == "" {
			continue
		}

		var start time.Time
		if ms, err := p.CreateTimeWithContext(ctx); err == nil && ms > 0 {
			start = time.UnixMilli(ms)
		}

		snapshot = append(snapshot, startup.Process{
			PID:       p.Pid,
			ImagePath: exe,
			StartTime: start,
		})
	}
	return snapshot, nil
}
