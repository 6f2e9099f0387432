// Package procs lists and terminates processes for the process-oriented
// CLI commands.
package procs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Info is one process row.
type Info struct {
	PID         int32
	PPID        int32
	Name        string
	ExePath     string
	Cmdline     string
	User        string
	MemoryBytes uint64
	CPUPercent  float64
	StartTime   time.Time
}

// List returns the current process table sorted by memory descending.
// Rows the caller lacks permission to inspect are partially filled rather
// than dropped.
func List(ctx context.Context) ([]Info, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			continue
		}

		info := Info{PID: p.Pid, Name: name}
		if ppid, err := p.PpidWithContext(ctx); err == nil {
			info.PPID = ppid
		}
		if exe, err := p.ExeWithContext(ctx); err == nil {
			info.ExePath = exe
		}
		if cmdline, err := p.CmdlineWithContext(ctx); err == nil {
			info.Cmdline = cmdline
		}
		if user, err := p.UsernameWithContext(ctx); err == nil {
			info.User = user
		}
		if mem, err := p.MemoryInfoWithContext(ctx); err == nil && mem != nil {
			info.MemoryBytes = mem.RSS
		}
		if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
			info.CPUPercent = cpu
		}
		if ms, err := p.CreateTimeWithContext(ctx); err == nil && ms > 0 {
			info.StartTime = time.UnixMilli(ms)
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].MemoryBytes != infos[j].MemoryBytes {
			return infos[i].MemoryBytes > infos[j].MemoryBytes
		}
		return infos[i].PID < infos[j].PID
	})
	return infos, nil
}

// KillByExe terminates every process whose executable name matches,
// case-insensitively. It returns how many processes were signalled.
func KillByExe(ctx context.Context, exeName string) (int, error) {
	if exeName == "" {
		return 0, fmt.Errorf("executable name is required")
	}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, err
	}

	killed := 0
	var lastErr error
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || !strings.EqualFold(name, exeName) {
			continue
		}
		if err := p.KillWithContext(ctx); err != nil {
			lastErr = fmt.Errorf("kill pid %d: %w", p.Pid, err)
			continue
		}
		killed++
	}

	if killed == 0 && lastErr != nil {
		return 0, lastErr
	}
	return killed, nil
}
