package startup

import (
	"context"
	"errors"
)

// TaskSchedulerProbe enumerates scheduled tasks with a logon trigger.
// Tasks whose action is to poke a service rather than launch a user-context
// program are excluded: they would otherwise shadow the service entry for
// the same program.
type TaskSchedulerProbe struct {
	Tasks TaskScheduler
}

func (p *TaskSchedulerProbe) Name() string { return "task-scheduler" }

func (p *TaskSchedulerProbe) Collect(ctx context.Context) ([]RawEntry, error) {
	if p.Tasks == nil {
		return nil, errors.New("task scheduler unavailable")
	}

	tasks, err := p.Tasks.LogonTasks(ctx)
	if err != nil && len(tasks) == 0 {
		return nil, err
	}

	var entries []RawEntry
	for _, t := range tasks {
		if t.ServiceLauncher || t.ExecPath == "" {
			continue
		}

		target := t.ExecPath
		if t.ExecArgs != "" {
			target += " " + t.ExecArgs
		}

		disabled := !t.Enabled
		entries = append(entries, RawEntry{
			Kind:           SourceTaskScheduler,
			Name:           t.Name,
			RawTarget:      target,
			Scope:          ScopeMachine,
			Location:       t.Path,
			DisabledMarker: &disabled,
			RunsAs:         t.RunsAs,
		})
	}

	return entries, err
}
