package startup

import "context"

// Probe collects raw autostart entries from one source. Collect never
// fails fatally for the caller: per-item failures are skipped and returned
// joined alongside whatever subset could be read, and the engine records
// them as pass warnings.
type Probe interface {
	Name() string
	Collect(ctx context.Context) ([]RawEntry, error)
}
