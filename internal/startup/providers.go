package startup

import (
	"context"
	"errors"
	"time"
)

// Shortcut resolution failure modes. Both are non-fatal to probes: an
// unresolvable link is still emitted with the link file path as its target.
var (
	ErrMalformed     = errors.New("shortcut data is malformed")
	ErrTargetMissing = errors.New("shortcut target no longer exists")
)

// ErrKeyNotFound marks a registry key that does not exist. Absent keys are
// a normal state for autorun locations and are skipped without a warning.
var ErrKeyNotFound = errors.New("registry key not found")

// Hive selects a registry root.
type Hive int

const (
	HiveUser Hive = iota
	HiveMachine
)

func (h Hive) String() string {
	if h == HiveUser {
		return "HKCU"
	}
	return "HKLM"
}

// RegValueKind is the subset of registry value types the engine cares about.
type RegValueKind int

const (
	RegString RegValueKind = iota
	RegExpandString
	RegBinary
	RegOther
)

// RegValue is one named value read from a registry key.
type RegValue struct {
	Name string
	Kind RegValueKind
	Str  string // set for RegString / RegExpandString
	Bin  []byte // set for RegBinary
}

// RegistryAccess abstracts registry reads and the few writes the actions
// need. Implementations fail per call, never panic; a missing key is an
// error the caller treats as an empty result.
type RegistryAccess interface {
	ReadValues(hive Hive, path string) ([]RegValue, error)
	WriteBinaryValue(hive Hive, path, name string, data []byte) error
	DeleteValue(hive Hive, path, name string) error
}

// ShortcutResolver resolves a shortcut file to its target and arguments.
type ShortcutResolver interface {
	Resolve(path string) (target, args string, err error)
}

// TaskDescriptor describes one scheduled task with a logon trigger.
type TaskDescriptor struct {
	Name            string
	Path            string
	Enabled         bool
	ExecPath        string
	ExecArgs        string
	RunsAs          string
	ServiceLauncher bool // action invokes service control rather than a user-context program
}

// TaskScheduler abstracts the scheduled-task store.
type TaskScheduler interface {
	LogonTasks(ctx context.Context) ([]TaskDescriptor, error)
	SetEnabled(path string, enabled bool) error
	Delete(path string) error
}

// ServiceConfig describes one service configured to start automatically.
type ServiceConfig struct {
	Name        string
	DisplayName string
	BinaryPath  string
	Account     string
	Running     bool
}

// ServiceManager abstracts the service control manager.
type ServiceManager interface {
	AutostartServices(ctx context.Context) ([]ServiceConfig, error)
	SetStartType(name string, auto bool) error
	Delete(name string) error
	Start(name string) error
	Stop(name string) error
}

// Process is one row of the process snapshot.
type Process struct {
	PID       int32
	ImagePath string
	StartTime time.Time
}

// ProcessProvider captures the live process snapshot. The engine takes the
// snapshot once per pass and treats it as immutable for the rest of the pass.
type ProcessProvider interface {
	Snapshot(ctx context.Context) ([]Process, error)
}
