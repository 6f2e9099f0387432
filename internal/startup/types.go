package startup

import (
	"strings"
	"time"
)

// SourceKind identifies the autostart mechanism that produced a RawEntry.
// The ordering is fixed and used for deterministic display and tie-breaks.
type SourceKind int

const (
	SourceRegistryRun SourceKind = iota
	SourceRegistryRunOnce
	SourceStartupFolder
	SourceTaskScheduler
	SourceService
)

func (k SourceKind) String() string {
	switch k {
	case SourceRegistryRun:
		return "registry-run"
	case SourceRegistryRunOnce:
		return "registry-runonce"
	case SourceStartupFolder:
		return "startup-folder"
	case SourceTaskScheduler:
		return "task-scheduler"
	case SourceService:
		return "service"
	default:
		return "unknown"
	}
}

// Scope says whether a registration applies to the current user or the machine.
type Scope int

const (
	ScopeUser Scope = iota
	ScopeMachine
)

func (s Scope) String() string {
	if s == ScopeUser {
		return "user"
	}
	return "machine"
}

// ScopeSet is the union of contributing scopes of a merged entry.
type ScopeSet uint8

const (
	scopeSetUser ScopeSet = 1 << iota
	scopeSetMachine
)

func (s ScopeSet) Has(scope Scope) bool {
	if scope == ScopeUser {
		return s&scopeSetUser != 0
	}
	return s&scopeSetMachine != 0
}

func (s ScopeSet) String() string {
	switch {
	case s&scopeSetUser != 0 && s&scopeSetMachine != 0:
		return "user+machine"
	case s&scopeSetMachine != 0:
		return "machine"
	case s&scopeSetUser != 0:
		return "user"
	default:
		return ""
	}
}

// RawEntry is a single observation from one autostart source, kept in that
// source's native vocabulary. It is immutable once produced by a probe.
type RawEntry struct {
	Kind      SourceKind
	Name      string // display name as stored by the source
	RawTarget string // unresolved command string as stored by the source
	Scope     Scope
	Location  string // registry key, link file path, task path, or service name

	// DisabledMarker carries a source-native enabled flag when the source
	// has one (Task Scheduler). Nil means the source exposes no such flag.
	DisabledMarker *bool

	// RunsAs is the account the source launches the target as, when known.
	RunsAs string
}

// Identity is the canonical merge key: two registrations with the same
// Identity refer to the same logical autostart target.
type Identity struct {
	Exe  string // normalized executable path (case/separator folded)
	Args string // normalized argument string
}

// Key returns a map key for grouping.
func (id Identity) Key() string {
	return id.Exe + "\x00" + id.Args
}

// ExeName returns the lowercased base name of the executable, or "" when
// the identity fell back to an unparseable raw target.
func (id Identity) ExeName() string {
	if id.Exe == "" {
		return ""
	}
	base := id.Exe
	if i := strings.LastIndexAny(base, `\/`); i >= 0 {
		base = base[i+1:]
	}
	if !strings.HasSuffix(base, ".exe") && !strings.HasSuffix(base, ".bat") &&
		!strings.HasSuffix(base, ".cmd") && !strings.HasSuffix(base, ".com") {
		return ""
	}
	return base
}

// PolicyState is the derived enabled/disabled verdict for an entry.
type PolicyState int

const (
	PolicyStateUnknown PolicyState = iota
	PolicyStateEnabled
	PolicyStateDisabled
)

func (s PolicyState) String() string {
	switch s {
	case PolicyStateEnabled:
		return "enabled"
	case PolicyStateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// RunState is a definite binary fact: the entry's executable either appears
// in the process snapshot or it does not.
type RunState int

const (
	RunStateStopped RunState = iota
	RunStateRunning
)

func (s RunState) String() string {
	if s == RunStateRunning {
		return "running"
	}
	return "stopped"
}

// Tier labels the provenance of a LastRan value so inferred values are never
// presented as observed facts.
type Tier int

const (
	TierUnknown Tier = iota
	TierDisabledTimestamp
	TierPrefetchObserved
	TierProcessObserved
)

func (t Tier) String() string {
	switch t {
	case TierProcessObserved:
		return "process-observed"
	case TierPrefetchObserved:
		return "prefetch-observed"
	case TierDisabledTimestamp:
		return "disabled-timestamp"
	default:
		return "unknown"
	}
}

// LastRan is a timestamp tagged with the evidence tier that produced it.
// Never a bare timestamp: TierUnknown means Time is zero and meaningless.
type LastRan struct {
	Time time.Time
	Tier Tier
}

// Entry is one row per unique Identity, merged from every source that
// registers the same target. Sources is never empty.
type Entry struct {
	Identity Identity
	Name     string
	Sources  []RawEntry
	Scope    ScopeSet
	Policy   PolicyState
	Runtime  RunState
	LastRan  LastRan
	Product  string // PE product name when resolvable
}

// Command returns the raw command line of the first contributing source,
// for display purposes.
func (e *Entry) Command() string {
	if len(e.Sources) == 0 {
		return ""
	}
	return e.Sources[0].RawTarget
}

// PolicyValue is the raw state of an approval-store record.
type PolicyValue int

const (
	PolicyNotPresent PolicyValue = iota
	PolicyApproved
	PolicyDisabled
)

func (v PolicyValue) String() string {
	switch v {
	case PolicyApproved:
		return "approved"
	case PolicyDisabled:
		return "disabled"
	default:
		return "not-present"
	}
}

// PolicyRecord is a read-only snapshot of one approval-store value.
type PolicyRecord struct {
	Value      PolicyValue
	DisabledAt time.Time // zero unless Value is PolicyDisabled and the store held a timestamp
}

// PolicyOrphan is approval-store residue that matched no current entry,
// e.g. a registry value the user deleted by hand.
type PolicyOrphan struct {
	Key    string
	Record PolicyRecord
}

// SourceResult reports the outcome of a write action against one
// contributing source. Actions on multi-source entries return one result
// per source, never a collapsed verdict.
type SourceResult struct {
	Kind     SourceKind
	Location string
	Err      error
}

func (r SourceResult) OK() bool { return r.Err == nil }
