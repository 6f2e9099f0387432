package startup

import (
	"encoding/binary"
	"time"
)

// StartupApproved is the registry store Task Manager uses to remember
// explicit enable/disable toggles for startup entries. Each value is a
// binary blob: byte 0 is a status byte (0x02 or 0x06 means enabled,
// anything else means disabled) and bytes 4..12 hold the little-endian
// FILETIME of the moment the entry was disabled.
const startupApprovedBase = `Software\Microsoft\Windows\CurrentVersion\Explorer\StartupApproved`

var startupApprovedSubkeys = []string{"Run", "Run32", "StartupFolder"}

const filetimeUnixDiff = 116444736000000000 // 100ns intervals between 1601 and 1970

// PolicySnapshot is a read-only snapshot of the whole approval store, loaded
// once per reconciliation pass. Lookups mark records as matched so the
// remainder can be surfaced as orphans.
type PolicySnapshot struct {
	records map[string]PolicyRecord
	matched map[string]bool
}

// LoadPolicy reads every StartupApproved location under both hives.
// Missing keys are normal (the store is created lazily); per-key read
// failures only lose that key's records.
func LoadPolicy(reg RegistryAccess) *PolicySnapshot {
	snap := &PolicySnapshot{
		records: make(map[string]PolicyRecord),
		matched: make(map[string]bool),
	}
	if reg == nil {
		return snap
	}

	for _, hive := range []Hive{HiveUser, HiveMachine} {
		for _, sub := range startupApprovedSubkeys {
			path := startupApprovedBase + `\` + sub
			values, err := reg.ReadValues(hive, path)
			if err != nil {
				continue
			}
			for _, v := range values {
				if v.Kind != RegBinary || v.Name == "" {
					continue
				}
				rec, ok := parseApprovedBlob(v.Bin)
				if !ok {
					continue
				}
				snap.records[hive.String()+`\`+path+`\`+v.Name] = rec
			}
		}
	}
	return snap
}

// Lookup returns the explicit approval record for a merged entry, consulting
// the store key of every contributing source. When sources disagree, an
// explicit Disabled record wins: the user asked for suppression in at least
// one mechanism.
func (s *PolicySnapshot) Lookup(e *Entry) (PolicyRecord, bool) {
	var found PolicyRecord
	var ok bool

	for _, src := range e.Sources {
		for _, key := range approvalKeys(src) {
			rec, present := s.records[key]
			if !present {
				continue
			}
			s.matched[key] = true
			if !ok || rec.Value == PolicyDisabled {
				found = rec
				ok = true
			}
		}
	}
	return found, ok
}

// Orphans returns approval-store records that no Lookup matched: residue
// left behind after the underlying registration was removed by hand.
func (s *PolicySnapshot) Orphans() []PolicyOrphan {
	var orphans []PolicyOrphan
	for key, rec := range s.records {
		if !s.matched[key] {
			orphans = append(orphans, PolicyOrphan{Key: key, Record: rec})
		}
	}
	return orphans
}

// approvalKeys returns the store keys a raw entry's toggle state may live
// under. RunOnce entries, tasks, and services keep their state elsewhere.
func approvalKeys(raw RawEntry) []string {
	hive := HiveUser
	if raw.Scope == ScopeMachine {
		hive = HiveMachine
	}

	switch raw.Kind {
	case SourceRegistryRun:
		return []string{
			hive.String() + `\` + startupApprovedBase + `\Run\` + raw.Name,
			hive.String() + `\` + startupApprovedBase + `\Run32\` + raw.Name,
		}
	case SourceStartupFolder:
		return []string{
			hive.String() + `\` + startupApprovedBase + `\StartupFolder\` + baseName(raw.Location),
		}
	default:
		return nil
	}
}

// ResolvePolicyState derives the final enabled/disabled verdict: an explicit
// approval record is authoritative; otherwise RunOnce entries are always
// enabled (one-shot, no persistent disable concept), a source-native
// disabled flag counts, and absence of any disable evidence means enabled.
func ResolvePolicyState(e *Entry, rec PolicyRecord, explicit bool) PolicyState {
	if explicit {
		if rec.Value == PolicyDisabled {
			return PolicyStateDisabled
		}
		return PolicyStateEnabled
	}

	for _, src := range e.Sources {
		if src.DisabledMarker != nil && *src.DisabledMarker {
			return PolicyStateDisabled
		}
	}
	return PolicyStateEnabled
}

func parseApprovedBlob(b []byte) (PolicyRecord, bool) {
	if len(b) < 12 {
		return PolicyRecord{}, false
	}

	status := b[0]
	if status == 0x02 || status == 0x06 {
		return PolicyRecord{Value: PolicyApproved}, true
	}

	rec := PolicyRecord{Value: PolicyDisabled}
	ft := binary.LittleEndian.Uint64(b[4:12])
	if t, ok := filetimeToTime(ft); ok {
		rec.DisabledAt = t
	}
	return rec, true
}

// buildApprovedBlob produces the value written by enable/disable actions,
// preserving any existing trailing bytes.
func buildApprovedBlob(existing []byte, enable bool, now time.Time) []byte {
	data := make([]byte, 12)
	if len(existing) >= 12 {
		data = append(data[:0], existing...)
	}

	if enable {
		data[0] = 0x02
		for i := 4; i < 12; i++ {
			data[i] = 0
		}
	} else {
		data[0] = 0x03
		binary.LittleEndian.PutUint64(data[4:12], timeToFiletime(now))
	}
	return data
}

func filetimeToTime(ft uint64) (time.Time, bool) {
	if ft == 0 || ft < filetimeUnixDiff {
		return time.Time{}, false
	}
	unix100ns := ft - filetimeUnixDiff
	secs := int64(unix100ns / 10000000)
	nanos := int64(unix100ns%10000000) * 100
	return time.Unix(secs, nanos), true
}

func timeToFiletime(t time.Time) uint64 {
	return uint64(t.UnixNano()/100) + filetimeUnixDiff
}

// baseName returns the final path component, accepting either separator so
// link-file locations compare the same on every platform.
func baseName(p string) string {
	if i := lastIndexAnySep(p); i >= 0 {
		return p[i+1:]
	}
	return p
}

func lastIndexAnySep(p string) int {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '\\' || p[i] == '/' {
			return i
		}
	}
	return -1
}
