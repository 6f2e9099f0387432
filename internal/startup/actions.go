package startup

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// errRunOnceToggle: RunOnce values are consumed on next logon and have no
// persistent disable concept, so toggles are rejected rather than faked.
var errRunOnceToggle = errors.New("runonce entries cannot be toggled; delete instead")

// SetEnabled applies an enable or disable toggle to every contributing
// source of the entry, using each source's native mechanism. One result is
// returned per source; a failure against one source never blocks the rest.
func (e *Engine) SetEnabled(entry *Entry, enabled bool) []SourceResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	results := make([]SourceResult, 0, len(entry.Sources))
	for _, src := range entry.Sources {
		res := SourceResult{Kind: src.Kind, Location: src.Location}

		switch src.Kind {
		case SourceRegistryRun:
			res.Err = e.setApproved(approvedRunSubkey(src.Location), src, src.Name, enabled)
		case SourceRegistryRunOnce:
			res.Err = errRunOnceToggle
		case SourceStartupFolder:
			res.Err = e.setApproved("StartupFolder", src, baseName(src.Location), enabled)
		case SourceTaskScheduler:
			if e.Tasks == nil {
				res.Err = errors.New("task scheduler unavailable")
			} else {
				res.Err = e.Tasks.SetEnabled(src.Location, enabled)
			}
		case SourceService:
			if e.Services == nil {
				res.Err = errors.New("service manager unavailable")
			} else {
				res.Err = e.Services.SetStartType(src.Location, enabled)
			}
		default:
			res.Err = fmt.Errorf("unsupported source kind %v", src.Kind)
		}

		if res.Err != nil {
			log.Warn("toggle failed", "source", src.Kind.String(), "location", src.Location, "error", res.Err)
		}
		results = append(results, res)
	}
	return results
}

// Delete removes the entry's registration from every contributing source.
// Approval-store residue for registry and folder sources is cleaned up on a
// best-effort basis so deletes do not manufacture orphans.
func (e *Engine) Delete(entry *Entry) []SourceResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	results := make([]SourceResult, 0, len(entry.Sources))
	for _, src := range entry.Sources {
		res := SourceResult{Kind: src.Kind, Location: src.Location}

		switch src.Kind {
		case SourceRegistryRun, SourceRegistryRunOnce:
			res.Err = e.deleteRunValue(src)
		case SourceStartupFolder:
			res.Err = e.deleteFolderItem(src)
		case SourceTaskScheduler:
			if e.Tasks == nil {
				res.Err = errors.New("task scheduler unavailable")
			} else {
				res.Err = e.Tasks.Delete(src.Location)
			}
		case SourceService:
			if e.Services == nil {
				res.Err = errors.New("service manager unavailable")
			} else {
				res.Err = e.Services.Delete(src.Location)
			}
		default:
			res.Err = fmt.Errorf("unsupported source kind %v", src.Kind)
		}

		if res.Err != nil {
			log.Warn("delete failed", "source", src.Kind.String(), "location", src.Location, "error", res.Err)
		}
		results = append(results, res)
	}
	return results
}

// setApproved writes the toggle blob for one name under one StartupApproved
// subkey, preserving any trailing bytes an existing value carries.
func (e *Engine) setApproved(subkey string, src RawEntry, name string, enabled bool) error {
	if e.Registry == nil {
		return errors.New("registry access unavailable")
	}

	hive := HiveUser
	if src.Scope == ScopeMachine {
		hive = HiveMachine
	}
	path := startupApprovedBase + `\` + subkey

	var existing []byte
	if values, err := e.Registry.ReadValues(hive, path); err == nil {
		for _, v := range values {
			if v.Kind == RegBinary && strings.EqualFold(v.Name, name) {
				existing = v.Bin
				break
			}
		}
	}

	blob := buildApprovedBlob(existing, enabled, time.Now())
	return e.Registry.WriteBinaryValue(hive, path, name, blob)
}

func (e *Engine) deleteRunValue(src RawEntry) error {
	if e.Registry == nil {
		return errors.New("registry access unavailable")
	}

	hive, path, err := parseRegistryLocation(src.Location)
	if err != nil {
		return err
	}
	if err := e.Registry.DeleteValue(hive, path, src.Name); err != nil {
		return err
	}

	// Best effort; the toggle value may not exist.
	approvedPath := startupApprovedBase + `\` + approvedRunSubkey(src.Location)
	_ = e.Registry.DeleteValue(hive, approvedPath, src.Name)
	return nil
}

func (e *Engine) deleteFolderItem(src RawEntry) error {
	if err := os.Remove(src.Location); err != nil {
		return err
	}

	if e.Registry != nil {
		hive := HiveUser
		if src.Scope == ScopeMachine {
			hive = HiveMachine
		}
		_ = e.Registry.DeleteValue(hive, startupApprovedBase+`\StartupFolder`, baseName(src.Location))
	}
	return nil
}

// approvedRunSubkey picks Run32 for values that live under the WOW6432Node
// view of the run keys, matching where Task Manager keeps their toggles.
func approvedRunSubkey(location string) string {
	if strings.Contains(strings.ToLower(location), `wow6432node`) {
		return "Run32"
	}
	return "Run"
}

// parseRegistryLocation splits an "HKCU\..." / "HKLM\..." location string
// back into hive and key path.
func parseRegistryLocation(location string) (Hive, string, error) {
	switch {
	case strings.HasPrefix(location, `HKCU\`):
		return HiveUser, location[len(`HKCU\`):], nil
	case strings.HasPrefix(location, `HKLM\`):
		return HiveMachine, location[len(`HKLM\`):], nil
	default:
		return 0, "", fmt.Errorf("unrecognized registry location %q", location)
	}
}
