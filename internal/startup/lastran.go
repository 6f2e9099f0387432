package startup

import "time"

// ResolveLastRan applies the tiered evidence chain, strictly in order:
//
//  1. the start time of a currently running process,
//  2. the prefetch record for the executable (requires elevation),
//  3. the approval store's disable timestamp when the entry is disabled,
//  4. unknown.
//
// Each tier answers a different question (running now, historically
// executed, when it was turned off), so the winning tier is recorded on the
// value and must survive to the presentation layer.
func ResolveLastRan(e *Entry, procStart time.Time, prefetch *PrefetchIndex, rec PolicyRecord, explicit bool) LastRan {
	if e.Runtime == RunStateRunning && !procStart.IsZero() {
		return LastRan{Time: procStart, Tier: TierProcessObserved}
	}

	if prefetch != nil && prefetch.Accessible() {
		if exe := e.Identity.ExeName(); exe != "" {
			if t, ok := prefetch.Lookup(exe); ok {
				return LastRan{Time: t, Tier: TierPrefetchObserved}
			}
		}
	}

	if explicit && rec.Value == PolicyDisabled && !rec.DisabledAt.IsZero() {
		return LastRan{Time: rec.DisabledAt, Tier: TierDisabledTimestamp}
	}

	return LastRan{Tier: TierUnknown}
}
