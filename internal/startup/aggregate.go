package startup

import (
	"sort"
	"strings"
)

// Aggregate groups raw entries by Identity so a program registered through
// several mechanisms appears as a single row. The output is ordered by
// display name ascending, case-insensitive; ties break on identity so the
// ordering is total. This ordering is a contract relied on by both the
// presentation layer and the export rows.
func Aggregate(raws []RawEntry) []*Entry {
	groups := make(map[string]*Entry)
	var order []string

	for _, raw := range raws {
		id := NormalizeIdentity(raw.RawTarget)
		key := id.Key()

		entry, ok := groups[key]
		if !ok {
			entry = &Entry{Identity: id}
			groups[key] = entry
			order = append(order, key)
		}
		entry.Sources = append(entry.Sources, raw)
	}

	entries := make([]*Entry, 0, len(order))
	for _, key := range order {
		entry := groups[key]

		sort.SliceStable(entry.Sources, func(i, j int) bool {
			a, b := entry.Sources[i], entry.Sources[j]
			if a.Kind != b.Kind {
				return a.Kind < b.Kind
			}
			return a.Location < b.Location
		})

		entry.Name = chooseName(entry.Sources)
		for _, src := range entry.Sources {
			if src.Scope == ScopeUser {
				entry.Scope |= scopeSetUser
			} else {
				entry.Scope |= scopeSetMachine
			}
		}

		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a := strings.ToLower(entries[i].Name)
		b := strings.ToLower(entries[j].Name)
		if a != b {
			return a < b
		}
		return entries[i].Identity.Key() < entries[j].Identity.Key()
	})

	return entries
}

// chooseName picks the display name for a merged entry: the non-empty name
// from the narrowest scope (per-user registrations usually carry the
// product's own label), then the lowest source kind for determinism.
func chooseName(sources []RawEntry) string {
	best := -1
	for i, src := range sources {
		if src.Name == "" {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		cur := sources[best]
		if src.Scope == ScopeUser && cur.Scope == ScopeMachine {
			best = i
			continue
		}
		if src.Scope == cur.Scope && src.Kind < cur.Kind {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return sources[best].Name
}
