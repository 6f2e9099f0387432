package startup

import (
	"os"
	"strings"
	"time"
)

// PrefetchIndex maps executable names to the most recent run timestamp
// derived from prefetch file modification times. Reading the prefetch
// directory requires elevation; an inaccessible directory makes the whole
// index absent, which is a normal outcome rather than an error.
type PrefetchIndex struct {
	lastRun    map[string]time.Time
	accessible bool
}

// OpenPrefetch scans dir for *.pf files. Filenames follow the pattern
// NAME.EXE-HASH.pf; the newest timestamp per executable wins.
func OpenPrefetch(dir string) *PrefetchIndex {
	idx := &PrefetchIndex{lastRun: make(map[string]time.Time)}
	if dir == "" {
		return idx
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return idx
	}
	idx.accessible = true

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		exe, ok := parsePrefetchName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		mod := info.ModTime()
		if existing, seen := idx.lastRun[exe]; !seen || mod.After(existing) {
			idx.lastRun[exe] = mod
		}
	}
	return idx
}

// Accessible reports whether the prefetch directory could be read at all.
// False means the privilege-gated tier is unavailable, distinct from
// "readable but no record for this executable".
func (p *PrefetchIndex) Accessible() bool { return p.accessible }

// Lookup returns the latest recorded run for an executable name
// (case-insensitive, e.g. "chrome.exe").
func (p *PrefetchIndex) Lookup(exeName string) (time.Time, bool) {
	t, ok := p.lastRun[strings.ToUpper(exeName)]
	return t, ok
}

// parsePrefetchName extracts the executable name from a prefetch filename:
// "CHROME.EXE-AB12CD34.pf" -> "CHROME.EXE".
func parsePrefetchName(filename string) (string, bool) {
	upper := strings.ToUpper(filename)
	stem, ok := strings.CutSuffix(upper, ".PF")
	if !ok {
		return "", false
	}
	dash := strings.LastIndex(stem, "-")
	if dash <= 0 {
		return "", false
	}
	return stem[:dash], true
}
