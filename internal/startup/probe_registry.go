package startup

import (
	"context"
	"errors"
	"fmt"
)

type runKeyLocation struct {
	hive    Hive
	path    string
	runOnce bool
}

// runKeyLocations covers the 64-bit and WOW6432Node Run/RunOnce keys under
// both hives. Each combination is a distinct origin location.
var runKeyLocations = []runKeyLocation{
	{HiveUser, `Software\Microsoft\Windows\CurrentVersion\Run`, false},
	{HiveMachine, `Software\Microsoft\Windows\CurrentVersion\Run`, false},
	{HiveUser, `Software\Microsoft\Windows\CurrentVersion\RunOnce`, true},
	{HiveMachine, `Software\Microsoft\Windows\CurrentVersion\RunOnce`, true},
	{HiveMachine, `Software\Wow6432Node\Microsoft\Windows\CurrentVersion\Run`, false},
	{HiveMachine, `Software\Wow6432Node\Microsoft\Windows\CurrentVersion\RunOnce`, true},
}

// RegistryRunProbe enumerates autorun values from the Run/RunOnce keys.
type RegistryRunProbe struct {
	Reg RegistryAccess
}

func (p *RegistryRunProbe) Name() string { return "registry-run" }

func (p *RegistryRunProbe) Collect(ctx context.Context) ([]RawEntry, error) {
	if p.Reg == nil {
		return nil, errors.New("registry access unavailable")
	}

	var entries []RawEntry
	var errs []error

	for _, loc := range runKeyLocations {
		if ctx.Err() != nil {
			return entries, errors.Join(append(errs, ctx.Err())...)
		}

		values, err := p.Reg.ReadValues(loc.hive, loc.path)
		if err != nil {
			if !errors.Is(err, ErrKeyNotFound) {
				errs = append(errs, fmt.Errorf("%s\\%s: %w", loc.hive, loc.path, err))
			}
			continue
		}

		kind := SourceRegistryRun
		if loc.runOnce {
			kind = SourceRegistryRunOnce
		}
		scope := ScopeUser
		if loc.hive == HiveMachine {
			scope = ScopeMachine
		}

		for _, v := range values {
			if v.Name == "" {
				continue
			}
			if v.Kind != RegString && v.Kind != RegExpandString {
				continue
			}
			entries = append(entries, RawEntry{
				Kind:      kind,
				Name:      v.Name,
				RawTarget: v.Str,
				Scope:     scope,
				Location:  loc.hive.String() + `\` + loc.path,
			})
		}
	}

	return entries, errors.Join(errs...)
}
