package startup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StartupFolderProbe scans the per-user and all-users startup folders.
// Shortcuts are resolved to their targets; an unresolvable shortcut is
// still reported with the link file itself as the target so the entry
// remains visible and deletable.
type StartupFolderProbe struct {
	UserDir   string
	CommonDir string
	Shortcuts ShortcutResolver
}

func (p *StartupFolderProbe) Name() string { return "startup-folder" }

func (p *StartupFolderProbe) Collect(ctx context.Context) ([]RawEntry, error) {
	var entries []RawEntry
	var errs []error

	dirs := []struct {
		path  string
		scope Scope
	}{
		{p.UserDir, ScopeUser},
		{p.CommonDir, ScopeMachine},
	}

	for _, d := range dirs {
		if ctx.Err() != nil {
			return entries, errors.Join(append(errs, ctx.Err())...)
		}
		if d.path == "" {
			continue
		}

		found, err := p.scanDir(d.path, d.scope)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		entries = append(entries, found...)
	}

	return entries, errors.Join(errs...)
}

func (p *StartupFolderProbe) scanDir(dir string, scope Scope) ([]RawEntry, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("startup folder %s: %w", dir, err)
	}

	var entries []RawEntry
	for _, item := range items {
		if item.IsDir() {
			continue
		}
		name := item.Name()
		if strings.EqualFold(name, "desktop.ini") {
			continue
		}

		full := filepath.Join(dir, name)
		stem := strings.TrimSuffix(name, filepath.Ext(name))

		switch strings.ToLower(filepath.Ext(name)) {
		case ".lnk":
			target := full
			if p.Shortcuts != nil {
				if t, args, err := p.Shortcuts.Resolve(full); err == nil && t != "" {
					target = t
					if args != "" {
						target = t + " " + args
					}
				}
			}
			entries = append(entries, RawEntry{
				Kind:      SourceStartupFolder,
				Name:      stem,
				RawTarget: target,
				Scope:     scope,
				Location:  full,
			})
		case ".exe", ".bat", ".cmd":
			entries = append(entries, RawEntry{
				Kind:      SourceStartupFolder,
				Name:      stem,
				RawTarget: full,
				Scope:     scope,
				Location:  full,
			})
		}
	}

	return entries, nil
}
