//go:build windows

package apps

import (
	"sort"
	"strings"

	"golang.org/x/sys/windows/registry"
)

const uninstallBase = `Software\Microsoft\Windows\CurrentVersion\Uninstall`

type uninstallRoot struct {
	root  registry.Key
	path  string
	scope string
}

var uninstallRoots = []uninstallRoot{
	{registry.LOCAL_MACHINE, uninstallBase, "machine"},
	{registry.LOCAL_MACHINE, `Software\Wow6432Node\Microsoft\Windows\CurrentVersion\Uninstall`, "machine"},
	{registry.CURRENT_USER, uninstallBase, "user"},
}

// List reads every uninstall key under both hives including the 32-bit
// view. Entries without a display name are installer bookkeeping and are
// skipped. The result is sorted by name, case-insensitive.
func List() ([]App, error) {
	var apps []App
	seen := make(map[string]bool)

	for _, loc := range uninstallRoots {
		key, err := registry.OpenKey(loc.root, loc.path, registry.ENUMERATE_SUB_KEYS|registry.QUERY_VALUE)
		if err != nil {
			continue
		}

		subkeys, err := key.ReadSubKeyNames(-1)
		if err != nil {
			key.Close()
			continue
		}

		for _, sub := range subkeys {
			app, ok := readApp(loc.root, loc.path+`\`+sub, loc.scope)
			if !ok {
				continue
			}
			dedup := strings.ToLower(app.Name) + "\x00" + app.Version
			if seen[dedup] {
				continue
			}
			seen[dedup] = true
			apps = append(apps, app)
		}
		key.Close()
	}

	sort.Slice(apps, func(i, j int) bool {
		return strings.ToLower(apps[i].Name) < strings.ToLower(apps[j].Name)
	})
	return apps, nil
}

func readApp(root registry.Key, path, scope string) (App, bool) {
	key, err := registry.OpenKey(root, path, registry.QUERY_VALUE)
	if err != nil {
		return App{}, false
	}
	defer key.Close()

	name, _, err := key.GetStringValue("DisplayName")
	if err != nil || strings.TrimSpace(name) == "" {
		return App{}, false
	}
	// System components are hidden from Add/Remove Programs too.
	if v, _, err := key.GetIntegerValue("SystemComponent"); err == nil && v == 1 {
		return App{}, false
	}

	app := App{Name: strings.TrimSpace(name), Scope: scope}
	if v, _, err := key.GetStringValue("DisplayVersion"); err == nil {
		app.Version = v
	}
	if v, _, err := key.GetStringValue("Publisher"); err == nil {
		app.Publisher = v
	}
	if v, _, err := key.GetStringValue("InstallLocation"); err == nil {
		app.InstallLocation = v
	}
	if v, _, err := key.GetStringValue("UninstallString"); err == nil {
		app.UninstallString = v
	}
	if v, _, err := key.GetIntegerValue("EstimatedSize"); err == nil {
		app.EstimatedSizeKB = v
	}
	return app, true
}
