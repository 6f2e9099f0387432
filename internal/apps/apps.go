// Package apps enumerates installed applications from the uninstall
// registry, the same inventory Add/Remove Programs presents.
package apps

// App is one installed application record.
type App struct {
	Name            string
	Version         string
	Publisher       string
	InstallLocation string
	UninstallString string
	EstimatedSizeKB uint64
	Scope           string // "user" or "machine"
}
