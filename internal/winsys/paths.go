package winsys

import (
	"os"
	"path/filepath"
)

const startupSuffix = `Microsoft\Windows\Start Menu\Programs\Startup`

// UserStartupDir returns the current user's startup folder, or "" when the
// profile environment is not populated.
func UserStartupDir() string {
	appData := os.Getenv("APPDATA")
	if appData == "" {
		return ""
	}
	return filepath.Join(appData, startupSuffix)
}

// CommonStartupDir returns the all-users startup folder.
func CommonStartupDir() string {
	programData := os.Getenv("ProgramData")
	if programData == "" {
		return ""
	}
	return filepath.Join(programData, startupSuffix)
}
