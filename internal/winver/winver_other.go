//go:build !windows

package winver

// ProductName has no PE version resources to read off Windows.
func ProductName(path string) string { return "" }
