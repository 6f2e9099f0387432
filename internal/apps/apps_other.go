//go:build !windows

package apps

import "errors"

// List is unavailable off Windows: the inventory lives in the registry.
func List() ([]App, error) {
	return nil, errors.New("installed application inventory requires windows")
}
