// Package winsys provides the Windows-backed implementations of the
// startup package's provider interfaces. Non-Windows builds get stubs
// that fail with ErrUnsupported so the rest of the program still links.
package winsys

import "errors"

// ErrUnsupported is returned by every stub on platforms without the
// underlying facility.
var ErrUnsupported = errors.New("not supported on this platform")
