// Package privilege answers whether the current process can perform
// admin-gated operations, so commands can fail with a clear message
// instead of a raw access-denied from deep inside a provider.
package privilege

// Operation names used by the CLI when checking preconditions.
const (
	OpMachineToggle = "machine-toggle"
	OpServiceChange = "service-change"
	OpTaskChange    = "task-change"
	OpPrefetchRead  = "prefetch-read"
)

// elevatedOps maps operations that touch machine-wide state and need an
// elevated token (or root) to succeed.
var elevatedOps = map[string]bool{
	OpMachineToggle: true,
	OpServiceChange: true,
	OpTaskChange:    true,
	OpPrefetchRead:  true,
}

// RequiresElevation reports whether the named operation needs admin rights.
func RequiresElevation(op string) bool {
	return elevatedOps[op]
}
