// File: api/control.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Monitor exposes runtime metrics and debug probes of a running system.
type Monitor interface {
	Stats() map[string]any
	Refresh()
	RegisterDebugProbe(name string, fn func() any)
	DumpState() map[string]any
}
