// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files (affinity_linux.go, affinity_windows.go, affinity_stub.go) guarded by build tags.

package affinity

import (
	"fmt"

	"github.com/momentics/blockpool/api"
)

// SetAffinity pins the calling OS thread to a logical CPU. Callers must hold
// runtime.LockOSThread for the pin to stay with their goroutine.
// On unsupported platforms it returns api.ErrNotSupported.
func SetAffinity(cpuID int) error {
	if cpuID < 0 {
		return fmt.Errorf("affinity: cpu %d: %w", cpuID, api.ErrInvalidArgument)
	}
	return setAffinityPlatform(cpuID)
}

// AllowedCPUs lists the logical CPUs the process may run on, ascending.
func AllowedCPUs() ([]int, error) {
	return allowedCPUsPlatform()
}
