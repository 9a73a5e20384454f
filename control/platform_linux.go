//go:build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific debug probes.

package control

import (
	"runtime"

	"github.com/momentics/blockpool/affinity"
)

// RegisterPlatformProbes adds CPU topology probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.allowed_cpus", func() any {
		cpus, err := affinity.AllowedCPUs()
		if err != nil {
			return err.Error()
		}
		return cpus
	})
}
