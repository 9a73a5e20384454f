//go:build windows

// control/platform_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows-specific debug probes.

package control

import (
	"runtime"

	"golang.org/x/sys/windows"
)

// RegisterPlatformProbes adds CPU and OS version probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.os_version", func() any {
		v := windows.RtlGetVersion()
		return [3]uint32{v.MajorVersion, v.MinorVersion, v.BuildNumber}
	})
}
