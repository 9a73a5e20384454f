//go:build windows

// File: affinity/affinity_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows-specific implementation for setting thread CPU affinity.

package affinity

import (
	"fmt"
	"math/bits"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32                   = windows.NewLazySystemDLL("kernel32.dll")
	procSetThreadAffinityMask  = kernel32.NewProc("SetThreadAffinityMask")
	procGetProcessAffinityMask = kernel32.NewProc("GetProcessAffinityMask")
)

func setAffinityPlatform(cpuID int) error {
	if cpuID >= bits.UintSize {
		return fmt.Errorf("affinity: cpu %d beyond affinity mask", cpuID)
	}
	mask := uintptr(1) << cpuID
	ret, _, err := procSetThreadAffinityMask.Call(uintptr(windows.CurrentThread()), mask)
	if ret == 0 {
		return fmt.Errorf("affinity: SetThreadAffinityMask cpu %d: %w", cpuID, err)
	}
	return nil
}

func allowedCPUsPlatform() ([]int, error) {
	var procMask, sysMask uintptr
	ret, _, err := procGetProcessAffinityMask.Call(
		uintptr(windows.CurrentProcess()),
		uintptr(unsafe.Pointer(&procMask)),
		uintptr(unsafe.Pointer(&sysMask)),
	)
	if ret == 0 {
		return nil, fmt.Errorf("affinity: GetProcessAffinityMask: %w", err)
	}
	cpus := make([]int, 0, bits.OnesCount(uint(procMask)))
	for i := 0; i < bits.UintSize; i++ {
		if procMask&(uintptr(1)<<i) != 0 {
			cpus = append(cpus, i)
		}
	}
	return cpus, nil
}
