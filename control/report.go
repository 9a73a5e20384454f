// File: control/report.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Human-readable rendering of diagnostics snapshots.

package control

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/momentics/blockpool/api"
)

// Alert banners appended to reports. The CLI matches on them for styling.
const (
	CriticalBanner      = "!!! CRITICAL MEMORY ALERT !!!"
	LowMemoryBanner     = "! Low Memory Warning !"
	FragmentationBanner = "! Fragmentation Warning !"
)

// Report renders the current snapshot.
func (d *Diagnostics) Report() string {
	return FormatReport(d.Snapshot())
}

// FormatReport renders s as a multi-line text report. Byte counts use
// thousands separators.
func FormatReport(s api.Snapshot) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	b.WriteString("\n=== Memory Pool Diagnostics Report ===\n")
	p.Fprintf(&b, "Uptime: %d seconds\n", s.UptimeSeconds)
	p.Fprintf(&b, "Overall Utilization: %d%%\n", s.OverallUtilization)
	p.Fprintf(&b, "Total Capacity: %d bytes\n", s.TotalCapacity)
	p.Fprintf(&b, "Currently Allocated: %d bytes\n", s.TotalAllocated)
	p.Fprintf(&b, "Peak Allocated: %d bytes\n", s.PeakAllocated)
	p.Fprintf(&b, "Fragmentation Index: %d%%\n", s.FragmentationIndex)
	p.Fprintf(&b, "Largest Free Block: %d bytes\n", s.LargestFreeBlock)
	p.Fprintf(&b, "Allocations: %d, Deallocations: %d, Failures: %d\n",
		s.TotalAllocations, s.TotalDeallocations, s.AllocationFailures)

	b.WriteString("\n--- Pool Statistics ---\n")
	for _, t := range s.Pools {
		p.Fprintf(&b, "%6s Pool: %d/%d blocks (%d%%), Failures: %d, Rate: %d alloc/s, Hold: %d ms\n",
			t.Name, t.UsedBlocks, t.TotalBlocks, t.UtilizationPercent,
			t.AllocationFailures, t.AllocationRate, t.AvgHoldTimeMs)
	}

	switch {
	case s.Alerts.CriticalMemory:
		b.WriteString("\n" + CriticalBanner + "\n")
	case s.Alerts.LowMemory:
		b.WriteString("\n" + LowMemoryBanner + "\n")
	}
	if s.Alerts.Fragmentation {
		b.WriteString("\n" + FragmentationBanner + "\n")
	}
	return b.String()
}
