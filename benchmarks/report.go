// File: benchmarks/report.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package benchmarks

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatReport renders results as an aligned text table.
func FormatReport(results []Result) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder
	b.WriteString("\n=== Memory Pool Benchmark Results ===\n")
	p.Fprintf(&b, "%-26s %12s %10s %10s %10s %10s %8s\n",
		"test", "iterations", "avg ns", "min ns", "max ns", "failures", "valid")
	for _, r := range results {
		valid := "yes"
		if !r.Verified {
			valid = "NO"
		}
		p.Fprintf(&b, "%-26s %12d %10d %10d %10d %10d %8s\n",
			r.Name, r.Iterations, r.Avg.Nanoseconds(), r.Min.Nanoseconds(),
			r.Max.Nanoseconds(), r.Failures, valid)
	}
	return b.String()
}
