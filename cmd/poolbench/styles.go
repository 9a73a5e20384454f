package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/momentics/blockpool/control"
)

var (
	criticalColor = lipgloss.Color("#FF5F5F")
	warnColor     = lipgloss.Color("#FFAF00")
	headerColor   = lipgloss.Color("#7D56F4")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(headerColor)

	criticalStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(criticalColor).
			Padding(0, 1)

	warnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(warnColor)
)

// styleReport colors headers and alert banners of a text report.
func styleReport(report string) string {
	if noColor {
		return report
	}
	lines := strings.Split(report, "\n")
	for i, line := range lines {
		switch {
		case line == control.CriticalBanner:
			lines[i] = criticalStyle.Render(line)
		case line == control.LowMemoryBanner, line == control.FragmentationBanner:
			lines[i] = warnStyle.Render(line)
		case strings.HasPrefix(line, "===") || strings.HasPrefix(line, "---"):
			lines[i] = headerStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}
