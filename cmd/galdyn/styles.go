package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ffff"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ccff")).
			Bold(true)

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666688"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 2)
)

// field renders one "label: value" summary line.
func field(label string, format string, args ...any) string {
	return labelStyle.Render(fmt.Sprintf("%-14s", label+":")) + " " + valueStyle.Render(fmt.Sprintf(format, args...))
}

func panel(title string, lines ...string) string {
	body := lipgloss.JoinVertical(lipgloss.Left, append([]string{titleStyle.Render(title)}, lines...)...)
	return panelStyle.Render(body)
}
