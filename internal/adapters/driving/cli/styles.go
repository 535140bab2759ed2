package cli

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	codeStyle    = lipgloss.NewStyle().PaddingLeft(4)
)

// statusStyle picks the colour for a harvest status.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "done":
		return successStyle
	case "cancelled":
		return warningStyle
	default:
		return errorStyle
	}
}
