package watch

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Base colors
	primaryColor = lipgloss.Color("212")
	mutedColor   = lipgloss.Color("241")
	successColor = lipgloss.Color("42")
	warningColor = lipgloss.Color("214")
	errorColor   = lipgloss.Color("196")

	// Panel styles
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	// Text styles
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	subtleStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	helpStyle      = lipgloss.NewStyle().Foreground(mutedColor)
	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	// State badges
	runningBadge = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	stoppedBadge = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	staleBadge   = lipgloss.NewStyle().Foreground(warningColor)
)

// formatDaemonState renders the running/stopped badge
func formatDaemonState(running bool) string {
	if running {
		return runningBadge.Render("● running")
	}
	return stoppedBadge.Render("○ stopped")
}

// formatDomainState renders a domain's cache state badge
func formatDomainState(ds DomainState) string {
	switch {
	case ds.Corrupt:
		return staleBadge.Render("corrupt")
	case !ds.Cached:
		return subtleStyle.Render("no cache")
	default:
		return runningBadge.Render("cached")
	}
}
