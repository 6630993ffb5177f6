package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderView renders the complete TUI view
func (m Model) renderView() string {
	if m.Width == 0 || m.Height == 0 {
		return "Loading..."
	}

	if m.Width < MinWidth {
		return m.renderCompact()
	}

	if m.Err != nil {
		return m.renderError()
	}

	if m.ShowHelp {
		return m.renderHelp()
	}

	daemonPanel := m.renderDaemonPanel()
	domainsPanel := m.renderDomainsPanel()
	footer := m.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, daemonPanel, domainsPanel, footer)
}

// renderCompact renders a minimal view for small terminals
func (m Model) renderCompact() string {
	var s strings.Builder

	s.WriteString("icloud-cli watch (resize for full view)\n\n")
	if m.Running {
		s.WriteString(fmt.Sprintf("Daemon: running (pid %d)\n", m.PID))
	} else {
		s.WriteString("Daemon: stopped\n")
	}
	if m.LastSync != "" {
		s.WriteString(fmt.Sprintf("Last sync: %s\n", m.LastSync))
	}

	cached := 0
	for _, ds := range m.Domains {
		if ds.Cached {
			cached++
		}
	}
	s.WriteString(fmt.Sprintf("Cached domains: %d/%d\n", cached, len(m.Domains)))
	s.WriteString("\nq:quit r:refresh ?:help")

	return s.String()
}

// renderError renders an error message
func (m Model) renderError() string {
	return fmt.Sprintf("Error: %v\n\nPress r to retry, q to quit", m.Err)
}

// renderDaemonPanel renders daemon liveness and last sync time
func (m Model) renderDaemonPanel() string {
	var content strings.Builder

	content.WriteString(formatDaemonState(m.Running))
	if m.Running {
		content.WriteString(subtleStyle.Render(fmt.Sprintf("  pid %d", m.PID)))
	}
	content.WriteString("\n")

	if m.LastSync != "" {
		content.WriteString(fmt.Sprintf("Last sync: %s", m.LastSync))
		if t, err := time.Parse(time.RFC3339, m.LastSync); err == nil {
			content.WriteString(subtleStyle.Render(fmt.Sprintf("  (%s ago)", humanAge(time.Since(t)))))
		}
	} else {
		content.WriteString(subtleStyle.Render("Last sync: never"))
	}
	content.WriteString("\n")

	return m.wrapPanel("DAEMON", content.String())
}

// renderDomainsPanel renders per-domain cache rows
func (m Model) renderDomainsPanel() string {
	var content strings.Builder

	for _, ds := range m.Domains {
		line := fmt.Sprintf("%-10s %-9s", ds.Domain, formatDomainState(ds))
		if ds.Cached {
			line += fmt.Sprintf("  %4d items", ds.Count)
			if !ds.Updated.IsZero() {
				line += timestampStyle.Render(fmt.Sprintf("  updated %s ago", humanAge(time.Since(ds.Updated))))
			}
		}
		content.WriteString(line)
		content.WriteString("\n")
	}

	return m.wrapPanel("CACHE", content.String())
}

// renderFooter renders the key hints and refresh timestamp
func (m Model) renderFooter() string {
	hints := helpStyle.Render("q:quit  r:refresh  ?:help")
	if m.LastRefresh.IsZero() {
		return hints
	}
	ts := timestampStyle.Render(fmt.Sprintf("refreshed %s", m.LastRefresh.Format("15:04:05")))
	gap := m.Width - lipgloss.Width(hints) - lipgloss.Width(ts)
	if gap < 1 {
		return hints
	}
	return hints + strings.Repeat(" ", gap) + ts
}

// renderHelp renders the help overlay
func (m Model) renderHelp() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("icloud-cli daemon watch"))
	s.WriteString("\n\n")
	s.WriteString("Polls the local cache and shows daemon state.\n\n")
	s.WriteString("  q, esc   quit\n")
	s.WriteString("  r        refresh now\n")
	s.WriteString("  ?        toggle this help\n")

	return panelStyle.Width(m.Width - 2).Render(s.String())
}

// wrapPanel wraps content in a bordered panel with a title bar
func (m Model) wrapPanel(title, content string) string {
	titled := panelTitleStyle.Render(title) + "\n" + strings.TrimRight(content, "\n")
	return panelStyle.Width(m.Width - 2).Render(titled)
}

// humanAge renders a duration as a short age string
func humanAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
