// Package watch implements the live daemon watch TUI. It polls the cache
// directory and renders daemon liveness, last sync time, and per-domain
// document counts.
package watch

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jfarrell/icloud-cli/internal/cache"
)

// DomainState summarizes one cached domain for display.
type DomainState struct {
	Domain  string
	Count   int
	Updated time.Time
	Cached  bool
	Corrupt bool
}

// Model is the Bubble Tea model for the watch TUI
type Model struct {
	Store    *cache.Store
	Interval time.Duration

	// Window dimensions
	Width  int
	Height int

	// Panel data
	Running  bool
	PID      int
	LastSync string
	Domains  []DomainState

	// UI state
	LastRefresh time.Time
	ShowHelp    bool
	Err         error
}

// MinWidth is the minimum terminal width for proper display
const MinWidth = 40

// TickMsg triggers a data refresh
type TickMsg time.Time

// RefreshDataMsg carries refreshed data
type RefreshDataMsg struct {
	Running   bool
	PID       int
	LastSync  string
	Domains   []DomainState
	Err       error
	Timestamp time.Time
}

// NewModel creates a new watch model
func NewModel(store *cache.Store, interval time.Duration) Model {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return Model{
		Store:    store,
		Interval: interval,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchData(),
		m.scheduleTick(),
	)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case TickMsg:
		return m, tea.Batch(m.fetchData(), m.scheduleTick())

	case RefreshDataMsg:
		m.Running = msg.Running
		m.PID = msg.PID
		m.LastSync = msg.LastSync
		m.Domains = msg.Domains
		m.Err = msg.Err
		m.LastRefresh = msg.Timestamp
		return m, nil
	}

	return m, nil
}

// handleKey processes key input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit

	case "r":
		return m, m.fetchData()

	case "?":
		m.ShowHelp = !m.ShowHelp
		return m, nil
	}

	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	return m.renderView()
}

// scheduleTick returns a command that sends a TickMsg after the refresh interval
func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.Interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// fetchData returns a command that reads cache state and sends a RefreshDataMsg
func (m Model) fetchData() tea.Cmd {
	return func() tea.Msg {
		return FetchData(m.Store)
	}
}
