package monitor

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/fieldsync/internal/engine"
	"github.com/marcus/fieldsync/internal/models"
	"github.com/marcus/fieldsync/internal/netmon"
	"github.com/marcus/fieldsync/internal/store"
)

// Panel represents which panel is active
type Panel int

const (
	PanelPending Panel = iota
	PanelHistory
)

// Model is the main Bubble Tea model for the monitor TUI
type Model struct {
	Store   *store.Store
	Engine  *engine.Engine
	Monitor *netmon.Monitor

	// Window dimensions
	Width  int
	Height int

	// Panel data
	Counts   models.PendingCounts
	Failed   []models.QueueEntry
	History  []store.SyncHistoryEntry
	Snapshot netmon.Snapshot

	// UI state
	ActivePanel  Panel
	ScrollOffset map[Panel]int
	Spinner      spinner.Model
	Syncing      bool
	LastResult   *engine.Result
	LastRefresh  time.Time
	Err          error

	// Configuration
	RefreshInterval time.Duration
	Version         string
}

// MinWidth is the minimum terminal width for proper display
const MinWidth = 40

// MinHeight is the minimum terminal height for proper display
const MinHeight = 12

// TickMsg triggers a data refresh
type TickMsg time.Time

// RefreshDataMsg carries refreshed data
type RefreshDataMsg struct {
	Counts    models.PendingCounts
	Failed    []models.QueueEntry
	History   []store.SyncHistoryEntry
	Snapshot  netmon.Snapshot
	Err       error
	Timestamp time.Time
}

// SyncDoneMsg carries the outcome of a manually triggered sync pass
type SyncDoneMsg struct {
	Result *engine.Result
	Err    error
}

// NewModel creates a new monitor model
func NewModel(s *store.Store, eng *engine.Engine, mon *netmon.Monitor, interval time.Duration, version string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		Store:           s,
		Engine:          eng,
		Monitor:         mon,
		RefreshInterval: interval,
		Version:         version,
		ScrollOffset:    make(map[Panel]int),
		ActivePanel:     PanelPending,
		Spinner:         sp,
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
		m.Counts = msg.Counts
		m.Failed = msg.Failed
		m.History = msg.History
		m.Snapshot = msg.Snapshot
		m.Err = msg.Err
		m.LastRefresh = msg.Timestamp
		return m, nil

	case SyncDoneMsg:
		m.Syncing = false
		m.LastResult = msg.Result
		m.Err = msg.Err
		return m, m.fetchData()

	case spinner.TickMsg:
		if !m.Syncing {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleKey processes key input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab":
		m.ActivePanel = (m.ActivePanel + 1) % 2
		return m, nil

	case "1":
		m.ActivePanel = PanelPending
		return m, nil

	case "2":
		m.ActivePanel = PanelHistory
		return m, nil

	case "j", "down":
		m.ScrollOffset[m.ActivePanel]++
		return m, nil

	case "k", "up":
		if m.ScrollOffset[m.ActivePanel] > 0 {
			m.ScrollOffset[m.ActivePanel]--
		}
		return m, nil

	case "r":
		return m, m.fetchData()

	case "s":
		if m.Syncing {
			return m, nil
		}
		m.Syncing = true
		return m, tea.Batch(m.triggerSync(), m.Spinner.Tick)
	}

	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	return m.renderView()
}

// scheduleTick returns a command that sends a TickMsg after the refresh interval
func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.RefreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// fetchData returns a command that fetches all data and sends a RefreshDataMsg
func (m Model) fetchData() tea.Cmd {
	return func() tea.Msg {
		return FetchData(m.Store, m.Monitor)
	}
}

// triggerSync runs one sync pass off the UI loop
func (m Model) triggerSync() tea.Cmd {
	return func() tea.Msg {
		res, err := m.Engine.TriggerSync(context.Background())
		return SyncDoneMsg{Result: res, Err: err}
	}
}
