package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/marcus/fieldsync/internal/models"
)

// renderView renders the complete TUI view
func (m Model) renderView() string {
	if m.Width == 0 || m.Height == 0 {
		return "Loading..."
	}

	if m.Width < MinWidth || m.Height < MinHeight {
		return m.renderCompact()
	}

	if m.Err != nil {
		return m.renderError()
	}

	header := m.renderHeader()

	// Split the remaining height between the two panels, leaving
	// room for header and footer.
	availableHeight := m.Height - lipgloss.Height(header) - 2
	pendingHeight := availableHeight / 3
	if pendingHeight < 6 {
		pendingHeight = 6
	}
	historyHeight := availableHeight - pendingHeight

	pending := m.renderPendingPanel(pendingHeight)
	history := m.renderHistoryPanel(historyHeight)
	footer := m.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, header, pending, history, footer)
}

// renderCompact renders a minimal view for small terminals
func (m Model) renderCompact() string {
	var s strings.Builder

	s.WriteString("fieldsync monitor (resize for full view)\n\n")

	if m.Snapshot.Online {
		s.WriteString("Online\n")
	} else {
		s.WriteString("Offline\n")
	}
	s.WriteString(fmt.Sprintf("Pending: %d | Queue: %d | Abandoned: %d\n",
		m.Counts.Properties+m.Counts.Inspections+m.Counts.Evidence,
		m.Counts.QueueEntries,
		m.Counts.Abandoned))

	s.WriteString("\nq:quit r:refresh s:sync")

	return s.String()
}

// renderError renders an error message
func (m Model) renderError() string {
	return fmt.Sprintf("Error: %v\n\nPress r to retry, q to quit", m.Err)
}

// renderHeader renders the connectivity status line
func (m Model) renderHeader() string {
	var parts []string

	parts = append(parts, titleStyle.Render("fieldsync"))
	if m.Version != "" {
		parts = append(parts, subtleStyle.Render(m.Version))
	}

	if m.Snapshot.Online {
		parts = append(parts, onlineStyle.Render("● online"))
	} else {
		parts = append(parts, offlineStyle.Render("○ offline"))
	}
	parts = append(parts, formatEngineStatus(m.Snapshot.Status))

	if m.Syncing {
		parts = append(parts, m.Spinner.View()+" syncing")
	} else if m.LastResult != nil {
		if m.LastResult.Success {
			parts = append(parts, okBadge.Render(fmt.Sprintf("last sync: %d synced", m.LastResult.SyncedItems)))
		} else {
			parts = append(parts, errorBadge.Render(fmt.Sprintf("last sync: %d failed", m.LastResult.FailedItems)))
		}
	}

	return " " + strings.Join(parts, "  ")
}

// renderPendingPanel renders the pending work panel (Panel 1)
func (m Model) renderPendingPanel(height int) string {
	var content strings.Builder

	if m.Counts.Total() == 0 {
		content.WriteString(subtleStyle.Render("Everything synced"))
		content.WriteString("\n")
	} else {
		content.WriteString(fmt.Sprintf("Properties:  %d\n", m.Counts.Properties))
		content.WriteString(fmt.Sprintf("Inspections: %d\n", m.Counts.Inspections))
		content.WriteString(fmt.Sprintf("Evidence:    %d\n", m.Counts.Evidence))
		content.WriteString(fmt.Sprintf("Queued:      %d\n", m.Counts.QueueEntries))
	}

	if len(m.Failed) > 0 {
		content.WriteString("\n")
		offset := m.ScrollOffset[PanelPending]
		visible := m.visibleItems(len(m.Failed), offset, height-7)

		for i := offset; i < offset+visible && i < len(m.Failed); i++ {
			content.WriteString(m.formatQueueEntry(&m.Failed[i]))
			content.WriteString("\n")
		}
	}

	return m.wrapPanel("PENDING", content.String(), height, PanelPending)
}

// renderHistoryPanel renders the sync history panel (Panel 2)
func (m Model) renderHistoryPanel(height int) string {
	var content strings.Builder

	if len(m.History) == 0 {
		content.WriteString(subtleStyle.Render("No sync activity yet"))
	} else {
		offset := m.ScrollOffset[PanelHistory]
		visible := m.visibleItems(len(m.History), offset, height-2)

		for i := offset; i < offset+visible && i < len(m.History); i++ {
			h := &m.History[i]
			line := fmt.Sprintf("%s %s %-4s %-6s %s/%s",
				timestampStyle.Render(h.Timestamp.Format("15:04:05")),
				formatOutcomeBadge(h.Outcome),
				h.Direction,
				h.ActionType,
				h.EntityType,
				h.EntityID)
			if h.Detail != "" {
				line += " " + subtleStyle.Render(h.Detail)
			}
			content.WriteString(line)
			content.WriteString("\n")
		}
	}

	return m.wrapPanel("SYNC HISTORY", content.String(), height, PanelHistory)
}

// renderFooter renders the key binding help line
func (m Model) renderFooter() string {
	keys := "s:sync  r:refresh  tab:panel  j/k:scroll  q:quit"
	refreshed := ""
	if !m.LastRefresh.IsZero() {
		refreshed = "  refreshed " + m.LastRefresh.Format("15:04:05")
	}
	return helpStyle.Render(" " + keys + refreshed)
}

// formatQueueEntry formats a failed or abandoned queue entry
func (m Model) formatQueueEntry(e *models.QueueEntry) string {
	badge := errorBadge.Render("[RETRY]")
	if e.Status == models.QueueAbandoned {
		badge = errorBadge.Render("[GIVEN UP]")
	}
	line := fmt.Sprintf("%s %s/%s %s (attempt %d)", badge, e.EntityType, e.EntityID, e.Action, e.RetryCount)
	if e.LastError != "" {
		line += " " + subtleStyle.Render(truncate(e.LastError, m.Width-len(line)-6))
	}
	return line
}

// wrapPanel wraps content in a bordered panel with a title
func (m Model) wrapPanel(title, content string, height int, panel Panel) string {
	style := panelStyle
	if m.ActivePanel == panel {
		style = activePanelStyle
	}

	inner := panelTitleStyle.Render(title) + "\n" + strings.TrimRight(content, "\n")

	return style.
		Width(m.Width - 2).
		Height(height - 2).
		Render(inner)
}

// visibleItems returns how many items fit given the scroll offset
func (m Model) visibleItems(total, offset, capacity int) int {
	if capacity < 1 {
		capacity = 1
	}
	remaining := total - offset
	if remaining < 0 {
		return 0
	}
	if remaining < capacity {
		return remaining
	}
	return capacity
}

// truncate shortens s to max runes with an ellipsis
func truncate(s string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
