package monitor

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/marcus/fieldsync/internal/netmon"
)

var (
	// Base colors
	primaryColor   = lipgloss.Color("212")
	secondaryColor = lipgloss.Color("141")
	mutedColor     = lipgloss.Color("241")
	successColor   = lipgloss.Color("42")
	warningColor   = lipgloss.Color("214")
	errorColor     = lipgloss.Color("196")

	// Panel styles
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(primaryColor).
				Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	// Text styles
	titleStyle     = lipgloss.NewStyle().Bold(true)
	subtleStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	helpStyle      = lipgloss.NewStyle().Foreground(mutedColor)
	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	spinnerStyle   = lipgloss.NewStyle().Foreground(primaryColor)

	// Connectivity styles
	onlineStyle  = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	offlineStyle = lipgloss.NewStyle().Foreground(errorColor).Bold(true)

	engineStyles = map[netmon.Status]lipgloss.Style{
		netmon.StatusIdle:    lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		netmon.StatusSyncing: lipgloss.NewStyle().Foreground(warningColor),
		netmon.StatusError:   lipgloss.NewStyle().Foreground(errorColor),
		netmon.StatusOffline: lipgloss.NewStyle().Foreground(mutedColor),
	}

	// History outcome badges
	okBadge       = lipgloss.NewStyle().Foreground(successColor)
	conflictBadge = lipgloss.NewStyle().Foreground(secondaryColor)
	errorBadge    = lipgloss.NewStyle().Foreground(errorColor)
	skipBadge     = lipgloss.NewStyle().Foreground(mutedColor)
)

// formatEngineStatus renders the engine status with color
func formatEngineStatus(s netmon.Status) string {
	style, ok := engineStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(string(s))
}

// formatOutcomeBadge renders a sync history outcome badge
func formatOutcomeBadge(outcome string) string {
	switch outcome {
	case "ok":
		return okBadge.Render("[ OK ]")
	case "conflict_local", "conflict_server":
		return conflictBadge.Render("[CONF]")
	case "skipped":
		return skipBadge.Render("[SKIP]")
	case "error":
		return errorBadge.Render("[ERR ]")
	default:
		return subtleStyle.Render("[????]")
	}
}
