// Package output provides styled terminal output helpers (success,
// error, warning, entity formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/marcus/fieldsync/internal/models"
)

var (
	// Styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	syncStyles   = map[models.SyncStatus]lipgloss.Style{
		models.SyncPending: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.SyncSynced:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.SyncFailed:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// FormatSyncStatus formats a sync status with color
func FormatSyncStatus(s models.SyncStatus) string {
	style, ok := syncStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(fmt.Sprintf("[%s]", s))
}

// SyncBadge returns a sync status indicator with symbol
// e.g., "○ pending", "✓ synced", "✗ failed"
func SyncBadge(status models.SyncStatus) string {
	symbols := map[models.SyncStatus]string{
		models.SyncPending: "○",
		models.SyncSynced:  "✓",
		models.SyncFailed:  "✗",
	}
	symbol, ok := symbols[status]
	if !ok {
		symbol = "?"
	}
	style, hasStyle := syncStyles[status]
	if hasStyle {
		return style.Render(fmt.Sprintf("%s %s", symbol, status))
	}
	return fmt.Sprintf("%s %s", symbol, status)
}

// FormatPropertyShort formats a property in short format
func FormatPropertyShort(p *models.Property) string {
	var parts []string
	parts = append(parts, titleStyle.Render(p.LocalID))
	parts = append(parts, p.Address)
	if p.City != "" {
		parts = append(parts, subtleStyle.Render(p.City))
	}
	parts = append(parts, FormatSyncStatus(p.SyncStatus))
	return strings.Join(parts, "  ")
}

// FormatInspectionShort formats an inspection in short format
func FormatInspectionShort(i *models.Inspection) string {
	var parts []string
	parts = append(parts, titleStyle.Render(i.LocalID))
	parts = append(parts, i.Kind)
	if i.Completed {
		parts = append(parts, subtleStyle.Render("completed"))
	}
	parts = append(parts, FormatSyncStatus(i.SyncStatus))
	return strings.Join(parts, "  ")
}

// FormatEvidenceShort formats an evidence record in short format
func FormatEvidenceShort(e *models.Evidence) string {
	var parts []string
	parts = append(parts, titleStyle.Render(e.LocalID))
	parts = append(parts, fmt.Sprintf("step %d", e.Step))
	parts = append(parts, string(e.Type))
	if e.UploadAttempts > 0 && e.SyncStatus != models.SyncSynced {
		parts = append(parts, subtleStyle.Render(fmt.Sprintf("%d attempts", e.UploadAttempts)))
	}
	parts = append(parts, FormatSyncStatus(e.SyncStatus))
	return strings.Join(parts, "  ")
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Format("2006-01-02")
	}
}

// SectionHeader returns a formatted section header for CLI output
// e.g., "\nPENDING:\n"
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}
