package output

import (
	"strings"
	"testing"
	"time"

	"github.com/marcus/fieldsync/internal/models"
)

func TestFormatTimeAgo(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"now", now, "just now"},
		{"seconds", now.Add(-45 * time.Second), "just now"},
		{"one minute", now.Add(-time.Minute - time.Second), "1m ago"},
		{"minutes", now.Add(-30 * time.Minute), "30m ago"},
		{"one hour", now.Add(-time.Hour - time.Minute), "1h ago"},
		{"hours", now.Add(-5 * time.Hour), "5h ago"},
		{"one day", now.Add(-25 * time.Hour), "1d ago"},
		{"days", now.Add(-3 * 24 * time.Hour), "3d ago"},
	}

	for _, tc := range tests {
		if got := FormatTimeAgo(tc.t); got != tc.want {
			t.Errorf("%s: FormatTimeAgo = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestFormatTimeAgoOldDatesUseCalendar(t *testing.T) {
	old := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	if got := FormatTimeAgo(old); got != "2024-03-15" {
		t.Errorf("FormatTimeAgo = %q, want 2024-03-15", got)
	}
}

func TestSyncBadgeSymbols(t *testing.T) {
	tests := []struct {
		status models.SyncStatus
		symbol string
	}{
		{models.SyncPending, "○"},
		{models.SyncSynced, "✓"},
		{models.SyncFailed, "✗"},
		{models.SyncStatus("bogus"), "?"},
	}

	for _, tc := range tests {
		got := SyncBadge(tc.status)
		if !strings.Contains(got, tc.symbol) {
			t.Errorf("SyncBadge(%s) = %q, want symbol %q", tc.status, got, tc.symbol)
		}
		if !strings.Contains(got, string(tc.status)) {
			t.Errorf("SyncBadge(%s) = %q, want status text", tc.status, got)
		}
	}
}

func TestFormatSyncStatus(t *testing.T) {
	got := FormatSyncStatus(models.SyncPending)
	if !strings.Contains(got, "[pending]") {
		t.Errorf("FormatSyncStatus = %q, want bracketed status", got)
	}

	// Unknown statuses pass through without brackets
	if got := FormatSyncStatus(models.SyncStatus("odd")); got != "odd" {
		t.Errorf("FormatSyncStatus(odd) = %q", got)
	}
}

func TestFormatPropertyShort(t *testing.T) {
	p := &models.Property{
		LocalID:    "prop-abc12345",
		Address:    "12 Elm Street",
		City:       "Springfield",
		SyncStatus: models.SyncPending,
	}

	got := FormatPropertyShort(p)
	for _, want := range []string{"prop-abc12345", "12 Elm Street", "Springfield", "pending"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatPropertyShort missing %q: %s", want, got)
		}
	}

	p.City = ""
	if strings.Contains(FormatPropertyShort(p), "Springfield") {
		t.Error("empty city should be omitted")
	}
}

func TestFormatInspectionShort(t *testing.T) {
	i := &models.Inspection{
		LocalID:    "insp-abc12345",
		Kind:       "standard",
		Completed:  true,
		SyncStatus: models.SyncSynced,
	}

	got := FormatInspectionShort(i)
	for _, want := range []string{"insp-abc12345", "standard", "completed", "synced"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatInspectionShort missing %q: %s", want, got)
		}
	}

	i.Completed = false
	if strings.Contains(FormatInspectionShort(i), "completed") {
		t.Error("incomplete inspection should not show completed")
	}
}

func TestFormatEvidenceShort(t *testing.T) {
	e := &models.Evidence{
		LocalID:        "ev-abc12345",
		Step:           3,
		Type:           models.EvidencePhoto,
		UploadAttempts: 2,
		SyncStatus:     models.SyncFailed,
	}

	got := FormatEvidenceShort(e)
	for _, want := range []string{"ev-abc12345", "step 3", "photo", "2 attempts", "failed"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatEvidenceShort missing %q: %s", want, got)
		}
	}

	// Attempt counts are noise once the upload succeeded
	e.SyncStatus = models.SyncSynced
	if strings.Contains(FormatEvidenceShort(e), "attempts") {
		t.Error("synced evidence should not show attempt count")
	}
}

func TestSectionHeader(t *testing.T) {
	got := SectionHeader("recent sync activity")
	if got != "\nRECENT SYNC ACTIVITY:\n" {
		t.Errorf("SectionHeader = %q", got)
	}
}
