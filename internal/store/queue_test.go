package store

import (
	"testing"
	"time"

	"github.com/marcus/fieldsync/internal/models"
)

func enqueueTestEntry(t *testing.T, s *Store) models.QueueEntry {
	t.Helper()
	p := createTestProperty(t, s)

	entries, err := s.ListDueQueueEntries(time.Now())
	if err != nil {
		t.Fatalf("ListDueQueueEntries failed: %v", err)
	}
	for _, e := range entries {
		if e.EntityID == p.LocalID {
			return e
		}
	}
	t.Fatal("enqueued entry not found")
	return models.QueueEntry{}
}

func TestListDueQueueEntriesRespectsBackoff(t *testing.T) {
	s := setupStore(t)
	e := enqueueTestEntry(t, s)

	// Failed with a future retry window: not due yet
	if err := s.MarkQueueFailed(e.ID, "server boom", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("MarkQueueFailed failed: %v", err)
	}
	due, err := s.ListDueQueueEntries(time.Now())
	if err != nil {
		t.Fatalf("ListDueQueueEntries failed: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("entry inside backoff window should not be due, got %d", len(due))
	}

	// Window elapsed: due again, with the failure recorded
	due, err = s.ListDueQueueEntries(time.Now().Add(2 * time.Hour))
	if err != nil {
		t.Fatalf("ListDueQueueEntries failed: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("entry past backoff window should be due, got %d", len(due))
	}
	if due[0].Status != models.QueueFailed {
		t.Errorf("Status: got %s, want %s", due[0].Status, models.QueueFailed)
	}
	if due[0].RetryCount != 1 {
		t.Errorf("RetryCount: got %d, want 1", due[0].RetryCount)
	}
	if due[0].LastError != "server boom" {
		t.Errorf("LastError: got %q", due[0].LastError)
	}
}

func TestMarkQueueCompleted(t *testing.T) {
	s := setupStore(t)
	e := enqueueTestEntry(t, s)

	if err := s.MarkQueueCompleted(e.ID); err != nil {
		t.Fatalf("MarkQueueCompleted failed: %v", err)
	}

	due, err := s.ListDueQueueEntries(time.Now())
	if err != nil {
		t.Fatalf("ListDueQueueEntries failed: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("completed entry should not be due, got %d", len(due))
	}

	completed, err := s.ListQueueEntriesByStatus(models.QueueCompleted)
	if err != nil {
		t.Fatalf("ListQueueEntriesByStatus failed: %v", err)
	}
	if len(completed) != 1 {
		t.Errorf("got %d completed entries, want 1", len(completed))
	}
}

func TestAbandonAndReset(t *testing.T) {
	s := setupStore(t)
	e := enqueueTestEntry(t, s)

	if err := s.MarkQueueAbandoned(e.ID, "retry cap reached"); err != nil {
		t.Fatalf("MarkQueueAbandoned failed: %v", err)
	}

	due, err := s.ListDueQueueEntries(time.Now())
	if err != nil {
		t.Fatalf("ListDueQueueEntries failed: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("abandoned entry should never be due, got %d", len(due))
	}

	counts, err := s.GetPendingCounts()
	if err != nil {
		t.Fatalf("GetPendingCounts failed: %v", err)
	}
	if counts.Abandoned != 1 {
		t.Errorf("Abandoned: got %d, want 1", counts.Abandoned)
	}

	n, err := s.ResetAbandonedQueueEntries()
	if err != nil {
		t.Fatalf("ResetAbandonedQueueEntries failed: %v", err)
	}
	if n != 1 {
		t.Errorf("reset count: got %d, want 1", n)
	}

	due, err = s.ListDueQueueEntries(time.Now())
	if err != nil {
		t.Fatalf("ListDueQueueEntries failed: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("reset entry should be due, got %d", len(due))
	}
	if due[0].RetryCount != 0 {
		t.Errorf("RetryCount after reset: got %d, want 0", due[0].RetryCount)
	}
}

func TestHasPendingMutation(t *testing.T) {
	s := setupStore(t)
	e := enqueueTestEntry(t, s)

	pending, err := s.HasPendingMutation(models.EntityProperty, e.EntityID)
	if err != nil {
		t.Fatalf("HasPendingMutation failed: %v", err)
	}
	if !pending {
		t.Error("expected a pending mutation")
	}

	if err := s.MarkQueueCompleted(e.ID); err != nil {
		t.Fatalf("MarkQueueCompleted failed: %v", err)
	}
	pending, err = s.HasPendingMutation(models.EntityProperty, e.EntityID)
	if err != nil {
		t.Fatalf("HasPendingMutation failed: %v", err)
	}
	if pending {
		t.Error("completed mutation should not count as pending")
	}
}

func TestPruneCompletedQueueEntries(t *testing.T) {
	s := setupStore(t)
	e := enqueueTestEntry(t, s)

	if err := s.MarkQueueCompleted(e.ID); err != nil {
		t.Fatalf("MarkQueueCompleted failed: %v", err)
	}

	// Cutoff in the past keeps the freshly completed entry
	n, err := s.PruneCompletedQueueEntries(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("PruneCompletedQueueEntries failed: %v", err)
	}
	if n != 0 {
		t.Errorf("pruned: got %d, want 0", n)
	}

	n, err = s.PruneCompletedQueueEntries(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("PruneCompletedQueueEntries failed: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned: got %d, want 1", n)
	}
}
