package store

import (
	"testing"
	"time"

	"github.com/marcus/fieldsync/internal/models"
)

func createTestProperty(t *testing.T, s *Store) *models.Property {
	t.Helper()
	p := &models.Property{Address: "12 Elm Street"}
	if err := s.CreateProperty(p); err != nil {
		t.Fatalf("CreateProperty failed: %v", err)
	}
	return p
}

func TestCreateInspectionRequiresParent(t *testing.T) {
	s := setupStore(t)

	i := &models.Inspection{PropertyLocalID: "prop-missing"}
	if err := s.CreateInspection(i); err == nil {
		t.Fatal("CreateInspection should fail for a missing parent property")
	}
}

func TestCreateInspectionDefaults(t *testing.T) {
	s := setupStore(t)
	p := createTestProperty(t, s)

	i := &models.Inspection{PropertyLocalID: p.LocalID}
	if err := s.CreateInspection(i); err != nil {
		t.Fatalf("CreateInspection failed: %v", err)
	}

	if i.LocalID == "" {
		t.Error("LocalID not set")
	}
	if i.Kind != "standard" {
		t.Errorf("Kind: got %q, want standard", i.Kind)
	}
	if i.SyncStatus != models.SyncPending {
		t.Errorf("SyncStatus: got %s, want %s", i.SyncStatus, models.SyncPending)
	}
}

func TestListInspectionsFilter(t *testing.T) {
	s := setupStore(t)
	p1 := createTestProperty(t, s)
	p2 := createTestProperty(t, s)

	for _, propID := range []string{p1.LocalID, p1.LocalID, p2.LocalID} {
		i := &models.Inspection{PropertyLocalID: propID}
		if err := s.CreateInspection(i); err != nil {
			t.Fatalf("CreateInspection failed: %v", err)
		}
	}

	all, err := s.ListInspections("")
	if err != nil {
		t.Fatalf("ListInspections failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all: got %d, want 3", len(all))
	}

	forP1, err := s.ListInspections(p1.LocalID)
	if err != nil {
		t.Fatalf("ListInspections filtered failed: %v", err)
	}
	if len(forP1) != 2 {
		t.Errorf("filtered: got %d, want 2", len(forP1))
	}
}

func TestUpdateInspectionStepData(t *testing.T) {
	s := setupStore(t)
	p := createTestProperty(t, s)

	i := &models.Inspection{PropertyLocalID: p.LocalID}
	if err := s.CreateInspection(i); err != nil {
		t.Fatalf("CreateInspection failed: %v", err)
	}

	i.StepData = []byte(`{"step1":"done"}`)
	i.Completed = true
	if err := s.UpdateInspection(i); err != nil {
		t.Fatalf("UpdateInspection failed: %v", err)
	}

	got, err := s.GetInspection(i.LocalID)
	if err != nil {
		t.Fatalf("GetInspection failed: %v", err)
	}
	if string(got.StepData) != `{"step1":"done"}` {
		t.Errorf("StepData: got %s", got.StepData)
	}
	if !got.Completed {
		t.Error("Completed not persisted")
	}
}

func TestDeleteInspectionUnsyncedPurges(t *testing.T) {
	s := setupStore(t)
	p := createTestProperty(t, s)

	i := &models.Inspection{PropertyLocalID: p.LocalID}
	if err := s.CreateInspection(i); err != nil {
		t.Fatalf("CreateInspection failed: %v", err)
	}
	if err := s.DeleteInspection(i.LocalID); err != nil {
		t.Fatalf("DeleteInspection failed: %v", err)
	}

	if _, err := s.GetInspection(i.LocalID); err == nil {
		t.Error("inspection row should be gone")
	}
}

func TestSetInspectionSynced(t *testing.T) {
	s := setupStore(t)
	p := createTestProperty(t, s)

	i := &models.Inspection{PropertyLocalID: p.LocalID}
	if err := s.CreateInspection(i); err != nil {
		t.Fatalf("CreateInspection failed: %v", err)
	}

	if err := s.SetInspectionSynced(i.LocalID, "srv-insp-1", time.Now()); err != nil {
		t.Fatalf("SetInspectionSynced failed: %v", err)
	}

	got, err := s.GetInspectionByServerID("srv-insp-1")
	if err != nil {
		t.Fatalf("GetInspectionByServerID failed: %v", err)
	}
	if got.SyncStatus != models.SyncSynced {
		t.Errorf("SyncStatus: got %s, want %s", got.SyncStatus, models.SyncSynced)
	}
}
