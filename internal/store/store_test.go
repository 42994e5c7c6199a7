package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marcus/fieldsync/internal/models"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInitialize(t *testing.T) {
	dir := t.TempDir()

	s, err := Initialize(dir)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer s.Close()

	dbPath := filepath.Join(dir, ".fieldsync", "field.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file not created")
	}

	version, err := s.GetSchemaVersion()
	if err != nil {
		t.Fatalf("GetSchemaVersion failed: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("schema version: got %d, want %d", version, SchemaVersion)
	}
}

func TestOpenWithoutInit(t *testing.T) {
	_, err := Open(t.TempDir())
	if err == nil {
		t.Fatal("Open should fail before Initialize")
	}
}

func TestCreateAndGetProperty(t *testing.T) {
	s := setupStore(t)

	p := &models.Property{
		Address:    "12 Elm Street",
		City:       "Springfield",
		PostalCode: "12345",
		OwnerName:  "A. Owner",
		Notes:      "corner lot",
	}
	if err := s.CreateProperty(p); err != nil {
		t.Fatalf("CreateProperty failed: %v", err)
	}

	if p.LocalID == "" {
		t.Error("LocalID not set")
	}
	if p.SyncStatus != models.SyncPending {
		t.Errorf("SyncStatus: got %s, want %s", p.SyncStatus, models.SyncPending)
	}

	got, err := s.GetProperty(p.LocalID)
	if err != nil {
		t.Fatalf("GetProperty failed: %v", err)
	}
	if got.Address != p.Address {
		t.Errorf("Address mismatch: got %s, want %s", got.Address, p.Address)
	}
	if got.ServerID != "" {
		t.Errorf("ServerID should be empty, got %s", got.ServerID)
	}
}

func TestCreatePropertyEnqueuesSnapshot(t *testing.T) {
	s := setupStore(t)

	p := &models.Property{Address: "12 Elm Street"}
	if err := s.CreateProperty(p); err != nil {
		t.Fatalf("CreateProperty failed: %v", err)
	}

	entries, err := s.ListDueQueueEntries(time.Now())
	if err != nil {
		t.Fatalf("ListDueQueueEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d queue entries, want 1", len(entries))
	}

	e := entries[0]
	if e.EntityType != models.EntityProperty {
		t.Errorf("EntityType: got %s, want %s", e.EntityType, models.EntityProperty)
	}
	if e.EntityID != p.LocalID {
		t.Errorf("EntityID: got %s, want %s", e.EntityID, p.LocalID)
	}
	if e.Action != models.ActionCreate {
		t.Errorf("Action: got %s, want %s", e.Action, models.ActionCreate)
	}
	if e.Status != models.QueuePending {
		t.Errorf("Status: got %s, want %s", e.Status, models.QueuePending)
	}

	var snap models.Property
	if err := json.Unmarshal(e.Payload, &snap); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if snap.Address != "12 Elm Street" {
		t.Errorf("payload address: got %s, want 12 Elm Street", snap.Address)
	}
}

func TestUpdatePropertyEnqueuesOwnEntry(t *testing.T) {
	s := setupStore(t)

	p := &models.Property{Address: "12 Elm Street"}
	if err := s.CreateProperty(p); err != nil {
		t.Fatalf("CreateProperty failed: %v", err)
	}

	p.Notes = "edited offline"
	if err := s.UpdateProperty(p); err != nil {
		t.Fatalf("UpdateProperty failed: %v", err)
	}

	entries, err := s.ListDueQueueEntries(time.Now())
	if err != nil {
		t.Fatalf("ListDueQueueEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d queue entries, want 2", len(entries))
	}
	if entries[0].Action != models.ActionCreate || entries[1].Action != models.ActionUpdate {
		t.Errorf("entries out of order: %s then %s", entries[0].Action, entries[1].Action)
	}

	// Payload of the update entry carries the edited snapshot; a later
	// edit must not retroactively change it.
	var snap models.Property
	if err := json.Unmarshal(entries[1].Payload, &snap); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if snap.Notes != "edited offline" {
		t.Errorf("payload notes: got %q, want %q", snap.Notes, "edited offline")
	}
}

func TestDeleteUnsyncedPropertyPurges(t *testing.T) {
	s := setupStore(t)

	p := &models.Property{Address: "12 Elm Street"}
	if err := s.CreateProperty(p); err != nil {
		t.Fatalf("CreateProperty failed: %v", err)
	}

	if err := s.DeleteProperty(p.LocalID); err != nil {
		t.Fatalf("DeleteProperty failed: %v", err)
	}

	if _, err := s.GetProperty(p.LocalID); err == nil {
		t.Error("property row should be gone")
	}

	entries, err := s.ListDueQueueEntries(time.Now())
	if err != nil {
		t.Fatalf("ListDueQueueEntries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("queue should be empty after purge, got %d entries", len(entries))
	}
}

func TestDeleteSyncedPropertyTombstones(t *testing.T) {
	s := setupStore(t)

	p := &models.Property{Address: "12 Elm Street"}
	if err := s.CreateProperty(p); err != nil {
		t.Fatalf("CreateProperty failed: %v", err)
	}
	if err := s.SetPropertySynced(p.LocalID, "srv-1", time.Now()); err != nil {
		t.Fatalf("SetPropertySynced failed: %v", err)
	}

	if err := s.DeleteProperty(p.LocalID); err != nil {
		t.Fatalf("DeleteProperty failed: %v", err)
	}

	got, err := s.GetProperty(p.LocalID)
	if err != nil {
		t.Fatalf("GetProperty failed: %v", err)
	}
	if got.DeletedAt == nil {
		t.Error("DeletedAt not set on tombstoned row")
	}

	props, err := s.ListProperties()
	if err != nil {
		t.Fatalf("ListProperties failed: %v", err)
	}
	if len(props) != 0 {
		t.Errorf("tombstoned row should be hidden from listing, got %d", len(props))
	}

	entries, err := s.ListDueQueueEntries(time.Now())
	if err != nil {
		t.Fatalf("ListDueQueueEntries failed: %v", err)
	}
	var deletes int
	for _, e := range entries {
		if e.Action == models.ActionDelete {
			deletes++
		}
	}
	if deletes != 1 {
		t.Errorf("got %d delete entries, want 1", deletes)
	}
}

func TestSetPropertySynced(t *testing.T) {
	s := setupStore(t)

	p := &models.Property{Address: "12 Elm Street"}
	if err := s.CreateProperty(p); err != nil {
		t.Fatalf("CreateProperty failed: %v", err)
	}

	serverAt := time.Now().Add(-time.Minute)
	if err := s.SetPropertySynced(p.LocalID, "srv-7", serverAt); err != nil {
		t.Fatalf("SetPropertySynced failed: %v", err)
	}

	got, err := s.GetPropertyByServerID("srv-7")
	if err != nil {
		t.Fatalf("GetPropertyByServerID failed: %v", err)
	}
	if got.LocalID != p.LocalID {
		t.Errorf("LocalID: got %s, want %s", got.LocalID, p.LocalID)
	}
	if got.SyncStatus != models.SyncSynced {
		t.Errorf("SyncStatus: got %s, want %s", got.SyncStatus, models.SyncSynced)
	}
	if got.ServerUpdatedAt == nil {
		t.Error("ServerUpdatedAt not set")
	}
}

func TestGetPendingCounts(t *testing.T) {
	s := setupStore(t)

	p := &models.Property{Address: "12 Elm Street"}
	if err := s.CreateProperty(p); err != nil {
		t.Fatalf("CreateProperty failed: %v", err)
	}
	i := &models.Inspection{PropertyLocalID: p.LocalID}
	if err := s.CreateInspection(i); err != nil {
		t.Fatalf("CreateInspection failed: %v", err)
	}

	counts, err := s.GetPendingCounts()
	if err != nil {
		t.Fatalf("GetPendingCounts failed: %v", err)
	}
	if counts.Properties != 1 {
		t.Errorf("Properties: got %d, want 1", counts.Properties)
	}
	if counts.Inspections != 1 {
		t.Errorf("Inspections: got %d, want 1", counts.Inspections)
	}
	if counts.QueueEntries != 2 {
		t.Errorf("QueueEntries: got %d, want 2", counts.QueueEntries)
	}
	if counts.Total() == 0 {
		t.Error("Total should be nonzero")
	}

	if err := s.SetPropertySynced(p.LocalID, "srv-1", time.Now()); err != nil {
		t.Fatalf("SetPropertySynced failed: %v", err)
	}
	counts, err = s.GetPendingCounts()
	if err != nil {
		t.Fatalf("GetPendingCounts failed: %v", err)
	}
	if counts.Properties != 0 {
		t.Errorf("Properties after sync: got %d, want 0", counts.Properties)
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := []string{
		"2026-08-30 10:00:00",
		"2026-08-30T10:00:00Z",
		"2026-08-30T10:00:00.123456789Z",
	}
	for _, v := range cases {
		if _, err := parseTimestamp(v); err != nil {
			t.Errorf("parseTimestamp(%q) failed: %v", v, err)
		}
	}
	if _, err := parseTimestamp("not a time"); err == nil {
		t.Error("parseTimestamp should reject garbage")
	}
}

func TestGenerateIDPrefix(t *testing.T) {
	id, err := generateID(propIDPrefix)
	if err != nil {
		t.Fatalf("generateID failed: %v", err)
	}
	if len(id) != len(propIDPrefix)+8 {
		t.Errorf("id length: got %d, want %d", len(id), len(propIDPrefix)+8)
	}
}

func TestLookupsWrapErrNotFound(t *testing.T) {
	s := setupStore(t)

	if _, err := s.GetProperty("prop-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProperty: got %v, want ErrNotFound", err)
	}
	if _, err := s.GetPropertyByServerID("srv-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPropertyByServerID: got %v, want ErrNotFound", err)
	}
	if _, err := s.GetInspection("insp-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetInspection: got %v, want ErrNotFound", err)
	}
	if _, err := s.GetEvidence("ev-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetEvidence: got %v, want ErrNotFound", err)
	}
}
