package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marcus/fieldsync/internal/models"
	"github.com/marcus/fieldsync/internal/netmon"
	"github.com/marcus/fieldsync/internal/store"
	"github.com/marcus/fieldsync/internal/syncclient"
)

func newTestEngine(t *testing.T, handler http.Handler, opts ...Option) (*Engine, *store.Store, *netmon.Monitor) {
	t.Helper()

	s, err := store.Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := syncclient.New(srv.URL, "test-token", "dev-test")
	mon := netmon.New()
	mon.SetOnline(true)

	eng := New(s, client, mon, append([]Option{WithDeviceID("dev-test")}, opts...)...)
	return eng, s, mon
}

func jsonResponse(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestTriggerSyncOffline(t *testing.T) {
	eng, s, mon := newTestEngine(t, http.NotFoundHandler())
	mon.SetOnline(false)

	p := &models.Property{Address: "12 Elm Street"}
	if err := s.CreateProperty(p); err != nil {
		t.Fatalf("CreateProperty failed: %v", err)
	}

	res, err := eng.TriggerSync(context.Background())
	if err != nil {
		t.Fatalf("TriggerSync failed: %v", err)
	}
	if res.Success {
		t.Error("offline sync should not report success")
	}
	if len(res.Errors) != 1 || res.Errors[0] != "Network unavailable" {
		t.Errorf("Errors: got %v", res.Errors)
	}

	// Nothing was pushed
	entries, err := s.ListDueQueueEntries(time.Now())
	if err != nil {
		t.Fatalf("ListDueQueueEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("queue should be untouched, got %d entries", len(entries))
	}
}

func TestTriggerSyncPushesCreatesInOrder(t *testing.T) {
	var gotInspectionPropertyID string

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/properties", func(w http.ResponseWriter, r *http.Request) {
		var rec syncclient.PropertyRecord
		json.NewDecoder(r.Body).Decode(&rec)
		if rec.ClientRef == "" {
			t.Error("create request missing clientRef")
		}
		rec.ID = "srv-p1"
		rec.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
		jsonResponse(w, rec)
	})
	mux.HandleFunc("POST /api/inspections", func(w http.ResponseWriter, r *http.Request) {
		var rec syncclient.InspectionRecord
		json.NewDecoder(r.Body).Decode(&rec)
		gotInspectionPropertyID = rec.PropertyID
		rec.ID = "srv-i1"
		rec.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
		jsonResponse(w, rec)
	})

	eng, s, _ := newTestEngine(t, mux)

	p := &models.Property{Address: "12 Elm Street"}
	if err := s.CreateProperty(p); err != nil {
		t.Fatalf("CreateProperty failed: %v", err)
	}
	i := &models.Inspection{PropertyLocalID: p.LocalID}
	if err := s.CreateInspection(i); err != nil {
		t.Fatalf("CreateInspection failed: %v", err)
	}

	res, err := eng.TriggerSync(context.Background())
	if err != nil {
		t.Fatalf("TriggerSync failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("sync failed: %v", res.Errors)
	}
	if res.SyncedItems != 2 {
		t.Errorf("SyncedItems: got %d, want 2", res.SyncedItems)
	}

	// Inspection was pushed with the server-assigned parent ID
	if gotInspectionPropertyID != "srv-p1" {
		t.Errorf("inspection propertyId: got %q, want srv-p1", gotInspectionPropertyID)
	}

	gotP, err := s.GetProperty(p.LocalID)
	if err != nil {
		t.Fatalf("GetProperty failed: %v", err)
	}
	if gotP.ServerID != "srv-p1" || gotP.SyncStatus != models.SyncSynced {
		t.Errorf("property not synced: serverID=%q status=%s", gotP.ServerID, gotP.SyncStatus)
	}

	gotI, err := s.GetInspection(i.LocalID)
	if err != nil {
		t.Fatalf("GetInspection failed: %v", err)
	}
	if gotI.ServerID != "srv-i1" || gotI.SyncStatus != models.SyncSynced {
		t.Errorf("inspection not synced: serverID=%q status=%s", gotI.ServerID, gotI.SyncStatus)
	}

	due, err := s.ListDueQueueEntries(time.Now())
	if err != nil {
		t.Fatalf("ListDueQueueEntries failed: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("queue should be drained, got %d entries", len(due))
	}

	history, err := s.GetSyncHistoryTail(10)
	if err != nil {
		t.Fatalf("GetSyncHistoryTail failed: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("history: got %d rows, want 2", len(history))
	}
	for _, h := range history {
		if h.Direction != "push" || h.Outcome != "ok" {
			t.Errorf("history row: direction=%s outcome=%s", h.Direction, h.Outcome)
		}
		if h.DeviceID != "dev-test" {
			t.Errorf("history device: got %q", h.DeviceID)
		}
	}
}

func TestTriggerSyncRejectsConcurrentPass(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/properties", func(w http.ResponseWriter, r *http.Request) {
		var rec syncclient.PropertyRecord
		json.NewDecoder(r.Body).Decode(&rec)
		close(entered)
		<-release
		rec.ID = "srv-p1"
		rec.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
		jsonResponse(w, rec)
	})

	eng, s, _ := newTestEngine(t, mux)

	if err := s.CreateProperty(&models.Property{Address: "1 Busy Lane"}); err != nil {
		t.Fatalf("CreateProperty failed: %v", err)
	}

	first := make(chan *Result, 1)
	go func() {
		res, err := eng.TriggerSync(context.Background())
		if err != nil {
			t.Errorf("TriggerSync failed: %v", err)
		}
		first <- res
	}()

	// Wait until the first pass is blocked inside the server handler,
	// then issue a second call mid-pass
	<-entered
	second, err := eng.TriggerSync(context.Background())
	if err != nil {
		t.Fatalf("TriggerSync failed: %v", err)
	}
	if second.Success {
		t.Error("rejected call should not report success")
	}
	if second.SyncedItems != 0 || second.FailedItems != 0 {
		t.Errorf("rejected call touched items: synced=%d failed=%d", second.SyncedItems, second.FailedItems)
	}
	if len(second.Errors) != 1 || second.Errors[0] != "Sync already in progress" {
		t.Errorf("Errors: got %v", second.Errors)
	}

	close(release)
	res := <-first
	if !res.Success || res.SyncedItems != 1 {
		t.Errorf("first pass: success=%v synced=%d, want true/1", res.Success, res.SyncedItems)
	}
}

func TestTriggerSyncIsolatesFailures(t *testing.T) {
	mux := http.NewServeMux()
	created := 0
	mux.HandleFunc("POST /api/properties", func(w http.ResponseWriter, r *http.Request) {
		var rec syncclient.PropertyRecord
		json.NewDecoder(r.Body).Decode(&rec)
		if rec.Address == "fails" {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"code":"internal","message":"boom"}`)
			return
		}
		created++
		rec.ID = syncclient.RecordID(fmt.Sprintf("srv-p%d", created))
		rec.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
		jsonResponse(w, rec)
	})

	eng, s, mon := newTestEngine(t, mux)

	bad := &models.Property{Address: "fails"}
	good := &models.Property{Address: "12 Elm Street"}
	for _, p := range []*models.Property{bad, good} {
		if err := s.CreateProperty(p); err != nil {
			t.Fatalf("CreateProperty failed: %v", err)
		}
	}

	res, err := eng.TriggerSync(context.Background())
	if err != nil {
		t.Fatalf("TriggerSync failed: %v", err)
	}
	if res.Success {
		t.Error("pass with a failure should not report success")
	}
	if res.SyncedItems != 1 || res.FailedItems != 1 {
		t.Errorf("synced=%d failed=%d, want 1/1", res.SyncedItems, res.FailedItems)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("Errors: got %v", res.Errors)
	}

	// The good property made it despite the earlier failure
	gotGood, err := s.GetProperty(good.LocalID)
	if err != nil {
		t.Fatalf("GetProperty failed: %v", err)
	}
	if gotGood.SyncStatus != models.SyncSynced {
		t.Errorf("good property status: got %s, want %s", gotGood.SyncStatus, models.SyncSynced)
	}

	gotBad, err := s.GetProperty(bad.LocalID)
	if err != nil {
		t.Fatalf("GetProperty failed: %v", err)
	}
	if gotBad.SyncStatus != models.SyncFailed {
		t.Errorf("bad property status: got %s, want %s", gotBad.SyncStatus, models.SyncFailed)
	}

	// The failed entry is scheduled for a later retry
	failed, err := s.ListQueueEntriesByStatus(models.QueueFailed)
	if err != nil {
		t.Fatalf("ListQueueEntriesByStatus failed: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("got %d failed entries, want 1", len(failed))
	}
	if failed[0].NextRetryAt == nil || !failed[0].NextRetryAt.After(time.Now()) {
		t.Error("failed entry should have a future retry time")
	}

	// A contained item failure completes the pass; the monitor settles
	// back to idle rather than error
	if got := mon.Status(); got != netmon.StatusIdle {
		t.Errorf("status after pass with contained failure: got %s, want %s", got, netmon.StatusIdle)
	}
}

func TestTriggerSyncStatusErrorWhenStoreUnreadable(t *testing.T) {
	eng, s, mon := newTestEngine(t, http.NotFoundHandler())

	// Closing the database makes the queue scan itself fail
	s.Close()

	res, err := eng.TriggerSync(context.Background())
	if err != nil {
		t.Fatalf("TriggerSync failed: %v", err)
	}
	if res.Success {
		t.Error("unreadable store should not report success")
	}
	if len(res.Errors) == 0 {
		t.Fatal("expected a pass-level error")
	}
	if got := mon.Status(); got != netmon.StatusError {
		t.Errorf("status after unreadable store: got %s, want %s", got, netmon.StatusError)
	}
}

func TestTriggerSyncStatusTransitions(t *testing.T) {
	mux := http.NewServeMux()
	eng, _, mon := newTestEngine(t, mux)

	if _, err := eng.TriggerSync(context.Background()); err != nil {
		t.Fatalf("TriggerSync failed: %v", err)
	}
	if got := mon.Status(); got != netmon.StatusIdle {
		t.Errorf("status after clean pass: got %s, want %s", got, netmon.StatusIdle)
	}
}
