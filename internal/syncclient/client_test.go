package syncclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestHeaders(t *testing.T) {
	var gotAuth, gotDevice string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotDevice = r.Header.Get("X-Device-ID")
		w.Write([]byte(`{"id":"1","address":"x"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok-123", "dev-abc")
	if _, err := c.GetProperty(context.Background(), "1"); err != nil {
		t.Fatalf("GetProperty failed: %v", err)
	}

	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization: got %q", gotAuth)
	}
	if gotDevice != "dev-abc" {
		t.Errorf("X-Device-ID: got %q", gotDevice)
	}
}

func TestHealthCheckSkipsAuth(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Errorf("path: got %s, want /healthz", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok-123", "dev-abc")
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("health check should not carry a token, got %q", gotAuth)
	}
}

func TestStatusErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   error
	}{
		{http.StatusUnauthorized, "", ErrUnauthorized},
		{http.StatusForbidden, "", ErrForbidden},
		{http.StatusNotFound, "", ErrNotFound},
		{http.StatusNotFound, `{"code":"not_found","message":"no such property"}`, ErrNotFound},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			w.Write([]byte(tt.body))
		}))

		c := New(srv.URL, "tok", "dev")
		_, err := c.GetProperty(context.Background(), "1")
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: got %v, want %v", tt.status, err, tt.want)
		}
		srv.Close()
	}
}

func TestAPIErrorMessageSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"code":"conflict","message":"version mismatch"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", "dev")
	_, err := c.GetProperty(context.Background(), "1")
	if err == nil || !strings.Contains(err.Error(), "version mismatch") {
		t.Errorf("error should carry the server message, got: %v", err)
	}
}

func TestTransportErrorWrapsUnavailable(t *testing.T) {
	c := New("http://127.0.0.1:1", "tok", "dev")
	_, err := c.GetProperty(context.Background(), "1")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("connection refusal should wrap ErrUnavailable, got: %v", err)
	}
}

func TestRecordIDAcceptsNumberOrString(t *testing.T) {
	var rec PropertyRecord
	if err := json.Unmarshal([]byte(`{"id":123,"address":"x"}`), &rec); err != nil {
		t.Fatalf("numeric id: %v", err)
	}
	if rec.ID != "123" {
		t.Errorf("numeric id: got %q, want 123", rec.ID)
	}

	if err := json.Unmarshal([]byte(`{"id":"abc","address":"x"}`), &rec); err != nil {
		t.Fatalf("string id: %v", err)
	}
	if rec.ID != "abc" {
		t.Errorf("string id: got %q, want abc", rec.ID)
	}
}

func TestCreatePropertySendsClientRef(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/properties" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var rec PropertyRecord
		json.NewDecoder(r.Body).Decode(&rec)
		if rec.ClientRef != "prop-local1" {
			t.Errorf("clientRef: got %q", rec.ClientRef)
		}
		rec.ID = "7"
		json.NewEncoder(w).Encode(rec)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", "dev")
	resp, err := c.CreateProperty(context.Background(), &PropertyRecord{
		ClientRef: "prop-local1",
		Address:   "12 Elm Street",
	})
	if err != nil {
		t.Fatalf("CreateProperty failed: %v", err)
	}
	if resp.ID != "7" {
		t.Errorf("response id: got %q, want 7", resp.ID)
	}
}

func TestDeletePropertyUsesEscapedPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", "dev")
	if err := c.DeleteProperty(context.Background(), "id/with slash"); err != nil {
		t.Fatalf("DeleteProperty failed: %v", err)
	}
	if strings.Contains(strings.TrimPrefix(gotPath, "/api/properties/"), "/") {
		t.Errorf("path not escaped: %s", gotPath)
	}
}
