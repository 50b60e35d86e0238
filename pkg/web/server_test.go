package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthz(t *testing.T) {
	s := NewServer(":0", nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestStatusSnapshot(t *testing.T) {
	s := NewServer(":0", nil)
	s.UpdateStatus(func(st *Status) {
		st.Cycles = 12
		st.LastOutcome = "classified"
		st.LastLabel = "plastic"
		st.LastChangedPixels = 2400111
		st.SerialLines = 88
	})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Cycles != 12 {
		t.Errorf("Cycles = %d, want 12", st.Cycles)
	}
	if st.LastLabel != "plastic" {
		t.Errorf("LastLabel = %q, want plastic", st.LastLabel)
	}
	if st.LastChangedPixels != 2400111 {
		t.Errorf("LastChangedPixels = %d", st.LastChangedPixels)
	}
	if st.SerialLines != 88 {
		t.Errorf("SerialLines = %d, want 88", st.SerialLines)
	}
	if st.StartedAt.IsZero() {
		t.Error("StartedAt must be set")
	}
}

func TestEventsRequiresUpgrade(t *testing.T) {
	s := NewServer(":0", nil)

	req := httptest.NewRequest(http.MethodGet, "/ws/events", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("status = %d, want 426 for plain GET", resp.StatusCode)
	}
}
