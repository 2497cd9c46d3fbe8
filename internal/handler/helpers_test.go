package handler

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWriteErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, 404, MsgScriptNotFound)

	if rec.Code != 404 {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body not JSON: %v", err)
	}
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
	if body["message"] != MsgScriptNotFound {
		t.Errorf("message = %v", body["message"])
	}
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest("GET", "/?page=3&bad=x", nil)
	if got := queryInt(r, "page", 1); got != 3 {
		t.Errorf("page = %d, want 3", got)
	}
	if got := queryInt(r, "bad", 7); got != 7 {
		t.Errorf("bad = %d, want fallback 7", got)
	}
	if got := queryInt(r, "missing", 7); got != 7 {
		t.Errorf("missing = %d, want fallback 7", got)
	}
}

func TestClampInt(t *testing.T) {
	if got := clampInt(0, 1, 500); got != 1 {
		t.Errorf("clamp low = %d", got)
	}
	if got := clampInt(9999, 1, 500); got != 500 {
		t.Errorf("clamp high = %d", got)
	}
	if got := clampInt(50, 1, 500); got != 50 {
		t.Errorf("clamp mid = %d", got)
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.1:39812"
	if got := clientIP(r); got != "192.0.2.1" {
		t.Errorf("clientIP = %q", got)
	}
	r.RemoteAddr = "no-port-here"
	if got := clientIP(r); got != "no-port-here" {
		t.Errorf("clientIP fallback = %q", got)
	}
}

func TestParseDate(t *testing.T) {
	if _, ok := parseDate("not-a-date", false); ok {
		t.Error("garbage date accepted")
	}
	if got, ok := parseDate("", false); !ok || !got.IsZero() {
		t.Error("empty date should be zero time, ok")
	}
	got, ok := parseDate("2026-03-01", false)
	if !ok || got.Format("2006-01-02") != "2026-03-01" {
		t.Errorf("bare date: %v %v", got, ok)
	}
	end, ok := parseDate("2026-03-01", true)
	if !ok || !end.After(got.Add(23*time.Hour)) {
		t.Errorf("end of day not applied: %v", end)
	}
	if _, ok := parseDate("2026-03-01T12:00:00Z", false); !ok {
		t.Error("RFC 3339 rejected")
	}
}
