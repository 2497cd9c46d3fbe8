package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestValidRole(t *testing.T) {
	cases := []struct {
		role Role
		want bool
	}{
		{RoleAdmin, true},
		{RoleUser, true},
		{Role("admin"), false},
		{Role("SUPERUSER"), false},
		{Role(""), false},
	}
	for _, tc := range cases {
		if got := ValidRole(tc.role); got != tc.want {
			t.Errorf("ValidRole(%q) = %v, want %v", tc.role, got, tc.want)
		}
	}
}

func TestUserJSONNeverLeaksHash(t *testing.T) {
	u := User{
		ID:           1,
		Email:        "admin@dashboard.com",
		PasswordHash: "$2a$10$somebcrypthash",
		Role:         RoleAdmin,
		IsActive:     true,
	}

	b, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if _, ok := m["password_hash"]; ok {
		t.Error("password_hash must never appear in JSON output")
	}

	pb, err := json.Marshal(u.Public())
	if err != nil {
		t.Fatalf("Marshal public: %v", err)
	}
	var pm map[string]interface{}
	if err := json.Unmarshal(pb, &pm); err != nil {
		t.Fatalf("Unmarshal public: %v", err)
	}
	if pm["email"] != "admin@dashboard.com" || pm["role"] != "ADMIN" {
		t.Errorf("public projection = %v, want email and role preserved", pm)
	}
}

func TestSessionValid(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		session Session
		want    bool
	}{
		{"active and unexpired", Session{IsActive: true, ExpiresAt: now.Add(time.Hour)}, true},
		{"revoked", Session{IsActive: false, ExpiresAt: now.Add(time.Hour)}, false},
		{"expired", Session{IsActive: true, ExpiresAt: now.Add(-time.Second)}, false},
		{"expiry boundary", Session{IsActive: true, ExpiresAt: now}, false},
	}
	for _, tc := range cases {
		if got := tc.session.Valid(now); got != tc.want {
			t.Errorf("%s: Valid = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestExecutionStatusTerminal(t *testing.T) {
	terminal := []ExecutionStatus{ExecSucceeded, ExecFailed, ExecTimedOut}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []ExecutionStatus{ExecPending, ExecRunning} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestValidAuditLevel(t *testing.T) {
	for _, l := range []AuditLevel{LevelInfo, LevelWarn, LevelError} {
		if !ValidAuditLevel(l) {
			t.Errorf("%s should be valid", l)
		}
	}
	if ValidAuditLevel(AuditLevel("DEBUG")) {
		t.Error("DEBUG is not part of the closed severity set")
	}
}
