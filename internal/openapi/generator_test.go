package openapi

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestGenerate(t *testing.T) {
	doc := Generate("http://localhost:8080")

	if doc.OpenAPI != "3.1.0" {
		t.Errorf("version = %q", doc.OpenAPI)
	}
	if doc.Components.SecuritySchemes["bearerAuth"] == nil {
		t.Error("bearerAuth scheme missing")
	}

	for _, path := range []string{
		"/api/auth/login",
		"/api/commands/execute",
		"/api/scripts/upload",
		"/api/scripts/{id}",
		"/api/logs",
		"/api/users/{id}",
		"/api/settings/{key}",
		"/api/restore/targets/{name}/restore",
	} {
		if doc.Paths.Value(path) == nil {
			t.Errorf("path %s missing", path)
		}
	}

	// Login must not require auth; command execution must.
	login := doc.Paths.Value("/api/auth/login").Post
	if login.Security == nil || len(*login.Security) != 0 {
		t.Error("login should override security to none")
	}
	if exec := doc.Paths.Value("/api/commands/execute").Post; exec.Security != nil {
		t.Error("execute should inherit document security")
	}
}

func TestServeSpec(t *testing.T) {
	h := NewHandler()
	rec := httptest.NewRecorder()
	h.ServeSpec(rec, httptest.NewRequest("GET", "/openapi.json", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("spec not JSON: %v", err)
	}
	if doc["openapi"] != "3.1.0" {
		t.Errorf("openapi = %v", doc["openapi"])
	}
}
