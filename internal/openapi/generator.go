// Package openapi generates the panel's OpenAPI 3.1 document and serves it
// over HTTP. The API surface is fixed, so the document is built once and
// cached for the life of the process.
package openapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

// Generate builds the OpenAPI document for the panel API.
func Generate(baseURL string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Shellboard API",
			Description: "Administrative control panel: authentication, script execution, audit log, user and settings management, database restore.",
			Version:     "1.0.0",
		},
	}
	if baseURL != "" {
		doc.Servers = openapi3.Servers{{URL: baseURL}}
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	doc.Security = openapi3.SecurityRequirements{{"bearerAuth": {}}}

	doc.Components.Schemas["Envelope"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"success": schemaOf("boolean", ""),
				"message": schemaOf("string", ""),
				"data":    schemaOf("object", ""),
			},
		},
	}
	doc.Components.Schemas["ExecutionResult"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"success":  schemaOf("boolean", ""),
				"output":   schemaOf("string", ""),
				"stderr":   schemaOf("string", ""),
				"exitCode": schemaOf("integer", "int32"),
				"status":   schemaOf("string", ""),
				"error":    schemaOf("string", ""),
				"logFile":  schemaOf("string", ""),
			},
		},
	}

	doc.Paths = openapi3.NewPaths()
	addPath(doc, "/api/auth/login", "post", "Authenticate and obtain a bearer token", "Envelope", false)
	addPath(doc, "/api/auth/logout", "post", "Revoke the current session", "Envelope", true)
	addPath(doc, "/api/auth/me", "get", "Current authenticated identity", "Envelope", true)
	addPath(doc, "/api/commands/execute", "post", "Execute an ad-hoc shell command", "ExecutionResult", true)
	addPath(doc, "/api/scripts/upload", "post", "Upload a shell script", "Envelope", true)
	addPath(doc, "/api/scripts", "get", "List uploaded scripts", "Envelope", true)
	addPath(doc, "/api/scripts/execute", "post", "Execute an uploaded script", "ExecutionResult", true)
	addPath(doc, "/api/scripts/{id}", "delete", "Delete an uploaded script", "Envelope", true)
	addPath(doc, "/api/logs", "get", "Query the audit log (admin)", "Envelope", true)
	addPath(doc, "/api/users", "get", "List accounts (admin)", "Envelope", true)
	addPath(doc, "/api/users", "post", "Create an account (admin)", "Envelope", true)
	addPath(doc, "/api/users/{id}", "put", "Update an account (admin)", "Envelope", true)
	addPath(doc, "/api/users/{id}", "delete", "Delete an account (admin)", "Envelope", true)
	addPath(doc, "/api/settings", "get", "List settings", "Envelope", true)
	addPath(doc, "/api/settings/public", "get", "List public settings", "Envelope", false)
	addPath(doc, "/api/settings/{key}", "put", "Create or update a setting (admin)", "Envelope", true)
	addPath(doc, "/api/settings/{key}", "delete", "Delete a setting (admin)", "Envelope", true)
	addPath(doc, "/api/restore/targets", "get", "List restore targets (admin)", "Envelope", true)
	addPath(doc, "/api/restore/targets", "post", "Create a restore target (admin)", "Envelope", true)
	addPath(doc, "/api/restore/targets/{id}", "delete", "Delete a restore target (admin)", "Envelope", true)
	addPath(doc, "/api/restore/targets/{name}/restore", "post", "Restore a SQL dump into a target (admin)", "Envelope", true)

	return doc
}

func schemaOf(typ, format string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{typ}, Format: format}}
}

func addPath(doc *openapi3.T, path, method, summary, responseSchema string, secured bool) {
	item := doc.Paths.Value(path)
	if item == nil {
		item = &openapi3.PathItem{}
		doc.Paths.Set(path, item)
	}

	desc := "Successful response"
	op := &openapi3.Operation{
		Summary: summary,
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(200, &openapi3.ResponseRef{
				Value: &openapi3.Response{
					Description: &desc,
					Content: openapi3.Content{
						"application/json": &openapi3.MediaType{
							Schema: &openapi3.SchemaRef{Ref: "#/components/schemas/" + responseSchema},
						},
					},
				},
			}),
		),
	}
	if !secured {
		op.Security = &openapi3.SecurityRequirements{}
	}

	switch method {
	case "get":
		item.Get = op
	case "post":
		item.Post = op
	case "put":
		item.Put = op
	case "delete":
		item.Delete = op
	}
}

// Handler serves the generated document.
type Handler struct {
	once sync.Once
	spec []byte
}

// NewHandler creates a Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// ServeSpec handles GET /openapi.json.
func (h *Handler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	h.once.Do(func() {
		h.spec, _ = json.Marshal(Generate(""))
	})
	w.Header().Set("Content-Type", "application/json")
	w.Write(h.spec)
}
