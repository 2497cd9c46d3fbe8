package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/shellboard/shellboard/internal/engine"
	"github.com/shellboard/shellboard/internal/model"
)

// registerTools registers all panel MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	srv.AddTool(
		mcp.NewTool("shellboard_list_scripts",
			mcp.WithDescription(
				"List all uploaded shell scripts with their IDs, sizes, and upload "+
					"times. Use this to discover what can be executed before calling "+
					"shellboard_execute_script.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListScripts,
	)

	srv.AddTool(
		mcp.NewTool("shellboard_execute_command",
			mcp.WithDescription(
				"Execute an ad-hoc shell command on the panel host and return its "+
					"stdout, stderr, exit code, and status. Commands run under the "+
					"panel's own privileges with a fixed timeout, and every execution "+
					"is recorded in the audit log.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("command",
				mcp.Required(),
				mcp.Description("Shell command line to execute"),
			),
			mcp.WithObject("environment",
				mcp.Description("Extra environment variables as a string-to-string map"),
			),
		),
		s.handleExecuteCommand,
	)

	srv.AddTool(
		mcp.NewTool("shellboard_execute_script",
			mcp.WithDescription(
				"Execute a previously uploaded script by ID, optionally with extra "+
					"environment variables. Returns stdout, stderr, exit code, and status.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithNumber("script_id",
				mcp.Required(),
				mcp.Description("ID of the script, as returned by shellboard_list_scripts"),
			),
			mcp.WithObject("environment",
				mcp.Description("Extra environment variables as a string-to-string map"),
			),
		),
		s.handleExecuteScript,
	)

	srv.AddTool(
		mcp.NewTool("shellboard_query_audit",
			mcp.WithDescription(
				"Query the append-only audit log. Supports filtering by severity "+
					"level (INFO, WARN, ERROR) and action tag substring (e.g. LOGIN, "+
					"SCRIPT_EXECUTE), newest entries first.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("level",
				mcp.Description("Severity filter: INFO, WARN, or ERROR"),
			),
			mcp.WithString("action",
				mcp.Description("Action tag substring filter"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum entries to return (default 50, max 500)"),
			),
		),
		s.handleQueryAudit,
	)

	srv.AddTool(
		mcp.NewTool("shellboard_list_settings",
			mcp.WithDescription(
				"List the panel's key-value settings, optionally filtered by "+
					"category (general, branding, environment).",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("category",
				mcp.Description("Category filter; omit for all settings"),
			),
		),
		s.handleListSettings,
	)
}

func (s *MCPServer) handleListScripts(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	scripts, err := s.registry.List(ctx)
	if err != nil {
		return toolError("Failed to list scripts: %v", err)
	}

	type scriptInfo struct {
		ID         int64  `json:"id"`
		Name       string `json:"name"`
		Size       int64  `json:"size"`
		UploadedAt string `json:"uploaded_at"`
	}
	items := make([]scriptInfo, len(scripts))
	for i, sc := range scripts {
		items[i] = scriptInfo{
			ID:         sc.ID,
			Name:       sc.Name,
			Size:       sc.Size,
			UploadedAt: sc.UploadedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	return successJSON(map[string]interface{}{"scripts": items})
}

func (s *MCPServer) handleExecuteCommand(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	command, err := requireString(request, "command")
	if err != nil {
		return toolError("%v", err)
	}

	res, err := s.engine.Execute(ctx, engine.Request{
		Command:    command,
		Env:        getStringMapArg(request, "environment"),
		ActorEmail: "mcp",
		Origin:     "mcp",
	})
	if err != nil {
		return toolError("Execution failed to start: %v", err)
	}
	return execResult(res)
}

func (s *MCPServer) handleExecuteScript(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	scriptID := optionalInt(request, "script_id", 0)
	if scriptID <= 0 {
		return toolError("script_id is required")
	}

	res, err := s.engine.Execute(ctx, engine.Request{
		ScriptID:   int64(scriptID),
		Env:        getStringMapArg(request, "environment"),
		ActorEmail: "mcp",
		Origin:     "mcp",
	})
	if err != nil {
		if err == engine.ErrScriptNotFound {
			return toolError("Script %d not found", scriptID)
		}
		return toolError("Execution failed to start: %v", err)
	}
	return execResult(res)
}

func (s *MCPServer) handleQueryAudit(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	filter := model.AuditFilter{
		Level:  model.AuditLevel(optionalString(request, "level")),
		Action: optionalString(request, "action"),
	}
	if filter.Level != "" && !model.ValidAuditLevel(filter.Level) {
		return toolError("Unknown level %q; use INFO, WARN, or ERROR", filter.Level)
	}
	limit := clamp(optionalInt(request, "limit", 50), 1, 500)

	entries, total, err := s.store.QueryAudit(ctx, filter, 1, limit)
	if err != nil {
		return toolError("Failed to query audit log: %v", err)
	}
	return successJSON(map[string]interface{}{
		"total":   total,
		"entries": entries,
	})
}

func (s *MCPServer) handleListSettings(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	category := optionalString(request, "category")

	var (
		settings []model.Setting
		err      error
	)
	if category == "" {
		settings, err = s.store.ListSettings(ctx)
	} else {
		settings, err = s.store.ListSettingsByCategory(ctx, category)
	}
	if err != nil {
		return toolError("Failed to list settings: %v", err)
	}
	return successJSON(map[string]interface{}{"settings": settings})
}

// execResult renders an engine result for the agent.
func execResult(res *engine.Result) (*mcp.CallToolResult, error) {
	return successJSON(map[string]interface{}{
		"success":   res.Success,
		"status":    res.Status,
		"exit_code": res.ExitCode,
		"stdout":    res.Stdout,
		"stderr":    res.Stderr,
		"error":     res.Error,
		"log_file":  res.LogPath,
	})
}
