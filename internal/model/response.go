package model

// Response is the standard envelope for the panel API. Every error response
// carries at minimum {"success": false, "message": ...}; the HTTP status
// code remains the primary machine-readable signal.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Pagination is the metadata block returned alongside paged lists. Total is
// the true filtered count regardless of the requested limit.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// ExecResponse is the payload returned by the command and script execution
// endpoints. On failure it still carries full diagnostic detail (stdout,
// stderr, exit code, log path) because the caller's workflow depends on
// seeing exactly what the script did.
type ExecResponse struct {
	Success  bool            `json:"success"`
	Output   string          `json:"output"`
	Stderr   string          `json:"stderr"`
	ExitCode int             `json:"exitCode"`
	Status   ExecutionStatus `json:"status"`
	Error    string          `json:"error,omitempty"`
	LogFile  string          `json:"logFile"`
}
