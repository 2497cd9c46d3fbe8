// Package handler implements the panel's HTTP endpoints. All responses use
// the {"success": ..., "message": ..., "data": ...} envelope; user-facing
// message text lives in the Msg constants so deployments can be localized in
// one place.
package handler

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"github.com/shellboard/shellboard/internal/model"
)

// User-facing message text. Handlers never inline message literals.
const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgInvalidRequest     = "Invalid request body"
	MsgLoggedOut          = "Logged out"
	MsgScriptNotFound     = "Script not found"
	MsgScriptUploaded     = "Script uploaded"
	MsgScriptDeleted      = "Script deleted"
	MsgUserNotFound       = "User not found"
	MsgUserExists         = "A user with this email already exists"
	MsgUserCreated        = "User created"
	MsgUserUpdated        = "User updated"
	MsgUserDeleted        = "User deleted"
	MsgSelfDelete         = "You cannot delete your own account"
	MsgSettingSaved       = "Setting saved"
	MsgSettingDeleted     = "Setting deleted"
	MsgSettingNotFound    = "Setting not found"
	MsgTargetNotFound     = "Restore target not found"
	MsgTargetCreated      = "Restore target created"
	MsgTargetDeleted      = "Restore target deleted"
	MsgRestoreDone        = "Database restored"
	MsgInternalError      = "Internal server error"
)

// writeJSON serializes v as JSON with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeData writes a success envelope around data.
func writeData(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, model.Response{Success: true, Message: message, Data: data})
}

// writeError writes the standard error envelope. The HTTP status code is the
// machine-readable signal; message is for humans.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.Response{Success: false, Message: message})
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// queryInt extracts an integer query parameter, returning defaultVal if the
// parameter is missing or cannot be parsed.
func queryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// clampInt bounds v to [min, max].
func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// clientIP returns the requester's IP without the port. RealIP middleware
// has already folded X-Forwarded-For into RemoteAddr where trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
