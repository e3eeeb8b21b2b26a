package relay

import (
	"encoding/json"
	"net/http"
)

// Response messages not produced by the exchange operation itself
const (
	MessageConnected        = "Twitter account connected to FireStarter successfully"
	MessageHealthy          = "Twitter OAuth relay is running"
	MessageInvalidJSON      = "Invalid JSON request body"
	MessageBodyTooLarge     = "Request body too large"
	MessageMethodNotAllowed = "Method not allowed"
	MessageUnauthorized     = "Unauthorized"
)

// writeJSON writes v as a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the failure envelope and returns the status written
func writeError(w http.ResponseWriter, status int, message string, detail any) int {
	writeJSON(w, status, ErrorResponse{
		Success: false,
		Message: message,
		Error:   detail,
	})
	return status
}
