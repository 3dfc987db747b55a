package httpx

import (
	"encoding/json"
	"net/http"
)

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEnvelope sends the success/failure envelope used by the report
// endpoint. The capture agent never reads the body, so nothing beyond the
// flag is required.
func writeEnvelope(w http.ResponseWriter, status int, success bool) {
	writeJSON(w, status, map[string]bool{"success": success})
}
