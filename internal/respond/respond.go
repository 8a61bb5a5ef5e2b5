// Package respond writes the JSON envelopes used by every HTTP handler.
package respond

import (
	"encoding/json"
	"net/http"
)

// JSON writes payload with the given status.
func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Error writes {"success": false, "error": message}.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// Success writes {"success": true} merged with the extra fields.
func Success(w http.ResponseWriter, status int, fields map[string]interface{}) {
	payload := map[string]interface{}{"success": true}
	for k, v := range fields {
		payload[k] = v
	}
	JSON(w, status, payload)
}
