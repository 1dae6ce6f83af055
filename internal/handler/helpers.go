package handler

import (
	"encoding/json"
	"log"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// writeMessage writes the {success, message} envelope shared by the auth and
// points endpoints.
func writeMessage(w http.ResponseWriter, status int, success bool, message string) {
	writeJSON(w, status, map[string]any{
		"success": success,
		"message": message,
	})
}
