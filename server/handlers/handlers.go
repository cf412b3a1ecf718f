// Package handlers provides the HTTP handlers of the chat server. Every
// handler answers JSON; failures are written as *errors.ChatError bodies.
package handlers

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
