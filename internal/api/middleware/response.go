package middleware

import (
	"encoding/json"
	"net/http"
)

// ErrorResponseBody is the envelope of every failed request.
type ErrorResponseBody struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func WriteError(w http.ResponseWriter, status int, body ErrorResponseBody) {
	body.Success = false
	WriteJSON(w, status, body)
}

func WriteUnauthenticated(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, ErrorResponseBody{
		Code:    "UNAUTHENTICATED",
		Message: message,
	})
}
