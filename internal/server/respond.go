package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Error codes returned in the response envelope.
const (
	codeDBUnavailable  = "db_unavailable"
	codeInvalidID      = "invalid_id"
	codeNotFound       = "not_found"
	codeInvalidPayload = "invalid_payload"
	codeInternal       = "internal_error"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// envelope is the uniform response shape: exactly one of data or error set.
type envelope struct {
	Data  any       `json:"data,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

func respondData(w http.ResponseWriter, status int, data any) {
	respond(w, status, envelope{Data: data})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respond(w, status, envelope{Error: &apiError{Code: code, Message: message}})
}

func respond(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("server: encode response", zap.Error(err))
	}
}
