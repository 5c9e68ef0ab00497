package http

import (
	"encoding/json"
	"net/http"
)

// Envelope statuses
const (
	StatusSuccess = "success"
	StatusFail    = "fail"  // client-input failures (4xx)
	StatusError   = "error" // server faults (5xx)
)

// Envelope is the body shape of every API response
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// WriteJSON writes env with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	// Encoding errors are not exposed to the client
	_ = json.NewEncoder(w).Encode(env)
}

func WriteSuccess(w http.ResponseWriter, statusCode int, message string, data any) {
	WriteJSON(w, statusCode, Envelope{Status: StatusSuccess, Message: message, Data: data})
}

// WriteFailure writes a fail or error envelope depending on statusCode
func WriteFailure(w http.ResponseWriter, statusCode int, message string) {
	status := StatusFail
	if statusCode >= http.StatusInternalServerError {
		status = StatusError
	}
	WriteJSON(w, statusCode, Envelope{Status: status, Message: message})
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteFailure(w, http.StatusBadRequest, message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteFailure(w, http.StatusUnauthorized, message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteFailure(w, http.StatusForbidden, message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteFailure(w, http.StatusNotFound, message)
}

func WriteConflict(w http.ResponseWriter, message string) {
	WriteFailure(w, http.StatusConflict, message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteFailure(w, http.StatusTooManyRequests, message)
}

func WriteBadGateway(w http.ResponseWriter, message string) {
	WriteFailure(w, http.StatusBadGateway, message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteFailure(w, http.StatusInternalServerError, message)
}
