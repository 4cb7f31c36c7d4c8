package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
)

var ErrInvalidSessionKey = errors.New("invalid session key")

// apiError is the JSON error body returned to clients.
type apiError struct {
	Err        error  `json:"-"`
	Message    string `json:"error"`
	Code       string `json:"code"`
	HTTPStatus int    `json:"-"`
}

func (e *apiError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *apiError) Unwrap() error {
	return e.Err
}

func badRequest(message string, err error) *apiError {
	return &apiError{Err: err, Message: message, Code: "BAD_REQUEST", HTTPStatus: http.StatusBadRequest}
}

func notFound(message string) *apiError {
	return &apiError{Message: message, Code: "NOT_FOUND", HTTPStatus: http.StatusNotFound}
}

func tooLarge() *apiError {
	return &apiError{Message: "request body too large", Code: "PAYLOAD_TOO_LARGE", HTTPStatus: http.StatusRequestEntityTooLarge}
}

func internal(err error) *apiError {
	return &apiError{Err: err, Message: "internal server error", Code: "INTERNAL", HTTPStatus: http.StatusInternalServerError}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		apiErr = internal(err)
	}
	if apiErr.HTTPStatus >= http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	writeJSON(w, apiErr.HTTPStatus, apiErr)
}
