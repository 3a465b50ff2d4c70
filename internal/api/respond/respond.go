// Package respond renders API responses and the shared error envelope.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
)

// APIError is a caller-visible failure with an HTTP-equivalent status and an
// optional machine-readable code plus metadata.
type APIError struct {
	Status  int
	Message string
	Detail  string
	Code    string
	Meta    map[string]string
}

func (e *APIError) Error() string { return e.Message }

// NewAPIError creates an APIError with the given status and message.
func NewAPIError(status int, message string) *APIError {
	return &APIError{Status: status, Message: message}
}

// WithDetail attaches a human-readable detail string.
func (e *APIError) WithDetail(detail string) *APIError {
	e.Detail = detail
	return e
}

// WithCode attaches a machine-readable error code.
func (e *APIError) WithCode(code string) *APIError {
	e.Code = code
	return e
}

// WithMeta attaches a metadata key/value pair.
func (e *APIError) WithMeta(key, value string) *APIError {
	if e.Meta == nil {
		e.Meta = make(map[string]string)
	}
	e.Meta[key] = value
	return e
}

// errorBody is the wire shape of one error resource.
type errorBody struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Detail  string            `json:"detail,omitempty"`
	Code    string            `json:"code,omitempty"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteError converts an error into the standard error envelope. Errors that
// are not APIError values are reported as a plain 500.
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		apiErr = NewAPIError(http.StatusInternalServerError, "Internal server error")
	}
	WriteJSON(w, apiErr.Status, map[string]interface{}{
		"error": errorBody{
			Status:  strconv.Itoa(apiErr.Status),
			Message: apiErr.Message,
			Detail:  apiErr.Detail,
			Code:    apiErr.Code,
			Meta:    apiErr.Meta,
		},
	})
}

// WriteNoContent writes an empty-body success response.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
