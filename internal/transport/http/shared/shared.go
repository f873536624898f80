// Package shared holds the JSON response helpers every handler uses, so the
// error envelope stays identical across modules.
package shared

import (
	"net/http"

	json "github.com/goccy/go-json"

	dErrors "claimflow/pkg/domain-errors"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes v with the given status. Encoding failures are swallowed;
// by then the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the HTTP envelope. Unknown errors
// collapse to a plain 500 so internals never leak.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	WriteJSON(w, dErrors.ToHTTPStatus(code), ErrorResponse{
		Error:   string(code),
		Message: dErrors.MessageOf(err),
	})
}
