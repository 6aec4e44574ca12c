// Package httputil provides JSON response helpers shared by all handlers.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "gymgate/pkg/domain-errors"
)

// Validatable is implemented by request DTOs that validate and parse
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// ErrorResponse is the wire shape for every error this API returns.
type ErrorResponse struct {
	Error       string            `json:"error"`
	Description string            `json:"error_description,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a coded error to its HTTP status and wire form. Internal
// errors keep their message out of the response; clients get the code only.
func WriteError(w http.ResponseWriter, err error) {
	status := dErrors.ToHTTPStatus(err)
	resp := ErrorResponse{Error: wireCode(err)}
	if status != http.StatusInternalServerError {
		var derr *dErrors.Error
		if errors.As(err, &derr) {
			resp.Description = derr.Message
			resp.Details = derr.Details
		}
	}
	WriteJSON(w, status, resp)
}

func wireCode(err error) string {
	code := dErrors.CodeOf(err)
	switch code {
	case dErrors.CodeInternal, dErrors.CodeInvariantViolation:
		return "internal_error"
	default:
		return string(code)
	}
}

// DecodeAndPrepare decodes the JSON body into T and runs its validation.
// On failure it writes the error response and returns ok=false.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "request decode failed",
				"request_id", requestID,
				"error", err,
			)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return nil, false
	}
	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			WriteError(w, err)
			return nil, false
		}
	}
	return &req, true
}
