package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"carprice/features"
	"carprice/models"
	"carprice/regressor"
	"carprice/services"
	"carprice/tabular"
)

// APIError is the JSON body of every failed request.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

func newAPIError(status int, code, message string) *APIError {
	return &APIError{StatusCode: status, ErrorCode: code, Message: message}
}

// errBadRequest wraps request decoding failures.
func errBadRequest(err error) *APIError {
	return newAPIError(http.StatusBadRequest, "invalid_request", err.Error())
}

// fromError maps pipeline errors to client-facing responses.
func fromError(err error) *APIError {
	var (
		apiErr *APIError
		mre    *models.MalformedRecordError
		mce    *services.MissingColumnError
		inf    *regressor.InferenceError
		tooBig *http.MaxBytesError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &mre):
		e := newAPIError(http.StatusUnprocessableEntity, "malformed_record", err.Error())
		e.Details = map[string]any{"row": mre.Row, "field": mre.Field, "reason": mre.Reason}
		return e
	case errors.As(err, &mce):
		e := newAPIError(http.StatusUnprocessableEntity, "missing_columns", err.Error())
		e.Details = map[string]any{"columns": mce.Columns}
		return e
	case errors.Is(err, tabular.ErrEmptyTable):
		return newAPIError(http.StatusBadRequest, "empty_table", err.Error())
	case errors.As(err, &tooBig):
		return newAPIError(http.StatusRequestEntityTooLarge, "payload_too_large", err.Error())
	case errors.Is(err, tabular.ErrMalformedTable):
		return newAPIError(http.StatusBadRequest, "malformed_table", err.Error())
	case errors.Is(err, features.ErrNotFitted):
		return newAPIError(http.StatusServiceUnavailable, "not_fitted", err.Error())
	case errors.As(err, &inf):
		e := newAPIError(http.StatusInternalServerError, "inference_failed", err.Error())
		if len(inf.Expected) > 0 {
			e.Details = map[string]any{"expected": inf.Expected, "actual": inf.Actual}
		}
		return e
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
