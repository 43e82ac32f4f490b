package http

import (
	"encoding/json"
	"net/http"

	apperrors "medqueue/pkg/errors"
)

type SuccessResponse struct {
	Data any `json:"data,omitempty"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes err as an ErrorResponse. Errors that are not an AppError
// are reported as an opaque internal error.
func WriteError(w http.ResponseWriter, err error) {
	appErr := apperrors.AsAppError(err)

	statusCode := appErr.StatusCode()
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}
	if appErr.Code == apperrors.CodeInternal {
		appErr = apperrors.Internal("Internal server error", appErr.Err)
	}
	if appErr.Retryable && statusCode == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}

	WriteJSON(w, statusCode, appErr.Response())
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, SuccessResponse{Data: data})
}
