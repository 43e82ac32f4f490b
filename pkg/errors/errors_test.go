package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructors(t *testing.T) {
	cause := errors.New("server selection timeout")

	tests := []struct {
		name          string
		err           *AppError
		wantCode      string
		wantStatus    int
		wantRetryable bool
	}{
		{"patient missing", NotFoundWithID("Patient", "p1"), CodeNotFound, http.StatusNotFound, false},
		{"bad day", Validation("Invalid day", map[string]any{"day": "not a date"}), CodeValidation, http.StatusUnprocessableEntity, false},
		{"bad input", InvalidInput("Invalid day"), CodeInvalidInput, http.StatusBadRequest, false},
		{"no bearer", Unauthorized("missing bearer token"), CodeUnauthorized, http.StatusUnauthorized, false},
		{"panic", Internal("Internal server error", cause), CodeInternal, http.StatusInternalServerError, false},
		{"deadline", Timeout("request timeout"), CodeTimeout, http.StatusGatewayTimeout, true},
		{"ledger down", StorageFailure("could not issue token", cause), CodeUnavailable, http.StatusServiceUnavailable, true},
		{"too many", RateLimited("slow down"), CodeRateLimited, http.StatusTooManyRequests, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", tt.err.Code, tt.wantCode)
			}
			if tt.err.StatusCode() != tt.wantStatus {
				t.Errorf("status = %d, want %d", tt.err.StatusCode(), tt.wantStatus)
			}
			if tt.err.Retryable != tt.wantRetryable {
				t.Errorf("retryable = %v, want %v", tt.err.Retryable, tt.wantRetryable)
			}
			if resp := tt.err.Response(); resp.Code != tt.wantCode || resp.Retryable != tt.wantRetryable {
				t.Errorf("response = %+v does not mirror the error", resp)
			}
		})
	}
}

func TestStorageFailure_KeepsCause(t *testing.T) {
	cause := errors.New("server selection timeout")
	err := StorageFailure("could not issue token", cause)

	if !errors.Is(err, cause) {
		t.Errorf("storage failure should wrap its cause")
	}
	want := "SERVICE_UNAVAILABLE: could not issue token (caused by: server selection timeout)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestNotFoundWithID_Details(t *testing.T) {
	err := NotFoundWithID("Token ledger", "2026-10-19")

	if err.Message != "Token ledger not found" {
		t.Errorf("message = %q", err.Message)
	}
	if err.Details["resource"] != "Token ledger" || err.Details["id"] != "2026-10-19" {
		t.Errorf("details = %v", err.Details)
	}
	if err.Error() != "NOT_FOUND: Token ledger not found" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestIsRetryable(t *testing.T) {
	wrapped := fmt.Errorf("issue: %w", StorageFailure("could not issue token", nil))

	if !IsRetryable(wrapped) {
		t.Errorf("IsRetryable() should see through wrapping")
	}
	if IsRetryable(NotFoundWithID("Patient", "p1")) {
		t.Errorf("IsRetryable() should be false for not found")
	}
	if IsRetryable(errors.New("plain")) {
		t.Errorf("IsRetryable() should be false for plain errors")
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NotFoundWithID("Patient", "p1")
	if got := AsAppError(fmt.Errorf("lookup: %w", appErr)); got != appErr {
		t.Errorf("AsAppError() should unwrap to the same AppError")
	}

	plain := errors.New("regular error")
	got := AsAppError(plain)
	if got.Code != CodeInternal {
		t.Errorf("plain error code = %s, want %s", got.Code, CodeInternal)
	}
	if got.Err != plain {
		t.Errorf("AsAppError() should keep the plain error as cause")
	}
}
