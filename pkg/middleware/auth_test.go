package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medqueue/pkg/logger"
)

func TestAuthenticate(t *testing.T) {
	verifier := NewTokenVerifier("test-secret")
	valid, err := verifier.Sign("patient-1", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	expired, err := verifier.Sign("patient-1", -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	foreign, err := NewTokenVerifier("other-secret").Sign("patient-1", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantID     string
	}{
		{"valid token", "/api/v1/tokens/current", "Bearer " + valid, http.StatusOK, "patient-1"},
		{"missing header", "/api/v1/tokens/current", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "/api/v1/tokens/current", "Basic " + valid, http.StatusUnauthorized, ""},
		{"expired token", "/api/v1/tokens/current", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"wrong secret", "/api/v1/tokens/current", "Bearer " + foreign, http.StatusUnauthorized, ""},
		{"public path", "/metrics", "", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotID, _ = PatientIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			h := Authenticate(verifier, logger.Discard(), "/metrics")(next)
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if gotID != tt.wantID {
				t.Errorf("patient id = %q, want %q", gotID, tt.wantID)
			}
		})
	}
}

func TestVerify_RejectsEmptyPatientID(t *testing.T) {
	verifier := NewTokenVerifier("test-secret")
	raw, err := verifier.Sign("", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := verifier.Verify(raw); err == nil {
		t.Error("expected error for token without patient_id")
	}
}
