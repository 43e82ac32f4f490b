package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medqueue/pkg/logger"
)

func TestPatientRateLimiter_Allow(t *testing.T) {
	limiter := NewPatientRateLimiter(2, time.Minute, nil, logger.Discard())
	defer limiter.Stop()

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	if !limiter.Allow("p1") || !limiter.Allow("p1") {
		t.Fatal("first two requests should pass")
	}
	if limiter.Allow("p1") {
		t.Error("third request inside window should be rejected")
	}
	if !limiter.Allow("p2") {
		t.Error("other patients have their own bucket")
	}
	if !limiter.Allow("") {
		t.Error("empty key is never limited")
	}

	now = now.Add(time.Minute + time.Second)
	if !limiter.Allow("p1") {
		t.Error("request after window should pass")
	}
}

func TestRateLimit_Middleware(t *testing.T) {
	limiter := NewPatientRateLimiter(1, time.Minute, nil, logger.Discard())
	defer limiter.Stop()

	h := RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tokens/current", nil)
		req = req.WithContext(WithPatientID(req.Context(), "p1"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do(); code != http.StatusOK {
		t.Fatalf("first request status = %d", code)
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", code)
	}
}
