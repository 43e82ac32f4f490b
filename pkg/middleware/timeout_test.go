package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	apperrors "medqueue/pkg/errors"
	httputil "medqueue/pkg/http"
)

func TestRequestTimeout_PassesResponseThrough(t *testing.T) {
	handler := RequestTimeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Ticket", "7")
		httputil.WriteSuccess(w, map[string]int{"ticket_number": 7})
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tokens/current", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Header().Get("X-Ticket") != "7" {
		t.Errorf("handler header lost: %v", rec.Header())
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("content type = %q", rec.Header().Get("Content-Type"))
	}
}

func TestRequestTimeout_FlushesHeadersWithoutBody(t *testing.T) {
	handler := RequestTimeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", "req-1")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Header().Get("X-Request-Id") != "req-1" {
		t.Errorf("header set without a write should still reach the client")
	}
}

func TestRequestTimeout_WritesTimeoutError(t *testing.T) {
	handler := RequestTimeout(5 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tokens/current", nil))

	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusGatewayTimeout)
	}
	var body apperrors.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body.Code != apperrors.CodeTimeout || !body.Retryable {
		t.Errorf("body = %+v", body)
	}
}

// The handler keeps running after the deadline and writes its own response;
// run with -race to catch shared header access.
func TestRequestTimeout_LateHandlerWrites(t *testing.T) {
	for i := 0; i < 50; i++ {
		var wg sync.WaitGroup
		wg.Add(1)

		handler := RequestTimeout(time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer wg.Done()
			<-r.Context().Done()
			time.Sleep(time.Millisecond)
			w.Header().Set("X-Late", "1")
			httputil.WriteError(w, apperrors.StorageFailure("could not issue token", context.DeadlineExceeded))
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/tokens", nil))
		wg.Wait()

		if rec.Code != http.StatusGatewayTimeout {
			t.Fatalf("run %d: status = %d, want %d", i, rec.Code, http.StatusGatewayTimeout)
		}
		if rec.Header().Get("X-Late") != "" {
			t.Fatalf("run %d: late handler header reached the client", i)
		}
	}
}
