package middleware

import (
	"net/http"
	"sync"
	"time"

	apperrors "medqueue/pkg/errors"
	httputil "medqueue/pkg/http"
	"medqueue/pkg/logger"
)

// KeyExtractor picks the rate limit bucket for a request. An empty key skips limiting.
type KeyExtractor func(r *http.Request) string

// PatientRateLimiter is a sliding window limiter keyed by the authenticated patient.
type PatientRateLimiter struct {
	mu        sync.Mutex
	requests  map[string][]time.Time
	limit     int
	window    time.Duration
	extractor KeyExtractor
	log       *logger.Logger
	now       func() time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func NewPatientRateLimiter(limit int, window time.Duration, extractor KeyExtractor, log *logger.Logger) *PatientRateLimiter {
	if extractor == nil {
		extractor = PatientKeyExtractor
	}

	limiter := &PatientRateLimiter{
		requests:  make(map[string][]time.Time),
		limit:     limit,
		window:    window,
		extractor: extractor,
		log:       log,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *PatientRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window * 4)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, timestamps := range rl.requests {
				if len(timestamps) == 0 || now.Sub(timestamps[len(timestamps)-1]) > rl.window {
					delete(rl.requests, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *PatientRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *PatientRateLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	valid := rl.requests[key][:0]
	for _, ts := range rl.requests[key] {
		if now.Sub(ts) < rl.window {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}

	rl.requests[key] = append(valid, now)
	return true
}

func RateLimit(limiter *PatientRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := limiter.extractor(r)

			if !limiter.Allow(key) {
				limiter.log.Warn("Rate limit exceeded",
					"request_id", RequestIDFromContext(r.Context()),
					"patient_id", key,
					"path", r.URL.Path,
				)
				httputil.WriteError(w, apperrors.RateLimited("rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func PatientKeyExtractor(r *http.Request) string {
	id, _ := PatientIDFromContext(r.Context())
	return id
}
