package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimitEnforcesBurst(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := RateLimit(1, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/bookings", nil)
		req.Header.Set("X-Real-Ip", "203.0.113.9")
		rec := httptest.NewRecorder()
		mw(handler).ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("burst requests must pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("third request must be limited, got %v", codes)
	}
}

func TestRateLimitIsPerIP(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := RateLimit(1, 1)

	first := httptest.NewRequest(http.MethodGet, "/bookings", nil)
	first.Header.Set("X-Real-Ip", "203.0.113.1")
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("first ip: %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodGet, "/bookings", nil)
	second.Header.Set("X-Real-Ip", "203.0.113.2")
	rec = httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, second)
	if rec.Code != http.StatusOK {
		t.Fatalf("a different ip must have its own bucket, got %d", rec.Code)
	}
}
