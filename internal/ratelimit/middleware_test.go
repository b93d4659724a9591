package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bduran04/festival-finder/internal/model"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareAllows(t *testing.T) {
	mw := Middleware(NoopLimiter{}, "test", IPKeyFunc, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/festivals", nil)

	mw(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestMiddlewareDenies(t *testing.T) {
	m := NewMemoryLimiter(1, 1)
	defer func() { _ = m.Close() }()

	mw := Middleware(m, "test", IPKeyFunc, func(r *http.Request) string { return "req-123" })
	handler := mw(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/festivals", nil)
	req.RemoteAddr = "203.0.113.9:12345"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on 429")
	}

	var apiErr model.APIError
	if err := json.NewDecoder(rec.Body).Decode(&apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if apiErr.Error.Code != model.ErrCodeRateLimited {
		t.Fatalf("expected code %s, got %s", model.ErrCodeRateLimited, apiErr.Error.Code)
	}
	if apiErr.Meta.RequestID != "req-123" {
		t.Fatalf("expected request ID in envelope, got %q", apiErr.Meta.RequestID)
	}
}

func TestMiddlewarePrefixesIsolateBuckets(t *testing.T) {
	m := NewMemoryLimiter(1, 1)
	defer func() { _ = m.Close() }()

	readMW := Middleware(m, "read", IPKeyFunc, nil)
	writeMW := Middleware(m, "write", IPKeyFunc, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:12345"

	rec := httptest.NewRecorder()
	readMW(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("read: expected 200, got %d", rec.Code)
	}

	// The read bucket is exhausted but the write bucket is fresh.
	rec = httptest.NewRecorder()
	writeMW(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("write: expected 200, got %d", rec.Code)
	}
}

func TestMiddlewareNilLimiterPassesThrough(t *testing.T) {
	mw := Middleware(nil, "test", IPKeyFunc, nil)
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestIPKeyFunc(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"192.0.2.1:8080", "192.0.2.1"},
		{"[2001:db8::1]:8080", "[2001:db8::1]"},
		{"192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remoteAddr
		if got := IPKeyFunc(req); got != tt.want {
			t.Fatalf("IPKeyFunc(%q) = %q, want %q", tt.remoteAddr, got, tt.want)
		}
	}
}
