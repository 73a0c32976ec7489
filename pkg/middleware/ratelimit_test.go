package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func limitedHandler(cfg RateLimitConfig) http.Handler {
	return RateLimit(cfg, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRateLimit_RejectsOverBurst(t *testing.T) {
	h := limitedHandler(RateLimitConfig{RPS: 0.001, Burst: 2})

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
		req.Header.Set(SessionHeader, "sess-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimit_SessionsAreIndependent(t *testing.T) {
	h := limitedHandler(RateLimitConfig{RPS: 0.001, Burst: 1})

	for _, sess := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
		req.Header.Set(SessionHeader, sess)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, sess)
	}
}

func TestRateLimit_RotatingSessionsShareIPBucket(t *testing.T) {
	h := limitedHandler(RateLimitConfig{RPS: 0.001, Burst: 5, IPRPS: 0.001, IPBurst: 3})

	codes := make([]int, 0, 4)
	for _, sess := range []string{"s1", "s2", "s3", "s4"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		req.Header.Set(SessionHeader, sess)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.RemoteAddr = "198.51.100.2:4000"
	req.Header.Set(SessionHeader, "s5")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_IPBucketDefaultsToMultiple(t *testing.T) {
	h := limitedHandler(RateLimitConfig{RPS: 0.001, Burst: 1})

	codes := make(map[int]int)
	for i := range 11 {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/deals", nil)
		req.Header.Set(SessionHeader, "rotating-"+strconv.Itoa(i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes[rec.Code]++
	}
	assert.Equal(t, 10, codes[http.StatusOK])
	assert.Equal(t, 1, codes[http.StatusTooManyRequests])
}

func TestRateLimit_DisabledPassesThrough(t *testing.T) {
	h := limitedHandler(RateLimitConfig{})
	for range 10 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestLimiterStore_SweepsIdleBuckets(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	s := newLimiterStore(1, 1, time.Minute)
	s.now = func() time.Time { return now }

	assert.True(t, s.allow("ip:10.0.0.1"))
	assert.True(t, s.allow("ip:10.0.0.2"))
	assert.Equal(t, 2, s.size())

	now = now.Add(2 * time.Minute)
	assert.True(t, s.allow("ip:10.0.0.3"))
	assert.Equal(t, 1, s.size())
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded first hop", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "9.9.9.9:1", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": "5.6.7.8"}, "9.9.9.9:1", "5.6.7.8"},
		{"garbage forwarded falls back", map[string]string{"X-Forwarded-For": "nope"}, "9.9.9.9:1", "9.9.9.9"},
		{"session header is ignored", map[string]string{SessionHeader: "s1"}, "9.9.9.9:1", "9.9.9.9"},
		{"remote without port", nil, "9.9.9.9", "9.9.9.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
