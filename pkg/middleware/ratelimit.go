package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/utafrali/MallGo/pkg/errors"
	"github.com/utafrali/MallGo/pkg/httputil"
)

// RateLimitConfig sets the token buckets of each client. Every request
// spends a token from its IP bucket, and requests carrying X-Session-ID also
// spend one from the session bucket. An RPS of zero disables limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
	// IPRPS and IPBurst size the per-IP bucket. Zero values default to ten
	// times the session values.
	IPRPS   float64
	IPBurst int
	// IdleTTL evicts buckets of clients not seen for this long.
	IdleTTL time.Duration
}

const ipBucketFactor = 10

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterStore struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newLimiterStore(rps float64, burst int, idleTTL time.Duration) *limiterStore {
	if idleTTL <= 0 {
		idleTTL = 3 * time.Minute
	}
	return &limiterStore{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(rps),
		burst:   max(burst, 1),
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// allow spends one token of key's bucket. Idle buckets are swept at most
// once per idleTTL, on the request path.
func (s *limiterStore) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.idleTTL {
		for k, b := range s.buckets {
			if now.Sub(b.lastSeen) > s.idleTTL {
				delete(s.buckets, k)
			}
		}
		s.lastSweep = now
	}

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

func (s *limiterStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// RateLimit enforces the per-IP and per-session token buckets and answers
// 429 when either is empty.
func RateLimit(cfg RateLimitConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if cfg.RPS <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.IPRPS <= 0 {
		cfg.IPRPS = cfg.RPS * ipBucketFactor
	}
	if cfg.IPBurst < 1 {
		cfg.IPBurst = max(cfg.Burst, 1) * ipBucketFactor
	}
	ips := newLimiterStore(cfg.IPRPS, cfg.IPBurst, cfg.IdleTTL)
	sessions := newLimiterStore(cfg.RPS, cfg.Burst, cfg.IdleTTL)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + clientIP(r)
			ok := ips.allow(key)
			if id := strings.TrimSpace(r.Header.Get(SessionHeader)); ok && id != "" {
				key = "session:" + id
				ok = sessions.allow(key)
			}
			if !ok {
				logger.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("client", key),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", "1")
				httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.Response{
					Error: &httputil.ErrorResponse{Code: apperrors.CodeRateLimited, Message: "too many requests"},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the connection's remote address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.String()
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
