package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/paymux/gateway/internal/domain"
)

const internalKeyHeader = "X-Internal-Api-Key"

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		next.ServeHTTP(w, r)
		s.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", clientIP(r),
			"duration_ms", s.now().Sub(start).Milliseconds())
	})
}

func (s *Server) requireInternalKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.internalKey == "" || r.Header.Get(internalKeyHeader) != s.internalKey {
			s.writeError(w, domain.NewError(domain.CodeUnauthorized, "invalid or missing internal API key"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimited gates the hot payment route. A limiter error fails open:
// losing Redis must not take payments down with it.
func (s *Server) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		ok, err := s.limiter.Allow(r.Context(), clientIP(r))
		if err != nil {
			s.log.Warn("rate limiter unavailable, allowing", "err", err)
			ok = true
		}
		if !ok {
			s.writeError(w, domain.NewError(domain.CodeRateLimited, "rate limit exceeded, retry later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RedisRateLimiter counts requests per client IP in minute buckets.
type RedisRateLimiter struct {
	rdb       *redis.Client
	perMinute int
	now       func() time.Time
}

func NewRedisRateLimiter(rdb *redis.Client, perMinute int, now func() time.Time) *RedisRateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RedisRateLimiter{rdb: rdb, perMinute: perMinute, now: now}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, clientIP string) (bool, error) {
	if l.perMinute <= 0 {
		return true, nil
	}
	key := fmt.Sprintf("rate:%s:%s", clientIP, l.now().UTC().Format("200601021504"))
	pipe := l.rdb.Pipeline()
	count := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 120*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	return count.Val() <= int64(l.perMinute), nil
}
