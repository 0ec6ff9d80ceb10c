package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/baharserene/internal/respond"
)

// slidingWindow trims entries older than the window, counts what is left and
// records the request only while under the limit. It returns the new count,
// or -1 when the request is rejected.
// KEYS[1]=key, ARGV: now_ms, window_start_ms, window_sec, member, limit
var slidingWindow = redis.NewScript(`
local key = KEYS[1]

redis.call('ZREMRANGEBYSCORE', key, '-inf', ARGV[2])

local count = redis.call('ZCARD', key)
if count < tonumber(ARGV[5]) then
  redis.call('ZADD', key, ARGV[1], ARGV[4])
  redis.call('EXPIRE', key, ARGV[3])
  return count + 1
end
return -1
`)

// IdentifyFunc returns the caller's user id when one is known.
type IdentifyFunc func(r *http.Request) (uuid.UUID, bool)

type RateLimiter struct {
	rdb      *redis.Client
	name     string
	limit    int
	window   time.Duration
	message  string
	identify IdentifyFunc
	now      func() time.Time
}

type Option func(*RateLimiter)

func WithIdentify(fn IdentifyFunc) Option {
	return func(l *RateLimiter) { l.identify = fn }
}

func WithMessage(msg string) Option {
	return func(l *RateLimiter) { l.message = msg }
}

func WithClock(now func() time.Time) Option {
	return func(l *RateLimiter) { l.now = now }
}

// NewRateLimiter allows limit requests per window for each caller. name
// separates the counters of different limiters sharing one Redis.
func NewRateLimiter(rdb *redis.Client, name string, limit int, window time.Duration, opts ...Option) *RateLimiter {
	l := &RateLimiter{
		rdb:     rdb,
		name:    name,
		limit:   limit,
		window:  window,
		message: "Too many requests, please try again later.",
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RateLimiter) key(r *http.Request) string {
	if l.identify != nil {
		if id, ok := l.identify(r); ok {
			return fmt.Sprintf("rate_limit:%s:user:%s", l.name, id)
		}
	}
	return fmt.Sprintf("rate_limit:%s:ip:%s", l.name, clientIP(r))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Handler rejects callers over the limit with 429. When Redis is unavailable
// requests are let through.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := l.key(r)
		now := l.now()
		windowSec := max(int64(l.window.Seconds()), 1)
		member := fmt.Sprintf("%d-%s", now.UnixNano(), uuid.Must(uuid.NewV4()))

		count, err := slidingWindow.Run(r.Context(), l.rdb, []string{key},
			now.UnixMilli(), now.Add(-l.window).UnixMilli(), windowSec, member, l.limit).Int()
		if err != nil {
			log.Warn().Err(err).Str("limiter", l.name).Msg("Rate limiter unavailable, letting request through")
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		if count < 0 {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", strconv.FormatInt(windowSec, 10))
			respond.Error(w, http.StatusTooManyRequests, l.message)
			return
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(l.limit-count))
		next.ServeHTTP(w, r)
	})
}
