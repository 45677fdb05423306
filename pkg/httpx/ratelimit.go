package httpx

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/sharebox/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimit is a token bucket refilled at Requests per Window.
type RateLimit struct {
	Requests int
	Window   time.Duration
	Burst    int
}

// Every returns the bucket refill rate.
func (l RateLimit) Every() rate.Limit {
	if l.Requests <= 0 || l.Window <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(l.Requests) / l.Window.Seconds())
}

// Profiles used by the router. Strict guards credential and token
// endpoints, Moderate guards writes, Lenient guards reads and Public guards
// unauthenticated probes.
var (
	StrictLimit   = RateLimit{Requests: 5, Window: time.Minute, Burst: 5}
	ModerateLimit = RateLimit{Requests: 30, Window: time.Minute, Burst: 30}
	LenientLimit  = RateLimit{Requests: 120, Window: time.Minute, Burst: 120}
	PublicLimit   = RateLimit{Requests: 1000, Window: time.Minute, Burst: 1000}
)

// KeyExtractor picks the bucket a request is charged against. An empty key
// skips limiting for that request.
type KeyExtractor func(*http.Request) string

// ClientIP returns the originating client address, trusting the first
// X-Forwarded-For hop, then X-Real-IP, then the socket peer.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ByUser keys on the authenticated subject.
func ByUser(r *http.Request) string {
	id, _ := UserIDFromContext(r.Context())
	return id
}

// ByFormField keys on a form or query value (for example the username on login).
func ByFormField(name string) KeyExtractor {
	return func(r *http.Request) string {
		if err := r.ParseForm(); err != nil {
			return ""
		}
		return r.FormValue(name)
	}
}

// ByPathValue keys on a ServeMux wildcard.
func ByPathValue(name string) KeyExtractor {
	return func(r *http.Request) string { return r.PathValue(name) }
}

// Compose joins the non-empty keys of each extractor with ":".
func Compose(extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, ex := range extractors {
			if k := ex(r); k != "" {
				parts = append(parts, k)
			}
		}
		return strings.Join(parts, ":")
	}
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// limiterSet holds one bucket per key and evicts buckets idle for longer
// than a window.
type limiterSet struct {
	cfg RateLimit

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func newLimiterSet(cfg RateLimit) *limiterSet {
	return &limiterSet{cfg: cfg, buckets: make(map[string]*bucket), lastSweep: time.Now()}
}

func (s *limiterSet) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	idle := max(s.cfg.Window, time.Minute)
	if now.Sub(s.lastSweep) > idle {
		for k, b := range s.buckets {
			if now.Sub(b.seen) > idle {
				delete(s.buckets, k)
			}
		}
		s.lastSweep = now
	}

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(s.cfg.Every(), max(s.cfg.Burst, 1))}
		s.buckets[key] = b
	}
	b.seen = now
	return b.lim
}

// RateLimitMiddleware rejects requests with 429 once their key's bucket is
// empty.
func RateLimitMiddleware(cfg RateLimit, key KeyExtractor) Middleware {
	set := newLimiterSet(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			lim := set.get(k, now)
			res := lim.ReserveN(now, 1)
			if delay := res.DelayFrom(now); delay > 0 {
				res.CancelAt(now)

				retry := max(int(delay.Seconds()), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
				w.Header().Set("X-RateLimit-Window", cfg.Window.String())

				slogx.FromContext(r.Context()).Warn("rate limit exceeded",
					"path", r.URL.Path,
					"retry_after", retry,
				)
				WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "too many requests, try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP limits per client address.
func RateLimitByIP(cfg RateLimit) Middleware {
	return RateLimitMiddleware(cfg, ClientIP)
}

// RateLimitByUser limits per authenticated user and client address.
func RateLimitByUser(cfg RateLimit) Middleware {
	return RateLimitMiddleware(cfg, Compose(ByUser, ClientIP))
}
