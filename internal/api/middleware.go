package api

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/lalith1997/quantscreen/pkg/logger"
	"github.com/lalith1997/quantscreen/pkg/redis"
)

// idleLimiterTTL is how long an unused client limiter is kept
const idleLimiterTTL = 10 * time.Minute

// RateLimit configures per-client request limits.
// Shared, when set, enforces the same budget across replicas through Redis.
type RateLimit struct {
	PerSecond float64
	Burst     int
	Shared    *redis.RateLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters keeps one token bucket per client address
type clientLimiters struct {
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	lastScan time.Time
}

func newClientLimiters(perSecond float64, burst int) *clientLimiters {
	return &clientLimiters{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(perSecond),
		burst:   burst,
	}
}

func (c *clientLimiters) allow(client string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Sub(c.lastScan) > idleLimiterTTL {
		for id, cl := range c.clients {
			if now.Sub(cl.lastSeen) > idleLimiterTTL {
				delete(c.clients, id)
			}
		}
		c.lastScan = now
	}

	cl, ok := c.clients[client]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.clients[client] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// clientID is the remote host without port
func clientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimitMiddleware rejects clients over their budget with 429
func rateLimitMiddleware(cfg RateLimit, log *logger.Logger) mux.MiddlewareFunc {
	local := newClientLimiters(cfg.PerSecond, cfg.Burst)
	perMinute := int(math.Ceil(cfg.PerSecond * 60))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := clientID(r)

			if !local.allow(id, time.Now()) {
				tooManyRequests(w, 1)
				return
			}

			if cfg.Shared != nil {
				allowed, remaining, err := cfg.Shared.Allow(r.Context(), redis.ClientRateLimit(id, perMinute, time.Minute))
				if err != nil {
					// Redis trouble must not take the API down
					log.WithError(err).Warn("Shared rate limit check failed")
				} else {
					w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
					if !allowed {
						tooManyRequests(w, 60)
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func tooManyRequests(w http.ResponseWriter, retryAfter int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			// Call next handler
			next.ServeHTTP(rec, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
