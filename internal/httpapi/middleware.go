package httpapi

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GlensonAnsin/lumina/internal/audit"
	"github.com/GlensonAnsin/lumina/internal/obs"
	"golang.org/x/time/rate"
)

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// RequestID tags each request with an identifier, echoed in the response
// header and threaded through audit logging.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if rid == "" || len(rid) > 64 {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r.WithContext(audit.WithRequestID(r.Context(), rid)))
	})
}

// Logging emits one JSON line per request: method, path, status, duration.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, code: 200}
		start := time.Now()
		next.ServeHTTP(sw, r)
		d := time.Since(start)

		fields := map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.code,
			"duration_ms": d.Milliseconds(),
		}
		if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
			fields["request_id"] = rid
		}
		switch {
		case sw.code >= 500:
			obs.Error("request", fields)
		case sw.code >= 400:
			obs.Warn("request", fields)
		default:
			obs.Info("request", fields)
		}
	})
}

// SecurityHeaders applies standard hardening headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "0")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// CORS allows the single configured origin.
func CORS(next http.Handler, origin string) http.Handler {
	allowedMethods := "GET,POST,OPTIONS"
	allowedHeaders := "Content-Type,Authorization,X-Request-ID,X-Bypass-Maintenance"

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Origin"); got != "" && got == origin {
			w.Header().Set("Access-Control-Allow-Origin", got)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
		w.Header().Set("Access-Control-Max-Age", "600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MaxBodyBytes limits request body size.
func MaxBodyBytes(next http.Handler, maxBytes int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		next.ServeHTTP(w, r)
	})
}

// ipLimiters is a per-client token-bucket set with idle eviction.
type ipLimiters struct {
	mu      sync.Mutex
	buckets map[string]*ipBucket
	newLim  func() *rate.Limiter
}

type ipBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func newIPLimiters(newLim func() *rate.Limiter) *ipLimiters {
	l := &ipLimiters{
		buckets: make(map[string]*ipBucket),
		newLim:  newLim,
	}
	go l.evictLoop(5*time.Minute, time.Minute)
	return l
}

func (l *ipLimiters) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[ip]
	if !ok {
		b = &ipBucket{lim: l.newLim()}
		l.buckets[ip] = b
	}
	b.seen = time.Now()
	return b.lim.Allow()
}

func (l *ipLimiters) evictLoop(ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		l.mu.Lock()
		for k, b := range l.buckets {
			if now.Sub(b.seen) > ttl {
				delete(l.buckets, k)
			}
		}
		l.mu.Unlock()
	}
}

// RateLimit applies a per-IP token bucket across the whole API.
func RateLimit(next http.Handler, burst, perSecond int) http.Handler {
	limiters := newIPLimiters(func() *rate.Limiter {
		return rate.NewLimiter(rate.Limit(perSecond), burst)
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiters.allow(clientIP(r)) {
			writeError(w, r, http.StatusTooManyRequests, "too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loginRateLimit is the stricter bucket guarding credential endpoints:
// loginLimit attempts per loginWindow per client IP.
func (a *API) loginRateLimit(next http.Handler) http.Handler {
	limiters := newIPLimiters(func() *rate.Limiter {
		return rate.NewLimiter(rate.Every(a.loginWindow/time.Duration(a.loginLimit)), a.loginLimit)
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiters.allow(clientIP(r)) {
			writeError(w, r, http.StatusTooManyRequests, "too many login attempts, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Maintenance rejects everything with 503 while the lock file exists, unless
// the bypass header carries the configured secret.
func (a *API) Maintenance(next http.Handler) http.Handler {
	if a.maint == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.maint.Enabled() && !a.maint.Bypass(r.Header.Get("X-Bypass-Maintenance")) {
			w.Header().Set("Retry-After", "60")
			writeError(w, r, http.StatusServiceUnavailable,
				"system is currently under maintenance, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	// X-Forwarded-For support (first IP)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}
