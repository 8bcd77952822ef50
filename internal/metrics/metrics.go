// Package metrics provides Prometheus instrumentation for nekostream.
//
// Metrics are registered on the default registry at init time via promauto
// and exposed by Handler() at GET /metrics.
//
//	nekostream_http_requests_total          counter   service, method, path, status
//	nekostream_http_request_duration_seconds histogram service, method, path
//	nekostream_auth_events_total            counter   event, result
//	nekostream_favorite_events_total        counter   action
//	nekostream_playback_resolutions_total   counter   source
//	nekostream_resolver_requests_total      counter   result
//	nekostream_cache_lookups_total          counter   cache, result
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ── Counters ──────────────────────────────────────────────────────────────────

// HTTPRequests counts HTTP requests by service, method, path, and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "nekostream_http_requests_total",
	Help: "Total HTTP requests handled.",
}, []string{"service", "method", "path", "status"})

// AuthEvents counts sign-up, login, refresh and logout attempts.
var AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "nekostream_auth_events_total",
	Help: "Auth events by type and result.",
}, []string{"event", "result"})

// FavoriteEvents counts favorite additions and removals.
var FavoriteEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "nekostream_favorite_events_total",
	Help: "Favorite toggles by action.",
}, []string{"action"})

// PlaybackResolutions counts how each played episode got its video source.
// source: manual, resolver, none.
var PlaybackResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "nekostream_playback_resolutions_total",
	Help: "Episode playback source decisions.",
}, []string{"source"})

// ResolverRequests counts upstream episode-source lookups by outcome.
var ResolverRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "nekostream_resolver_requests_total",
	Help: "Episode source resolver requests by result.",
}, []string{"result"})

// CacheLookups counts cache hits and misses per logical cache.
var CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "nekostream_cache_lookups_total",
	Help: "Cache lookups by cache name and result.",
}, []string{"cache", "result"})

// ── Histograms ────────────────────────────────────────────────────────────────

// HTTPDuration tracks HTTP request latency.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "nekostream_http_request_duration_seconds",
	Help:    "HTTP request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"service", "method", "path"})

// ── Handler ───────────────────────────────────────────────────────────────────

// Handler returns the Prometheus HTTP handler. Mount at GET /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ── Middleware ────────────────────────────────────────────────────────────────

// Middleware wraps an HTTP handler to record request counts and latency.
func Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		path := SanitizePath(r.URL.Path)
		HTTPRequests.WithLabelValues(service, r.Method, path, strconv.Itoa(rw.status)).Inc()
		HTTPDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// SanitizePath replaces UUID and numeric path segments with ":id" so label
// cardinality stays bounded.
//
//	/animes/550e8400-e29b-41d4-a716-446655440000/favorite → /animes/:id/favorite
func SanitizePath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if _, err := uuid.Parse(p); err == nil {
			parts[i] = ":id"
			continue
		}
		if _, err := strconv.Atoi(p); err == nil {
			parts[i] = ":id"
		}
	}
	out := strings.Join(parts, "/")
	if len(out) > 64 {
		return out[:64] + "..."
	}
	return out
}
