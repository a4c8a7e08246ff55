package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/commit-karma/internal/metrics"
)

// Metrics records request count, latency and errors per route pattern.
// Scrapes of /metrics are not counted.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := wrap(w)
			next.ServeHTTP(wrapped, r)

			route := routeLabel(r)
			class := metrics.StatusClass(wrapped.statusCode)

			m.RequestTotal.WithLabelValues(r.Method, route, class).Inc()
			m.RequestDuration.WithLabelValues(r.Method, route, class).Observe(time.Since(start).Seconds())
			if wrapped.statusCode >= http.StatusBadRequest {
				m.RequestErrors.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
			}
		})
	}
}

// routeLabel prefers the matched chi pattern ("/api/karma/{userID}") so user
// ids never become label values. Unmatched paths collapse to "other".
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "other"
}
