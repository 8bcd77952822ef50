// Package logger provides structured logging for nekostream using logrus.
//
// Usage:
//
//	log := logger.New("storefront", "json", "info")
//	ctx := logger.WithContext(ctx, log.WithField("request_id", id))
//	// ... later:
//	logger.FromContext(ctx).WithField("status", 200).Info("request complete")
package logger

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

type contextKey struct{}

// New creates a logrus entry for a named service.
//
// format: "json" (default) or "text".
// level:  any logrus level name; unknown or empty values fall back to info.
func New(service, format, level string) *logrus.Entry {
	return NewWithOutput(os.Stdout, service, format, level)
}

// NewWithOutput is New with an explicit writer. Tests use it to capture output.
func NewWithOutput(out io.Writer, service, format, level string) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(out)

	if format == "text" {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil || level == "" {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log.WithField("service", service)
}

// WithContext returns a context carrying the given entry.
func WithContext(ctx context.Context, e *logrus.Entry) context.Context {
	return context.WithValue(ctx, contextKey{}, e)
}

// FromContext returns the entry stored by WithContext, or an entry on the
// standard logger when none is present.
func FromContext(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if e, ok := ctx.Value(contextKey{}).(*logrus.Entry); ok && e != nil {
			return e
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// Middleware injects a request-scoped entry (tagged with the chi request id)
// into the request context and logs one line per completed request.
// Mount it after middleware.RequestID.
func Middleware(base *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			entry := base.WithField("request_id", middleware.GetReqID(r.Context()))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(WithContext(r.Context(), entry)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"duration_ms": time.Since(start).Milliseconds(),
			}
			switch {
			case status >= 500:
				entry.WithFields(fields).Error("request failed")
			case status >= 400:
				entry.WithFields(fields).Warn("request rejected")
			default:
				entry.WithFields(fields).Info("request complete")
			}
		})
	}
}
