// sentry.go — Sentry error tracking for nekostream.
//
// Usage in main.go:
//
//	if err := telemetry.InitSentry(cfg.SentryDSN, "storefront", version, cfg.AppEnv); err != nil { ... }
//	defer telemetry.Flush()
//
// Usage in handlers:
//
//	telemetry.CaptureError(err, map[string]string{"operation": "create_anime"})
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

// InitSentry initializes the Sentry SDK for a named service.
// An empty dsn disables Sentry; every other function here stays safe to call.
func InitSentry(dsn, serviceName, release, env string) error {
	if dsn == "" {
		logrus.WithField("service", serviceName).Info("SENTRY_DSN not set, error tracking disabled")
		return nil
	}
	if env == "" {
		env = "development"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		Release:          release,
		TracesSampleRate: 0.2,
		AttachStacktrace: true,
		Tags: map[string]string{
			"service": serviceName,
		},
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			return scrubPII(event)
		},
	})
	if err != nil {
		return fmt.Errorf("sentry.Init: %w", err)
	}
	return nil
}

// CaptureError sends an error to Sentry with optional tags.
func CaptureError(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// Flush waits for buffered events to be sent.
func Flush() {
	sentry.Flush(2 * time.Second)
}

// PanicRecoveryMiddleware catches panics, reports them with request context,
// and answers 500 with the standard JSON error body.
func PanicRecoveryMiddleware(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					hub := sentry.CurrentHub().Clone()
					hub.Scope().SetRequest(r)
					hub.Scope().SetTag("service", serviceName)
					hub.Scope().SetTag("panic", "true")

					var err error
					switch v := rec.(type) {
					case error:
						err = v
					default:
						err = fmt.Errorf("panic: %v", v)
					}
					hub.CaptureException(err)
					hub.Flush(2 * time.Second)

					logrus.WithFields(logrus.Fields{
						"service": serviceName,
						"path":    r.URL.Path,
					}).WithError(err).Error("panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":"server_error","message":"internal server error"}` + "\n"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// SetUserContext attaches the authenticated user id to the request's Sentry scope.
func SetUserContext(ctx context.Context, userID string) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.Scope().SetUser(sentry.User{ID: userID})
	}
}

// scrubPII removes personally identifiable information before transmission.
func scrubPII(event *sentry.Event) *sentry.Event {
	if event == nil {
		return nil
	}
	if event.User.Email != "" {
		event.User.Email = "[redacted]"
	}
	event.User.IPAddress = ""

	if event.Request != nil {
		for k := range event.Request.Headers {
			switch k {
			case "Authorization", "Cookie", "Apikey", "X-Api-Key":
				event.Request.Headers[k] = "[redacted]"
			}
		}
		event.Request.Cookies = ""
	}
	return event
}
