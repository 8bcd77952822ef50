package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getsentry/sentry-go"
)

func TestInitSentry_EmptyDSN(t *testing.T) {
	if err := InitSentry("", "storefront", "test", ""); err != nil {
		t.Fatalf("empty DSN must not error: %v", err)
	}
	// Safe no-ops when disabled.
	CaptureError(errors.New("boom"), map[string]string{"operation": "test"})
	CaptureError(nil, nil)
}

func TestScrubPII(t *testing.T) {
	ev := &sentry.Event{
		User: sentry.User{ID: "u1", Email: "someone@example.com", IPAddress: "203.0.113.9"},
		Request: &sentry.Request{
			Headers: map[string]string{
				"Authorization": "Bearer secret",
				"Apikey":        "anon",
				"Accept":        "application/json",
			},
			Cookies: "sid=1",
		},
	}
	out := scrubPII(ev)
	if out.User.Email != "[redacted]" || out.User.IPAddress != "" {
		t.Errorf("user PII not scrubbed: %+v", out.User)
	}
	if out.Request.Headers["Authorization"] != "[redacted]" || out.Request.Headers["Apikey"] != "[redacted]" {
		t.Errorf("auth headers not scrubbed: %v", out.Request.Headers)
	}
	if out.Request.Headers["Accept"] != "application/json" {
		t.Error("non-sensitive header must be kept")
	}
	if out.Request.Cookies != "" {
		t.Error("cookies must be dropped")
	}
	if scrubPII(nil) != nil {
		t.Error("nil event must stay nil")
	}
}

func TestPanicRecoveryMiddleware(t *testing.T) {
	h := PanicRecoveryMiddleware("storefront")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/home", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"server_error"`) {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}
