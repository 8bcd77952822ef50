// Package ratelimit throttles the account endpoints (sign-up, login,
// refresh) with counters in Redis.
//
// A Limiter with a nil Store allows everything, so local development and
// tests run without Redis. Redis errors fail open as well. Emails are hashed
// before they become part of a key.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// Store is the subset of Redis commands the limiter uses.
type Store interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// TTL returns <= 0 for missing or expired keys.
	TTL(ctx context.Context, key string) (time.Duration, error)
	Del(ctx context.Context, keys ...string) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// Limiter performs rate limit checks against a Store.
type Limiter struct {
	store Store
}

// New returns a Limiter over store. A nil store disables all limits.
func New(store Store) *Limiter {
	return &Limiter{store: store}
}

// Enabled reports whether limits are enforced.
func (l *Limiter) Enabled() bool {
	return l != nil && l.store != nil
}

// CheckSignUp allows 5 sign-ups per IP per hour.
// Returns (allowed, retryAfterSecs).
func (l *Limiter) CheckSignUp(ctx context.Context, ip string) (bool, int) {
	return l.check(ctx, "rate:signup:"+ip, 5, time.Hour)
}

// CheckLogin allows 20 login attempts per IP per 15 minutes.
func (l *Limiter) CheckLogin(ctx context.Context, ip string) (bool, int) {
	return l.check(ctx, "rate:login:ip:"+ip, 20, 15*time.Minute)
}

// CheckRefresh allows 60 token refreshes per IP per 15 minutes.
func (l *Limiter) CheckRefresh(ctx context.Context, ip string) (bool, int) {
	return l.check(ctx, "rate:refresh:"+ip, 60, 15*time.Minute)
}

// ResetLoginIP clears the IP login counter after a successful login.
func (l *Limiter) ResetLoginIP(ctx context.Context, ip string) {
	if !l.Enabled() {
		return
	}
	_ = l.store.Del(ctx, "rate:login:ip:"+ip)
}

// RecordLoginFailure counts a failed login for email and locks the address
// out once thresholds are crossed: 5 failures for 5 minutes, 10 for 30
// minutes, 15 for 24 hours. Failures are forgotten after a day.
func (l *Limiter) RecordLoginFailure(ctx context.Context, email string) (locked bool, lockoutSecs int) {
	if !l.Enabled() {
		return false, 0
	}
	h := hashEmail(email)
	failKey := fmt.Sprintf("lockout:email:%s:fails", h)
	count, err := l.store.Incr(ctx, failKey)
	if err != nil {
		return false, 0
	}
	_ = l.store.Expire(ctx, failKey, 24*time.Hour)

	var d time.Duration
	switch {
	case count >= 15:
		d = 24 * time.Hour
	case count >= 10:
		d = 30 * time.Minute
	case count >= 5:
		d = 5 * time.Minute
	default:
		return false, 0
	}

	unlockAt := fmt.Sprintf("%d", time.Now().Add(d).Unix())
	_ = l.store.Set(ctx, fmt.Sprintf("lockout:email:%s:until", h), unlockAt, d)
	return true, int(d.Seconds())
}

// CheckEmailLockout returns (locked, secondsRemaining).
func (l *Limiter) CheckEmailLockout(ctx context.Context, email string) (bool, int) {
	if !l.Enabled() {
		return false, 0
	}
	ttl, err := l.store.TTL(ctx, fmt.Sprintf("lockout:email:%s:until", hashEmail(email)))
	if err != nil || ttl <= 0 {
		return false, 0
	}
	secs := int(ttl.Seconds())
	if secs < 1 {
		secs = 1
	}
	return true, secs
}

// ResetLoginEmail clears failure and lockout state after a successful login.
func (l *Limiter) ResetLoginEmail(ctx context.Context, email string) {
	if !l.Enabled() {
		return
	}
	h := hashEmail(email)
	_ = l.store.Del(ctx,
		fmt.Sprintf("lockout:email:%s:fails", h),
		fmt.Sprintf("lockout:email:%s:until", h),
	)
}

// ClientIP returns the caller's address, preferring the first
// X-Forwarded-For hop, then X-Real-IP, then RemoteAddr without its port.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// check increments key and compares it against max within window.
func (l *Limiter) check(ctx context.Context, key string, max int64, window time.Duration) (bool, int) {
	if !l.Enabled() {
		return true, 0
	}

	count, err := l.store.Incr(ctx, key)
	if err != nil {
		return true, 0
	}
	if count == 1 {
		_ = l.store.Expire(ctx, key, window)
	}

	if count > max {
		retry := int(window.Seconds())
		if ttl, err := l.store.TTL(ctx, key); err == nil && ttl > 0 {
			retry = int(ttl.Seconds())
		}
		if retry < 1 {
			retry = 1
		}
		return false, retry
	}
	return true, 0
}

// hashEmail shortens a normalized email to 16 hex chars for key use.
func hashEmail(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("%x", sum[:8])
}
