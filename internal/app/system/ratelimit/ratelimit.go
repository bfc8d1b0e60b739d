// internal/app/system/ratelimit/ratelimit.go

// Package ratelimit throttles sign-in attempts with fixed windows kept in
// process memory. Each node counts on its own.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/stratachat/internal/app/system/apperr"
	"github.com/dalemusser/waffle/pantry/text"
)

// sweepEvery is how many Allow calls pass between expired-window sweeps.
const sweepEvery = 256

// Limiter allows up to limit events per key in each window. It is safe for
// concurrent use.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
	calls   int
}

type window struct {
	count     int
	expiresAt time.Time
}

// New builds a Limiter. limit <= 0 disables limiting.
func New(limit int, period time.Duration) *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Allow counts one event for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	if l.limit <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.calls++
	if l.calls%sweepEvery == 0 {
		for k, w := range l.windows {
			if now.After(w.expiresAt) {
				delete(l.windows, k)
			}
		}
	}

	w, ok := l.windows[key]
	if !ok || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.period)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Remaining reports the events left for key in its current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[key]
	if !ok || l.now().After(w.expiresAt) {
		return l.limit
	}
	return max(l.limit-w.count, 0)
}

// Reset forgets key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
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

// SignIn throttles sign-in attempts per client address and per username.
type SignIn struct {
	byIP       *Limiter
	byUsername *Limiter
}

// NewSignIn allows 10 attempts per address per minute and 5 per username per
// five minutes.
func NewSignIn() *SignIn {
	return NewSignInWith(10, time.Minute, 5, 5*time.Minute)
}

func NewSignInWith(ipLimit int, ipPeriod time.Duration, userLimit int, userPeriod time.Duration) *SignIn {
	return &SignIn{
		byIP:       New(ipLimit, ipPeriod),
		byUsername: New(userLimit, userPeriod),
	}
}

// Check counts one attempt and returns a rate_limited error once either
// budget is spent.
func (s *SignIn) Check(r *http.Request, username string) error {
	const op = "session.signIn"
	if !s.byIP.Allow(ClientIP(r)) {
		return apperr.RateLimited(op, "too many sign-in attempts, wait a minute and try again")
	}
	if key := text.Fold(username); key != "" && !s.byUsername.Allow(key) {
		return apperr.RateLimited(op, "too many sign-in attempts for this account, wait a few minutes")
	}
	return nil
}

// Succeeded clears the per-username budget.
func (s *SignIn) Succeeded(username string) {
	if key := text.Fold(username); key != "" {
		s.byUsername.Reset(key)
	}
}
