package auth

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mrlokans/library/internal/config"
)

// loginKey identifies one client guessing at one account.
type loginKey struct {
	ip         string
	identifier string
}

type loginFailures struct {
	at          []time.Time // inside the window, oldest first
	lockedUntil time.Time
}

// LoginLimiter throttles password guessing on POST /user/login.
//
// Failures are counted per client IP and login identifier over a sliding
// window. Reaching the limit locks that pair out for the lockout duration;
// a successful login clears it. Stale records are swept lazily, once per
// window, so the limiter needs no background goroutine.
type LoginLimiter struct {
	mu          sync.Mutex
	failures    map[loginKey]*loginFailures
	maxFailures int
	window      time.Duration
	lockout     time.Duration
	lastSweep   time.Time
	now         func() time.Time
}

// NewLoginLimiter builds a limiter from the AUTH_* rate limit settings.
func NewLoginLimiter(cfg config.Auth) *LoginLimiter {
	l := &LoginLimiter{
		failures:    make(map[loginKey]*loginFailures),
		maxFailures: cfg.MaxLoginAttempts,
		window:      cfg.RateLimitWindow,
		lockout:     cfg.LockoutDuration,
		now:         time.Now,
	}
	if l.maxFailures <= 0 {
		l.maxFailures = 5
	}
	if l.window <= 0 {
		l.window = 15 * time.Minute
	}
	if l.lockout <= 0 {
		l.lockout = 30 * time.Minute
	}
	return l
}

// Identifiers are usernames or e-mails, both matched case-insensitively.
func newLoginKey(ip, identifier string) loginKey {
	return loginKey{ip: ip, identifier: strings.ToLower(strings.TrimSpace(identifier))}
}

// RetryAfter is how long the client must wait before trying the identifier
// again. Zero means the attempt may go ahead.
func (l *LoginLimiter) RetryAfter(ip, identifier string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.failures[newLoginKey(ip, identifier)]
	if !ok {
		return 0
	}
	if now := l.now(); now.Before(rec.lockedUntil) {
		return rec.lockedUntil.Sub(now)
	}
	return 0
}

// Fail records a rejected attempt and reports whether it started a lockout.
func (l *LoginLimiter) Fail(ip, identifier string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	key := newLoginKey(ip, identifier)
	rec, ok := l.failures[key]
	if !ok {
		rec = &loginFailures{}
		l.failures[key] = rec
	}
	rec.prune(now.Add(-l.window))
	rec.at = append(rec.at, now)

	if len(rec.at) < l.maxFailures {
		return false
	}
	rec.at = nil
	rec.lockedUntil = now.Add(l.lockout)
	return true
}

// Succeed forgets earlier failures for the pair.
func (l *LoginLimiter) Succeed(ip, identifier string) {
	l.mu.Lock()
	delete(l.failures, newLoginKey(ip, identifier))
	l.mu.Unlock()
}

// sweep drops records with no recent failures and no running lockout.
// Callers hold l.mu.
func (l *LoginLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now

	cutoff := now.Add(-l.window)
	for key, rec := range l.failures {
		rec.prune(cutoff)
		if len(rec.at) == 0 && !now.Before(rec.lockedUntil) {
			delete(l.failures, key)
		}
	}
}

// prune drops failures at or before cutoff.
func (f *loginFailures) prune(cutoff time.Time) {
	i := 0
	for i < len(f.at) && !f.at[i].After(cutoff) {
		i++
	}
	f.at = f.at[i:]
}

// retryAfterSeconds formats a wait for the Retry-After header, rounding up.
func retryAfterSeconds(d time.Duration) string {
	return strconv.Itoa(int(math.Ceil(d.Seconds())))
}
