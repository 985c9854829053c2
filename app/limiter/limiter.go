// Package limiter provides sliding-window-log rate limiting for the
// outbound-fetch layer: an IP-keyed window for anonymous scraping and a
// per-user, per-action window for AI requests.
package limiter

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// SlidingWindow admits at most limit requests per key within a trailing
// window. Timestamps older than the window are pruned before counting;
// an admitted request appends its timestamp, a rejected one does not.
type SlidingWindow struct {
	limit  int
	window time.Duration
	mu     sync.Mutex
	log    map[string][]time.Time
	now    func() time.Time
}

func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:  limit,
		window: window,
		log:    make(map[string][]time.Time),
		now:    time.Now,
	}
}

func (l *SlidingWindow) Check(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	valid := pruneBefore(l.log[key], now.Add(-l.window))

	if len(valid) >= l.limit {
		l.log[key] = valid
		return fmt.Errorf("%w: %d requests per %s", ErrRateLimitExceeded, l.limit, l.window)
	}

	l.log[key] = append(valid, now)
	return nil
}

// ActionLimiter throttles per-user actions with per-action limits over a
// shared window. Actions without a configured limit pass unconditionally.
type ActionLimiter struct {
	limits ActionLimits
	window time.Duration
	mu     sync.Mutex
	log    map[string][]time.Time
	now    func() time.Time
}

func NewActionLimiter(limits ActionLimits, window time.Duration) *ActionLimiter {
	return &ActionLimiter{
		limits: limits,
		window: window,
		log:    make(map[string][]time.Time),
		now:    time.Now,
	}
}

func (l *ActionLimiter) Check(userID, action string) error {
	limit, ok := l.limits[action]
	if !ok {
		return nil
	}

	key := userID + ":" + action

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	valid := pruneBefore(l.log[key], now.Add(-l.window))

	if len(valid) >= limit {
		l.log[key] = valid
		return fmt.Errorf("%w: %s allows %d requests per %s", ErrRateLimitExceeded, action, limit, l.window)
	}

	l.log[key] = append(valid, now)
	return nil
}

func pruneBefore(timestamps []time.Time, cutoff time.Time) []time.Time {
	valid := timestamps[:0]
	for _, t := range timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	return valid
}
