package ratelimiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var newSessionLimiter = newLimiter()
var unauthorizedLimiter = newLimiter()

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type store struct {
	mu             sync.Mutex
	limiters       map[string]*limiterEntry
	cleanupStarted bool
}

func newLimiter() *store {
	return &store{
		limiters: make(map[string]*limiterEntry),
	}
}

// IsAllowedNewSession returns true if the user may create another upload session.
// Five sessions are allowed without rate limiting, thereafter one every 10 seconds
func IsAllowedNewSession(userId string) bool {
	return newSessionLimiter.Get(userId, rate.Every(10*time.Second), 5).Allow()
}

// IsAllowedUnauthorizedReply returns true if an unauthorized user should get a reply.
// Thereafter one reply per minute is sent, further commands are ignored
func IsAllowedUnauthorizedReply(userId string) bool {
	return unauthorizedLimiter.Get(userId, rate.Every(time.Minute), 1).Allow()
}

// Get returns the rate limiter for the given key
func (s *store) Get(key string, r rate.Limit, burst int) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.limiters[key]
	if !ok {
		e = &limiterEntry{
			limiter: rate.NewLimiter(r, burst),
		}
	}

	e.lastSeen = time.Now()
	s.limiters[key] = e
	s.startCleanup(12 * time.Hour)
	return e.limiter
}

// startCleanup starts a goroutine that continuously removes entries that were not used for maxIdle.
// Must be called with the lock held
func (s *store) startCleanup(maxIdle time.Duration) {
	if s.cleanupStarted {
		return
	}
	s.cleanupStarted = true
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		for range ticker.C {
			s.removeIdle(time.Now(), maxIdle)
		}
	}()
}

func (s *store) removeIdle(now time.Time, maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, v := range s.limiters {
		if now.Sub(v.lastSeen) > maxIdle {
			delete(s.limiters, k)
			removed++
		}
	}
	return removed
}
