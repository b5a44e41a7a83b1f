//go:build test

package ratelimiter

import (
	"testing"
	"time"

	"github.com/forceu/uploadrelay/internal/test"
)

func TestIsAllowedNewSession(t *testing.T) {
	for i := 0; i < 5; i++ {
		test.IsEqualBool(t, IsAllowedNewSession("session-user"), true)
	}
	test.IsEqualBool(t, IsAllowedNewSession("session-user"), false)
	test.IsEqualBool(t, IsAllowedNewSession("other-user"), true)
}

func TestIsAllowedUnauthorizedReply(t *testing.T) {
	test.IsEqualBool(t, IsAllowedUnauthorizedReply("spammer"), true)
	test.IsEqualBool(t, IsAllowedUnauthorizedReply("spammer"), false)
	test.IsEqualBool(t, IsAllowedUnauthorizedReply("someone-else"), true)
}

func TestRemoveIdle(t *testing.T) {
	limiters := newLimiter()
	first := limiters.Get("a", 1, 1)
	limiters.Get("b", 1, 1)
	test.IsEqualBool(t, limiters.Get("a", 1, 1) == first, true)
	test.IsEqualInt(t, limiters.removeIdle(time.Now(), time.Hour), 0)
	test.IsEqualInt(t, limiters.removeIdle(time.Now().Add(2*time.Hour), time.Hour), 2)
	test.IsEqualBool(t, limiters.Get("a", 1, 1) == first, false)
}
