package web

import (
	"testing"
	"time"
)

func newTestLimiter(rate int, now *time.Time) *rateLimiter {
	rl := newRateLimiter(rate, time.Minute)
	rl.now = func() time.Time { return *now }
	return rl
}

func TestRateLimiter_Window(t *testing.T) {
	now := testNow
	rl := newTestLimiter(2, &now)
	defer rl.stop()

	if !rl.allow("a") || !rl.allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("a") {
		t.Fatal("third request in the window should be limited")
	}
	if !rl.allow("b") {
		t.Fatal("other clients have their own budget")
	}

	now = now.Add(61 * time.Second)
	if !rl.allow("a") {
		t.Fatal("budget should reset after the window")
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	now := testNow
	rl := newTestLimiter(5, &now)
	defer rl.stop()

	rl.allow("stale")
	now = now.Add(90 * time.Second)
	rl.allow("fresh")
	now = now.Add(45 * time.Second)

	rl.cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.visitors["stale"]; ok {
		t.Error("stale visitor was not removed")
	}
	if _, ok := rl.visitors["fresh"]; !ok {
		t.Error("fresh visitor was removed")
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := newRateLimiter(1, time.Minute)
	rl.stop()
	rl.stop()
}
