package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// RateLimiter paces portal calls with a token bucket. After the portal
// answers 429 the bucket is emptied and every caller waits out a cooldown.
type RateLimiter struct {
	mu sync.Mutex

	tokens     float64
	burst      float64
	rate       float64 // tokens per second
	lastRefill time.Time

	cooldownUntil time.Time
	lastWarn      time.Time
}

// NewRateLimiter creates a full bucket of burst tokens refilled at
// tokensPerSecond.
func NewRateLimiter(tokensPerSecond, burst float64) *RateLimiter {
	return &RateLimiter{
		tokens:     burst,
		burst:      burst,
		rate:       tokensPerSecond,
		lastRefill: time.Now(),
	}
}

// NewPortalRateLimiter creates the limiter shared by every portal endpoint.
func NewPortalRateLimiter() *RateLimiter {
	return NewRateLimiter(PortalRatePerSec, PortalBurstCapacity)
}

// Wait blocks until a token is available and no cooldown is active.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	start := time.Now()
	for {
		wait, ok := rl.reserve()
		if ok {
			if waited := time.Since(start); waited > 5*time.Second {
				log.Info().Float64("wait_seconds", waited.Seconds()).Msg("portal rate limit wait completed")
			}
			return nil
		}
		rl.warnLongWait(wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve takes a token when allowed, otherwise it reports how long to wait.
func (rl *RateLimiter) reserve() (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.refillLocked(now)

	cooldown := rl.cooldownUntil.Sub(now)
	if cooldown <= 0 && rl.tokens >= 1 {
		rl.tokens--
		return 0, true
	}

	var wait time.Duration
	if missing := 1 - rl.tokens; missing > 0 && rl.rate > 0 {
		wait = time.Duration(missing / rl.rate * float64(time.Second))
	}
	if cooldown > wait {
		wait = cooldown
	}
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait, false
}

func (rl *RateLimiter) warnLongWait(wait time.Duration) {
	if wait <= 2*time.Second {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if time.Since(rl.lastWarn) > 10*time.Second {
		log.Warn().Float64("wait_seconds", wait.Seconds()).Msg("throttled, waiting for portal capacity")
		rl.lastWarn = time.Now()
	}
}

func (rl *RateLimiter) refillLocked(now time.Time) {
	rl.tokens += now.Sub(rl.lastRefill).Seconds() * rl.rate
	if rl.tokens > rl.burst {
		rl.tokens = rl.burst
	}
	rl.lastRefill = now
}

// Throttle handles a 429: the bucket is emptied and callers are held for
// d, capped at MaxCooldown. A longer cooldown already running is kept.
func (rl *RateLimiter) Throttle(d time.Duration) {
	if d > MaxCooldown {
		d = MaxCooldown
	}
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tokens = 0
	rl.lastRefill = now
	if until := now.Add(d); until.After(rl.cooldownUntil) {
		rl.cooldownUntil = until
	}
}

// CooldownRemaining returns how long the current cooldown has left, or zero.
func (rl *RateLimiter) CooldownRemaining() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if d := time.Until(rl.cooldownUntil); d > 0 {
		return d
	}
	return 0
}

// Available returns the tokens that could be taken right now.
func (rl *RateLimiter) Available() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked(time.Now())
	return rl.tokens
}

// RetryAfter converts a Retry-After header (delay seconds or HTTP date)
// into a cooldown. A missing or unusable header gives DefaultCooldown.
func RetryAfter(header string, now time.Time) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return DefaultCooldown
	}
	if secs, err := strconv.Atoi(header); err == nil {
		if secs <= 0 {
			return DefaultCooldown
		}
		return capCooldown(time.Duration(secs) * time.Second)
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := at.Sub(now); d > 0 {
			return capCooldown(d)
		}
	}
	return DefaultCooldown
}

func capCooldown(d time.Duration) time.Duration {
	if d > MaxCooldown {
		return MaxCooldown
	}
	return d
}
