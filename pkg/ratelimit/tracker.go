package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for cooldown tracking.
var (
	cooldownSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scholars_ratelimit_cooldown_seconds",
		Help: "Length of the most recent 429 cooldown in seconds",
	})

	cooldownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scholars_ratelimit_cooldowns_total",
		Help: "Total number of cooldowns started by 429 responses",
	})

	cooldownWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scholars_ratelimit_cooldown_waits_total",
		Help: "Total number of requests delayed by an active cooldown",
	})
)

// extendCooldown writes the shared deadline only when it moves it later.
// KEYS: cooldown_until, last_update. ARGV: until (unix ms), last update
// JSON, expiry (ms). Returns 1 when written, 0 when a later deadline is
// already stored.
var extendCooldown = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current ~= nil and current >= tonumber(ARGV[1]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// Tracker records 429 cooldowns and makes requests wait them out.
//
// With a Redis client the state is shared across processes. Without one
// it lives in memory. Redis failures fall back to the in-memory state.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger

	mu    sync.Mutex
	local CooldownState
}

// NewTracker creates a cooldown tracker. redisClient may be nil.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
	}
}

// GetState returns the current cooldown, merging the shared Redis state
// with the local one. The later deadline wins.
func (t *Tracker) GetState(ctx context.Context) (*CooldownState, error) {
	t.mu.Lock()
	state := t.local
	t.mu.Unlock()

	if t.redis == nil {
		return &state, nil
	}

	until, err := t.redis.Get(ctx, RedisKeyCooldownUntil).Int64()
	if errors.Is(err, redis.Nil) {
		return &state, nil
	}
	if err != nil {
		return &state, fmt.Errorf("get cooldown: %w", err)
	}

	shared := time.UnixMilli(until)
	if shared.After(state.Until) {
		state.Until = shared

		lastUpdate, err := t.redis.Get(ctx, RedisKeyLastUpdate).Bytes()
		if err == nil {
			if err := json.Unmarshal(lastUpdate, &state.LastUpdate); err != nil {
				return &state, fmt.Errorf("parse last update: %w", err)
			}
		}
	}
	return &state, nil
}

// RecordTooManyRequests starts a cooldown from a 429 response's headers.
// It falls back to DefaultCooldown when Retry-After is missing.
// The returned duration is the cooldown that was applied.
func (t *Tracker) RecordTooManyRequests(ctx context.Context, headers http.Header) (time.Duration, error) {
	d, ok := ParseRetryAfter(headers)
	if !ok {
		d = DefaultCooldown
	}
	return d, t.Start(ctx, d)
}

// Start begins a cooldown of length d unless a longer one is active,
// either locally or in the shared Redis state.
func (t *Tracker) Start(ctx context.Context, d time.Duration) error {
	now := time.Now()
	until := now.Add(d)

	t.mu.Lock()
	if until.After(t.local.Until) {
		t.local = CooldownState{Until: until, LastUpdate: now}
	}
	t.mu.Unlock()

	cooldownsTotal.Inc()
	cooldownSeconds.Set(d.Seconds())

	t.logger.Warn().
		Dur("cooldown", d).
		Time("until", until).
		Msg("Rate limited by API, cooling down")

	if t.redis == nil {
		return nil
	}

	lastUpdateJSON, err := json.Marshal(now)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	// Keys expire with the cooldown so stale state never blocks.
	expiry := d + time.Second
	extended, err := extendCooldown.Run(ctx, t.redis,
		[]string{RedisKeyCooldownUntil, RedisKeyLastUpdate},
		until.UnixMilli(), lastUpdateJSON, expiry.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("store cooldown in redis: %w", err)
	}
	if extended == 0 {
		t.logger.Debug().
			Time("until", until).
			Msg("Longer shared cooldown already active")
	}
	return nil
}

// Wait blocks until no cooldown is active or ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	state, err := t.GetState(ctx)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Cooldown lookup failed, using local state")
	}

	remaining := state.Remaining()
	if remaining <= 0 {
		return nil
	}

	cooldownWaitsTotal.Inc()
	t.logger.Debug().
		Dur("wait", remaining).
		Msg("Waiting for cooldown to pass")

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Reset clears the cooldown locally and in Redis.
func (t *Tracker) Reset(ctx context.Context) error {
	t.mu.Lock()
	t.local = CooldownState{}
	t.mu.Unlock()

	if t.redis == nil {
		return nil
	}
	if err := t.redis.Del(ctx, RedisKeyCooldownUntil, RedisKeyLastUpdate).Err(); err != nil {
		return fmt.Errorf("clear cooldown in redis: %w", err)
	}
	return nil
}
