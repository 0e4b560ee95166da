// Package ratelimit paces requests to the Graph API and tracks the
// cooldown the API imposes after answering 429 Too Many Requests.
//
// The cooldown state can be shared between processes through Redis so
// that every client behind the same API key backs off together.
package ratelimit

import (
	"net/http"
	"strconv"
	"time"
)

// Redis keys for cooldown state storage.
const (
	RedisKeyCooldownUntil = "scholars:ratelimit:cooldown_until"
	RedisKeyLastUpdate    = "scholars:ratelimit:last_update"
)

// Cooldown bounds.
const (
	// DefaultCooldown is used when a 429 carries no usable Retry-After.
	DefaultCooldown = 5 * time.Second

	// MaxCooldown caps any server-requested cooldown.
	MaxCooldown = 5 * time.Minute
)

// CooldownState is the current 429 cooldown.
type CooldownState struct {
	// Until is the moment requests may resume. Zero means no cooldown.
	Until time.Time `json:"until"`

	// LastUpdate is when the state was last written.
	LastUpdate time.Time `json:"last_update"`
}

// Active reports whether requests must still wait.
func (s *CooldownState) Active() bool {
	return !s.Until.IsZero() && time.Now().Before(s.Until)
}

// Remaining returns the time left in the cooldown, or 0.
func (s *CooldownState) Remaining() time.Duration {
	if s.Until.IsZero() {
		return 0
	}
	d := time.Until(s.Until)
	if d < 0 {
		return 0
	}
	return d
}

// ParseRetryAfter reads a Retry-After header given either in seconds or
// as an HTTP date. It returns false when the header is absent or unusable.
func ParseRetryAfter(headers http.Header) (time.Duration, bool) {
	value := headers.Get("Retry-After")
	if value == "" {
		return 0, false
	}

	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		if seconds <= 0 {
			return 0, false
		}
		return min(time.Duration(seconds)*time.Second, MaxCooldown), true
	}

	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return min(d, MaxCooldown), true
		}
	}

	return 0, false
}
