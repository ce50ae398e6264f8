package cache

import (
	"fmt"
	"time"
)

// TTL is one of the fixed expiry tiers. Every cache write declares a tier;
// there is no per-key expiry outside this set.
type TTL int

// Tier values are expressed in seconds.
const (
	TTLShort  TTL = 300
	TTLMedium TTL = 900
	TTLLong   TTL = 3600
	TTLDay    TTL = 86400
	TTLWeek   TTL = 604800
)

// Duration converts the tier to a time.Duration. It panics for values that
// are not one of the declared tiers.
func (t TTL) Duration() time.Duration {
	switch t {
	case TTLShort, TTLMedium, TTLLong, TTLDay, TTLWeek:
		return time.Duration(t) * time.Second
	}
	panic(fmt.Sprintf("cache: %d is not a TTL tier", int(t)))
}

func (t TTL) String() string {
	switch t {
	case TTLShort:
		return "short"
	case TTLMedium:
		return "medium"
	case TTLLong:
		return "long"
	case TTLDay:
		return "day"
	case TTLWeek:
		return "week"
	}
	return fmt.Sprintf("ttl(%d)", int(t))
}
