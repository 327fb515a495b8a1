package ratelimiter

import (
	"context"
	"time"
)

// Store keeps bucket state.
type Store interface {
	// ConsumeTokens refills the bucket for now and takes tokens when enough
	// are available. remaining is what is left afterwards, or the shortfall
	// as a negative number when nothing was taken. A zero tokens value only
	// refills.
	ConsumeTokens(ctx context.Context, key string, tokens int, config Config, now time.Time) (remaining int, resetAt time.Time, err error)

	// Reset drops the state for key.
	Reset(ctx context.Context, key string) error
}
