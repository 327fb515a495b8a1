// Package redisstore keeps revoked token ids in Redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces denylist keys.
const DefaultPrefix = "auth:denylist:"

// Denylist stores one key per revoked token id that expires with the token.
type Denylist struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// Option configures a Denylist.
type Option func(*Denylist)

// WithPrefix replaces DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(d *Denylist) { d.prefix = prefix }
}

// WithClock sets the clock used to compute key lifetimes.
func WithClock(now func() time.Time) Option {
	return func(d *Denylist) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDenylist wraps client.
func NewDenylist(client redis.UniversalClient, opts ...Option) *Denylist {
	d := &Denylist{client: client, prefix: DefaultPrefix, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Revoke records tokenID until until. Ids already past until are not stored.
func (d *Denylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, d.prefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("denylist revoke: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID is on the list.
func (d *Denylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := d.client.Get(ctx, d.prefix+tokenID).Err()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("denylist lookup: %w", err)
	}
	return true, nil
}
