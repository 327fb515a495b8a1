package ratelimiter

import "errors"

var (
	// ErrInvalidConfig indicates that the bucket configuration is invalid.
	ErrInvalidConfig = errors.New("ratelimiter: invalid configuration")
	// ErrInvalidTokenCount indicates a non-positive attempt cost.
	ErrInvalidTokenCount = errors.New("ratelimiter: invalid token count")
	// ErrStoreUnavailable wraps backend failures.
	ErrStoreUnavailable = errors.New("ratelimiter: store unavailable")
)
