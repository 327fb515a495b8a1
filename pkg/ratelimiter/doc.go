// Package ratelimiter throttles repeated attempts with a token bucket.
//
// A Bucket holds Capacity tokens and regains RefillRate tokens every
// RefillInterval. Each attempt costs one token; an attempt that finds too
// few tokens is denied and costs nothing. Bucket state lives in a Store:
// MemoryStore for a single process, or a shared store such as the Redis one
// in internal/store/redisstore.
//
//	limiter, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{
//		Capacity:       10,
//		RefillRate:     1,
//		RefillInterval: time.Minute,
//	})
//	r.With(ratelimiter.Middleware(limiter, clientip.FromRequest)).Post("/session/login", login)
//
// Middleware sets X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset on every response and Retry-After on denials.
package ratelimiter
