package ratelimiter

import "time"

// Result is the outcome of one attempt.
type Result struct {
	Limit      int           // bucket capacity
	Remaining  int           // tokens left; negative when the attempt was denied
	ResetAt    time.Time     // next refill
	RetryAfter time.Duration // zero when allowed
}

// Allowed reports whether the attempt may proceed.
func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// Config defines the token bucket.
type Config struct {
	Capacity       int           `env:"CAPACITY" envDefault:"10"`        // burst size
	RefillRate     int           `env:"REFILL_RATE" envDefault:"1"`      // tokens added per interval
	RefillInterval time.Duration `env:"REFILL_INTERVAL" envDefault:"1m"` // refill period
}

func (c Config) validate() error {
	switch {
	case c.Capacity <= 0:
		return errorf("capacity must be positive, got %d", c.Capacity)
	case c.RefillRate <= 0:
		return errorf("refill rate must be positive, got %d", c.RefillRate)
	case c.RefillInterval <= 0:
		return errorf("refill interval must be positive, got %v", c.RefillInterval)
	}
	return nil
}
