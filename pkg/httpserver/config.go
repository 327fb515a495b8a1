package httpserver

import "time"

// Config is the environment form of the server options.
type Config struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// options converts the non-zero fields of c.
func (c Config) options() []Option {
	var opts []Option
	if c.Addr != "" {
		opts = append(opts, WithAddr(c.Addr))
	}
	durations := []struct {
		d   time.Duration
		opt func(time.Duration) Option
	}{
		{c.ReadTimeout, WithReadTimeout},
		{c.WriteTimeout, WithWriteTimeout},
		{c.IdleTimeout, WithIdleTimeout},
		{c.ShutdownTimeout, WithShutdownTimeout},
	}
	for _, f := range durations {
		if f.d > 0 {
			opts = append(opts, f.opt(f.d))
		}
	}
	return opts
}

// NewFromConfig creates a Server from cfg. Zero fields keep the defaults and
// opts are applied last.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	return New(append(cfg.options(), opts...)...)
}
