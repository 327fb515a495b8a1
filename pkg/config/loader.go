package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var defaultEnvLoaded sync.Once

// App is the process-level configuration shared by every command.
type App struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"APP_NAME" envDefault:"authd"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

type options struct {
	prefix      string
	environment map[string]string
}

// Option tweaks a single Load call.
type Option func(*options)

// WithPrefix prepends prefix to every variable name of the struct.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithEnvironment parses from vars instead of the process environment.
func WithEnvironment(vars map[string]string) Option {
	return func(o *options) {
		o.environment = vars
	}
}

// LoadEnv reads the given .env files into the process environment. Without
// arguments it reads ./.env and ignores a missing file.
func LoadEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if err == nil {
		return nil
	}
	if len(paths) == 0 && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return errors.Join(ErrLoadingEnvFile, err)
}

// Load parses environment variables into v according to its env tags.
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.environment == nil {
		defaultEnvLoaded.Do(func() {
			_ = LoadEnv()
		})
	}

	if err := env.ParseWithOptions(v, env.Options{
		Prefix:      o.prefix,
		Environment: o.environment,
	}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad is Load that panics on failure. Use it only in main.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("config: load %T: %v", v, err))
	}
}
