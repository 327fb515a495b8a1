// Command authd serves the account routes: sign-in with step-up, session
// refresh, email verification and second-factor management.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/projectauth/internal/store/redisstore"
	"github.com/dmitrymomot/projectauth/modules/account"
	"github.com/dmitrymomot/projectauth/pkg/auth"
	"github.com/dmitrymomot/projectauth/pkg/clientip"
	"github.com/dmitrymomot/projectauth/pkg/config"
	"github.com/dmitrymomot/projectauth/pkg/cookie"
	"github.com/dmitrymomot/projectauth/pkg/email"
	"github.com/dmitrymomot/projectauth/pkg/httpserver"
	"github.com/dmitrymomot/projectauth/pkg/logger"
	"github.com/dmitrymomot/projectauth/pkg/ratelimiter"
	"github.com/dmitrymomot/projectauth/pkg/redis"
	"github.com/dmitrymomot/projectauth/pkg/requestid"
	"github.com/dmitrymomot/projectauth/pkg/session"
)

type appConfig struct {
	config.App

	StoreDriver       string        `env:"STORE_DRIVER" envDefault:"memory"`
	TrustProxyHeaders bool          `env:"TRUST_PROXY_HEADERS" envDefault:"false"`
	RequireTOTPCode   bool          `env:"AUTH_REQUIRE_TOTP_CODE" envDefault:"false"`
	ReadinessTimeout  time.Duration `env:"READINESS_TIMEOUT" envDefault:"2s"`

	HTTP    httpserver.Config
	Auth    auth.Config
	Session session.Config
	Cookie  cookie.Config
	Email   email.Config
	Redis   redis.Config
	Limit   ratelimiter.Config `envPrefix:"AUTH_ATTEMPTS_"`
}

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.ServiceName),
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithContextExtractors(requestid.LogExtractor(), clientip.LogExtractor()),
	)

	users, userCheck, closeStore, err := openStore(ctx, cfg.StoreDriver, log)
	if err != nil {
		return err
	}
	defer closeStore()

	checks := map[string]httpserver.Check{"store": userCheck}
	authOpts := []auth.Option{auth.WithLogger(log), auth.WithRequireTOTPCode(cfg.RequireTOTPCode)}

	var attemptStore ratelimiter.Store
	if cfg.Redis.Enabled() {
		rdb, err := redis.Connect(ctx, cfg.Redis, log)
		if err != nil {
			return err
		}
		defer rdb.Close()

		checks["redis"] = redis.Healthcheck(rdb)
		authOpts = append(authOpts, auth.WithDenylist(redisstore.NewDenylist(rdb)))
		attemptStore = redisstore.NewRateLimitStore(rdb, redisstore.DefaultRateLimitPrefix)
	} else {
		mem := ratelimiter.NewMemoryStore()
		defer mem.Close()
		attemptStore = mem
	}

	limiter, err := ratelimiter.NewBucket(attemptStore, cfg.Limit)
	if err != nil {
		return err
	}

	keys, err := auth.NewKeys(cfg.Auth, log)
	if err != nil {
		return err
	}

	sender, err := email.NewSender(cfg.Email, log)
	if err != nil {
		return err
	}
	mailer, err := email.NewAuthMailer(sender, email.WithMailerLogger(log))
	if err != nil {
		return err
	}

	tokens := auth.NewTokenService(keys, users, authOpts...)
	cookies := cookie.NewFromConfig(cfg.Cookie)

	accounts, err := account.New(account.Services{
		Tokens:       tokens,
		Verification: auth.NewEmailVerificationService(keys, users, mailer, authOpts...),
		TOTP:         auth.NewTOTPService(keys, users, authOpts...),
		EmailFactor:  auth.NewEmailFactorService(users, authOpts...),
		Login:        auth.NewLoginService(keys, users, mailer, tokens, authOpts...),
		Transport: session.NewCompositeTransport(
			session.NewCookieTransport(cookies, cfg.Session),
			session.NewHeaderTransport("X-Auth-Token"),
		),
		Staged: session.NewStagedSecret(cookies, cfg.Session),
	}, account.WithLogger(log), account.WithAttemptLimiter(limiter))
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(
		requestid.Middleware,
		clientip.Middleware(cfg.TrustProxyHeaders),
		httpserver.RequestLogger(log),
		httpserver.Recoverer(log),
	)
	r.Get("/healthz", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(log, cfg.ReadinessTimeout, checks))
	r.Mount("/", accounts.Routes())

	server := httpserver.NewFromConfig(cfg.HTTP,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("store ready", slog.String("driver", cfg.StoreDriver), slog.Bool("redis", cfg.Redis.Enabled()))
		}),
	)
	return server.Run(ctx, r)
}
