package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/projectauth/internal/store/memory"
	"github.com/dmitrymomot/projectauth/internal/store/mongostore"
	"github.com/dmitrymomot/projectauth/internal/store/postgres"
	"github.com/dmitrymomot/projectauth/pkg/auth"
	"github.com/dmitrymomot/projectauth/pkg/config"
	"github.com/dmitrymomot/projectauth/pkg/httpserver"
	"github.com/dmitrymomot/projectauth/pkg/logger"
	"github.com/dmitrymomot/projectauth/pkg/mongo"
	"github.com/dmitrymomot/projectauth/pkg/pg"
)

// Store drivers accepted in STORE_DRIVER.
const (
	driverMemory   = "memory"
	driverPostgres = "postgres"
	driverMongo    = "mongo"
)

// seedConfig creates one account in the memory store at startup.
type seedConfig struct {
	Email    string `env:"SEED_USER_EMAIL"`
	Password string `env:"SEED_USER_PASSWORD"`
	Name     string `env:"SEED_USER_NAME" envDefault:"Demo"`
}

// openStore connects the user store selected by driver. The returned
// function releases its connections.
func openStore(ctx context.Context, driver string, log *slog.Logger) (auth.UserStore, httpserver.Check, func(), error) {
	switch driver {
	case driverMemory, "":
		store := memory.New()
		if err := seedMemory(ctx, store, log); err != nil {
			return nil, nil, nil, err
		}
		return store, store.Ping, func() {}, nil

	case driverPostgres:
		var cfg pg.Config
		if err := config.Load(&cfg); err != nil {
			return nil, nil, nil, err
		}
		pool, err := pg.Connect(ctx, cfg, log)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := postgres.Migrate(ctx, pool, cfg, log); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		store := postgres.New(pool)
		return store, store.Ping, pool.Close, nil

	case driverMongo:
		var cfg mongo.Config
		if err := config.Load(&cfg); err != nil {
			return nil, nil, nil, err
		}
		db, err := mongo.NewWithDatabase(ctx, cfg, log)
		if err != nil {
			return nil, nil, nil, err
		}
		disconnect := func() { _ = db.Client().Disconnect(context.WithoutCancel(ctx)) }
		store := mongostore.New(db, mongostore.DefaultCollection)
		if err := store.EnsureIndexes(ctx); err != nil {
			disconnect()
			return nil, nil, nil, err
		}
		return store, store.Ping, disconnect, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", driver)
	}
}

func seedMemory(ctx context.Context, store *memory.Store, log *slog.Logger) error {
	var seed seedConfig
	if err := config.Load(&seed); err != nil {
		return err
	}
	if seed.Email == "" || seed.Password == "" {
		log.Warn("memory store has no accounts; set SEED_USER_EMAIL and SEED_USER_PASSWORD")
		return nil
	}

	hash, err := auth.HashPassword(seed.Password, 0)
	if err != nil {
		return err
	}
	user, err := store.CreateUser(ctx, auth.User{Email: seed.Email, Name: seed.Name, PasswordHash: hash})
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}
	log.Info("seeded memory store", logger.UserID(user.ID), logger.Email(user.Email))
	return nil
}
