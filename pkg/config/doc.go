// Package config loads typed configuration from the process environment.
//
// Configuration structs declare their variables with caarlos0/env tags. The
// first Load call also reads a .env file from the working directory when one
// exists (github.com/joho/godotenv); variables already present in the
// environment win over the file.
//
//	var cfg auth.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// Tests pass an explicit environment instead of mutating the process one:
//
//	err := config.Load(&cfg, config.WithEnvironment(map[string]string{
//		"AUTH_SIGNING_SECRET": "test",
//	}))
package config
