// Package pg bootstraps a PostgreSQL connection pool on pgx/v5 and applies
// goose migrations shipped in an fs.FS (usually an embed.FS next to the
// store that owns the schema).
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg, log)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, migrations.FS, ".", cfg, log); err != nil {
//		return err
//	}
//
// Healthcheck adapts the pool to the probe signature used by the HTTP
// readiness endpoint. IsNotFoundError and IsDuplicateKeyError classify pgx
// errors for store implementations.
package pg
