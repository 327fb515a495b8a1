// Package mongo connects to MongoDB with the v2 driver, retrying until the
// server answers a ping.
//
//	var cfg mongo.Config
//	config.MustLoad(&cfg)
//
//	db, err := mongo.NewWithDatabase(ctx, cfg, log)
//	if err != nil {
//		return err
//	}
//	defer db.Client().Disconnect(context.Background())
//
// Healthcheck wraps the client for the readiness endpoint.
package mongo
