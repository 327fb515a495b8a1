// Package redis connects a go-redis v9 client with bounded retries and
// provides a readiness probe for it.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//	if cfg.Enabled() {
//		client, err := redis.Connect(ctx, cfg, log)
//		...
//	}
package redis
