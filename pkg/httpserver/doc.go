// Package httpserver runs an http.Handler with graceful shutdown and ships
// the probe handlers and logging middleware the service mounts in front of
// its routes.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		return err
//	}
//
// Run binds the listener before it returns control to the serving goroutine,
// so address errors surface as ErrStart. It stops on context cancellation,
// SIGINT or SIGTERM and drains connections for the configured shutdown
// timeout.
//
// LivenessHandler always answers 200. ReadinessHandler runs named checks
// (database ping, Redis ping) and answers 503 with the failing names when
// any of them fails.
package httpserver
