// Package logger builds the *slog.Logger used across the service.
//
// New assembles a JSON or text handler from functional options and wraps it
// so that request-scoped values (request id, caller id) registered with
// WithContextExtractors are attached to every record logged with a context.
//
//	log := logger.New(
//		logger.WithEnvironment(app.Env, app.ServiceName),
//		logger.WithLevel(logger.ParseLevel(app.LogLevel)),
//		logger.WithContextExtractors(requestid.LogExtractor),
//	)
//	log.WarnContext(ctx, "refresh rejected", logger.UserID(id), logger.Error(err))
//
// The attribute helpers in attr.go keep key names consistent. Helpers that
// receive an empty value return an empty slog.Attr, which slog drops.
package logger
