// Package requestid tags every request with a correlation identifier.
//
// Middleware reuses a well-formed X-Request-ID supplied by the client and
// otherwise generates a UUID. The identifier is echoed in the response
// header and stored in the request context, where LogExtractor picks it up
// so every log record written during the request carries request_id.
//
//	log := logger.New(logger.WithContextExtractors(requestid.LogExtractor()))
//	r.Use(requestid.Middleware)
package requestid
