// Package clientip resolves the address of the client behind a request.
//
// Proxy headers are untrusted by default and only the TCP peer is used.
// With trusted proxy headers the first valid address from CF-Connecting-IP,
// X-Forwarded-For (leftmost entry) or X-Real-IP wins. Middleware stores the
// result in the request context for FromContext, the rate limiter key
// function FromRequest and LogExtractor.
package clientip
