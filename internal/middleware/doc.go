// Package middleware provides the HTTP middleware chain of the status
// server: request ids, structured request logs, panic recovery, rate
// limiting, tracing and RFC 7807 problem responses.
//
// The intended order is RequestID, Tracing, StructuredLogger, Recoverer,
// then any limiter or timeout.
package middleware
