// Package errs defines the error types returned to API clients.
//
// Handlers and services return *HTTPError values; the global error handler
// serializes them into a consistent JSON shape.
package errs
