// Package health aggregates component health checks and exposes them as
// liveness and readiness HTTP handlers.
package health
