// Package observe provides structured logging and OpenTelemetry metrics
// for the mediamix service.
//
// It exposes an Observer that owns the metric provider lifecycle, a
// minimal structured Logger, and typed metric recorders for the response
// curve cache and the HTTP surface.
package observe
