// Package api exposes the HTTP surface: model analytics endpoints served
// through the response-curve cache, marketing-mix dataset endpoints, and
// the operational health and metrics routes.
package api
