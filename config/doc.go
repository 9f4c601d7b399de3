// Package config loads service configuration from built-in defaults
// layered with MEDIAMIX_-prefixed environment variables.
package config
