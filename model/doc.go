// Package model loads the fitted marketing-mix model artifact and derives
// analysis outputs from it.
//
// The model file is deserialized once per process through Provider, which
// guards lazy construction so concurrent first users share a single load.
// The resulting Handle is read-only and safe for unsynchronized concurrent
// reads; all analysis methods are pure functions of the handle state and
// their arguments.
package model
