// Package mix loads the marketing-mix datasets and serves aggregated
// views over them.
//
// The geo and national CSV files are read once at startup; the resulting
// Dataset is immutable, so its accessors are safe for concurrent use and
// return copies that callers may mutate freely.
package mix
