package cache

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// AllChannels is the canonical channel component for a key that covers
// every model channel.
const AllChannels = "all"

// intervalPrecision fixes the rounding of the credible interval: equal
// parameters after rounding to 4 decimal digits must produce bit-identical
// keys, so floating-point jitter cannot fragment the cache.
const intervalPrecision = 1e4

// Key is the immutable parameter tuple a cached artifact is derived from.
// Construct keys with NewKey so logically-equal parameter sets normalize
// to the same value.
type Key struct {
	// Channels is the canonical channel selector: sorted, lowercased,
	// comma-joined channel IDs, or AllChannels when empty.
	Channels string

	// Points is the spend-grid resolution.
	Points int

	// Interval is the credible interval, rounded to 4 decimal digits.
	Interval float64
}

// NewKey builds a normalized key from raw request parameters.
func NewKey(channels []string, points int, interval float64) Key {
	return Key{
		Channels: canonicalChannels(channels),
		Points:   points,
		Interval: math.Round(interval*intervalPrecision) / intervalPrecision,
	}
}

// String renders the key for logging and for the single-flight group.
func (k Key) String() string {
	return fmt.Sprintf("%s:%d:%.4f", k.Channels, k.Points, k.Interval)
}

// ChannelIDs returns the individual channel IDs the key selects, or nil
// for an all-channels key.
func (k Key) ChannelIDs() []string {
	if k.Channels == AllChannels || k.Channels == "" {
		return nil
	}
	return strings.Split(k.Channels, ",")
}

// canonicalChannels produces a deterministic channel selector regardless
// of input order, case, or duplicates.
func canonicalChannels(channels []string) string {
	cleaned := make([]string, 0, len(channels))
	seen := make(map[string]bool, len(channels))
	for _, c := range channels {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		cleaned = append(cleaned, c)
	}
	if len(cleaned) == 0 {
		return AllChannels
	}
	sort.Strings(cleaned)
	return strings.Join(cleaned, ",")
}
