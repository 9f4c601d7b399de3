package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// paramError marks a request parameter validation failure. These are
// rejected before any computation or cache access happens.
type paramError struct {
	msg string
}

func (e *paramError) Error() string { return e.msg }

func badParam(format string, args ...any) error {
	return &paramError{msg: fmt.Sprintf(format, args...)}
}

// intParam parses an integer query parameter, applying a default and an
// inclusive range.
func intParam(r *http.Request, name string, def, min, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badParam("%s must be an integer", name)
	}
	if v < min || v > max {
		return 0, badParam("%s must be between %d and %d", name, min, max)
	}
	return v, nil
}

// floatParam parses a float query parameter, applying a default and an
// inclusive range.
func floatParam(r *http.Request, name string, def, min, max float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, badParam("%s must be a number", name)
	}
	if v < min || v > max {
		return 0, badParam("%s must be between %g and %g", name, min, max)
	}
	return v, nil
}

// dateParam parses an optional YYYY-MM-DD query parameter.
func dateParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, badParam("%s must be a YYYY-MM-DD date", name)
	}
	return &t, nil
}

// channelsParam collects channel IDs from repeated query parameters,
// also splitting comma-separated values.
func channelsParam(r *http.Request, name string) []string {
	var out []string
	for _, raw := range r.URL.Query()[name] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
