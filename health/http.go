package health

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// LivenessHandler reports process liveness. It never consults checkers:
// if the handler runs, the process is alive.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "alive",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// ReadinessHandler runs every registered check and reports 503 unless the
// overall status is healthy or degraded.
func ReadinessHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := agg.CheckAll(r.Context())
		status := agg.OverallStatus(results)

		code := http.StatusOK
		if status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]any{
			"status":    status.String(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// DetailedHandler runs every registered check and reports each component's
// result.
func DetailedHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := agg.CheckAll(r.Context())
		status := agg.OverallStatus(results)

		components := make(map[string]any, len(results))
		for name, result := range results {
			c := map[string]any{
				"status":      result.Status.String(),
				"message":     result.Message,
				"duration_ms": result.Duration.Milliseconds(),
			}
			if result.Error != nil {
				c["error"] = result.Error.Error()
			}
			if len(result.Details) > 0 {
				c["details"] = result.Details
			}
			components[name] = c
		}

		code := http.StatusOK
		if status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]any{
			"status":     status.String(),
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"components": components,
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
