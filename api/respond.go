package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/jonwraymond/mediamix/cache"
	"github.com/jonwraymond/mediamix/mix"
	"github.com/jonwraymond/mediamix/model"
)

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// mapError translates domain errors into HTTP status codes. Validation
// failures are client errors; a wait that expired while a computation was
// still running maps to gateway timeout.
func mapError(err error) int {
	var pe *paramError
	switch {
	case errors.As(err, &pe):
		return http.StatusBadRequest
	case errors.Is(err, mix.ErrGeoNotFound):
		return http.StatusNotFound
	case errors.Is(err, mix.ErrChannelNotFound),
		errors.Is(err, mix.ErrSameChannel),
		errors.Is(err, mix.ErrShiftRange),
		errors.Is(err, mix.ErrNoSourceSpend),
		errors.Is(err, model.ErrUnknownChannel):
		return http.StatusBadRequest
	case errors.Is(err, cache.ErrComputationTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, err error) {
	writeError(w, mapError(err), err.Error())
}
