package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jonwraymond/mediamix/cache"
	"github.com/jonwraymond/mediamix/model"
	"github.com/jonwraymond/mediamix/observe"
)

const (
	minCurvePoints = 10
	maxCurvePoints = 400

	defaultCurvePoints    = 50
	defaultSingleInterval = 0.80
	defaultMultiInterval  = 0.90

	minInterval = 0.50
	maxInterval = 0.99
)

// computeCurves is the cache's compute function: resolve the model handle
// and derive the requested curves from the posterior.
func (s *Server) computeCurves(ctx context.Context, key cache.Key) (*model.ResponseCurveSet, error) {
	h, err := s.provider.Get(ctx)
	if err != nil {
		return nil, err
	}
	return h.ResponseCurves(key.ChannelIDs(), key.Points, key.Interval)
}

// validateChannels rejects channel IDs the model does not know, so an
// invalid request never reaches the cache or occupies a flight.
func (s *Server) validateChannels(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	h, err := s.provider.Get(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if !h.HasChannel(id) {
			return fmt.Errorf("%w: %q", model.ErrUnknownChannel, id)
		}
	}
	return nil
}

func (s *Server) handleModelHealth(w http.ResponseWriter, r *http.Request) {
	h, err := s.provider.Get(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"model_version": h.Version(),
		"channels":      h.ChannelIDs(),
	})
}

// singleCurveResponse is the flat single-channel chart payload.
type singleCurveResponse struct {
	Channel      string    `json:"channel"`
	Spend        []float64 `json:"spend"`
	Mean         []float64 `json:"mean"`
	Lower        []float64 `json:"lower"`
	Upper        []float64 `json:"upper"`
	Interval     float64   `json:"credible_interval"`
	ModelVersion int       `json:"model_version"`
}

func (s *Server) handleResponseCurve(w http.ResponseWriter, r *http.Request) {
	points, err := intParam(r, "points", defaultCurvePoints, minCurvePoints, maxCurvePoints)
	if err != nil {
		respondError(w, err)
		return
	}
	interval, err := floatParam(r, "credible_interval", defaultSingleInterval, minInterval, maxInterval)
	if err != nil {
		respondError(w, err)
		return
	}

	channel := r.URL.Query().Get("channel")
	if channel == "" {
		h, err := s.provider.Get(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		ids := h.ChannelIDs()
		if len(ids) == 0 {
			respondError(w, model.ErrNoChannels)
			return
		}
		channel = ids[0]
	}

	key := cache.NewKey([]string{channel}, points, interval)
	ids := key.ChannelIDs()
	if len(ids) != 1 {
		respondError(w, fmt.Errorf("%w: %q", model.ErrUnknownChannel, channel))
		return
	}
	if err := s.validateChannels(r.Context(), ids); err != nil {
		respondError(w, err)
		return
	}
	set, err := s.cache.GetOrCompute(r.Context(), key, s.computeCurves)
	if err != nil {
		respondError(w, err)
		return
	}

	curve, ok := set.Curve(ids[0])
	if !ok {
		respondError(w, model.ErrUnknownChannel)
		return
	}

	resp := singleCurveResponse{
		Channel:      curve.ID,
		Spend:        make([]float64, len(curve.Points)),
		Mean:         make([]float64, len(curve.Points)),
		Lower:        make([]float64, len(curve.Points)),
		Upper:        make([]float64, len(curve.Points)),
		Interval:     set.Interval,
		ModelVersion: set.ModelVersion,
	}
	for i, p := range curve.Points {
		resp.Spend[i] = p.Spend
		resp.Mean[i] = p.Mean
		resp.Lower[i] = p.Lower
		resp.Upper[i] = p.Upper
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResponseCurves(w http.ResponseWriter, r *http.Request) {
	points, err := intParam(r, "spend_steps", defaultCurvePoints, minCurvePoints, maxCurvePoints)
	if err != nil {
		respondError(w, err)
		return
	}
	interval, err := floatParam(r, "credible_interval", defaultMultiInterval, minInterval, maxInterval)
	if err != nil {
		respondError(w, err)
		return
	}
	channels := channelsParam(r, "channels")

	key := cache.NewKey(channels, points, interval)
	if err := s.validateChannels(r.Context(), key.ChannelIDs()); err != nil {
		respondError(w, err)
		return
	}
	set, err := s.cache.GetOrCompute(r.Context(), key, s.computeCurves)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleContributions(w http.ResponseWriter, r *http.Request) {
	start, err := dateParam(r, "start")
	if err != nil {
		respondError(w, err)
		return
	}
	end, err := dateParam(r, "end")
	if err != nil {
		respondError(w, err)
		return
	}
	interval, err := floatParam(r, "credible_interval", defaultMultiInterval, minInterval, maxInterval)
	if err != nil {
		respondError(w, err)
		return
	}

	h, err := s.provider.Get(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	series, err := h.Contributions(start, end, interval)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handlePreload(w http.ResponseWriter, r *http.Request) {
	keys := cache.DefaultWarmKeys()
	warmed := s.cache.Warm(r.Context(), keys, s.computeCurves)
	s.logger.Info(r.Context(), "preload finished",
		observe.F("warmed", warmed),
		observe.F("requested", len(keys)))
	writeJSON(w, http.StatusOK, map[string]int{
		"warmed":    warmed,
		"requested": len(keys),
	})
}
