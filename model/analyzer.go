package model

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// curveGridMax is the upper bound of the spend-multiplier grid: curves are
// evaluated from zero spend up to twice the observed baseline.
const curveGridMax = 2.0

// ResponseCurves derives response curves for the given channels.
//
// channelIDs may be empty, in which case all model channels are included.
// points is the resolution of the spend grid (at least 2). interval is the
// credible interval in (0, 1) used for the lower/upper bands.
// Deterministic for a fixed handle and fixed arguments.
func (h *Handle) ResponseCurves(channelIDs []string, points int, interval float64) (*ResponseCurveSet, error) {
	if points < 2 {
		return nil, fmt.Errorf("model: response grid needs at least 2 points, got %d", points)
	}
	if interval <= 0 || interval >= 1 {
		return nil, fmt.Errorf("model: credible interval must be in (0, 1), got %g", interval)
	}

	indices, err := h.resolveChannels(channelIDs)
	if err != nil {
		return nil, err
	}

	multipliers := make([]float64, points)
	for i := range multipliers {
		multipliers[i] = curveGridMax * float64(i) / float64(points-1)
	}

	lowerQ := (1 - interval) / 2
	upperQ := 1 - lowerQ
	draws := len(h.model.Posterior.Saturation)

	set := &ResponseCurveSet{
		Channels:     make([]ResponseCurve, 0, len(indices)),
		Interval:     interval,
		ModelVersion: h.model.Version,
	}

	samples := make([]float64, draws)
	for _, ci := range indices {
		ch := h.model.Channels[ci]
		baseline := h.model.BaselineSpend[ci]

		curvePoints := make([]CurvePoint, points)
		means := make([]float64, points)
		spend := make([]float64, points)
		for i, m := range multipliers {
			for d := 0; d < draws; d++ {
				samples[d] = hill(m,
					h.model.Posterior.Saturation[d][ci],
					h.model.Posterior.Slope[d][ci],
					h.model.Posterior.Beta[d][ci])
			}
			mean := meanOf(samples)
			means[i] = mean
			spend[i] = baseline * m
			curvePoints[i] = CurvePoint{
				Spend: spend[i],
				Mean:  mean,
				Lower: quantile(samples, lowerQ),
				Upper: quantile(samples, upperQ),
			}
		}

		set.Channels = append(set.Channels, ResponseCurve{
			ID:                      ch.ID,
			Name:                    ch.Name,
			Points:                  curvePoints,
			SaturationSpend:         saturationSpend(spend, means),
			DiminishingReturnsStart: diminishingReturnsStart(spend, means),
		})
	}

	return set, nil
}

// Contributions derives the per-time contribution series, optionally
// filtered to [start, end] inclusive. Nil bounds leave that side open.
func (h *Handle) Contributions(start, end *time.Time, interval float64) (*ContributionSeries, error) {
	if interval <= 0 || interval >= 1 {
		return nil, fmt.Errorf("model: credible interval must be in (0, 1), got %g", interval)
	}
	draws := len(h.model.Posterior.Contributions)
	if draws == 0 || len(h.model.Times) == 0 {
		return nil, ErrNoData
	}

	lowerQ := (1 - interval) / 2
	upperQ := 1 - lowerQ

	// Select the time indices inside the requested window.
	var selected []int
	for ti, raw := range h.model.Times {
		t, err := time.Parse(timeLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: bad time %q", ErrModelCorrupt, raw)
		}
		if start != nil && t.Before(*start) {
			continue
		}
		if end != nil && t.After(*end) {
			continue
		}
		selected = append(selected, ti)
	}
	if len(selected) == 0 {
		return nil, ErrNoData
	}

	series := &ContributionSeries{
		Start:  h.model.Times[selected[0]],
		End:    h.model.Times[selected[len(selected)-1]],
		Points: make([]ContributionPoint, 0, len(selected)),
	}

	samples := make([]float64, draws)
	for _, ti := range selected {
		point := ContributionPoint{
			Time:     h.model.Times[ti],
			Channels: make([]ContributionInterval, 0, len(h.model.Channels)),
		}
		for ci, ch := range h.model.Channels {
			for d := 0; d < draws; d++ {
				samples[d] = h.model.Posterior.Contributions[d][ti][ci]
			}
			mean := meanOf(samples)
			lower := quantile(samples, lowerQ)
			upper := quantile(samples, upperQ)
			point.TotalMean += mean
			point.TotalLower += lower
			point.TotalUpper += upper
			point.Channels = append(point.Channels, ContributionInterval{
				ID:    ch.ID,
				Name:  ch.Name,
				Mean:  mean,
				Lower: lower,
				Upper: upper,
			})
		}
		if point.TotalMean > 0 {
			for i := range point.Channels {
				point.Channels[i].Share = point.Channels[i].Mean / point.TotalMean
			}
		}
		series.Points = append(series.Points, point)
	}

	return series, nil
}

// resolveChannels maps channel IDs to model indices. Empty input selects
// every channel.
func (h *Handle) resolveChannels(channelIDs []string) ([]int, error) {
	if len(h.model.Channels) == 0 {
		return nil, ErrNoChannels
	}
	if len(channelIDs) == 0 {
		indices := make([]int, len(h.model.Channels))
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}
	indices := make([]int, 0, len(channelIDs))
	for _, id := range channelIDs {
		idx := h.model.channelIndex(id)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, id)
		}
		indices = append(indices, idx)
	}
	return indices, nil
}

// hill evaluates the saturating media response at spend multiplier m.
func hill(m, saturation, slope, beta float64) float64 {
	if m <= 0 {
		return 0
	}
	ms := math.Pow(m, slope)
	return beta * ms / (ms + math.Pow(saturation, slope))
}

// saturationSpend is the spend level where marginal ROI has fallen to half
// the initial ROI, or the last grid point if it never does.
func saturationSpend(spend, mean []float64) float64 {
	if len(spend) < 2 {
		return spend[len(spend)-1]
	}
	const eps = 1e-10
	initial := mean[1] / (spend[1] + eps)
	for i := 1; i < len(spend); i++ {
		if mean[i]/(spend[i]+eps) <= initial*0.5 {
			return spend[i]
		}
	}
	return spend[len(spend)-1]
}

// diminishingReturnsStart is the first spend level where the curve's
// second difference turns negative.
func diminishingReturnsStart(spend, mean []float64) float64 {
	if len(mean) <= 2 {
		return spend[0]
	}
	for i := 0; i+2 < len(mean); i++ {
		second := mean[i+2] - 2*mean[i+1] + mean[i]
		if second < 0 {
			return spend[i]
		}
	}
	return spend[0]
}

func meanOf(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// quantile computes the q-th quantile with linear interpolation between
// order statistics.
func quantile(xs []float64, q float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}
