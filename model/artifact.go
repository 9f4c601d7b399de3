package model

// CurvePoint is one evaluated point on a response curve.
type CurvePoint struct {
	Spend float64 `json:"spend"`
	Mean  float64 `json:"mean"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// ResponseCurve is the derived curve for a single channel.
type ResponseCurve struct {
	ID                      string       `json:"id"`
	Name                    string       `json:"name"`
	Points                  []CurvePoint `json:"points"`
	SaturationSpend         float64      `json:"saturation_spend"`
	DiminishingReturnsStart float64      `json:"diminishing_returns_start"`
}

// ResponseCurveSet is the cacheable chart artifact: one curve per
// requested channel plus the parameters it was derived with.
type ResponseCurveSet struct {
	Channels     []ResponseCurve `json:"channels"`
	Interval     float64         `json:"credible_interval"`
	ModelVersion int             `json:"model_version"`
}

// Clone returns a deep copy. The cache hands out clones so one caller's
// mutation can never reach the cached original or another caller's copy.
func (s *ResponseCurveSet) Clone() *ResponseCurveSet {
	if s == nil {
		return nil
	}
	out := &ResponseCurveSet{
		Channels:     make([]ResponseCurve, len(s.Channels)),
		Interval:     s.Interval,
		ModelVersion: s.ModelVersion,
	}
	for i, c := range s.Channels {
		points := make([]CurvePoint, len(c.Points))
		copy(points, c.Points)
		c.Points = points
		out.Channels[i] = c
	}
	return out
}

// Curve returns the curve for the given channel ID, if present.
func (s *ResponseCurveSet) Curve(id string) (ResponseCurve, bool) {
	for _, c := range s.Channels {
		if c.ID == id {
			return c, true
		}
	}
	return ResponseCurve{}, false
}

// ContributionInterval is one channel's contribution at a single time.
type ContributionInterval struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Mean  float64 `json:"mean"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Share float64 `json:"share"`
}

// ContributionPoint aggregates all channels at a single time.
type ContributionPoint struct {
	Time       string                 `json:"time"`
	TotalMean  float64                `json:"total_mean"`
	TotalLower float64                `json:"total_lower"`
	TotalUpper float64                `json:"total_upper"`
	Channels   []ContributionInterval `json:"channels"`
}

// ContributionSeries is the time-series contribution artifact.
type ContributionSeries struct {
	Start  string              `json:"start"`
	End    string              `json:"end"`
	Points []ContributionPoint `json:"points"`
}

// Clone returns a deep copy of the series.
func (s *ContributionSeries) Clone() *ContributionSeries {
	if s == nil {
		return nil
	}
	out := &ContributionSeries{
		Start:  s.Start,
		End:    s.End,
		Points: make([]ContributionPoint, len(s.Points)),
	}
	for i, p := range s.Points {
		channels := make([]ContributionInterval, len(p.Channels))
		copy(channels, p.Channels)
		p.Channels = channels
		out.Points[i] = p
	}
	return out
}
