package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/jonwraymond/mediamix/mix"
)

type geoListItem struct {
	Geo        string `json:"geo"`
	Start      string `json:"start"`
	End        string `json:"end"`
	SampleSize int    `json:"sample_size"`
}

type channelPoint struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Spend              float64  `json:"spend"`
	Impressions        float64  `json:"impressions"`
	OrganicImpressions *float64 `json:"organic_impressions"`
}

type seriesPoint struct {
	Time                 string         `json:"time"`
	Conversions          *float64       `json:"conversions"`
	RevenuePerConversion *float64       `json:"revenue_per_conversion"`
	CompetitorSales      *float64       `json:"competitor_sales_control"`
	SentimentScore       *float64       `json:"sentiment_score_control"`
	Promo                *float64       `json:"promo"`
	Population           *float64       `json:"population,omitempty"`
	Channels             []channelPoint `json:"channels"`
	TotalSpend           float64        `json:"total_spend"`
	SpendEfficiency      *float64       `json:"spend_efficiency"`
	LiftVsPrev           *float64       `json:"lift_vs_prev"`
}

type geoSeriesResponse struct {
	Geo    string        `json:"geo"`
	Start  string        `json:"start"`
	End    string        `json:"end"`
	Points []seriesPoint `json:"points"`
}

type nationalSeriesResponse struct {
	Start  string        `json:"start"`
	End    string        `json:"end"`
	Points []seriesPoint `json:"points"`
}

type channelAggregate struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	TotalSpend           float64  `json:"total_spend"`
	TotalImpressions     float64  `json:"total_impressions"`
	SpendShare           float64  `json:"spend_share"`
	AverageWeeklySpend   float64  `json:"average_weekly_spend"`
	EstimatedConversions float64  `json:"estimated_conversions"`
	EstimatedRevenue     float64  `json:"estimated_revenue"`
	ROAS                 float64  `json:"roas"`
	CAC                  *float64 `json:"cac"`
}

type summaryMetric struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

type summaryResponse struct {
	Metrics  []summaryMetric `json:"metrics"`
	Insights []string        `json:"insights"`
}

type scenarioRequest struct {
	SourceChannel string  `json:"source_channel"`
	TargetChannel string  `json:"target_channel"`
	ShiftRatio    float64 `json:"shift_ratio"`
}

type scenarioChannelProjection struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	Spend                float64  `json:"spend"`
	EstimatedConversions float64  `json:"estimated_conversions"`
	EstimatedRevenue     float64  `json:"estimated_revenue"`
	ROAS                 float64  `json:"roas"`
	CAC                  *float64 `json:"cac"`
}

type scenarioResponse struct {
	TotalSpend           float64                     `json:"total_spend"`
	ProjectedConversions float64                     `json:"projected_conversions"`
	ProjectedRevenue     float64                     `json:"projected_revenue"`
	DeltaConversions     float64                     `json:"delta_conversions"`
	DeltaRevenue         float64                     `json:"delta_revenue"`
	Channels             []scenarioChannelProjection `json:"channels"`
}

func (s *Server) handleGeos(w http.ResponseWriter, r *http.Request) {
	metas := s.dataset.Geos()
	items := make([]geoListItem, len(metas))
	for i, m := range metas {
		items[i] = geoListItem{
			Geo:        m.Geo,
			Start:      m.Start.Format(dateLayout),
			End:        m.End.Format(dateLayout),
			SampleSize: m.SampleSize,
		}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGeoSeries(w http.ResponseWriter, r *http.Request) {
	geo := chi.URLParam(r, "geo")
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
	channels := channelsParam(r, "channels")

	series, err := s.dataset.GeoSeries(geo, start, end, channels)
	if err != nil {
		respondError(w, err)
		return
	}

	points := make([]seriesPoint, 0, len(series))
	var prevConversions *float64
	for _, rec := range series {
		p := seriesPoint{
			Time:                 rec.Time.Format(dateLayout),
			Conversions:          rec.Conversions,
			RevenuePerConversion: rec.RevenuePerConversion,
			CompetitorSales:      rec.CompetitorSales,
			SentimentScore:       rec.SentimentScore,
			Promo:                rec.Promo,
			Population:           rec.Population,
			Channels:             toChannelPoints(rec.Channels),
		}
		fillDerived(&p, rec.Conversions, &prevConversions)
		points = append(points, p)
	}

	boundsStart, boundsEnd, err := s.dataset.GeoBounds(geo)
	if err != nil {
		respondError(w, err)
		return
	}
	boundsStart, boundsEnd = clipBounds(boundsStart, boundsEnd, start, end)

	writeJSON(w, http.StatusOK, geoSeriesResponse{
		Geo:    geo,
		Start:  boundsStart.Format(dateLayout),
		End:    boundsEnd.Format(dateLayout),
		Points: points,
	})
}

func (s *Server) handleNationalSeries(w http.ResponseWriter, r *http.Request) {
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
	channels := channelsParam(r, "channels")

	series, err := s.dataset.NationalSeries(start, end, channels)
	if err != nil {
		respondError(w, err)
		return
	}

	points := make([]seriesPoint, 0, len(series))
	var prevConversions *float64
	for _, rec := range series {
		p := seriesPoint{
			Time:                 rec.Time.Format(dateLayout),
			Conversions:          rec.Conversions,
			RevenuePerConversion: rec.RevenuePerConversion,
			CompetitorSales:      rec.CompetitorSales,
			SentimentScore:       rec.SentimentScore,
			Promo:                rec.Promo,
			Channels:             toChannelPoints(rec.Channels),
		}
		fillDerived(&p, rec.Conversions, &prevConversions)
		points = append(points, p)
	}

	boundsStart, boundsEnd, err := s.dataset.NationalBounds()
	if err != nil {
		respondError(w, err)
		return
	}
	boundsStart, boundsEnd = clipBounds(boundsStart, boundsEnd, start, end)

	writeJSON(w, http.StatusOK, nationalSeriesResponse{
		Start:  boundsStart.Format(dateLayout),
		End:    boundsEnd.Format(dateLayout),
		Points: points,
	})
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	totals := s.dataset.Totals()
	out := make([]channelAggregate, len(totals))
	for i, t := range totals {
		out[i] = channelAggregate{
			ID:                   t.ID,
			Name:                 t.Name,
			TotalSpend:           t.Spend,
			TotalImpressions:     t.Impressions,
			SpendShare:           t.SpendShare,
			AverageWeeklySpend:   t.AvgWeeklySpend,
			EstimatedConversions: t.EstimatedConversions,
			EstimatedRevenue:     t.EstimatedRevenue,
			ROAS:                 t.ROAS,
			CAC:                  t.CAC,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum := s.dataset.Summary()
	writeJSON(w, http.StatusOK, summaryResponse{
		Metrics: []summaryMetric{
			{Label: "Total Spend", Value: sum.TotalSpend, Unit: "USD"},
			{Label: "Total Conversions", Value: sum.TotalConversions, Unit: "units"},
			{Label: "Total Revenue", Value: sum.TotalRevenue, Unit: "USD"},
			{Label: "Return on Ad Spend", Value: sum.ROAS, Unit: "ratio"},
			{Label: "Average CAC", Value: sum.CAC, Unit: "USD"},
			{Label: "Weekly Conversion Lift", Value: sum.RecentConversionLift, Unit: "ratio"},
			{Label: "Promo Weeks", Value: sum.PromoRate, Unit: "ratio"},
		},
		Insights: sum.Insights,
	})
}

func (s *Server) handleScenarioShift(w http.ResponseWriter, r *http.Request) {
	var req scenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	base := s.dataset.Summary()
	totals, err := s.dataset.SimulateShift(req.SourceChannel, req.TargetChannel, req.ShiftRatio)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := scenarioResponse{
		Channels: make([]scenarioChannelProjection, len(totals)),
	}
	for i, t := range totals {
		resp.TotalSpend += t.Spend
		resp.ProjectedConversions += t.EstimatedConversions
		resp.ProjectedRevenue += t.EstimatedRevenue
		resp.Channels[i] = scenarioChannelProjection{
			ID:                   t.ID,
			Name:                 t.Name,
			Spend:                t.Spend,
			EstimatedConversions: t.EstimatedConversions,
			EstimatedRevenue:     t.EstimatedRevenue,
			ROAS:                 t.ROAS,
			CAC:                  t.CAC,
		}
	}
	resp.DeltaConversions = resp.ProjectedConversions - base.TotalConversions
	resp.DeltaRevenue = resp.ProjectedRevenue - base.TotalRevenue

	writeJSON(w, http.StatusOK, resp)
}

func toChannelPoints(channels []mix.ChannelSample) []channelPoint {
	out := make([]channelPoint, len(channels))
	for i, c := range channels {
		out[i] = channelPoint{
			ID:                 c.ID,
			Name:               c.Name,
			Spend:              c.Spend,
			Impressions:        c.Impressions,
			OrganicImpressions: c.OrganicImpressions,
		}
	}
	return out
}

// fillDerived computes the per-week totals the charts plot: total spend,
// conversions per dollar, and week-over-week conversion lift. Weeks with
// zero conversions carry the previous week's baseline forward.
func fillDerived(p *seriesPoint, conversions *float64, prev **float64) {
	for _, c := range p.Channels {
		p.TotalSpend += c.Spend
	}

	var conv float64
	if conversions != nil {
		conv = *conversions
	}
	if p.TotalSpend > 0 && conv != 0 {
		eff := conv / p.TotalSpend
		p.SpendEfficiency = &eff
	}
	if *prev != nil && **prev != 0 {
		lift := (conv - **prev) / **prev
		p.LiftVsPrev = &lift
	}
	if conv != 0 {
		v := conv
		*prev = &v
	}
}

func clipBounds(start, end time.Time, reqStart, reqEnd *time.Time) (time.Time, time.Time) {
	if reqStart != nil && reqStart.After(start) {
		start = *reqStart
	}
	if reqEnd != nil && reqEnd.Before(end) {
		end = *reqEnd
	}
	return start, end
}
