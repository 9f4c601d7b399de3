package mix

import "time"

// ChannelCount is the number of media channels in the datasets.
const ChannelCount = 5

// ChannelSample is one channel's activity in a single week.
type ChannelSample struct {
	ID                 string
	Name               string
	Spend              float64
	Impressions        float64
	OrganicImpressions *float64
}

// GeoSample is one geo's record for a single week.
type GeoSample struct {
	Geo                  string
	Time                 time.Time
	Conversions          *float64
	RevenuePerConversion *float64
	CompetitorSales      *float64
	SentimentScore       *float64
	Promo                *float64
	Population           *float64
	Channels             []ChannelSample
}

// NationalSample is the national record for a single week.
type NationalSample struct {
	Time                 time.Time
	Conversions          *float64
	RevenuePerConversion *float64
	CompetitorSales      *float64
	SentimentScore       *float64
	Promo                *float64
	Channels             []ChannelSample
}

// GeoMeta describes the coverage of one geo's series.
type GeoMeta struct {
	Geo        string
	Start      time.Time
	End        time.Time
	SampleSize int
}

// ChannelTotals aggregates one channel across the national series.
type ChannelTotals struct {
	ID                   string
	Name                 string
	Spend                float64
	Impressions          float64
	SpendShare           float64
	AvgWeeklySpend       float64
	EstimatedConversions float64
	EstimatedRevenue     float64
	ROAS                 float64
	CAC                  *float64
}

// Summary holds dataset-wide metrics and generated insight strings.
type Summary struct {
	TotalSpend           float64
	TotalConversions     float64
	TotalRevenue         float64
	ROAS                 float64
	CAC                  float64
	PromoRate            float64
	RecentConversionLift float64
	RecentSpendLift      float64
	Insights             []string
}

func cloneChannelSamples(in []ChannelSample) []ChannelSample {
	out := make([]ChannelSample, len(in))
	for i, c := range in {
		if c.OrganicImpressions != nil {
			v := *c.OrganicImpressions
			c.OrganicImpressions = &v
		}
		out[i] = c
	}
	return out
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
