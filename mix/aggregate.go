package mix

import "fmt"

// computeSummary derives the dataset-wide metrics from the national series.
func computeSummary(national []NationalSample) Summary {
	var s Summary
	var promoWeeks int
	var prevConversions, prevSpend *float64

	for _, rec := range national {
		var weekSpend float64
		for _, c := range rec.Channels {
			weekSpend += c.Spend
		}
		s.TotalSpend += weekSpend

		if rec.Conversions != nil && *rec.Conversions > 0 {
			s.TotalConversions += *rec.Conversions
			if rec.RevenuePerConversion != nil {
				s.TotalRevenue += *rec.Conversions * *rec.RevenuePerConversion
			}
		}
		if rec.Promo != nil && *rec.Promo > 0 {
			promoWeeks++
		}

		if rec.Conversions != nil && prevConversions != nil && *prevConversions != 0 {
			s.RecentConversionLift = (*rec.Conversions - *prevConversions) / *prevConversions
		}
		if rec.Conversions != nil && *rec.Conversions > 0 {
			prevConversions = clonePtr(rec.Conversions)
		}

		if prevSpend != nil && *prevSpend != 0 {
			s.RecentSpendLift = (weekSpend - *prevSpend) / *prevSpend
		}
		if weekSpend > 0 {
			v := weekSpend
			prevSpend = &v
		}
	}

	if s.TotalSpend > 0 {
		s.ROAS = s.TotalRevenue / s.TotalSpend
	}
	if s.TotalConversions > 0 {
		s.CAC = s.TotalSpend / s.TotalConversions
	}
	weeks := len(national)
	if weeks == 0 {
		weeks = 1
	}
	s.PromoRate = float64(promoWeeks) / float64(weeks)

	return s
}

// computeChannelTotals aggregates spend and impressions per channel and
// attributes conversions and revenue by spend share.
func computeChannelTotals(national []NationalSample, summary Summary) map[string]ChannelTotals {
	totals := make(map[string]ChannelTotals, ChannelCount)
	for i := 0; i < ChannelCount; i++ {
		id := fmt.Sprintf("channel%d", i)
		totals[id] = ChannelTotals{ID: id, Name: channelDisplayName(id)}
	}

	for _, rec := range national {
		for _, c := range rec.Channels {
			t := totals[c.ID]
			t.Spend += c.Spend
			t.Impressions += c.Impressions
			totals[c.ID] = t
		}
	}

	var totalSpend float64
	for _, t := range totals {
		totalSpend += t.Spend
	}
	if totalSpend == 0 {
		totalSpend = 1
	}
	weeks := len(national)
	if weeks == 0 {
		weeks = 1
	}

	for id, t := range totals {
		t.SpendShare = t.Spend / totalSpend
		t.AvgWeeklySpend = t.Spend / float64(weeks)
		t.EstimatedConversions = summary.TotalConversions * t.SpendShare
		t.EstimatedRevenue = summary.TotalRevenue * t.SpendShare
		if t.Spend > 0 {
			t.ROAS = t.EstimatedRevenue / t.Spend
		}
		if t.EstimatedConversions > 0 {
			cac := t.Spend / t.EstimatedConversions
			t.CAC = &cac
		}
		totals[id] = t
	}

	return totals
}

// buildInsights produces the headline strings for the summary endpoint.
func buildInsights(totals map[string]ChannelTotals, summary Summary) []string {
	if len(totals) == 0 {
		return nil
	}

	var top, fastest ChannelTotals
	for _, t := range totals {
		if t.SpendShare > top.SpendShare || top.ID == "" {
			top = t
		}
		if t.ROAS > fastest.ROAS || fastest.ID == "" {
			fastest = t
		}
	}

	lift := summary.RecentConversionLift
	liftPhrase := fmt.Sprintf("Conversions increased %.1f%% WoW", lift*100)
	if lift < 0 {
		liftPhrase = fmt.Sprintf("Conversions decreased %.1f%% WoW", -lift*100)
	}

	return []string{
		fmt.Sprintf("%s represents %.0f%% of media spend.", top.Name, top.SpendShare*100),
		fmt.Sprintf("%s currently delivers ROAS %.2fx.", fastest.Name, fastest.ROAS),
		liftPhrase,
	}
}
