package mix

import (
	"errors"
	"fmt"
	"sort"
)

// Scenario validation errors.
var (
	ErrSameChannel   = errors.New("mix: source and target must differ")
	ErrShiftRange    = errors.New("mix: shift ratio must be between 0 and 0.5")
	ErrNoSourceSpend = errors.New("mix: source channel has no spend to shift")
)

// MaxShiftRatio bounds how much of a channel's spend a scenario may move.
const MaxShiftRatio = 0.5

// SimulateShift moves ratio of the source channel's total spend to the
// target channel and re-derives the per-channel projections. The stored
// totals are untouched; the returned slice is an independent projection
// sorted by spend, descending.
func (d *Dataset) SimulateShift(source, target string, ratio float64) ([]ChannelTotals, error) {
	sourceID, err := NormalizeChannelID(source)
	if err != nil {
		return nil, err
	}
	targetID, err := NormalizeChannelID(target)
	if err != nil {
		return nil, err
	}
	if sourceID == targetID {
		return nil, ErrSameChannel
	}
	if ratio < 0 || ratio > MaxShiftRatio {
		return nil, fmt.Errorf("%w: got %g", ErrShiftRange, ratio)
	}

	src, ok := d.totals[sourceID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrChannelNotFound, source)
	}
	if _, ok := d.totals[targetID]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrChannelNotFound, target)
	}
	if src.Spend <= 0 {
		return nil, ErrNoSourceSpend
	}

	shifted := make(map[string]ChannelTotals, len(d.totals))
	for id, t := range d.totals {
		t.CAC = nil // re-derived below
		shifted[id] = t
	}

	amount := src.Spend * ratio
	s := shifted[sourceID]
	s.Spend -= amount
	shifted[sourceID] = s
	t := shifted[targetID]
	t.Spend += amount
	shifted[targetID] = t

	var totalSpend float64
	for _, c := range shifted {
		totalSpend += c.Spend
	}
	if totalSpend == 0 {
		totalSpend = 1
	}

	out := make([]ChannelTotals, 0, len(shifted))
	for id, c := range shifted {
		c.SpendShare = c.Spend / totalSpend
		c.EstimatedConversions = d.summary.TotalConversions * c.SpendShare
		c.EstimatedRevenue = d.summary.TotalRevenue * c.SpendShare
		c.ROAS = 0
		if c.Spend > 0 {
			c.ROAS = c.EstimatedRevenue / c.Spend
		}
		c.CAC = nil
		if c.EstimatedConversions > 0 {
			cac := c.Spend / c.EstimatedConversions
			c.CAC = &cac
		}
		shifted[id] = c
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Spend > out[j].Spend })
	return out, nil
}
