package model

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

func date(t *testing.T, s string) *time.Time {
	t.Helper()
	parsed, err := time.Parse(timeLayout, s)
	if err != nil {
		t.Fatal(err)
	}
	return &parsed
}

func TestResponseCurves(t *testing.T) {
	h := &Handle{model: testModel()}

	set, err := h.ResponseCurves(nil, 10, 0.8)
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Channels) != 2 {
		t.Fatalf("len(Channels) = %d, want 2", len(set.Channels))
	}
	if set.Interval != 0.8 {
		t.Errorf("Interval = %g, want 0.8", set.Interval)
	}
	if set.ModelVersion != 3 {
		t.Errorf("ModelVersion = %d, want 3", set.ModelVersion)
	}

	for _, curve := range set.Channels {
		if len(curve.Points) != 10 {
			t.Fatalf("%s: len(Points) = %d, want 10", curve.ID, len(curve.Points))
		}
		if curve.Points[0].Spend != 0 {
			t.Errorf("%s: first spend = %g, want 0", curve.ID, curve.Points[0].Spend)
		}
		for i, p := range curve.Points {
			if p.Lower > p.Mean || p.Mean > p.Upper {
				t.Errorf("%s point %d: bands out of order: lower=%g mean=%g upper=%g",
					curve.ID, i, p.Lower, p.Mean, p.Upper)
			}
			if i > 0 && p.Mean < curve.Points[i-1].Mean {
				t.Errorf("%s point %d: mean response decreased", curve.ID, i)
			}
		}
	}

	// Spend grid tops out at twice the baseline.
	last := set.Channels[0].Points[9].Spend
	if math.Abs(last-2000) > 1e-9 {
		t.Errorf("channel0 last spend = %g, want 2000", last)
	}
}

// TestResponseCurves_Deterministic verifies identical inputs produce
// identical artifacts, which is what makes them cacheable.
func TestResponseCurves_Deterministic(t *testing.T) {
	h := &Handle{model: testModel()}

	a, err := h.ResponseCurves([]string{"channel1"}, 25, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.ResponseCurves([]string{"channel1"}, 25, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("identical inputs produced different artifacts")
	}
}

func TestResponseCurves_Validation(t *testing.T) {
	h := &Handle{model: testModel()}

	if _, err := h.ResponseCurves([]string{"nope"}, 10, 0.8); !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("unknown channel: error = %v, want ErrUnknownChannel", err)
	}
	if _, err := h.ResponseCurves(nil, 1, 0.8); err == nil {
		t.Error("points=1: expected error")
	}
	if _, err := h.ResponseCurves(nil, 10, 0); err == nil {
		t.Error("interval=0: expected error")
	}
	if _, err := h.ResponseCurves(nil, 10, 1); err == nil {
		t.Error("interval=1: expected error")
	}
}

func TestResponseCurves_Subset(t *testing.T) {
	h := &Handle{model: testModel()}

	set, err := h.ResponseCurves([]string{"channel1"}, 10, 0.8)
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Channels) != 1 || set.Channels[0].ID != "channel1" {
		t.Errorf("got channels %+v, want only channel1", set.Channels)
	}
}

func TestContributions(t *testing.T) {
	h := &Handle{model: testModel()}

	series, err := h.Contributions(nil, nil, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	if len(series.Points) != 3 {
		t.Fatalf("len(Points) = %d, want 3", len(series.Points))
	}
	if series.Start != "2024-01-07" || series.End != "2024-01-21" {
		t.Errorf("bounds = %s..%s, want 2024-01-07..2024-01-21", series.Start, series.End)
	}

	for _, p := range series.Points {
		if len(p.Channels) != 2 {
			t.Fatalf("%s: len(Channels) = %d, want 2", p.Time, len(p.Channels))
		}
		var shareSum, meanSum float64
		for _, c := range p.Channels {
			shareSum += c.Share
			meanSum += c.Mean
		}
		if math.Abs(meanSum-p.TotalMean) > 1e-9 {
			t.Errorf("%s: channel means sum to %g, total %g", p.Time, meanSum, p.TotalMean)
		}
		if p.TotalMean > 0 && math.Abs(shareSum-1) > 1e-9 {
			t.Errorf("%s: shares sum to %g, want 1", p.Time, shareSum)
		}
	}
}

func TestContributions_Window(t *testing.T) {
	h := &Handle{model: testModel()}

	series, err := h.Contributions(date(t, "2024-01-14"), nil, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	if len(series.Points) != 2 {
		t.Fatalf("len(Points) = %d, want 2", len(series.Points))
	}
	if series.Start != "2024-01-14" {
		t.Errorf("Start = %s, want 2024-01-14", series.Start)
	}

	series, err = h.Contributions(date(t, "2024-01-07"), date(t, "2024-01-07"), 0.9)
	if err != nil {
		t.Fatal(err)
	}
	if len(series.Points) != 1 {
		t.Errorf("inclusive single-day window: len(Points) = %d, want 1", len(series.Points))
	}

	if _, err := h.Contributions(date(t, "2030-01-01"), nil, 0.9); !errors.Is(err, ErrNoData) {
		t.Errorf("empty window: error = %v, want ErrNoData", err)
	}
}

func TestQuantile(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		q    float64
		want float64
	}{
		{"median interpolates", []float64{4, 1, 3, 2}, 0.5, 2.5},
		{"zeroth is min", []float64{4, 1, 3, 2}, 0, 1},
		{"first is max", []float64{4, 1, 3, 2}, 1, 4},
		{"single sample", []float64{7}, 0.9, 7},
		{"quarter", []float64{1, 2, 3, 4, 5}, 0.25, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := quantile(tt.xs, tt.q); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("quantile(%v, %g) = %g, want %g", tt.xs, tt.q, got, tt.want)
			}
		})
	}
}

func TestHill(t *testing.T) {
	if got := hill(0, 0.5, 1.2, 100); got != 0 {
		t.Errorf("hill at zero spend = %g, want 0", got)
	}
	// Increasing in the multiplier.
	prev := 0.0
	for _, m := range []float64{0.5, 1, 1.5, 2} {
		v := hill(m, 0.5, 1.2, 100)
		if v <= prev {
			t.Errorf("hill(%g) = %g, not increasing past %g", m, v, prev)
		}
		prev = v
	}
	// Bounded by beta.
	if v := hill(1000, 0.5, 1.2, 100); v >= 100 {
		t.Errorf("hill far out = %g, want < beta", v)
	}
}
