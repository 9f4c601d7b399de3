package model

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
)

func testModel() *Model {
	return &Model{
		Version: 3,
		Channels: []Channel{
			{ID: "channel0", Name: "Channel0"},
			{ID: "channel1", Name: "Channel1"},
		},
		Times:         []string{"2024-01-07", "2024-01-14", "2024-01-21"},
		BaselineSpend: []float64{1000, 2000},
		Posterior: Posterior{
			Saturation: [][]float64{{0.5, 0.7}, {0.6, 0.8}, {0.4, 0.6}},
			Slope:      [][]float64{{1.2, 1.0}, {1.1, 0.9}, {1.3, 1.1}},
			Beta:       [][]float64{{100, 200}, {110, 190}, {90, 210}},
			Contributions: [][][]float64{
				{{10, 20}, {12, 22}, {14, 24}},
				{{11, 19}, {13, 21}, {15, 23}},
				{{9, 21}, {11, 23}, {13, 25}},
			},
		},
	}
}

func writeModel(t *testing.T, m *Model) string {
	t.Helper()
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeModel(t, testModel())
	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.Version != 3 {
		t.Errorf("Version = %d, want 3", m.Version)
	}
	if len(m.Channels) != 2 {
		t.Errorf("len(Channels) = %d, want 2", len(m.Channels))
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("error = %v, want ErrModelNotFound", err)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *Model)
	}{
		{"zero channels", func(m *Model) { m.Channels = nil }},
		{"baseline length mismatch", func(m *Model) { m.BaselineSpend = []float64{1} }},
		{"zero posterior draws", func(m *Model) { m.Posterior.Saturation = nil }},
		{"draw counts disagree", func(m *Model) { m.Posterior.Slope = m.Posterior.Slope[:1] }},
		{"draw channel count disagrees", func(m *Model) { m.Posterior.Beta[0] = []float64{1} }},
		{"bad time", func(m *Model) { m.Times[0] = "Jan 7 2024" }},
		{"contribution time count disagrees", func(m *Model) {
			m.Posterior.Contributions[0] = m.Posterior.Contributions[0][:1]
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testModel()
			tt.mutate(m)
			_, err := Load(writeModel(t, m))
			if !errors.Is(err, ErrModelCorrupt) {
				t.Errorf("error = %v, want ErrModelCorrupt", err)
			}
		})
	}
}

func TestLoad_NotJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrModelCorrupt) {
		t.Errorf("error = %v, want ErrModelCorrupt", err)
	}
}
