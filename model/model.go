package model

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
)

// Sentinel errors for model loading and analysis.
var (
	ErrModelNotFound  = errors.New("model: model file not found")
	ErrModelCorrupt   = errors.New("model: model file is corrupt")
	ErrUnknownChannel = errors.New("model: unknown channel")
	ErrNoChannels     = errors.New("model: no channels available")
	ErrNoData         = errors.New("model: no data in requested range")
)

// Channel identifies one media channel in the fitted model.
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Posterior holds the posterior draws the analyzer aggregates over.
//
// Response parameters are indexed [draw][channel]; contributions are
// indexed [draw][time][channel].
type Posterior struct {
	Saturation    [][]float64   `json:"saturation"`
	Slope         [][]float64   `json:"slope"`
	Beta          [][]float64   `json:"beta"`
	Contributions [][][]float64 `json:"contributions"`
}

// Model is the deserialized model artifact.
type Model struct {
	Version       int       `json:"version"`
	Channels      []Channel `json:"channels"`
	Times         []string  `json:"times"` // ISO dates, one per modeled week
	BaselineSpend []float64 `json:"baseline_spend"`
	Posterior     Posterior `json:"posterior"`
}

// timeLayout is the wire format for the model's weekly time index.
const timeLayout = "2006-01-02"

// Load reads and validates a model artifact from disk.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
		}
		return nil, fmt.Errorf("model: read %s: %w", path, err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelCorrupt, err)
	}

	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Model) validate() error {
	n := len(m.Channels)
	if n == 0 {
		return fmt.Errorf("%w: model declares zero channels", ErrModelCorrupt)
	}
	if len(m.BaselineSpend) != n {
		return fmt.Errorf("%w: baseline_spend length %d, want %d", ErrModelCorrupt, len(m.BaselineSpend), n)
	}
	if len(m.Posterior.Saturation) == 0 {
		return fmt.Errorf("%w: posterior has zero draws", ErrModelCorrupt)
	}
	draws := len(m.Posterior.Saturation)
	if len(m.Posterior.Slope) != draws || len(m.Posterior.Beta) != draws {
		return fmt.Errorf("%w: posterior draw counts disagree", ErrModelCorrupt)
	}
	for d := 0; d < draws; d++ {
		if len(m.Posterior.Saturation[d]) != n || len(m.Posterior.Slope[d]) != n || len(m.Posterior.Beta[d]) != n {
			return fmt.Errorf("%w: posterior draw %d channel count disagrees", ErrModelCorrupt, d)
		}
	}
	for _, t := range m.Times {
		if _, err := time.Parse(timeLayout, t); err != nil {
			return fmt.Errorf("%w: bad time %q", ErrModelCorrupt, t)
		}
	}
	for d := range m.Posterior.Contributions {
		if len(m.Posterior.Contributions[d]) != len(m.Times) {
			return fmt.Errorf("%w: contribution draw %d time count disagrees", ErrModelCorrupt, d)
		}
	}
	return nil
}

// channelIndex returns the position of the channel with the given ID,
// or -1 if the model does not know it.
func (m *Model) channelIndex(id string) int {
	for i, c := range m.Channels {
		if c.ID == id {
			return i
		}
	}
	return -1
}
