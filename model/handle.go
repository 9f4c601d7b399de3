package model

import (
	"context"
	"fmt"
	"sync"
)

// Handle wraps a loaded model. It is immutable after construction and
// safe for unsynchronized concurrent reads.
type Handle struct {
	model *Model
}

// Version returns the model artifact version.
func (h *Handle) Version() int {
	return h.model.Version
}

// Channels returns a copy of the model's channel list.
func (h *Handle) Channels() []Channel {
	out := make([]Channel, len(h.model.Channels))
	copy(out, h.model.Channels)
	return out
}

// HasChannel reports whether the model knows the channel with the given ID.
func (h *Handle) HasChannel(id string) bool {
	return h.model.channelIndex(id) >= 0
}

// ChannelIDs returns the IDs of all channels in model order.
func (h *Handle) ChannelIDs() []string {
	ids := make([]string, len(h.model.Channels))
	for i, c := range h.model.Channels {
		ids[i] = c.ID
	}
	return ids
}

// Provider performs lazy, at-most-once construction of the shared Handle.
//
// The first Get loads the model; concurrent callers block behind the same
// mutex until that load completes and then share the result. A failed load
// is never remembered: the next Get retries from scratch, since load
// failures are environmental (a deploy race, a missing volume) rather than
// permanent.
type Provider struct {
	path string

	mu     sync.Mutex
	handle *Handle

	// load is a seam for tests; defaults to Load.
	load func(path string) (*Model, error)
}

// NewProvider creates a provider for the model artifact at path.
// The model is not loaded until the first Get.
func NewProvider(path string) *Provider {
	return &Provider{path: path, load: Load}
}

// Get returns the shared Handle, loading the model on first use.
// Safe to call concurrently; all callers block until the in-progress
// load completes.
func (p *Provider) Get(ctx context.Context) (*Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle != nil {
		return p.handle, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m, err := p.load(p.path)
	if err != nil {
		return nil, fmt.Errorf("model: load handle: %w", err)
	}

	p.handle = &Handle{model: m}
	return p.handle, nil
}

// Loaded reports whether the handle has been constructed, without
// triggering a load.
func (p *Provider) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle != nil
}

// Path returns the model artifact path the provider loads from.
func (p *Provider) Path() string {
	return p.path
}
