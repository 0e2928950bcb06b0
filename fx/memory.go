package fx

import (
	"fmt"
	"sort"
)

// MemoryEffects is an Effects implementation that records every setting it
// receives. It executes no DSP; tests and dry-run tooling use it to inspect
// what a pass would configure.
type MemoryEffects struct {
	id        string
	destroyed bool

	EQ         map[int]EQBand
	Compressor *CompressorParams
	Reverb     *ReverbParams
	Gain       float64
	Pan        float64
	Bypassed   bool

	params map[string]float64
}

// NewMemoryEffects creates an empty recording chain at unity gain.
func NewMemoryEffects(id string) *MemoryEffects {
	return &MemoryEffects{
		id:     id,
		EQ:     make(map[int]EQBand),
		Gain:   1,
		params: make(map[string]float64),
	}
}

// ID returns the identifier the chain was created with.
func (m *MemoryEffects) ID() string { return m.id }

// SetEQBand records an EQ band setting.
func (m *MemoryEffects) SetEQBand(index int, band EQBand) error {
	if err := m.check(); err != nil {
		return err
	}

	if index < 0 {
		return fmt.Errorf("fx: eq band index must be non-negative, got %d", index)
	}

	m.EQ[index] = band

	return nil
}

// SetCompressor records a compressor configuration.
func (m *MemoryEffects) SetCompressor(params CompressorParams) error {
	if err := m.check(); err != nil {
		return err
	}

	m.Compressor = &params

	return nil
}

// SetReverb records a reverb configuration.
func (m *MemoryEffects) SetReverb(params ReverbParams) error {
	if err := m.check(); err != nil {
		return err
	}

	m.Reverb = &params

	return nil
}

// SetGain records the output gain.
func (m *MemoryEffects) SetGain(linear float64) error {
	if err := m.check(); err != nil {
		return err
	}

	if linear < 0 {
		return fmt.Errorf("fx: gain must be non-negative, got %v", linear)
	}

	m.Gain = linear

	return nil
}

// SetPan records the pan position.
func (m *MemoryEffects) SetPan(pan float64) error {
	if err := m.check(); err != nil {
		return err
	}

	if pan < -1 || pan > 1 {
		return fmt.Errorf("fx: pan must be in [-1, 1], got %v", pan)
	}

	m.Pan = pan

	return nil
}

// SetBypass records the bypass state.
func (m *MemoryEffects) SetBypass(bypass bool) error {
	if err := m.check(); err != nil {
		return err
	}

	m.Bypassed = bypass

	return nil
}

// Parameters returns a copy of the opaque parameter map.
func (m *MemoryEffects) Parameters() map[string]float64 {
	out := make(map[string]float64, len(m.params))
	for k, v := range m.params {
		out[k] = v
	}

	return out
}

// SetParameters merges the given values into the opaque parameter map.
func (m *MemoryEffects) SetParameters(params map[string]float64) error {
	if err := m.check(); err != nil {
		return err
	}

	for k, v := range params {
		m.params[k] = v
	}

	return nil
}

// ParameterKeys returns the sorted keys of the opaque parameter map.
func (m *MemoryEffects) ParameterKeys() []string {
	keys := make([]string, 0, len(m.params))
	for k := range m.params {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Destroy marks the chain as released; every later call fails.
func (m *MemoryEffects) Destroy() error {
	if m.destroyed {
		return fmt.Errorf("fx: effects %q already destroyed", m.id)
	}

	m.destroyed = true

	return nil
}

// Destroyed reports whether the chain has been released.
func (m *MemoryEffects) Destroyed() bool { return m.destroyed }

func (m *MemoryEffects) check() error {
	if m.destroyed {
		return fmt.Errorf("fx: effects %q used after destroy", m.id)
	}

	return nil
}

// MemoryGain is a recording GainSink.
type MemoryGain struct {
	Gain float64
}

// SetGain records the gain value.
func (g *MemoryGain) SetGain(linear float64) error {
	if linear < 0 {
		return fmt.Errorf("fx: master gain must be non-negative, got %v", linear)
	}

	g.Gain = linear

	return nil
}

// MemoryRack is a Rack backed by MemoryEffects chains.
type MemoryRack struct {
	Chains map[string]*MemoryEffects
	Master MemoryGain
}

// NewMemoryRack creates an empty rack with a unity master gain.
func NewMemoryRack() *MemoryRack {
	return &MemoryRack{
		Chains: make(map[string]*MemoryEffects),
		Master: MemoryGain{Gain: 1},
	}
}

// CreateEffects returns a fresh recording chain for the given id. A chain
// whose id was destroyed earlier is replaced; a live chain is not.
func (r *MemoryRack) CreateEffects(id string) (Effects, error) {
	if existing, ok := r.Chains[id]; ok && !existing.Destroyed() {
		return nil, fmt.Errorf("fx: effects %q already exist", id)
	}

	chain := NewMemoryEffects(id)
	r.Chains[id] = chain

	return chain, nil
}

// MasterGain returns the shared master-bus gain sink.
func (r *MemoryRack) MasterGain() GainSink { return &r.Master }
