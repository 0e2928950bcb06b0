// Package fx defines the contracts of the external effects collaborators
// the mixing and mastering cores drive. The cores only call setters; the
// filtering DSP itself is executed by the implementations behind these
// interfaces.
package fx

import "fmt"

// BandType identifies the shape of an EQ band.
type BandType int

const (
	BandPeak BandType = iota
	BandLowShelf
	BandHighShelf
	BandHighPass
	BandLowPass
)

// String returns the band type name.
func (t BandType) String() string {
	switch t {
	case BandPeak:
		return "peak"
	case BandLowShelf:
		return "lowshelf"
	case BandHighShelf:
		return "highshelf"
	case BandHighPass:
		return "highpass"
	case BandLowPass:
		return "lowpass"
	default:
		return fmt.Sprintf("band(%d)", int(t))
	}
}

// EQBand describes one equalizer band setting.
type EQBand struct {
	Type   BandType
	FreqHz float64
	GainDB float64 // ignored for pass bands
	Q      float64 // 0 selects the implementation default
}

// CompressorParams describes a dynamics processor configuration.
type CompressorParams struct {
	ThresholdDB float64
	Ratio       float64
	AttackMs    float64
	ReleaseMs   float64
	KneeDB      float64
}

// ReverbType identifies a reverb algorithm family.
type ReverbType int

const (
	ReverbRoom ReverbType = iota
	ReverbPlate
	ReverbHall
)

// String returns the reverb type name.
func (t ReverbType) String() string {
	switch t {
	case ReverbRoom:
		return "room"
	case ReverbPlate:
		return "plate"
	case ReverbHall:
		return "hall"
	default:
		return fmt.Sprintf("reverb(%d)", int(t))
	}
}

// ReverbParams describes a spatial effect configuration. A Mix of 0
// disables the reverb entirely.
type ReverbParams struct {
	Type  ReverbType
	Mix   float64 // wet fraction, 0-1
	Decay float64 // decay time in seconds
}

// Effects is one insert chain (per track or on the master bus). The core
// never reads DSP state back through this interface; measurement happens
// through the analyzer's independent path.
type Effects interface {
	SetEQBand(index int, band EQBand) error
	SetCompressor(params CompressorParams) error
	SetReverb(params ReverbParams) error
	SetGain(linear float64) error
	SetPan(pan float64) error // -1 (left) .. +1 (right)
	SetBypass(bypass bool) error

	// Parameters and SetParameters expose an opaque key/value view for
	// settings outside the typed setters (e.g. multiband band configs).
	Parameters() map[string]float64
	SetParameters(params map[string]float64) error

	Destroy() error
}

// GainSink is a shared amplitude-control resource, such as the master-bus
// gain node both the mixer's loudness stage and the mastering chain's
// makeup stage write to.
type GainSink interface {
	SetGain(linear float64) error
}

// Rack creates and owns effect chains. The mixer requests one chain per
// track; the mastering chain requests a master insert.
type Rack interface {
	CreateEffects(id string) (Effects, error)
	MasterGain() GainSink
}
