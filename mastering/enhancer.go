package mastering

import (
	"fmt"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"

	"automix/dsp/filter/biquad"
	"automix/dsp/filter/design"
)

const (
	defaultEnhancerWidth = 1.0

	minEnhancerWidth = 0.0
	maxEnhancerWidth = 2.0

	minBassMonoFreq = 20.0
	maxBassMonoFreq = 500.0

	bassMonoFilterOrder = 2
)

// StereoEnhancer adjusts the width of a stereo master using mid/side
// processing. The left/right pair is encoded into mid (sum) and side
// (difference); the mid is scaled by 2-width and the side by width, so a
// width of 1 leaves the signal unchanged, values below 1 narrow it toward
// mono, and values above 1 widen it.
//
// An optional bass-mono high-pass on the side signal removes stereo content
// below the crossover, keeping the low end coherent when widening.
type StereoEnhancer struct {
	sampleRate   float64
	width        float64
	bassMonoFreq float64

	sideHP *biquad.Chain // nil when bass mono is disabled

	mid  []float64
	side []float64
}

// EnhancerOption configures a StereoEnhancer.
type EnhancerOption func(*StereoEnhancer) error

// WithWidth sets the stereo width factor. 0 = mono, 1 = unchanged,
// up to 2 = widened.
func WithWidth(width float64) EnhancerOption {
	return func(e *StereoEnhancer) error {
		return e.SetWidth(width)
	}
}

// WithBassMonoFreq enables the bass-mono high-pass on the side signal at
// the given crossover in Hz. 0 disables it (default). Valid range when
// enabled: [20, 500] Hz.
func WithBassMonoFreq(freq float64) EnhancerOption {
	return func(e *StereoEnhancer) error {
		return e.SetBassMonoFreq(freq)
	}
}

// NewStereoEnhancer creates an enhancer at the given sample rate.
func NewStereoEnhancer(sampleRate float64, opts ...EnhancerOption) (*StereoEnhancer, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("mastering: enhancer sample rate must be > 0 and finite: %f", sampleRate)
	}

	e := &StereoEnhancer{
		sampleRate: sampleRate,
		width:      defaultEnhancerWidth,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// ProcessStereo applies the width adjustment to paired left/right buffers
// in place. Both buffers must have the same length.
func (e *StereoEnhancer) ProcessStereo(left, right []float64) error {
	if len(left) != len(right) {
		return fmt.Errorf("mastering: enhancer buffers must have equal length: %d != %d",
			len(left), len(right))
	}

	n := len(left)
	if n == 0 {
		return nil
	}

	if cap(e.mid) < n {
		e.mid = make([]float64, n)
		e.side = make([]float64, n)
	}

	mid := e.mid[:n]
	side := e.side[:n]

	for i := 0; i < n; i++ {
		mid[i] = (left[i] + right[i]) * 0.5
		side[i] = (left[i] - right[i]) * 0.5
	}

	if e.sideHP != nil {
		e.sideHP.ProcessBlock(side)
	}

	vecmath.ScaleBlock(mid, mid, 2-e.width)
	vecmath.ScaleBlock(side, side, e.width)

	copy(left, mid)
	vecmath.AddBlockInPlace(left, side)

	copy(right, mid)
	vecmath.ScaleBlock(side, side, -1)
	vecmath.AddBlockInPlace(right, side)

	return nil
}

// Reset clears the side filter state.
func (e *StereoEnhancer) Reset() {
	if e.sideHP != nil {
		e.sideHP.Reset()
	}
}

// Width returns the current width factor.
func (e *StereoEnhancer) Width() float64 { return e.width }

// BassMonoFreq returns the bass-mono crossover in Hz, 0 when disabled.
func (e *StereoEnhancer) BassMonoFreq() float64 { return e.bassMonoFreq }

// SetWidth sets the width factor. 0 = mono, 1 = unchanged, up to 2.
func (e *StereoEnhancer) SetWidth(width float64) error {
	if width < minEnhancerWidth || width > maxEnhancerWidth ||
		math.IsNaN(width) || math.IsInf(width, 0) {
		return fmt.Errorf("mastering: enhancer width must be in [%g, %g]: %f",
			minEnhancerWidth, maxEnhancerWidth, width)
	}

	e.width = width

	return nil
}

// SetBassMonoFreq sets the bass-mono crossover. 0 disables it.
func (e *StereoEnhancer) SetBassMonoFreq(freq float64) error {
	if freq == 0 {
		e.bassMonoFreq = 0
		e.sideHP = nil

		return nil
	}

	if freq < minBassMonoFreq || freq > maxBassMonoFreq ||
		math.IsNaN(freq) || math.IsInf(freq, 0) {
		return fmt.Errorf("mastering: bass mono freq must be 0 (disabled) or in [%g, %g]: %f",
			minBassMonoFreq, maxBassMonoFreq, freq)
	}

	if freq >= e.sampleRate*0.5 {
		return fmt.Errorf("mastering: bass mono freq must be below Nyquist (%g): %f",
			e.sampleRate*0.5, freq)
	}

	coeffs := design.ButterworthHP(freq, bassMonoFilterOrder, e.sampleRate)
	if len(coeffs) == 0 {
		return fmt.Errorf("mastering: bass mono filter design failed for freq=%g sr=%g",
			freq, e.sampleRate)
	}

	e.bassMonoFreq = freq
	e.sideHP = biquad.NewChain(coeffs)

	return nil
}
