// Package crossover implements Linkwitz-Riley crossover networks used to
// split a signal into adjacent frequency bands for multiband processing.
package crossover

import (
	"fmt"
	"math"

	"automix/dsp/filter/biquad"
	"automix/dsp/filter/design"
)

// Crossover is a two-way Linkwitz-Riley crossover network that splits
// an input signal into complementary lowpass and highpass outputs.
//
// Polarity correction for orders ≡ 2 mod 4 (LR2, LR6, …) is handled
// automatically so that LP + HP sums to allpass for all even orders.
type Crossover struct {
	lp    *biquad.Chain
	hp    *biquad.Chain
	freq  float64
	order int
	sr    float64
}

// New creates a two-way Linkwitz-Riley crossover at the given frequency
// and order. The order must be a positive even integer (2, 4, 6, 8, …).
func New(freq float64, order int, sampleRate float64) (*Crossover, error) {
	if order <= 0 || order%2 != 0 {
		return nil, fmt.Errorf("crossover: order must be a positive even integer, got %d", order)
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("crossover: sample rate must be positive, got %v", sampleRate)
	}

	if freq <= 0 || freq >= sampleRate/2 {
		return nil, fmt.Errorf("crossover: frequency must be in (0, %v), got %v", sampleRate/2, freq)
	}

	lpCoeffs := design.LinkwitzRileyLP(freq, order, sampleRate)

	var hpCoeffs []biquad.Coefficients
	if design.LinkwitzRileyNeedsHPInvert(order) {
		hpCoeffs = design.LinkwitzRileyHPInverted(freq, order, sampleRate)
	} else {
		hpCoeffs = design.LinkwitzRileyHP(freq, order, sampleRate)
	}

	if lpCoeffs == nil || hpCoeffs == nil {
		return nil, fmt.Errorf("crossover: failed to design LR%d at %.1f Hz", order, freq)
	}

	return &Crossover{
		lp:    biquad.NewChain(lpCoeffs),
		hp:    biquad.NewChain(hpCoeffs),
		freq:  freq,
		order: order,
		sr:    sampleRate,
	}, nil
}

// ProcessSample filters one input sample and returns the lowpass and
// highpass outputs.
func (c *Crossover) ProcessSample(x float64) (lo, hi float64) {
	return c.lp.ProcessSample(x), c.hp.ProcessSample(x)
}

// ProcessBlock filters a block of input samples, writing the lowpass
// output to lo and the highpass output to hi. All three slices must
// have the same length.
func (c *Crossover) ProcessBlock(input, lo, hi []float64) {
	n := len(input)
	if n == 0 {
		return
	}

	_ = lo[n-1]
	_ = hi[n-1]
	copy(lo, input)
	copy(hi, input)
	c.lp.ProcessBlock(lo)
	c.hp.ProcessBlock(hi)
}

// Freq returns the crossover frequency in Hz.
func (c *Crossover) Freq() float64 { return c.freq }

// Order returns the Linkwitz-Riley order (always even).
func (c *Crossover) Order() int { return c.order }

// Reset clears the internal filter states of both LP and HP chains.
func (c *Crossover) Reset() {
	c.lp.Reset()
	c.hp.Reset()
}

// MultiBand is a multi-way crossover network built from cascaded two-way
// Linkwitz-Riley crossovers. For N crossover frequencies it splits an
// input signal into N+1 bands, ordered from lowest to highest. Each
// stage's highpass output feeds the next stage's input.
type MultiBand struct {
	stages []*Crossover
	bands  int
}

// NewMultiBand creates a multi-way crossover from the given crossover
// frequencies and order. Frequencies must be strictly ascending and all
// within (0, sampleRate/2).
func NewMultiBand(freqs []float64, order int, sampleRate float64) (*MultiBand, error) {
	if len(freqs) == 0 {
		return nil, fmt.Errorf("crossover: at least one frequency is required")
	}

	for i := 1; i < len(freqs); i++ {
		if freqs[i] <= freqs[i-1] {
			return nil, fmt.Errorf("crossover: frequencies must be strictly ascending, got %.1f after %.1f",
				freqs[i], freqs[i-1])
		}
	}

	stages := make([]*Crossover, len(freqs))

	for i, f := range freqs {
		xo, err := New(f, order, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("crossover: stage %d: %w", i, err)
		}

		stages[i] = xo
	}

	return &MultiBand{stages: stages, bands: len(freqs) + 1}, nil
}

// NumBands returns the number of output bands.
func (m *MultiBand) NumBands() int { return m.bands }

// ProcessBlock filters a block of input samples and returns per-band
// output blocks, each the same length as input.
func (m *MultiBand) ProcessBlock(input []float64) [][]float64 {
	n := len(input)

	out := make([][]float64, m.bands)
	for i := range out {
		out[i] = make([]float64, n)
	}

	remainder := make([]float64, n)
	copy(remainder, input)

	hi := make([]float64, n)
	for i, stage := range m.stages {
		stage.ProcessBlock(remainder, out[i], hi)
		copy(remainder, hi)
	}

	copy(out[m.bands-1], remainder)

	return out
}

// BandRMS splits the input and returns the RMS level of each band.
// This is the measurement path the mastering multiband stage uses to
// choose per-band compressor settings.
func (m *MultiBand) BandRMS(input []float64) []float64 {
	bands := m.ProcessBlock(input)

	out := make([]float64, len(bands))
	if len(input) == 0 {
		return out
	}

	for i, band := range bands {
		var sumSq float64
		for _, x := range band {
			sumSq += x * x
		}

		out[i] = math.Sqrt(sumSq / float64(len(band)))
	}

	return out
}

// Reset clears all internal filter states.
func (m *MultiBand) Reset() {
	for _, s := range m.stages {
		s.Reset()
	}
}
