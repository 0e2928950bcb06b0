// Package analyze provides the measurement primitives the automatic mixer
// and the mastering chain base their decisions on: loudness, dynamics,
// clipping, stereo image, and frequency-domain snapshots.
//
// All operations are pure functions over already-captured audio; the only
// state an Analyzer carries is a reusable FFT plan for spectral snapshots.
package analyze

import (
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"

	"automix/audio"
	"automix/dsp/core"
)

const (
	defaultClipThreshold = 0.99
	defaultFFTSize       = 2048

	// rmsEpsilon is the energy floor below which a signal is treated as
	// silent and ratio-based measurements collapse to their documented
	// fallback values instead of dividing by near-zero.
	rmsEpsilon = 1e-12
)

// Analyzer computes scalar and array features from audio buffers and
// spectral snapshots.
type Analyzer struct {
	clipThreshold float64
	fftSize       int
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithClipThreshold sets the absolute sample level at or above which a
// sample counts as clipped. Default 0.99.
func WithClipThreshold(threshold float64) Option {
	return func(a *Analyzer) {
		if threshold > 0 && threshold <= 1 {
			a.clipThreshold = threshold
		}
	}
}

// WithFFTSize sets the FFT size used by buffer-backed spectral snapshots.
// Must be a power of two. Default 2048.
func WithFFTSize(size int) Option {
	return func(a *Analyzer) {
		if size >= 32 && size&(size-1) == 0 {
			a.fftSize = size
		}
	}
}

// New creates an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		clipThreshold: defaultClipThreshold,
		fftSize:       defaultFFTSize,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	return a
}

// Dynamics holds peak/RMS level measurements of a buffer.
//
// DynamicRange and CrestFactor are guarded: for silent input (RMS below the
// internal energy floor) both report 0 rather than a non-finite ratio.
type Dynamics struct {
	Peak         float64 // max absolute sample across all channels, linear
	RMS          float64 // root mean square across all channels, linear
	DynamicRange float64 // 20*log10(peak/rms) in dB, 0 for silence
	CrestFactor  float64 // peak/rms linear ratio, 0 for silence
}

// Dynamics measures peak, RMS, dynamic range, and crest factor across all
// channels of the buffer.
func (a *Analyzer) Dynamics(buf *audio.Buffer) Dynamics {
	if buf == nil || buf.Length() == 0 {
		return Dynamics{}
	}

	var (
		peak  float64
		sumSq float64
		total int
	)

	for ch := 0; ch < buf.NumChannels(); ch++ {
		for _, x := range buf.Channel(ch) {
			ax := math.Abs(x)
			if ax > peak {
				peak = ax
			}

			sumSq += x * x
		}

		total += buf.Length()
	}

	rms := math.Sqrt(sumSq / float64(total))

	d := Dynamics{Peak: peak, RMS: rms}
	if rms <= rmsEpsilon {
		return d
	}

	d.CrestFactor = peak / rms

	dr := 20 * math.Log10(peak/rms)
	if core.IsFinite(dr) {
		d.DynamicRange = dr
	}

	return d
}

// ClippingReport describes how much of a buffer sits at or above the
// clipping threshold.
type ClippingReport struct {
	HasClipping        bool
	ClippedSamples     int
	ClippingPercentage float64 // percent of all sample-channels
}

// Clipping counts samples whose absolute value reaches the configured
// clipping threshold, across all channels.
func (a *Analyzer) Clipping(buf *audio.Buffer) ClippingReport {
	if buf == nil || buf.Length() == 0 {
		return ClippingReport{}
	}

	var clipped, total int

	for ch := 0; ch < buf.NumChannels(); ch++ {
		for _, x := range buf.Channel(ch) {
			if math.Abs(x) >= a.clipThreshold {
				clipped++
			}
		}

		total += buf.Length()
	}

	return ClippingReport{
		HasClipping:        clipped > 0,
		ClippedSamples:     clipped,
		ClippingPercentage: 100 * float64(clipped) / float64(total),
	}
}

// StereoImage describes the spatial relationship of a stereo pair.
type StereoImage struct {
	Correlation float64 // [-1, 1]; 1 = identical channels, 0 for silence
	Balance     float64 // [-1, 1]; negative = left-heavy
	Width       float64 // [0, 1]; 1 - |correlation|, clamped
}

// StereoImage measures correlation, energy balance, and width of a stereo
// pair. Both slices must have the same length; the shorter prefix is used
// otherwise. Silent channels yield zero correlation and balance.
func (a *Analyzer) StereoImage(left, right []float64) StereoImage {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}

	if n == 0 {
		return StereoImage{}
	}

	left = left[:n]
	right = right[:n]

	prod := make([]float64, n)

	vecmath.MulBlock(prod, left, right)
	sumLR := sum(prod)

	vecmath.MulBlock(prod, left, left)
	sumLL := sum(prod)

	vecmath.MulBlock(prod, right, right)
	sumRR := sum(prod)

	img := StereoImage{Width: 1}

	if sumLL+sumRR > rmsEpsilon {
		img.Balance = (sumRR - sumLL) / (sumRR + sumLL)
	}

	if sumLL > rmsEpsilon && sumRR > rmsEpsilon {
		img.Correlation = core.Clamp(sumLR/math.Sqrt(sumLL*sumRR), -1, 1)
		img.Width = core.Clamp(1-math.Abs(img.Correlation), 0, 1)
	}

	return img
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}

	return s
}
