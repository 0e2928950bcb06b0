package analyze

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	vecmath "github.com/cwbudde/algo-vecmath"

	"automix/audio"
)

const (
	// Peak picking over byte-normalized bins: a bin qualifies when it
	// exceeds this 8-bit magnitude and lies at least peakMinSpacing bins
	// after the previous accepted peak.
	peakThreshold  = 200
	peakMinSpacing = 10

	// Byte normalization maps magnitudes in [snapshotMinDB, snapshotMaxDB]
	// onto [0, 255]. The top of the scale sits at full scale so a strong
	// tone's main lobe never clips to 255 across several bins, which would
	// blur the argmax behind the dominant frequency.
	snapshotMinDB = -100.0
	snapshotMaxDB = 0.0
)

// SpectrumSource is a read-only snapshot source of byte-normalized
// frequency-domain magnitudes, one byte per bin.
type SpectrumSource interface {
	// FrequencyData returns the current magnitude per bin, 0-255.
	FrequencyData() []byte
	// BinCount returns the number of frequency bins.
	BinCount() int
	// SampleRate returns the sample rate in Hz of the analyzed signal.
	SampleRate() float64
}

// Snapshot is one frequency-domain measurement.
type Snapshot struct {
	Bins         []byte  // magnitude per bin, 0-255
	Peaks        []int   // bin indices of spectral peaks, ascending
	AverageLevel float64 // mean bin magnitude, 0-255
	DominantFreq float64 // frequency of the strongest bin, Hz
}

// FrequencySnapshot reads one snapshot from the source and derives peaks,
// average level, and the dominant frequency.
func (a *Analyzer) FrequencySnapshot(src SpectrumSource) (Snapshot, error) {
	if src == nil {
		return Snapshot{}, fmt.Errorf("analyze: spectrum source is nil")
	}

	bins := src.FrequencyData()
	if len(bins) == 0 {
		return Snapshot{}, fmt.Errorf("analyze: spectrum source returned no bins")
	}

	snap := Snapshot{Bins: bins}

	var (
		sum      int
		maxBin   int
		maxLevel byte
	)

	lastPeak := -peakMinSpacing

	for i, level := range bins {
		sum += int(level)

		if level > maxLevel {
			maxLevel = level
			maxBin = i
		}

		if level <= peakThreshold {
			continue
		}

		// Local maximum with minimum spacing from the previous peak.
		if i > 0 && bins[i-1] > level {
			continue
		}

		if i+1 < len(bins) && bins[i+1] > level {
			continue
		}

		if i-lastPeak >= peakMinSpacing {
			snap.Peaks = append(snap.Peaks, i)
			lastPeak = i
		}
	}

	snap.AverageLevel = float64(sum) / float64(len(bins))

	nyquist := src.SampleRate() / 2
	snap.DominantFreq = float64(maxBin) * nyquist / float64(len(bins))

	return snap, nil
}

// BufferSnapshot computes a frequency snapshot of the buffer's first
// channel using the analyzer's configured FFT size.
func (a *Analyzer) BufferSnapshot(buf *audio.Buffer) (Snapshot, error) {
	src, err := NewBufferSource(buf, a.fftSize)
	if err != nil {
		return Snapshot{}, err
	}

	return a.FrequencySnapshot(src)
}

// fftPlan is the part of an FFT plan the snapshot source needs.
type fftPlan interface {
	Forward(dst, src []complex128) error
}

// BufferSource adapts an audio buffer as a SpectrumSource by computing a
// windowed FFT magnitude spectrum of its first channel and normalizing the
// bins to bytes on a fixed dB scale. It is the offline counterpart of a
// live analyser handle and reuses its FFT plan across calls.
type BufferSource struct {
	plan       fftPlan
	fftSize    int
	sampleRate float64
	window     []float64
	windowGain float64
	in         []complex128
	out        []complex128
	bins       []byte
}

// NewBufferSource creates a buffer-backed spectrum source with the given
// FFT size (power of two).
func NewBufferSource(buf *audio.Buffer, fftSize int) (*BufferSource, error) {
	if buf == nil || buf.Length() == 0 {
		return nil, fmt.Errorf("analyze: buffer is empty")
	}

	if fftSize < 32 || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("analyze: fft size must be a power of two >= 32, got %d", fftSize)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("analyze: fft plan: %w", err)
	}

	s := &BufferSource{
		plan:       plan,
		fftSize:    fftSize,
		sampleRate: buf.SampleRate(),
		window:     hann(fftSize),
		in:         make([]complex128, fftSize),
		out:        make([]complex128, fftSize),
		bins:       make([]byte, fftSize/2),
	}

	var windowSum float64
	for _, w := range s.window {
		windowSum += w
	}

	s.windowGain = windowSum / float64(fftSize)

	s.update(buf.Channel(0))

	return s, nil
}

// Analyze replaces the source's snapshot with a spectrum of the given
// samples, reusing the FFT plan.
func (s *BufferSource) Analyze(samples []float64) {
	s.update(samples)
}

// FrequencyData returns the byte-normalized magnitude per bin.
func (s *BufferSource) FrequencyData() []byte { return s.bins }

// BinCount returns the number of frequency bins (fftSize/2).
func (s *BufferSource) BinCount() int { return len(s.bins) }

// SampleRate returns the sample rate of the analyzed signal.
func (s *BufferSource) SampleRate() float64 { return s.sampleRate }

func (s *BufferSource) update(samples []float64) {
	const eps = 1e-12

	// Window the first fftSize samples; zero-pad shorter input.
	for i := 0; i < s.fftSize; i++ {
		x := 0.0
		if i < len(samples) {
			x = samples[i] * s.window[i]
		}

		s.in[i] = complex(x, 0)
	}

	if err := s.plan.Forward(s.out, s.in); err != nil {
		for i := range s.bins {
			s.bins[i] = 0
		}

		return
	}

	norm := float64(s.fftSize) * math.Max(s.windowGain, eps)

	re := make([]float64, len(s.bins))
	im := make([]float64, len(s.bins))

	for k := range s.bins {
		re[k] = real(s.out[k])
		im[k] = imag(s.out[k])
	}

	mags := make([]float64, len(s.bins))
	vecmath.Magnitude(mags, re, im)

	for k, mag := range mags {
		mag /= norm
		if k > 0 {
			mag *= 2
		}

		db := 20 * math.Log10(math.Max(eps, mag))

		// Map [minDB, maxDB] onto [0, 255].
		scaled := 255 * (db - snapshotMinDB) / (snapshotMaxDB - snapshotMinDB)
		if scaled < 0 {
			scaled = 0
		}

		if scaled > 255 {
			scaled = 255
		}

		s.bins[k] = byte(scaled)
	}
}

func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n)))
	}

	return w
}
