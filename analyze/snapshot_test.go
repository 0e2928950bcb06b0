package analyze

import (
	"math"
	"testing"

	"automix/internal/testutil"
)

// stubSource feeds handcrafted bins to the snapshot logic.
type stubSource struct {
	bins []byte
	rate float64
}

func (s *stubSource) FrequencyData() []byte { return s.bins }
func (s *stubSource) BinCount() int         { return len(s.bins) }
func (s *stubSource) SampleRate() float64   { return s.rate }

func TestFrequencySnapshotNilSource(t *testing.T) {
	a := New()

	if _, err := a.FrequencySnapshot(nil); err == nil {
		t.Fatal("FrequencySnapshot(nil) error = nil, want error")
	}
}

func TestFrequencySnapshotEmptyBins(t *testing.T) {
	a := New()

	if _, err := a.FrequencySnapshot(&stubSource{rate: testRate}); err == nil {
		t.Fatal("empty bins: error = nil, want error")
	}
}

func TestFrequencySnapshotPeakPicking(t *testing.T) {
	bins := make([]byte, 512)
	bins[100] = 250
	bins[105] = 240 // too close to the peak at 100
	bins[200] = 220
	bins[300] = 180 // below the peak threshold

	a := New()

	snap, err := a.FrequencySnapshot(&stubSource{bins: bins, rate: testRate})
	if err != nil {
		t.Fatalf("FrequencySnapshot() error = %v", err)
	}

	if len(snap.Peaks) != 2 || snap.Peaks[0] != 100 || snap.Peaks[1] != 200 {
		t.Fatalf("Peaks = %v, want [100 200]", snap.Peaks)
	}

	// Strongest bin at index 100 of 512 bins spanning the 24 kHz Nyquist.
	wantFreq := 100.0 * (testRate / 2) / 512
	testutil.RequireNear(t, snap.DominantFreq, wantFreq, 1e-9)

	wantAvg := float64(250+240+220+180) / 512
	testutil.RequireNear(t, snap.AverageLevel, wantAvg, 1e-9)
}

func TestFrequencySnapshotPlateauIsSinglePeak(t *testing.T) {
	bins := make([]byte, 128)
	bins[50] = 230
	bins[51] = 230

	a := New()

	snap, err := a.FrequencySnapshot(&stubSource{bins: bins, rate: testRate})
	if err != nil {
		t.Fatalf("FrequencySnapshot() error = %v", err)
	}

	if len(snap.Peaks) != 1 {
		t.Fatalf("Peaks = %v, want a single plateau peak", snap.Peaks)
	}
}

func TestBufferSourceValidation(t *testing.T) {
	buf := monoBuffer(t, testutil.DeterministicSine(440, testRate, 0.5, 4096))

	if _, err := NewBufferSource(nil, 2048); err == nil {
		t.Fatal("nil buffer: error = nil, want error")
	}

	if _, err := NewBufferSource(buf, 100); err == nil {
		t.Fatal("non-power-of-two size: error = nil, want error")
	}

	if _, err := NewBufferSource(buf, 16); err == nil {
		t.Fatal("too small size: error = nil, want error")
	}
}

func TestBufferSourceDominantFrequency(t *testing.T) {
	tests := []float64{250, 1000, 4000, 10000}

	for _, freq := range tests {
		buf := monoBuffer(t, testutil.DeterministicSine(freq, testRate, 0.8, 8192))

		src, err := NewBufferSource(buf, 2048)
		if err != nil {
			t.Fatalf("NewBufferSource() error = %v", err)
		}

		a := New()

		snap, err := a.FrequencySnapshot(src)
		if err != nil {
			t.Fatalf("FrequencySnapshot() error = %v", err)
		}

		// One FFT bin spans 23.4 Hz at this size and rate.
		binWidth := (testRate / 2) / float64(src.BinCount())
		if math.Abs(snap.DominantFreq-freq) > binWidth {
			t.Fatalf("%v Hz: DominantFreq = %v, want within %v", freq, snap.DominantFreq, binWidth)
		}

		if len(snap.Peaks) == 0 {
			t.Fatalf("%v Hz: no spectral peaks found", freq)
		}
	}
}

func TestBufferSourceStrongToneDoesNotSaturate(t *testing.T) {
	// A full-scale tone must not clamp its whole main lobe to 255; a
	// saturated run would drag the argmax toward its lowest bin.
	buf := monoBuffer(t, testutil.DeterministicSine(250, testRate, 1.0, 8192))

	src, err := NewBufferSource(buf, 2048)
	if err != nil {
		t.Fatalf("NewBufferSource() error = %v", err)
	}

	a := New()

	snap, err := a.FrequencySnapshot(src)
	if err != nil {
		t.Fatalf("FrequencySnapshot() error = %v", err)
	}

	saturated := 0
	for _, b := range snap.Bins {
		if b == 255 {
			saturated++
		}
	}

	if saturated > 1 {
		t.Fatalf("%d bins saturated at 255, want at most 1", saturated)
	}

	binWidth := (testRate / 2) / float64(src.BinCount())
	if math.Abs(snap.DominantFreq-250) > binWidth {
		t.Fatalf("DominantFreq = %v, want within %v of 250", snap.DominantFreq, binWidth)
	}
}

func TestBufferSourceAnalyzeReplacesSnapshot(t *testing.T) {
	low := testutil.DeterministicSine(500, testRate, 0.8, 4096)
	high := testutil.DeterministicSine(8000, testRate, 0.8, 4096)

	src, err := NewBufferSource(monoBuffer(t, low), 2048)
	if err != nil {
		t.Fatalf("NewBufferSource() error = %v", err)
	}

	a := New()

	before, err := a.FrequencySnapshot(src)
	if err != nil {
		t.Fatalf("FrequencySnapshot() error = %v", err)
	}

	src.Analyze(high)

	after, err := a.FrequencySnapshot(src)
	if err != nil {
		t.Fatalf("FrequencySnapshot() error = %v", err)
	}

	if after.DominantFreq <= before.DominantFreq {
		t.Fatalf("DominantFreq did not move up: before=%v after=%v",
			before.DominantFreq, after.DominantFreq)
	}
}

func TestBufferSnapshotUsesConfiguredFFTSize(t *testing.T) {
	a := New(WithFFTSize(512))
	buf := monoBuffer(t, testutil.DeterministicSine(1000, testRate, 0.8, 4096))

	snap, err := a.BufferSnapshot(buf)
	if err != nil {
		t.Fatalf("BufferSnapshot() error = %v", err)
	}

	if len(snap.Bins) != 256 {
		t.Fatalf("got %d bins, want 256", len(snap.Bins))
	}
}

func TestBufferSourceSilenceHasNoPeaks(t *testing.T) {
	src, err := NewBufferSource(monoBuffer(t, testutil.Silence(4096)), 2048)
	if err != nil {
		t.Fatalf("NewBufferSource() error = %v", err)
	}

	a := New()

	snap, err := a.FrequencySnapshot(src)
	if err != nil {
		t.Fatalf("FrequencySnapshot() error = %v", err)
	}

	if len(snap.Peaks) != 0 {
		t.Fatalf("Peaks = %v, want none", snap.Peaks)
	}
}
