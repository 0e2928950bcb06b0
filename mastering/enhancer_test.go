package mastering

import (
	"math"
	"testing"

	"automix/internal/testutil"
)

func TestStereoEnhancerValidation(t *testing.T) {
	if _, err := NewStereoEnhancer(0); err == nil {
		t.Fatal("zero rate: error = nil, want error")
	}

	if _, err := NewStereoEnhancer(testRate, WithWidth(3)); err == nil {
		t.Fatal("width above max: error = nil, want error")
	}

	if _, err := NewStereoEnhancer(testRate, WithBassMonoFreq(10)); err == nil {
		t.Fatal("bass mono below range: error = nil, want error")
	}
}

func TestStereoEnhancerWidthOnePassthrough(t *testing.T) {
	e, err := NewStereoEnhancer(testRate)
	if err != nil {
		t.Fatalf("NewStereoEnhancer() error = %v", err)
	}

	left := testutil.DeterministicSine(440, testRate, 0.7, 512)
	right := testutil.DeterministicNoise(5, 0.3, 512)

	wantL := append([]float64(nil), left...)
	wantR := append([]float64(nil), right...)

	if err := e.ProcessStereo(left, right); err != nil {
		t.Fatalf("ProcessStereo() error = %v", err)
	}

	testutil.RequireSliceNearlyEqual(t, left, wantL, 1e-12)
	testutil.RequireSliceNearlyEqual(t, right, wantR, 1e-12)
}

func TestStereoEnhancerWidthZeroDoublesMid(t *testing.T) {
	// At width 0 the side vanishes and the mid gain becomes 2, so both
	// outputs carry left+right.
	e, err := NewStereoEnhancer(testRate, WithWidth(0))
	if err != nil {
		t.Fatalf("NewStereoEnhancer() error = %v", err)
	}

	left := []float64{0.5, -0.2, 0.1}
	right := []float64{0.1, 0.4, -0.3}

	want := make([]float64, len(left))
	for i := range want {
		want[i] = left[i] + right[i]
	}

	if err := e.ProcessStereo(left, right); err != nil {
		t.Fatalf("ProcessStereo() error = %v", err)
	}

	testutil.RequireSliceNearlyEqual(t, left, want, 1e-12)
	testutil.RequireSliceNearlyEqual(t, right, want, 1e-12)
}

func TestStereoEnhancerWideningIncreasesSide(t *testing.T) {
	e, err := NewStereoEnhancer(testRate, WithWidth(1.5))
	if err != nil {
		t.Fatalf("NewStereoEnhancer() error = %v", err)
	}

	left := testutil.DeterministicNoise(1, 0.4, 4096)
	right := testutil.DeterministicNoise(2, 0.4, 4096)

	sideBefore := sideRMS(left, right)

	if err := e.ProcessStereo(left, right); err != nil {
		t.Fatalf("ProcessStereo() error = %v", err)
	}

	if sideAfter := sideRMS(left, right); sideAfter <= sideBefore {
		t.Fatalf("side RMS did not grow: before=%v after=%v", sideBefore, sideAfter)
	}
}

func TestStereoEnhancerBassMonoRemovesLowSide(t *testing.T) {
	e, err := NewStereoEnhancer(testRate, WithWidth(1), WithBassMonoFreq(500))
	if err != nil {
		t.Fatalf("NewStereoEnhancer() error = %v", err)
	}

	// A 50 Hz tone panned hard against itself is pure side signal.
	tone := testutil.DeterministicSine(50, testRate, 0.5, 48000)

	left := append([]float64(nil), tone...)

	right := make([]float64, len(tone))
	for i, x := range tone {
		right[i] = -x
	}

	if err := e.ProcessStereo(left, right); err != nil {
		t.Fatalf("ProcessStereo() error = %v", err)
	}

	// A tone a decade below the crossover leaves only residue in the side.
	steady := len(left) / 2
	if got := sideRMS(left[steady:], right[steady:]); got > 0.01 {
		t.Fatalf("low-frequency side RMS = %v, want near 0", got)
	}
}

func TestStereoEnhancerLengthMismatch(t *testing.T) {
	e, err := NewStereoEnhancer(testRate)
	if err != nil {
		t.Fatalf("NewStereoEnhancer() error = %v", err)
	}

	if err := e.ProcessStereo(make([]float64, 4), make([]float64, 5)); err == nil {
		t.Fatal("length mismatch: error = nil, want error")
	}
}

func TestStereoEnhancerSetters(t *testing.T) {
	e, err := NewStereoEnhancer(testRate)
	if err != nil {
		t.Fatalf("NewStereoEnhancer() error = %v", err)
	}

	if err := e.SetWidth(1.2); err != nil {
		t.Fatalf("SetWidth() error = %v", err)
	}

	if got := e.Width(); got != 1.2 {
		t.Fatalf("Width() = %v, want 1.2", got)
	}

	if err := e.SetBassMonoFreq(120); err != nil {
		t.Fatalf("SetBassMonoFreq() error = %v", err)
	}

	if got := e.BassMonoFreq(); got != 120 {
		t.Fatalf("BassMonoFreq() = %v, want 120", got)
	}

	if err := e.SetBassMonoFreq(0); err != nil {
		t.Fatalf("SetBassMonoFreq(0) error = %v", err)
	}

	if got := e.BassMonoFreq(); got != 0 {
		t.Fatalf("BassMonoFreq() = %v, want 0 (disabled)", got)
	}

	if err := e.SetBassMonoFreq(30000); err == nil {
		t.Fatal("bass mono above Nyquist: error = nil, want error")
	}
}

func sideRMS(left, right []float64) float64 {
	var sumSq float64
	for i := range left {
		s := (left[i] - right[i]) * 0.5
		sumSq += s * s
	}

	return math.Sqrt(sumSq / float64(len(left)))
}
