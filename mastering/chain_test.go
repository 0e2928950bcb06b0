package mastering

import (
	"context"
	"strings"
	"testing"

	"automix/audio"
	"automix/dsp/core"
	"automix/fx"
	"automix/internal/testutil"
)

func stereoBuffer(t *testing.T, left, right []float64) *audio.Buffer {
	t.Helper()

	buf, err := audio.Stereo(testRate, left, right)
	if err != nil {
		t.Fatalf("audio.Stereo() error = %v", err)
	}

	return buf
}

func findChainAdjustment(rep *Report, stage, parameter string) (Adjustment, bool) {
	for _, adj := range rep.Adjustments {
		if adj.Stage == stage && adj.Parameter == parameter {
			return adj, true
		}
	}

	return Adjustment{}, false
}

func TestNewChainValidation(t *testing.T) {
	if _, err := NewChain(nil); err == nil {
		t.Fatal("nil rack: error = nil, want error")
	}

	rack := fx.NewMemoryRack()

	if _, err := NewChain(rack, WithPlatform(PlatformCustom)); err == nil {
		t.Fatal("custom platform without target: error = nil, want error")
	}

	if _, err := NewChain(rack, WithTargetLUFS(5)); err == nil {
		t.Fatal("positive target: error = nil, want error")
	}

	if _, err := NewChain(rack, WithChainLogger(nil)); err == nil {
		t.Fatal("nil logger: error = nil, want error")
	}
}

func TestNewChainDefaultsToSpotify(t *testing.T) {
	chain, err := NewChain(fx.NewMemoryRack())
	if err != nil {
		t.Fatalf("NewChain() error = %v", err)
	}

	if got := chain.Platform(); got != PlatformSpotify {
		t.Fatalf("Platform() = %v, want spotify", got)
	}

	if got := chain.TargetLUFS(); got != -14 {
		t.Fatalf("TargetLUFS() = %v, want -14", got)
	}
}

func TestNewChainCustomTarget(t *testing.T) {
	chain, err := NewChain(fx.NewMemoryRack(), WithTargetLUFS(-11.5))
	if err != nil {
		t.Fatalf("NewChain() error = %v", err)
	}

	if got := chain.Platform(); got != PlatformCustom {
		t.Fatalf("Platform() = %v, want custom", got)
	}

	if got := chain.TargetLUFS(); got != -11.5 {
		t.Fatalf("TargetLUFS() = %v, want -11.5", got)
	}
}

func TestMasterEmptyBuffer(t *testing.T) {
	chain, err := NewChain(fx.NewMemoryRack())
	if err != nil {
		t.Fatalf("NewChain() error = %v", err)
	}

	if _, err := chain.Master(context.Background(), nil); err == nil {
		t.Fatal("Master(nil) error = nil, want error")
	}
}

func TestMasterQuietNarrowMaster(t *testing.T) {
	rack := fx.NewMemoryRack()

	chain, err := NewChain(rack)
	if err != nil {
		t.Fatalf("NewChain() error = %v", err)
	}

	// Identical quiet channels: far below target, zero width, flat dynamics.
	tone := testutil.DeterministicSine(220, testRate, 0.02, 96000)
	buf := stereoBuffer(t, append([]float64(nil), tone...), append([]float64(nil), tone...))

	rep, err := chain.Master(context.Background(), buf)
	if err != nil {
		t.Fatalf("Master() error = %v", err)
	}

	if rep.PassID == "" {
		t.Fatal("PassID is empty")
	}

	if rep.Metrics.InputLUFS >= -20 {
		t.Fatalf("InputLUFS = %v, want below -20", rep.Metrics.InputLUFS)
	}

	insert := rack.Chains["master"]
	if insert == nil {
		t.Fatal("no master insert chain")
	}

	// Baseline smile, two brightness bands, and a presence band.
	if len(insert.EQ) != 5 {
		t.Fatalf("EQ bands = %d, want 5", len(insert.EQ))
	}

	// Zero width triggers widening with a bass-mono floor.
	widthAdj, ok := findChainAdjustment(rep, "stereo", "width")
	if !ok || widthAdj.Value != 1.2 {
		t.Fatalf("width adjustment = %+v, want value 1.2", widthAdj)
	}

	// Makeup toward -14 LUFS is capped at +12 dB.
	gainAdj, ok := findChainAdjustment(rep, "loudness", "gain_db")
	if !ok || gainAdj.Value != 12 {
		t.Fatalf("makeup adjustment = %+v, want value 12", gainAdj)
	}

	testutil.RequireNear(t, rack.Master.Gain, core.DBToLinear(12), 1e-12)
	testutil.RequireNear(t, rep.Metrics.OutputLUFS, rep.Metrics.InputLUFS+12, 1e-9)

	// The brickwall limiter is always configured.
	if insert.Compressor == nil || insert.Compressor.ThresholdDB != -1 || insert.Compressor.Ratio != 30 {
		t.Fatalf("Compressor = %+v, want limiter -1 dB / 30:1", insert.Compressor)
	}

	// Multiband settings went through the opaque parameter map.
	if _, ok := insert.Parameters()["mb0.threshold_db"]; !ok {
		t.Fatal("multiband parameters not pushed to the master insert")
	}

	// Flat dynamics produce a recommendation.
	foundDR := false
	for _, r := range rep.Recommendations {
		if strings.Contains(r, "dynamic range") {
			foundDR = true
		}
	}

	if !foundDR {
		t.Fatalf("Recommendations = %v, want a dynamic-range note", rep.Recommendations)
	}
}

func TestMasterWideMasterNarrowed(t *testing.T) {
	rack := fx.NewMemoryRack()

	chain, err := NewChain(rack)
	if err != nil {
		t.Fatalf("NewChain() error = %v", err)
	}

	// Uncorrelated channels measure close to full width.
	buf := stereoBuffer(t,
		testutil.DeterministicNoise(1, 0.3, 96000),
		testutil.DeterministicNoise(2, 0.3, 96000))

	rep, err := chain.Master(context.Background(), buf)
	if err != nil {
		t.Fatalf("Master() error = %v", err)
	}

	if rep.Metrics.StereoWidth <= 0.8 {
		t.Fatalf("StereoWidth = %v, want above 0.8", rep.Metrics.StereoWidth)
	}

	widthAdj, ok := findChainAdjustment(rep, "stereo", "width")
	if !ok || widthAdj.Value != 0.9 {
		t.Fatalf("width adjustment = %+v, want value 0.9", widthAdj)
	}
}

func TestMasterModerateWidthUntouched(t *testing.T) {
	rack := fx.NewMemoryRack()

	chain, err := NewChain(rack)
	if err != nil {
		t.Fatalf("NewChain() error = %v", err)
	}

	// A mid-heavy mix with some uncorrelated content lands between the
	// decision points, so the image is left alone.
	mid := testutil.DeterministicSine(440, testRate, 0.3, 96000)
	sideL := testutil.DeterministicNoise(1, 0.5, 96000)
	sideR := testutil.DeterministicNoise(2, 0.5, 96000)

	left := make([]float64, len(mid))
	right := make([]float64, len(mid))

	for i := range mid {
		left[i] = mid[i] + sideL[i]
		right[i] = mid[i] + sideR[i]
	}

	before := append([]float64(nil), left...)

	rep, err := chain.Master(context.Background(), stereoBuffer(t, left, right))
	if err != nil {
		t.Fatalf("Master() error = %v", err)
	}

	if rep.Metrics.StereoWidth < 0.5 || rep.Metrics.StereoWidth > 0.8 {
		t.Fatalf("StereoWidth = %v, want within (0.5, 0.8) for this fixture", rep.Metrics.StereoWidth)
	}

	if _, ok := findChainAdjustment(rep, "stereo", "width"); ok {
		t.Fatal("width adjustment recorded for a moderate image")
	}

	testutil.RequireSliceNearlyEqual(t, left, before, 0)
}

func TestMasterLoudMasterRecommendation(t *testing.T) {
	rack := fx.NewMemoryRack()

	chain, err := NewChain(rack, WithPlatform(PlatformSoundCloud))
	if err != nil {
		t.Fatalf("NewChain() error = %v", err)
	}

	tone := testutil.DeterministicSine(440, testRate, 0.7, 96000)
	buf := stereoBuffer(t, append([]float64(nil), tone...), append([]float64(nil), tone...))

	rep, err := chain.Master(context.Background(), buf)
	if err != nil {
		t.Fatalf("Master() error = %v", err)
	}

	// SoundCloud's -10 LUFS target leaves the estimate above -12.
	if rep.Metrics.OutputLUFS <= -12 {
		t.Fatalf("OutputLUFS = %v, want above -12", rep.Metrics.OutputLUFS)
	}

	found := false
	for _, r := range rep.Recommendations {
		if strings.Contains(r, "too loud") {
			found = true
		}
	}

	if !found {
		t.Fatalf("Recommendations = %v, want a loudness warning", rep.Recommendations)
	}
}

func TestMasterBalanceCorrection(t *testing.T) {
	rack := fx.NewMemoryRack()

	chain, err := NewChain(rack)
	if err != nil {
		t.Fatalf("NewChain() error = %v", err)
	}

	// Heavily left-leaning mix: balance goes negative, pan nudges right.
	left := testutil.DeterministicSine(440, testRate, 0.6, 96000)
	right := testutil.DeterministicSine(440, testRate, 0.2, 96000)

	rep, err := chain.Master(context.Background(), stereoBuffer(t, left, right))
	if err != nil {
		t.Fatalf("Master() error = %v", err)
	}

	panAdj, ok := findChainAdjustment(rep, "tonal_balance", "pan")
	if !ok {
		t.Fatal("no pan adjustment recorded")
	}

	if panAdj.Value <= 0 {
		t.Fatalf("pan = %v, want positive (toward the right)", panAdj.Value)
	}

	if rack.Chains["master"].Pan != panAdj.Value {
		t.Fatalf("insert Pan = %v, want %v", rack.Chains["master"].Pan, panAdj.Value)
	}
}

func TestMasterMonoBuffer(t *testing.T) {
	rack := fx.NewMemoryRack()

	chain, err := NewChain(rack)
	if err != nil {
		t.Fatalf("NewChain() error = %v", err)
	}

	buf := monoBuffer(t, testutil.DeterministicSine(440, testRate, 0.3, 96000))

	rep, err := chain.Master(context.Background(), buf)
	if err != nil {
		t.Fatalf("Master() error = %v", err)
	}

	if _, ok := findChainAdjustment(rep, "stereo", "width"); ok {
		t.Fatal("stereo stage ran on mono material")
	}

	if rep.Metrics.StereoWidth != 0 {
		t.Fatalf("StereoWidth = %v, want 0 for mono", rep.Metrics.StereoWidth)
	}
}

func TestMasterCanceledContext(t *testing.T) {
	chain, err := NewChain(fx.NewMemoryRack())
	if err != nil {
		t.Fatalf("NewChain() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	buf := monoBuffer(t, testutil.DeterministicSine(440, testRate, 0.3, 48000))

	if _, err := chain.Master(ctx, buf); err == nil {
		t.Fatal("Master() error = nil, want context error")
	}
}

func TestMakeupGainCapBoundary(t *testing.T) {
	tests := []struct {
		target, input, want float64
	}{
		{-14, -26, 12},     // exactly the cap
		{-14, -26.001, 12}, // just past the cap
		{-14, -22, 8},
		{-14, -10, -4}, // hot input gets trimmed, never boosted
	}

	for _, tt := range tests {
		got := makeupGainDB(tt.target, tt.input)
		if got != tt.want {
			t.Fatalf("makeupGainDB(%v, %v) = %v, want %v", tt.target, tt.input, got, tt.want)
		}
	}

	testutil.RequireNear(t, makeupGainDB(-14, -25.999), 11.999, 1e-9)
}

func TestChainSetBypass(t *testing.T) {
	rack := fx.NewMemoryRack()

	chain, err := NewChain(rack)
	if err != nil {
		t.Fatalf("NewChain() error = %v", err)
	}

	// A quiet narrow master leaves the enhancer widened and the master
	// gain boosted; bypass must neutralize both without destroying
	// anything.
	tone := testutil.DeterministicSine(220, testRate, 0.02, 96000)
	buf := stereoBuffer(t, append([]float64(nil), tone...), append([]float64(nil), tone...))

	if _, err := chain.Master(context.Background(), buf); err != nil {
		t.Fatalf("Master() error = %v", err)
	}

	if err := chain.SetBypass(true); err != nil {
		t.Fatalf("SetBypass(true) error = %v", err)
	}

	if !rack.Chains["master"].Bypassed {
		t.Fatal("master insert not bypassed")
	}

	if rack.Master.Gain != 1 {
		t.Fatalf("Master.Gain = %v, want 1", rack.Master.Gain)
	}

	if got := chain.enhancer.Width(); got != 1 {
		t.Fatalf("enhancer width = %v, want unit width", got)
	}

	if got := chain.enhancer.BassMonoFreq(); got != 0 {
		t.Fatalf("bass mono = %v Hz, want disabled", got)
	}

	if err := chain.SetBypass(false); err != nil {
		t.Fatalf("SetBypass(false) error = %v", err)
	}

	if rack.Chains["master"].Bypassed {
		t.Fatal("master insert still bypassed")
	}

	// The planner and enhancer survive; another pass works.
	if _, err := chain.Master(context.Background(), buf); err != nil {
		t.Fatalf("Master() after bypass error = %v", err)
	}
}

func TestChainResetAndClose(t *testing.T) {
	rack := fx.NewMemoryRack()

	chain, err := NewChain(rack)
	if err != nil {
		t.Fatalf("NewChain() error = %v", err)
	}

	buf := monoBuffer(t, testutil.DeterministicSine(440, testRate, 0.3, 96000))

	if _, err := chain.Master(context.Background(), buf); err != nil {
		t.Fatalf("Master() error = %v", err)
	}

	if err := chain.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	if !rack.Chains["master"].Bypassed {
		t.Fatal("master insert not bypassed after Reset")
	}

	if rack.Master.Gain != 1 {
		t.Fatalf("Master.Gain = %v after Reset, want 1", rack.Master.Gain)
	}

	if err := chain.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if !rack.Chains["master"].Destroyed() {
		t.Fatal("master insert not destroyed by Close")
	}
}
