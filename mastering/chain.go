// Package mastering implements the automatic mastering chain: it analyzes
// a stereo master, shapes its tonal balance and dynamics through an
// external effect rack, adjusts the stereo image in place, and normalizes
// loudness toward a delivery platform's target.
package mastering

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"automix/analyze"
	"automix/audio"
	"automix/dsp/core"
	"automix/fx"
)

const (
	// masterChainID is the rack identifier of the master insert chain.
	masterChainID = "master"

	// Makeup gain toward the platform target is capped here.
	maxMakeupGainDB = 12.0

	// Tonal balance decision points.
	quietMasterLUFS  = -20.0
	flatDynamicsDB   = 6.0
	balanceTolerance = 0.1

	// Stereo image decision points.
	narrowWidth      = 0.5
	wideWidth        = 0.8
	widenFactor      = 1.2
	narrowFactor     = 0.9
	widenBassMonoHz  = 120.0
	hotStreamingLUFS = -12.0
)

// limiterParams is the brickwall safety stage on the master insert: near-
// ceiling threshold, very high ratio, near-instant attack, hard knee.
var limiterParams = fx.CompressorParams{
	ThresholdDB: -1,
	Ratio:       30,
	AttackMs:    0.1,
	ReleaseMs:   5,
	KneeDB:      0,
}

// Metrics summarizes one mastering pass.
type Metrics struct {
	InputLUFS    float64
	OutputLUFS   float64 // estimated, after makeup gain
	DynamicRange float64 // dB
	TruePeakDB   float64
	StereoWidth  float64 // measured on input, 0-1
}

// Adjustment is one decision made during a mastering pass, in stage order.
type Adjustment struct {
	Stage     string
	Parameter string
	Value     float64
	Reason    string
}

// Report is the outcome of one mastering pass.
type Report struct {
	PassID          string
	Platform        Platform
	TargetLUFS      float64
	Metrics         Metrics
	Adjustments     []Adjustment
	Recommendations []string
}

// Chain runs automatic mastering passes. It owns the master insert chain
// of its rack and keeps a crossover planner and stereo enhancer sized to
// the sample rate of the material it last processed.
type Chain struct {
	rack     fx.Rack
	effects  fx.Effects
	analyzer *analyze.Analyzer
	log      *zap.Logger

	platform   Platform
	targetLUFS float64

	planner    *MultibandPlanner
	enhancer   *StereoEnhancer
	sampleRate float64
}

// ChainOption configures a Chain.
type ChainOption func(*Chain) error

// WithPlatform selects the delivery platform the chain masters toward.
// Default Spotify.
func WithPlatform(p Platform) ChainOption {
	return func(c *Chain) error {
		target, ok := p.TargetLUFS()
		if !ok {
			return fmt.Errorf("mastering: platform %q has no built-in target, use WithTargetLUFS", p)
		}

		c.platform = p
		c.targetLUFS = target

		return nil
	}
}

// WithTargetLUFS sets a custom loudness target, switching the chain to the
// custom platform.
func WithTargetLUFS(lufs float64) ChainOption {
	return func(c *Chain) error {
		if lufs > 0 || lufs < analyze.LoudnessFloor {
			return fmt.Errorf("mastering: target %v LUFS out of range", lufs)
		}

		c.platform = PlatformCustom
		c.targetLUFS = lufs

		return nil
	}
}

// WithChainLogger sets the logger. Default is a no-op logger.
func WithChainLogger(log *zap.Logger) ChainOption {
	return func(c *Chain) error {
		if log == nil {
			return fmt.Errorf("mastering: logger must not be nil")
		}

		c.log = log

		return nil
	}
}

// WithChainAnalyzer sets the analyzer used during the analyze stage.
func WithChainAnalyzer(a *analyze.Analyzer) ChainOption {
	return func(c *Chain) error {
		if a == nil {
			return fmt.Errorf("mastering: analyzer must not be nil")
		}

		c.analyzer = a

		return nil
	}
}

// NewChain creates a mastering chain and acquires the master insert from
// the rack.
func NewChain(rack fx.Rack, opts ...ChainOption) (*Chain, error) {
	if rack == nil {
		return nil, fmt.Errorf("mastering: rack must not be nil")
	}

	c := &Chain{
		rack:       rack,
		analyzer:   analyze.New(),
		log:        zap.NewNop(),
		platform:   PlatformSpotify,
		targetLUFS: platformTargets[PlatformSpotify],
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(c); err != nil {
			return nil, err
		}
	}

	effects, err := rack.CreateEffects(masterChainID)
	if err != nil {
		return nil, fmt.Errorf("mastering: master insert: %w", err)
	}

	c.effects = effects

	return c, nil
}

// Platform returns the chain's delivery platform.
func (c *Chain) Platform() Platform { return c.platform }

// TargetLUFS returns the chain's loudness target.
func (c *Chain) TargetLUFS() float64 { return c.targetLUFS }

// Master runs one mastering pass over the buffer. Tonal, dynamics, and
// loudness decisions are written to the rack; the stereo enhancement stage
// processes the buffer in place. The report lists every decision in stage
// order.
func (c *Chain) Master(ctx context.Context, buf *audio.Buffer) (*Report, error) {
	rep := &Report{
		PassID:     uuid.NewString(),
		Platform:   c.platform,
		TargetLUFS: c.targetLUFS,
	}

	if buf == nil || buf.Length() == 0 {
		return rep, fmt.Errorf("mastering: buffer is empty")
	}

	if err := c.ensureProcessors(buf.SampleRate()); err != nil {
		return rep, err
	}

	c.log.Info("mastering pass started",
		zap.String("pass_id", rep.PassID),
		zap.String("platform", string(c.platform)),
		zap.Float64("target_lufs", c.targetLUFS))

	// Stage 1: analysis.
	dyn := c.analyzer.Dynamics(buf)
	clip := c.analyzer.Clipping(buf)

	rep.Metrics = Metrics{
		InputLUFS:    c.analyzer.Loudness(buf),
		DynamicRange: dyn.DynamicRange,
		TruePeakDB:   peakDB(dyn.Peak),
	}

	var img analyze.StereoImage
	if buf.NumChannels() >= 2 {
		img = c.analyzer.StereoImage(buf.Channel(0), buf.Channel(1))
		rep.Metrics.StereoWidth = img.Width
	}

	if err := ctx.Err(); err != nil {
		return rep, err
	}

	// Stage 2: tonal balance.
	if err := c.applyTonalBalance(rep, img); err != nil {
		return rep, err
	}

	if err := ctx.Err(); err != nil {
		return rep, err
	}

	// Stage 3: multiband dynamics.
	if err := c.applyMultiband(rep, buf); err != nil {
		return rep, err
	}

	if err := ctx.Err(); err != nil {
		return rep, err
	}

	// Stage 4: stereo enhancement.
	if err := c.applyStereoEnhancement(rep, buf, img); err != nil {
		return rep, err
	}

	if err := ctx.Err(); err != nil {
		return rep, err
	}

	// Stage 5: loudness normalization.
	if err := c.applyMakeupGain(rep); err != nil {
		return rep, err
	}

	if err := ctx.Err(); err != nil {
		return rep, err
	}

	// Stage 6: limiter.
	if err := c.effects.SetCompressor(limiterParams); err != nil {
		return rep, fmt.Errorf("mastering: limiter: %w", err)
	}

	rep.Adjustments = append(rep.Adjustments, Adjustment{
		Stage:     "limiter",
		Parameter: "threshold_db",
		Value:     limiterParams.ThresholdDB,
		Reason:    "brickwall safety limiter on the master insert",
	})

	// Stage 7: report.
	c.recommend(rep, clip)

	c.log.Info("mastering pass finished",
		zap.String("pass_id", rep.PassID),
		zap.Float64("input_lufs", rep.Metrics.InputLUFS),
		zap.Float64("output_lufs", rep.Metrics.OutputLUFS))

	return rep, nil
}

// ensureProcessors sizes the planner and enhancer to the sample rate.
func (c *Chain) ensureProcessors(sampleRate float64) error {
	if c.sampleRate == sampleRate && c.planner != nil {
		return nil
	}

	planner, err := NewMultibandPlanner(sampleRate)
	if err != nil {
		return err
	}

	enhancer, err := NewStereoEnhancer(sampleRate)
	if err != nil {
		return err
	}

	c.planner = planner
	c.enhancer = enhancer
	c.sampleRate = sampleRate

	return nil
}

// applyTonalBalance writes the EQ curve and balance correction to the
// master insert: a gentle smile as baseline, brightness for quiet dark
// masters, presence for overly flat material, and a pan nudge against a
// lopsided channel balance.
func (c *Chain) applyTonalBalance(rep *Report, img analyze.StereoImage) error {
	type eqDecision struct {
		band   fx.EQBand
		reason string
	}

	bands := []eqDecision{
		{fx.EQBand{Type: fx.BandLowShelf, FreqHz: 60, GainDB: 1}, "baseline low-end weight"},
		{fx.EQBand{Type: fx.BandHighShelf, FreqHz: 10000, GainDB: 1}, "baseline air"},
	}

	if rep.Metrics.InputLUFS < quietMasterLUFS {
		bands = append(bands,
			eqDecision{fx.EQBand{Type: fx.BandPeak, FreqHz: 8000, GainDB: 2, Q: 0.9}, "brightness for a quiet master"},
			eqDecision{fx.EQBand{Type: fx.BandHighShelf, FreqHz: 12000, GainDB: 3}, "brightness for a quiet master"},
		)
	}

	if rep.Metrics.DynamicRange < flatDynamicsDB {
		bands = append(bands,
			eqDecision{fx.EQBand{Type: fx.BandPeak, FreqHz: 3000, GainDB: 1.5, Q: 1}, "presence for flat material"})
	}

	for i, b := range bands {
		if err := c.effects.SetEQBand(i, b.band); err != nil {
			return fmt.Errorf("mastering: tonal balance: %w", err)
		}

		rep.Adjustments = append(rep.Adjustments, Adjustment{
			Stage:     "tonal_balance",
			Parameter: fmt.Sprintf("eq_%s_%.0fhz", b.band.Type, b.band.FreqHz),
			Value:     b.band.GainDB,
			Reason:    b.reason,
		})
	}

	if math.Abs(img.Balance) > balanceTolerance {
		pan := core.Clamp(-img.Balance/2, -1, 1)
		if err := c.effects.SetPan(pan); err != nil {
			return fmt.Errorf("mastering: balance correction: %w", err)
		}

		rep.Adjustments = append(rep.Adjustments, Adjustment{
			Stage:     "tonal_balance",
			Parameter: "pan",
			Value:     pan,
			Reason:    fmt.Sprintf("channel balance off center by %.2f", img.Balance),
		})
	}

	return nil
}

// applyMultiband plans per-band compression from the buffer's band energy
// and pushes it to the master insert.
func (c *Chain) applyMultiband(rep *Report, buf *audio.Buffer) error {
	bands, err := c.planner.Plan(buf, rep.Metrics.DynamicRange)
	if err != nil {
		return err
	}

	if err := c.planner.Apply(c.effects, bands); err != nil {
		return err
	}

	for _, b := range bands {
		rep.Adjustments = append(rep.Adjustments, Adjustment{
			Stage:     "multiband",
			Parameter: fmt.Sprintf("mb%d.ratio", b.Index),
			Value:     b.Compressor.Ratio,
			Reason: fmt.Sprintf("band %.0f-%.0f Hz at %.1f dB",
				b.LowHz, b.HighHz, b.LevelDB),
		})
	}

	return nil
}

// applyStereoEnhancement widens narrow masters (with the low end kept
// mono) and reins in overly wide ones, processing the buffer in place.
// Mono material passes through untouched.
func (c *Chain) applyStereoEnhancement(rep *Report, buf *audio.Buffer, img analyze.StereoImage) error {
	if buf.NumChannels() < 2 {
		return nil
	}

	var (
		width  = defaultEnhancerWidth
		bassHz = 0.0
		reason string
	)

	switch {
	case img.Width < narrowWidth:
		width = widenFactor
		bassHz = widenBassMonoHz
		reason = fmt.Sprintf("image width %.2f is narrow, widening with bass mono below %.0f Hz",
			img.Width, widenBassMonoHz)
	case img.Width > wideWidth:
		width = narrowFactor
		reason = fmt.Sprintf("image width %.2f risks phase issues, narrowing", img.Width)
	default:
		return nil
	}

	if err := c.enhancer.SetWidth(width); err != nil {
		return err
	}

	if err := c.enhancer.SetBassMonoFreq(bassHz); err != nil {
		return err
	}

	c.enhancer.Reset()

	if err := c.enhancer.ProcessStereo(buf.Channel(0), buf.Channel(1)); err != nil {
		return err
	}

	rep.Adjustments = append(rep.Adjustments, Adjustment{
		Stage:     "stereo",
		Parameter: "width",
		Value:     width,
		Reason:    reason,
	})

	return nil
}

// applyMakeupGain trims the master bus toward the platform target, capped
// at +12 dB of boost. The estimated output loudness never exceeds the
// target.
func (c *Chain) applyMakeupGain(rep *Report) error {
	master := c.rack.MasterGain()
	if master == nil {
		return fmt.Errorf("mastering: rack has no master gain")
	}

	gain := makeupGainDB(c.targetLUFS, rep.Metrics.InputLUFS)

	if err := master.SetGain(core.DBToLinear(gain)); err != nil {
		return fmt.Errorf("mastering: makeup gain: %w", err)
	}

	rep.Metrics.OutputLUFS = math.Min(rep.Metrics.InputLUFS+gain, c.targetLUFS)

	rep.Adjustments = append(rep.Adjustments, Adjustment{
		Stage:     "loudness",
		Parameter: "gain_db",
		Value:     gain,
		Reason: fmt.Sprintf("input at %.1f LUFS, %s target %.0f LUFS",
			rep.Metrics.InputLUFS, c.platform, c.targetLUFS),
	})

	return nil
}

// recommend collects advisory findings the chain cannot fix itself.
func (c *Chain) recommend(rep *Report, clip analyze.ClippingReport) {
	if clip.HasClipping {
		rep.Recommendations = append(rep.Recommendations,
			fmt.Sprintf("input has %d clipped samples; fix the mix before mastering", clip.ClippedSamples))
	}

	if rep.Metrics.OutputLUFS > hotStreamingLUFS {
		rep.Recommendations = append(rep.Recommendations,
			"master may be too loud for streaming services")
	}

	if rep.Metrics.DynamicRange < flatDynamicsDB {
		rep.Recommendations = append(rep.Recommendations,
			fmt.Sprintf("dynamic range of %.1f dB is very low; consider easing mix-bus compression",
				rep.Metrics.DynamicRange))
	}
}

// SetBypass toggles the chain's processing on the master insert. Bypassing
// also restores unity master gain and a neutral stereo image; the planner
// and enhancer stay alive for the next pass.
func (c *Chain) SetBypass(bypass bool) error {
	if err := c.effects.SetBypass(bypass); err != nil {
		return fmt.Errorf("mastering: bypass: %w", err)
	}

	if !bypass {
		return nil
	}

	if master := c.rack.MasterGain(); master != nil {
		if err := master.SetGain(1); err != nil {
			return fmt.Errorf("mastering: bypass master gain: %w", err)
		}
	}

	if c.enhancer != nil {
		if err := c.enhancer.SetWidth(defaultEnhancerWidth); err != nil {
			return fmt.Errorf("mastering: bypass width: %w", err)
		}

		if err := c.enhancer.SetBassMonoFreq(0); err != nil {
			return fmt.Errorf("mastering: bypass bass mono: %w", err)
		}

		c.enhancer.Reset()
	}

	return nil
}

// Reset restores neutral processing: the master insert is bypassed, the
// master gain returns to unity, and the stereo image to unit width.
func (c *Chain) Reset() error {
	return c.SetBypass(true)
}

// Close destroys the master insert chain.
func (c *Chain) Close() error {
	return c.effects.Destroy()
}

// makeupGainDB is the boost in dB toward the target loudness, capped at
// maxMakeupGainDB. A negative result means the input is already above
// target.
func makeupGainDB(target, input float64) float64 {
	gain := target - input
	if gain > maxMakeupGainDB {
		gain = maxMakeupGainDB
	}

	return gain
}

func peakDB(peak float64) float64 {
	db := core.LinearToDB(peak)
	if !core.IsFinite(db) {
		return analyze.LoudnessFloor
	}

	return db
}
