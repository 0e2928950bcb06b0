// Package mix implements the automatic mixing pass: analyze every track,
// classify it, and drive the external effect rack with gain, EQ,
// compression, pan, and reverb decisions derived from fixed per-class
// rule tables.
package mix

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"automix/analyze"
	"automix/audio"
	"automix/dsp/core"
	"automix/fx"
)

const (
	defaultMasterTargetLUFS = -14.0
	defaultMasterBusLUFS    = -16.0
)

// Track is one input to a mix pass: a stable identifier and the captured
// audio it is analyzed from. Track order is significant; the pan stage
// spreads side instruments in input order, so the same slice always
// produces the same pass.
type Track struct {
	ID     string
	Buffer *audio.Buffer
}

// Mixer runs automatic mix passes over a set of tracks, writing its
// decisions to the effect chains of a Rack.
type Mixer struct {
	rack     fx.Rack
	analyzer *analyze.Analyzer
	strips   *stripArena
	log      *zap.Logger

	masterTargetLUFS float64
	masterBusLUFS    float64
}

// Option configures a Mixer.
type Option func(*Mixer) error

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(m *Mixer) error {
		if log == nil {
			return fmt.Errorf("mix: logger must not be nil")
		}

		m.log = log

		return nil
	}
}

// WithMasterTarget sets the loudness target in LUFS the master stage steers
// the bus toward. Default -14.
func WithMasterTarget(lufs float64) Option {
	return func(m *Mixer) error {
		if lufs > 0 || lufs < analyze.LoudnessFloor {
			return fmt.Errorf("mix: master target %v LUFS out of range", lufs)
		}

		m.masterTargetLUFS = lufs

		return nil
	}
}

// WithMasterBusLoudness sets the assumed loudness in LUFS of the summed bus
// after per-track gains, used by the master stage to compute its trim.
// Default -16.
func WithMasterBusLoudness(lufs float64) Option {
	return func(m *Mixer) error {
		if lufs > 0 || lufs < analyze.LoudnessFloor {
			return fmt.Errorf("mix: master bus loudness %v LUFS out of range", lufs)
		}

		m.masterBusLUFS = lufs

		return nil
	}
}

// WithAnalyzer sets the analyzer used during the analyze stage.
func WithAnalyzer(a *analyze.Analyzer) Option {
	return func(m *Mixer) error {
		if a == nil {
			return fmt.Errorf("mix: analyzer must not be nil")
		}

		m.analyzer = a

		return nil
	}
}

// New creates a Mixer driving the given rack.
func New(rack fx.Rack, opts ...Option) (*Mixer, error) {
	if rack == nil {
		return nil, fmt.Errorf("mix: rack must not be nil")
	}

	m := &Mixer{
		rack:             rack,
		analyzer:         analyze.New(),
		strips:           newStripArena(),
		log:              zap.NewNop(),
		masterTargetLUFS: defaultMasterTargetLUFS,
		masterBusLUFS:    defaultMasterBusLUFS,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// trackState is the per-track working set of one pass.
type trackState struct {
	track    Track
	features TrackFeatures
	class    InstrumentClass
	effects  fx.Effects
}

// Mix runs one automatic mix pass over the given tracks. Tracks that fail
// analysis or effect setup are logged and skipped; the pass carries on with
// the rest. A failure to execute the pipeline itself, such as a missing
// master gain, returns an unsuccessful Result alongside the error.
//
// The returned Result lists every adjustment in stage order. Running the
// same pass twice over the same inputs produces identical adjustments.
func (m *Mixer) Mix(ctx context.Context, tracks []Track) (*Result, error) {
	res := &Result{PassID: uuid.NewString()}

	if len(tracks) == 0 {
		return res, fmt.Errorf("mix: no tracks")
	}

	m.log.Info("mix pass started",
		zap.String("pass_id", res.PassID),
		zap.Int("tracks", len(tracks)))

	// Stage 1: analysis.
	states := m.analyzeTracks(tracks)
	if len(states) == 0 {
		return res, fmt.Errorf("mix: no tracks survived analysis")
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	// Stage 2: classification.
	for _, st := range states {
		st.class = Classify(st.features)
		m.log.Debug("track classified",
			zap.String("track", st.track.ID),
			zap.Stringer("class", st.class),
			zap.Float64("dominant_hz", st.features.DominantFreq))
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	// Stages 3-7 touch the rack.
	m.applyGain(states, res)

	if err := ctx.Err(); err != nil {
		return res, err
	}

	m.applyEQ(states, res)

	if err := ctx.Err(); err != nil {
		return res, err
	}

	m.applyCompression(states, res)

	if err := ctx.Err(); err != nil {
		return res, err
	}

	m.applyPanning(states, res)

	if err := ctx.Err(); err != nil {
		return res, err
	}

	m.applyReverb(states, res)

	if err := ctx.Err(); err != nil {
		return res, err
	}

	// Stage 8: master bus trim.
	if err := m.applyMasterGain(res); err != nil {
		return res, err
	}

	m.recommend(states, res)

	res.Success = true

	m.log.Info("mix pass finished",
		zap.String("pass_id", res.PassID),
		zap.Int("adjustments", len(res.Adjustments)))

	return res, nil
}

// analyzeTracks measures every track and acquires its strip. Tracks that
// fail either step are dropped from the pass.
func (m *Mixer) analyzeTracks(tracks []Track) []*trackState {
	states := make([]*trackState, 0, len(tracks))

	for _, tr := range tracks {
		feats, err := m.analyzeTrack(tr)
		if err != nil {
			m.log.Warn("track skipped",
				zap.String("track", tr.ID),
				zap.Error(err))

			continue
		}

		if _, err := m.strips.acquire(tr.ID, m.rack); err != nil {
			m.log.Warn("track skipped",
				zap.String("track", tr.ID),
				zap.Error(err))

			continue
		}

		effects, _ := m.strips.effects(tr.ID)

		// A strip left bypassed by an earlier Reset is re-engaged for
		// this pass.
		if err := effects.SetBypass(false); err != nil {
			m.log.Warn("track skipped",
				zap.String("track", tr.ID),
				zap.Error(err))

			continue
		}

		states = append(states, &trackState{
			track:    tr,
			features: feats,
			effects:  effects,
		})
	}

	return states
}

func (m *Mixer) analyzeTrack(tr Track) (TrackFeatures, error) {
	if tr.ID == "" {
		return TrackFeatures{}, fmt.Errorf("mix: track has no id")
	}

	if tr.Buffer == nil || tr.Buffer.Length() == 0 {
		return TrackFeatures{}, fmt.Errorf("mix: track %q has no audio", tr.ID)
	}

	dyn := m.analyzer.Dynamics(tr.Buffer)
	clip := m.analyzer.Clipping(tr.Buffer)

	feats := TrackFeatures{
		TrackID:        tr.ID,
		Peak:           dyn.Peak,
		RMS:            dyn.RMS,
		LUFS:           m.analyzer.Loudness(tr.Buffer),
		DynamicRange:   dyn.DynamicRange,
		CrestFactor:    dyn.CrestFactor,
		HasClipping:    clip.HasClipping,
		ClippedSamples: clip.ClippedSamples,
	}

	snap, err := m.analyzer.BufferSnapshot(tr.Buffer)
	if err != nil {
		return TrackFeatures{}, fmt.Errorf("mix: track %q: %w", tr.ID, err)
	}

	feats.DominantFreq = snap.DominantFreq
	feats.FrequencyPeaks = snap.Peaks
	feats.AverageLevel = snap.AverageLevel

	return feats, nil
}

// applyGain steers every track toward its per-class loudness target,
// clamped to +-12 dB.
func (m *Mixer) applyGain(states []*trackState, res *Result) {
	for _, st := range states {
		target := targetLoudness[st.class]
		delta := core.Clamp(target-st.features.LUFS, -maxGainAdjustDB, maxGainAdjustDB)

		if err := st.effects.SetGain(core.DBToLinear(delta)); err != nil {
			m.logStageError("gain", st.track.ID, err)

			continue
		}

		res.Adjustments = append(res.Adjustments, Adjustment{
			TrackID:   st.track.ID,
			Parameter: "gain_db",
			Value:     delta,
			Reason: fmt.Sprintf("%s at %.1f LUFS, target %.0f LUFS",
				st.class, st.features.LUFS, target),
		})
	}
}

// applyEQ applies the per-class equalizer preset.
func (m *Mixer) applyEQ(states []*trackState, res *Result) {
	for _, st := range states {
		preset, ok := eqPresets[st.class]
		if !ok {
			continue
		}

		failed := false

		for i, band := range preset.bands {
			if err := st.effects.SetEQBand(i, band); err != nil {
				m.logStageError("eq", st.track.ID, err)

				failed = true

				break
			}
		}

		if failed {
			continue
		}

		res.Adjustments = append(res.Adjustments, Adjustment{
			TrackID:   st.track.ID,
			Parameter: "eq_bands",
			Value:     float64(len(preset.bands)),
			Reason:    fmt.Sprintf("%s preset: %s", st.class, preset.desc),
		})
	}
}

// applyCompression configures dynamics control. Tracks with a very wide
// dynamic range get the generic leveling compressor regardless of class;
// otherwise the class preset applies, or nothing.
func (m *Mixer) applyCompression(states []*trackState, res *Result) {
	for _, st := range states {
		var (
			params fx.CompressorParams
			reason string
		)

		switch preset, ok := compressorPresets[st.class]; {
		case st.features.DynamicRange > wideDynamicsDB:
			params = genericCompressor
			reason = fmt.Sprintf("dynamic range %.1f dB exceeds %.0f dB",
				st.features.DynamicRange, wideDynamicsDB)
		case ok:
			params = preset
			reason = fmt.Sprintf("%s preset", st.class)
		default:
			continue
		}

		if err := st.effects.SetCompressor(params); err != nil {
			m.logStageError("compression", st.track.ID, err)

			continue
		}

		res.Adjustments = append(res.Adjustments, Adjustment{
			TrackID:   st.track.ID,
			Parameter: "comp_ratio",
			Value:     params.Ratio,
			Reason:    reason,
		})
	}
}

// applyPanning centers the rhythm-section classes and spreads the rest
// evenly across [-panSpread, +panSpread] in track order.
func (m *Mixer) applyPanning(states []*trackState, res *Result) {
	var spread []*trackState

	for _, st := range states {
		if !centeredClasses[st.class] {
			spread = append(spread, st)

			continue
		}

		if err := st.effects.SetPan(0); err != nil {
			m.logStageError("pan", st.track.ID, err)

			continue
		}

		res.Adjustments = append(res.Adjustments, Adjustment{
			TrackID:   st.track.ID,
			Parameter: "pan",
			Value:     0,
			Reason:    fmt.Sprintf("%s stays centered", st.class),
		})
	}

	step := 0.0
	if n := len(spread); n > 1 {
		step = 2 * panSpread / float64(n-1)
	}

	for i, st := range spread {
		pan := core.Clamp(-panSpread+step*float64(i), -1, 1)
		if len(spread) == 1 {
			pan = 0
		}

		if err := st.effects.SetPan(pan); err != nil {
			m.logStageError("pan", st.track.ID, err)

			continue
		}

		res.Adjustments = append(res.Adjustments, Adjustment{
			TrackID:   st.track.ID,
			Parameter: "pan",
			Value:     pan,
			Reason:    fmt.Sprintf("%s spread %d of %d", st.class, i+1, len(spread)),
		})
	}
}

// applyReverb configures the spatial send per class. A preset with zero mix
// disables the send.
func (m *Mixer) applyReverb(states []*trackState, res *Result) {
	for _, st := range states {
		params, ok := reverbPresets[st.class]
		if !ok {
			params = defaultReverb
		}

		if err := st.effects.SetReverb(params); err != nil {
			m.logStageError("reverb", st.track.ID, err)

			continue
		}

		reason := fmt.Sprintf("%s: %s reverb, %.1fs decay", st.class, params.Type, params.Decay)
		if params.Mix == 0 {
			reason = fmt.Sprintf("%s: reverb disabled", st.class)
		}

		res.Adjustments = append(res.Adjustments, Adjustment{
			TrackID:   st.track.ID,
			Parameter: "reverb_mix",
			Value:     params.Mix,
			Reason:    reason,
		})
	}
}

// applyMasterGain trims the master bus toward the pass target.
func (m *Mixer) applyMasterGain(res *Result) error {
	master := m.rack.MasterGain()
	if master == nil {
		return fmt.Errorf("mix: rack has no master gain")
	}

	delta := m.masterTargetLUFS - m.masterBusLUFS

	if err := master.SetGain(core.DBToLinear(delta)); err != nil {
		return fmt.Errorf("mix: master gain: %w", err)
	}

	res.Adjustments = append(res.Adjustments, Adjustment{
		TrackID:   "master",
		Parameter: "gain_db",
		Value:     delta,
		Reason: fmt.Sprintf("bus at %.0f LUFS, target %.0f LUFS",
			m.masterBusLUFS, m.masterTargetLUFS),
	})

	return nil
}

// recommend collects advisory findings that the pass cannot fix itself.
func (m *Mixer) recommend(states []*trackState, res *Result) {
	for _, st := range states {
		if st.features.HasClipping {
			res.Recommendations = append(res.Recommendations,
				fmt.Sprintf("track %q has %d clipped samples; re-record or attenuate at the source",
					st.track.ID, st.features.ClippedSamples))
		}
	}
}

// Reset returns every strip to a neutral state: unity gain, centered pan,
// bypassed processing. The strips themselves stay allocated for the next
// pass.
func (m *Mixer) Reset() error {
	var firstErr error

	err := m.strips.each(func(trackID string, effects fx.Effects) error {
		if err := effects.SetGain(1); err != nil {
			return fmt.Errorf("mix: reset track %q: %w", trackID, err)
		}

		if err := effects.SetPan(0); err != nil {
			return fmt.Errorf("mix: reset track %q: %w", trackID, err)
		}

		if err := effects.SetBypass(true); err != nil {
			return fmt.Errorf("mix: reset track %q: %w", trackID, err)
		}

		return nil
	})
	if err != nil {
		firstErr = err
	}

	if master := m.rack.MasterGain(); master != nil {
		if err := master.SetGain(1); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("mix: reset master gain: %w", err)
		}
	}

	return firstErr
}

// ReleaseTrack destroys the strip of one track, freeing its effect chain.
func (m *Mixer) ReleaseTrack(trackID string) error {
	return m.strips.release(trackID)
}

// TrackIDs returns the IDs of all tracks with live strips, sorted.
func (m *Mixer) TrackIDs() []string {
	ids := make([]string, 0, m.strips.size())

	_ = m.strips.each(func(trackID string, _ fx.Effects) error {
		ids = append(ids, trackID)

		return nil
	})

	sort.Strings(ids)

	return ids
}

// Close destroys every strip. The mixer can still run passes afterwards;
// strips are recreated on demand.
func (m *Mixer) Close() error {
	return m.strips.releaseAll()
}

func (m *Mixer) logStageError(stage, trackID string, err error) {
	m.log.Warn("stage failed for track",
		zap.String("stage", stage),
		zap.String("track", trackID),
		zap.Error(err))
}
