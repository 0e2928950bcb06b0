package mix

import "automix/fx"

// The per-class decision tables. All tables are populated at package init
// and treated as immutable; adding a class or tuning a preset is a data
// change, not a control-flow change.

// targetLoudness maps each instrument class to its gain-stage target in LUFS.
var targetLoudness = map[InstrumentClass]float64{
	ClassKick:   -12,
	ClassBass:   -15,
	ClassSnare:  -14,
	ClassHiHat:  -20,
	ClassVocal:  -10,
	ClassGuitar: -16,
	ClassSynth:  -14,
	ClassCymbal: -18,
	ClassOther:  -16,
}

// Gain adjustments are clamped to this symmetric range in dB.
const maxGainAdjustDB = 12.0

// eqPreset is a fixed equalizer curve for one instrument class.
type eqPreset struct {
	desc  string
	bands []fx.EQBand
}

var eqPresets = map[InstrumentClass]eqPreset{
	ClassKick: {
		desc: "punch at 60 Hz, cut boxiness, attack at 3 kHz",
		bands: []fx.EQBand{
			{Type: fx.BandPeak, FreqHz: 60, GainDB: 4, Q: 1.0},
			{Type: fx.BandPeak, FreqHz: 800, GainDB: -3, Q: 1.4},
			{Type: fx.BandPeak, FreqHz: 3000, GainDB: 2, Q: 1.0},
		},
	},
	ClassSnare: {
		desc: "body at 200 Hz, crack at 5 kHz",
		bands: []fx.EQBand{
			{Type: fx.BandPeak, FreqHz: 200, GainDB: 2, Q: 1.0},
			{Type: fx.BandPeak, FreqHz: 5000, GainDB: 3, Q: 1.2},
		},
	},
	ClassBass: {
		desc: "weight at 100 Hz, cut mud, definition at 2.5 kHz",
		bands: []fx.EQBand{
			{Type: fx.BandPeak, FreqHz: 100, GainDB: 3, Q: 0.9},
			{Type: fx.BandPeak, FreqHz: 500, GainDB: -2, Q: 1.2},
			{Type: fx.BandPeak, FreqHz: 2500, GainDB: 1, Q: 1.0},
		},
	},
	ClassHiHat: {
		desc: "clear low rumble, air above 10 kHz",
		bands: []fx.EQBand{
			{Type: fx.BandHighPass, FreqHz: 300},
			{Type: fx.BandHighShelf, FreqHz: 10000, GainDB: 2},
		},
	},
	ClassVocal: {
		desc: "high-pass rumble, cut mud, presence and air",
		bands: []fx.EQBand{
			{Type: fx.BandHighPass, FreqHz: 80},
			{Type: fx.BandPeak, FreqHz: 250, GainDB: -2, Q: 1.2},
			{Type: fx.BandPeak, FreqHz: 4000, GainDB: 3, Q: 1.0},
			{Type: fx.BandHighShelf, FreqHz: 12000, GainDB: 2},
		},
	},
	ClassGuitar: {
		desc: "cut mud, presence at 2.5 kHz",
		bands: []fx.EQBand{
			{Type: fx.BandPeak, FreqHz: 300, GainDB: -2, Q: 1.2},
			{Type: fx.BandPeak, FreqHz: 2500, GainDB: 2, Q: 1.0},
		},
	},
	ClassSynth: {
		desc: "cut low-mid buildup, sheen above 8 kHz",
		bands: []fx.EQBand{
			{Type: fx.BandPeak, FreqHz: 300, GainDB: -1, Q: 1.2},
			{Type: fx.BandHighShelf, FreqHz: 8000, GainDB: 2},
		},
	},
	ClassCymbal: {
		desc: "high-pass bleed, shimmer above 10 kHz",
		bands: []fx.EQBand{
			{Type: fx.BandHighPass, FreqHz: 500},
			{Type: fx.BandHighShelf, FreqHz: 10000, GainDB: 2},
		},
	},
	ClassOther: {
		desc: "gentle smile curve",
		bands: []fx.EQBand{
			{Type: fx.BandLowShelf, FreqHz: 120, GainDB: 1.5},
			{Type: fx.BandHighShelf, FreqHz: 8000, GainDB: 1.5},
		},
	},
}

// Compression rules. The generic wide-dynamics rule takes precedence over
// any class preset; classes without a preset emit no compression stage.
const wideDynamicsDB = 20.0

var genericCompressor = fx.CompressorParams{
	ThresholdDB: -18,
	Ratio:       4,
	AttackMs:    10,
	ReleaseMs:   100,
	KneeDB:      2,
}

var compressorPresets = map[InstrumentClass]fx.CompressorParams{
	ClassVocal: {ThresholdDB: -12, Ratio: 3, AttackMs: 5, ReleaseMs: 80, KneeDB: 6},
	ClassKick:  {ThresholdDB: -8, Ratio: 6, AttackMs: 1, ReleaseMs: 50},
	ClassSnare: {ThresholdDB: -8, Ratio: 6, AttackMs: 1, ReleaseMs: 50},
}

// Panning: these classes stay centered; everything else is spread across
// [-panSpread, +panSpread] in iteration order.
const panSpread = 0.7

var centeredClasses = map[InstrumentClass]bool{
	ClassKick:  true,
	ClassSnare: true,
	ClassBass:  true,
	ClassVocal: true,
}

// Spatial presets. A zero Mix disables the reverb send entirely.
var reverbPresets = map[InstrumentClass]fx.ReverbParams{
	ClassVocal:  {Type: fx.ReverbPlate, Mix: 0.15, Decay: 0.4},
	ClassSnare:  {Type: fx.ReverbRoom, Mix: 0.20, Decay: 0.6},
	ClassGuitar: {Type: fx.ReverbHall, Mix: 0.10, Decay: 1.8},
	ClassKick:   {},
	ClassBass:   {},
}

// defaultReverb is the light ambience applied to classes without a preset.
var defaultReverb = fx.ReverbParams{Type: fx.ReverbRoom, Mix: 0.05, Decay: 0.5}
