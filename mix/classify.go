package mix

import "fmt"

// InstrumentClass is the closed set of instrument roles the mixer derives
// its per-track decisions from.
type InstrumentClass int

const (
	ClassOther InstrumentClass = iota
	ClassKick
	ClassSnare
	ClassBass
	ClassHiHat
	ClassVocal
	ClassGuitar
	ClassSynth
	ClassCymbal
)

// String returns the class name.
func (c InstrumentClass) String() string {
	switch c {
	case ClassKick:
		return "kick"
	case ClassSnare:
		return "snare"
	case ClassBass:
		return "bass"
	case ClassHiHat:
		return "hihat"
	case ClassVocal:
		return "vocal"
	case ClassGuitar:
		return "guitar"
	case ClassSynth:
		return "synth"
	case ClassCymbal:
		return "cymbal"
	case ClassOther:
		return "other"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Frequency thresholds for classification, in Hz.
const (
	bassMaxFreq     = 150.0
	kickMaxFreq     = 250.0
	hihatMinFreq    = 8000.0
	cymbalMinFreq   = 2000.0
	melodicMinFreq  = 500.0
	vocalMinRangeDB = 15.0
)

// Classify derives an instrument class from a track's dominant frequency,
// with a dynamic-range tie-break in the 500-2000 Hz band: expressive
// material (range above 15 dB) reads as vocal, flat material as synth.
// The 250-500 Hz residue falls through to guitar.
func Classify(f TrackFeatures) InstrumentClass {
	df := f.DominantFreq

	switch {
	case df < bassMaxFreq:
		return ClassBass
	case df < kickMaxFreq:
		return ClassKick
	case df > hihatMinFreq:
		return ClassHiHat
	case df >= cymbalMinFreq:
		return ClassCymbal
	case df >= melodicMinFreq:
		if f.DynamicRange > vocalMinRangeDB {
			return ClassVocal
		}

		return ClassSynth
	default:
		return ClassGuitar
	}
}
