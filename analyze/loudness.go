package analyze

import (
	"math"

	"automix/audio"
	"automix/dsp/filter/biquad"
	"automix/dsp/filter/design"
)

const (
	// LoudnessFloor is the value reported for silent or degenerate input
	// instead of -Inf.
	LoudnessFloor = -70.0

	// Simplified K-weighting: high-pass pre-filter followed by a
	// high-frequency shelf boost.
	preFilterFreq = 100.0
	shelfFreq     = 2000.0
	shelfGainDB   = 4.0

	// Integration blocks: 400 ms with 50% overlap.
	blockDuration = 0.4
	blockOverlap  = 0.5

	// Channel weighting: 1.0 for the first two channels, 1.41 for any
	// additional (surround) channel.
	surroundWeight = 1.41
)

// Loudness measures the integrated loudness of a buffer in LUFS using a
// simplified ITU-R BS.1770-style method: per-channel K-weighting (high-pass
// at ~100 Hz, +4 dB high shelf at ~2 kHz), 400 ms blocks with 50% overlap,
// weighted mean-square summation across channels, and
// -0.691 + 10*log10(mean block power).
//
// Unlike the full standard, this measurement applies no absolute (-70 LUFS)
// or relative (-10 LU) gating; the value is kept numerically compatible with
// the system this core derives its decision thresholds from. Silent input
// reports LoudnessFloor.
func (a *Analyzer) Loudness(buf *audio.Buffer) float64 {
	if buf == nil || buf.Length() == 0 {
		return LoudnessFloor
	}

	sr := buf.SampleRate()
	q := 1 / math.Sqrt2

	hpCoeffs := design.Highpass(preFilterFreq, q, sr)
	shelfCoeffs := design.HighShelf(shelfFreq, shelfGainDB, q, sr)

	// K-weight each channel across the whole buffer; the filters are
	// stateful, so filtering happens once, not per block.
	filtered := make([][]float64, buf.NumChannels())
	for ch := range filtered {
		filtered[ch] = make([]float64, buf.Length())
		copy(filtered[ch], buf.Channel(ch))

		hp := biquad.NewSection(hpCoeffs)
		shelf := biquad.NewSection(shelfCoeffs)
		hp.ProcessBlock(filtered[ch])
		shelf.ProcessBlock(filtered[ch])
	}

	blockSamples := int(math.Round(blockDuration * sr))
	if blockSamples < 1 {
		blockSamples = 1
	}

	hop := int(float64(blockSamples) * (1 - blockOverlap))
	if hop < 1 {
		hop = 1
	}

	var (
		powerSum   float64
		blockCount int
	)

	addBlock := func(start, length int) {
		var blockPower float64

		for ch := range filtered {
			var sumSq float64
			for _, x := range filtered[ch][start : start+length] {
				sumSq += x * x
			}

			weight := 1.0
			if ch >= 2 {
				weight = surroundWeight
			}

			blockPower += weight * sumSq / float64(length)
		}

		powerSum += blockPower
		blockCount++
	}

	if buf.Length() < blockSamples {
		// Shorter than one integration block: measure what there is.
		addBlock(0, buf.Length())
	} else {
		for start := 0; start+blockSamples <= buf.Length(); start += hop {
			addBlock(start, blockSamples)
		}
	}

	mean := powerSum / float64(blockCount)
	if mean <= 0 {
		return LoudnessFloor
	}

	lufs := -0.691 + 10*math.Log10(mean)
	if math.IsNaN(lufs) || lufs < LoudnessFloor {
		return LoudnessFloor
	}

	return lufs
}
