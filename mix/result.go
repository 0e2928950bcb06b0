package mix

// Adjustment is one parameter decision made during a mix pass. Adjustments
// accumulate append-only in stage order; the order is significant for
// audit replay.
type Adjustment struct {
	TrackID   string
	Parameter string
	Value     float64
	Reason    string
}

// Result is the outcome of one mix pass. Success is true whenever the
// pipeline completed, even if individual tracks were skipped; false is
// reserved for a hard failure to execute the pipeline at all.
type Result struct {
	PassID          string
	Success         bool
	Adjustments     []Adjustment
	Recommendations []string
}

// TrackFeatures is the per-track analysis snapshot one mix pass operates
// on. It is created during the analyze stage and discarded with the pass.
type TrackFeatures struct {
	TrackID        string
	Peak           float64 // 0-1 linear
	RMS            float64 // 0-1 linear
	LUFS           float64 // integrated loudness, floored at -70
	DynamicRange   float64 // dB
	CrestFactor    float64
	HasClipping    bool
	ClippedSamples int
	DominantFreq   float64 // Hz
	FrequencyPeaks []int   // bin indices, ascending
	AverageLevel   float64 // 0-255 mean spectral magnitude
}
