package mastering

import (
	"fmt"
	"math"

	"automix/audio"
	"automix/dsp/core"
	"automix/dsp/filter/crossover"
	"automix/fx"
)

// Default multiband split points in Hz and the Linkwitz-Riley order of the
// crossover network.
var defaultCrossoverFreqs = []float64{200, 800, 4000}

const defaultCrossoverOrder = 4

// Per-band ballistics. Low bands move slowly, high bands fast; the tables
// are indexed by band and clamp at the last entry.
var (
	bandAttacksMs  = []float64{30, 15, 8, 4}
	bandReleasesMs = []float64{200, 150, 100, 80}
)

// Control-mode compression bounds, keyed to the frequency axis: the lowest
// band gets the lightest setting and every higher band a deeper threshold
// and stronger ratio, the same direction as the ballistics tables.
const (
	controlMaxThresholdDB = -15.0
	controlMinThresholdDB = -8.0
	controlMaxRatio       = 2.0
	controlMinRatio       = 1.2
)

// Glue-mode compression applied uniformly when dynamics are already tame.
var glueCompressor = fx.CompressorParams{
	ThresholdDB: -6,
	Ratio:       1.1,
	KneeDB:      4,
}

// glueDynamicsDB separates the two modes: material with a dynamic range
// above this gets per-band control, the rest gets uniform glue.
const glueDynamicsDB = 12.0

// bandLevelFloorDB floors the reported level of silent bands.
const bandLevelFloorDB = -100.0

// BandConfig is the planned compressor setting for one frequency band.
type BandConfig struct {
	Index      int
	LowHz      float64 // 0 for the lowest band
	HighHz     float64 // Nyquist for the highest band
	LevelDB    float64 // measured band RMS in dB
	Compressor fx.CompressorParams
}

// MultibandPlanner measures per-band energy through a Linkwitz-Riley
// crossover network and derives a compressor configuration per band.
type MultibandPlanner struct {
	network    *crossover.MultiBand
	freqs      []float64
	sampleRate float64
}

// MultibandOption configures a MultibandPlanner.
type MultibandOption func(*multibandConfig) error

type multibandConfig struct {
	freqs []float64
	order int
}

// WithCrossovers sets the split frequencies in Hz, ascending. Default
// 200, 800, 4000.
func WithCrossovers(freqs []float64) MultibandOption {
	return func(cfg *multibandConfig) error {
		if len(freqs) == 0 {
			return fmt.Errorf("mastering: at least one crossover frequency required")
		}

		cfg.freqs = freqs

		return nil
	}
}

// WithCrossoverOrder sets the Linkwitz-Riley filter order. Must be even.
// Default 4.
func WithCrossoverOrder(order int) MultibandOption {
	return func(cfg *multibandConfig) error {
		if order < 2 || order%2 != 0 {
			return fmt.Errorf("mastering: crossover order must be even and >= 2, got %d", order)
		}

		cfg.order = order

		return nil
	}
}

// NewMultibandPlanner creates a planner with a crossover network at the
// given sample rate.
func NewMultibandPlanner(sampleRate float64, opts ...MultibandOption) (*MultibandPlanner, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("mastering: sample rate must be > 0 and finite: %f", sampleRate)
	}

	cfg := multibandConfig{
		freqs: defaultCrossoverFreqs,
		order: defaultCrossoverOrder,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	network, err := crossover.NewMultiBand(cfg.freqs, cfg.order, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("mastering: crossover network: %w", err)
	}

	return &MultibandPlanner{
		network:    network,
		freqs:      append([]float64(nil), cfg.freqs...),
		sampleRate: sampleRate,
	}, nil
}

// NumBands returns the number of frequency bands.
func (p *MultibandPlanner) NumBands() int { return p.network.NumBands() }

// Plan measures the buffer's per-band energy and derives one compressor
// configuration per band. Material whose overall dynamic range exceeds the
// glue limit gets frequency-keyed control compression; tame material gets a
// uniform glue setting. The measured band levels are reported in the
// returned configs either way.
func (p *MultibandPlanner) Plan(buf *audio.Buffer, dynamicRange float64) ([]BandConfig, error) {
	if buf == nil || buf.Length() == 0 {
		return nil, fmt.Errorf("mastering: buffer is empty")
	}

	p.network.Reset()

	levels := p.network.BandRMS(monoMix(buf))

	bands := make([]BandConfig, len(levels))
	for i, rms := range levels {
		level := core.LinearToDB(rms)
		if !core.IsFinite(level) || level < bandLevelFloorDB {
			level = bandLevelFloorDB
		}

		bands[i] = BandConfig{
			Index:   i,
			LowHz:   p.bandLow(i),
			HighHz:  p.bandHigh(i),
			LevelDB: level,
		}
	}

	if dynamicRange > glueDynamicsDB {
		p.planControl(bands)
	} else {
		p.planGlue(bands)
	}

	return bands, nil
}

// planControl interpolates thresholds and ratios along the frequency axis,
// from the lightest setting on the lowest band to the deepest on the
// highest. The assignment does not depend on the measured band levels, so
// identical material always gets identical settings per band.
func (p *MultibandPlanner) planControl(bands []BandConfig) {
	for i := range bands {
		t := 0.0
		if len(bands) > 1 {
			t = float64(i) / float64(len(bands)-1)
		}

		bands[i].Compressor = fx.CompressorParams{
			ThresholdDB: controlMinThresholdDB + t*(controlMaxThresholdDB-controlMinThresholdDB),
			Ratio:       controlMinRatio + t*(controlMaxRatio-controlMinRatio),
			AttackMs:    bandBallistic(bandAttacksMs, i),
			ReleaseMs:   bandBallistic(bandReleasesMs, i),
			KneeDB:      2,
		}
	}
}

// planGlue applies the uniform glue setting with per-band ballistics.
func (p *MultibandPlanner) planGlue(bands []BandConfig) {
	for i := range bands {
		c := glueCompressor
		c.AttackMs = bandBallistic(bandAttacksMs, i)
		c.ReleaseMs = bandBallistic(bandReleasesMs, i)
		bands[i].Compressor = c
	}
}

// Apply pushes the planned band settings to an effect chain through its
// opaque parameter map, one key group per band.
func (p *MultibandPlanner) Apply(effects fx.Effects, bands []BandConfig) error {
	if effects == nil {
		return fmt.Errorf("mastering: effects chain is nil")
	}

	params := make(map[string]float64, 6*len(bands))

	for _, b := range bands {
		prefix := fmt.Sprintf("mb%d.", b.Index)
		params[prefix+"freq_lo_hz"] = b.LowHz
		params[prefix+"freq_hi_hz"] = b.HighHz
		params[prefix+"threshold_db"] = b.Compressor.ThresholdDB
		params[prefix+"ratio"] = b.Compressor.Ratio
		params[prefix+"attack_ms"] = b.Compressor.AttackMs
		params[prefix+"release_ms"] = b.Compressor.ReleaseMs
	}

	if err := effects.SetParameters(params); err != nil {
		return fmt.Errorf("mastering: multiband params: %w", err)
	}

	return nil
}

func (p *MultibandPlanner) bandLow(i int) float64 {
	if i == 0 {
		return 0
	}

	return p.freqs[i-1]
}

func (p *MultibandPlanner) bandHigh(i int) float64 {
	if i >= len(p.freqs) {
		return p.sampleRate / 2
	}

	return p.freqs[i]
}

func bandBallistic(table []float64, i int) float64 {
	if i >= len(table) {
		i = len(table) - 1
	}

	return table[i]
}

// monoMix averages all channels of a buffer into one slice.
func monoMix(buf *audio.Buffer) []float64 {
	if buf.NumChannels() == 1 {
		return buf.Channel(0)
	}

	mono := make([]float64, buf.Length())
	scale := 1 / float64(buf.NumChannels())

	for ch := 0; ch < buf.NumChannels(); ch++ {
		for i, x := range buf.Channel(ch) {
			mono[i] += x * scale
		}
	}

	return mono
}
