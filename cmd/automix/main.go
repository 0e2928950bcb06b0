// Command automix runs an automatic mix and mastering pass over a
// synthesized demo session and prints every decision the pipeline makes.
//
// Usage:
//
//	automix [flags]
//
// Examples:
//
//	automix
//	automix -platform apple
//	automix -target -11.5
//	automix -rate 44100 -seconds 2 -v
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"go.uber.org/zap"

	"automix/audio"
	"automix/dsp/core"
	"automix/dsp/signal"
	"automix/fx"
	"automix/mastering"
	"automix/mix"
)

func main() {
	rate := flag.Float64("rate", 48000, "sample rate in Hz")
	seconds := flag.Float64("seconds", 1, "length of the synthesized session")
	platform := flag.String("platform", "spotify", "mastering target platform (spotify, youtube, apple, soundcloud)")
	target := flag.Float64("target", math.NaN(), "custom mastering target in LUFS (overrides -platform)")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: automix [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Synthesizes a demo session, runs the automatic mixer and the\n")
		fmt.Fprintf(os.Stderr, "mastering chain over it, and prints every decision.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(*rate, *seconds, *platform, *target, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(rate, seconds float64, platform string, target float64, verbose bool) error {
	if seconds <= 0 {
		return fmt.Errorf("session length must be positive")
	}

	log := zap.NewNop()
	if verbose {
		dev, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer func() { _ = dev.Sync() }()
		log = dev
	}

	ctx := context.Background()
	samples := int(rate * seconds)

	tracks, err := demoSession(rate, samples)
	if err != nil {
		return err
	}

	rack := fx.NewMemoryRack()

	mixer, err := mix.New(rack, mix.WithLogger(log))
	if err != nil {
		return err
	}
	defer func() { _ = mixer.Close() }()

	res, err := mixer.Mix(ctx, tracks)
	if err != nil {
		return err
	}

	fmt.Printf("mix pass %s\n\n", res.PassID)
	printMixAdjustments(res)
	printRecommendations(res.Recommendations)

	master, err := demoMaster(rate, samples)
	if err != nil {
		return err
	}

	masterRack := fx.NewMemoryRack()

	chainOpts := []mastering.ChainOption{mastering.WithChainLogger(log)}
	if !math.IsNaN(target) {
		chainOpts = append(chainOpts, mastering.WithTargetLUFS(target))
	} else {
		p, err := mastering.ParsePlatform(platform)
		if err != nil {
			return err
		}
		chainOpts = append(chainOpts, mastering.WithPlatform(p))
	}

	chain, err := mastering.NewChain(masterRack, chainOpts...)
	if err != nil {
		return err
	}
	defer func() { _ = chain.Close() }()

	rep, err := chain.Master(ctx, master)
	if err != nil {
		return err
	}

	fmt.Printf("\nmastering pass %s (%s, target %.1f LUFS)\n\n",
		rep.PassID, rep.Platform, rep.TargetLUFS)
	printMasteringReport(rep)
	printRecommendations(rep.Recommendations)

	return nil
}

// demoSession synthesizes a four-track session: a kick, a bass line, a
// lead, and a hi-hat, all deterministic.
func demoSession(rate float64, samples int) ([]mix.Track, error) {
	gen := signal.NewGenerator(
		[]core.ProcessorOption{core.WithSampleRate(rate)},
		signal.WithSeed(1),
	)

	period := int(rate / 2) // two hits per second
	burst := int(rate / 20)

	kick, err := gen.SineBursts(60, 0.9, samples, period, burst)
	if err != nil {
		return nil, err
	}

	bass, err := gen.Sine(80, 0.5, samples)
	if err != nil {
		return nil, err
	}

	lead, err := gen.Sine(1000, 0.4, samples)
	if err != nil {
		return nil, err
	}

	hat, err := gen.WhiteNoise(0.2, samples)
	if err != nil {
		return nil, err
	}

	defs := []struct {
		id   string
		data []float64
	}{
		{"kick", kick},
		{"bass", bass},
		{"lead", lead},
		{"hat", hat},
	}

	tracks := make([]mix.Track, 0, len(defs))

	for _, s := range defs {
		buf, err := audio.Mono(rate, s.data)
		if err != nil {
			return nil, fmt.Errorf("track %q: %w", s.id, err)
		}

		tracks = append(tracks, mix.Track{ID: s.id, Buffer: buf})
	}

	return tracks, nil
}

// demoMaster synthesizes a quiet, slightly narrow stereo premaster.
func demoMaster(rate float64, samples int) (*audio.Buffer, error) {
	gen := signal.NewGenerator(
		[]core.ProcessorOption{core.WithSampleRate(rate)},
		signal.WithSeed(2),
	)

	tone, err := gen.Sine(220, 0.15, samples)
	if err != nil {
		return nil, err
	}

	noise, err := gen.WhiteNoise(0.02, samples)
	if err != nil {
		return nil, err
	}

	left := make([]float64, samples)
	right := make([]float64, samples)

	for i := range left {
		left[i] = tone[i] + noise[i]
		right[i] = tone[i] - noise[i]
	}

	return audio.Stereo(rate, left, right)
}

func printMixAdjustments(res *mix.Result) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Track\tParameter\tValue\tReason\n")
	fmt.Fprintf(tw, "-----\t---------\t-----\t------\n")

	for _, adj := range res.Adjustments {
		fmt.Fprintf(tw, "%s\t%s\t%.3f\t%s\n",
			adj.TrackID, adj.Parameter, adj.Value, adj.Reason)
	}

	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}

func printMasteringReport(rep *mastering.Report) {
	m := rep.Metrics
	fmt.Printf("input %.1f LUFS, output %.1f LUFS, dynamic range %.1f dB, peak %.1f dB, width %.2f\n\n",
		m.InputLUFS, m.OutputLUFS, m.DynamicRange, m.TruePeakDB, m.StereoWidth)

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Stage\tParameter\tValue\tReason\n")
	fmt.Fprintf(tw, "-----\t---------\t-----\t------\n")

	for _, adj := range rep.Adjustments {
		fmt.Fprintf(tw, "%s\t%s\t%.3f\t%s\n",
			adj.Stage, adj.Parameter, adj.Value, adj.Reason)
	}

	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}

func printRecommendations(recs []string) {
	if len(recs) == 0 {
		return
	}

	fmt.Println()

	for _, r := range recs {
		fmt.Printf("note: %s\n", r)
	}
}
