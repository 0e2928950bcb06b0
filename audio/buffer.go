// Package audio provides the multi-channel sample buffer consumed by the
// analyzer, the automatic mixer, and the mastering chain.
package audio

import "fmt"

// Buffer is a fixed-length, multi-channel block of floating-point samples
// at a known sample rate. Channels are stored non-interleaved; all channels
// have the same length.
type Buffer struct {
	sampleRate float64
	channels   [][]float64
}

// New allocates a buffer with the given channel count and length.
func New(sampleRate float64, numChannels, length int) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("audio: sample rate must be positive, got %v", sampleRate)
	}
	if numChannels <= 0 {
		return nil, fmt.Errorf("audio: channel count must be positive, got %d", numChannels)
	}
	if length < 0 {
		return nil, fmt.Errorf("audio: length must be non-negative, got %d", length)
	}

	channels := make([][]float64, numChannels)
	for i := range channels {
		channels[i] = make([]float64, length)
	}

	return &Buffer{sampleRate: sampleRate, channels: channels}, nil
}

// FromChannels wraps existing per-channel sample slices without copying.
// All channels must have the same length.
func FromChannels(sampleRate float64, channels ...[]float64) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("audio: sample rate must be positive, got %v", sampleRate)
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("audio: at least one channel is required")
	}
	for i := 1; i < len(channels); i++ {
		if len(channels[i]) != len(channels[0]) {
			return nil, fmt.Errorf("audio: channel %d length %d does not match channel 0 length %d",
				i, len(channels[i]), len(channels[0]))
		}
	}

	return &Buffer{sampleRate: sampleRate, channels: channels}, nil
}

// Mono wraps a single sample slice as a one-channel buffer.
func Mono(sampleRate float64, samples []float64) (*Buffer, error) {
	return FromChannels(sampleRate, samples)
}

// Stereo wraps left/right sample slices as a two-channel buffer.
func Stereo(sampleRate float64, left, right []float64) (*Buffer, error) {
	return FromChannels(sampleRate, left, right)
}

// SampleRate returns the sample rate in Hz.
func (b *Buffer) SampleRate() float64 { return b.sampleRate }

// NumChannels returns the channel count.
func (b *Buffer) NumChannels() int { return len(b.channels) }

// Length returns the per-channel sample count.
func (b *Buffer) Length() int {
	if len(b.channels) == 0 {
		return 0
	}

	return len(b.channels[0])
}

// Channel returns the sample slice for channel i. The slice is shared, not
// copied; processors that modify it operate on the buffer in place.
func (b *Buffer) Channel(i int) []float64 { return b.channels[i] }

// Duration returns the buffer duration in seconds.
func (b *Buffer) Duration() float64 {
	return float64(b.Length()) / b.sampleRate
}
