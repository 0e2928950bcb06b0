package audio

import "testing"

func TestNewAllocatesZeroedChannels(t *testing.T) {
	buf, err := New(48000, 2, 64)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := buf.NumChannels(); got != 2 {
		t.Fatalf("NumChannels() = %d, want 2", got)
	}

	if got := buf.Length(); got != 64 {
		t.Fatalf("Length() = %d, want 64", got)
	}

	for ch := 0; ch < buf.NumChannels(); ch++ {
		for i, x := range buf.Channel(ch) {
			if x != 0 {
				t.Fatalf("channel %d sample %d = %v, want 0", ch, i, x)
			}
		}
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name     string
		rate     float64
		channels int
		length   int
	}{
		{"zero rate", 0, 1, 16},
		{"negative rate", -1, 1, 16},
		{"zero channels", 48000, 0, 16},
		{"negative length", 48000, 1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.rate, tt.channels, tt.length); err == nil {
				t.Fatal("New() error = nil, want error")
			}
		})
	}
}

func TestFromChannelsSharesSlices(t *testing.T) {
	left := []float64{1, 2, 3}
	right := []float64{4, 5, 6}

	buf, err := Stereo(48000, left, right)
	if err != nil {
		t.Fatalf("Stereo() error = %v", err)
	}

	buf.Channel(0)[1] = 99

	if left[1] != 99 {
		t.Fatal("Channel() returned a copy, want shared slice")
	}
}

func TestFromChannelsRejectsMismatchedLengths(t *testing.T) {
	if _, err := FromChannels(48000, []float64{1, 2}, []float64{1}); err == nil {
		t.Fatal("FromChannels() error = nil, want error")
	}
}

func TestMonoAndDuration(t *testing.T) {
	buf, err := Mono(1000, make([]float64, 500))
	if err != nil {
		t.Fatalf("Mono() error = %v", err)
	}

	if got := buf.NumChannels(); got != 1 {
		t.Fatalf("NumChannels() = %d, want 1", got)
	}

	if got := buf.Duration(); got != 0.5 {
		t.Fatalf("Duration() = %v, want 0.5", got)
	}
}
