package core

import "testing"

func TestApplyProcessorOptionsDefaults(t *testing.T) {
	cfg := ApplyProcessorOptions()

	if cfg.SampleRate != 48000 {
		t.Fatalf("SampleRate = %v, want 48000", cfg.SampleRate)
	}

	if cfg.BlockSize != 1024 {
		t.Fatalf("BlockSize = %d, want 1024", cfg.BlockSize)
	}
}

func TestApplyProcessorOptionsOverrides(t *testing.T) {
	cfg := ApplyProcessorOptions(WithSampleRate(44100), WithBlockSize(256))

	if cfg.SampleRate != 44100 {
		t.Fatalf("SampleRate = %v, want 44100", cfg.SampleRate)
	}

	if cfg.BlockSize != 256 {
		t.Fatalf("BlockSize = %d, want 256", cfg.BlockSize)
	}
}

func TestApplyProcessorOptionsIgnoresInvalid(t *testing.T) {
	cfg := ApplyProcessorOptions(WithSampleRate(-1), WithBlockSize(0), nil)

	if cfg != DefaultProcessorConfig() {
		t.Fatalf("got %+v, want defaults", cfg)
	}
}
