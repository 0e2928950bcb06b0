package mastering

import "testing"

func TestParsePlatform(t *testing.T) {
	tests := []struct {
		input string
		want  Platform
	}{
		{"spotify", PlatformSpotify},
		{"Spotify", PlatformSpotify},
		{" YOUTUBE ", PlatformYouTube},
		{"apple", PlatformAppleMusic},
		{"soundcloud", PlatformSoundCloud},
		{"custom", PlatformCustom},
	}

	for _, tt := range tests {
		got, err := ParsePlatform(tt.input)
		if err != nil {
			t.Fatalf("ParsePlatform(%q) error = %v", tt.input, err)
		}

		if got != tt.want {
			t.Fatalf("ParsePlatform(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}

	if _, err := ParsePlatform("vinyl"); err == nil {
		t.Fatal("unknown platform: error = nil, want error")
	}
}

func TestPlatformTargets(t *testing.T) {
	tests := []struct {
		platform Platform
		want     float64
	}{
		{PlatformSpotify, -14},
		{PlatformYouTube, -14},
		{PlatformAppleMusic, -16},
		{PlatformSoundCloud, -10},
	}

	for _, tt := range tests {
		got, ok := tt.platform.TargetLUFS()
		if !ok {
			t.Fatalf("%v: no built-in target", tt.platform)
		}

		if got != tt.want {
			t.Fatalf("%v: target = %v, want %v", tt.platform, got, tt.want)
		}
	}

	if _, ok := PlatformCustom.TargetLUFS(); ok {
		t.Fatal("custom platform has a built-in target")
	}
}
