package mastering

import (
	"fmt"
	"strings"
)

// Platform identifies the delivery target the chain masters toward. Each
// platform carries the integrated loudness its normalization stage aims
// for.
type Platform string

const (
	PlatformSpotify    Platform = "spotify"
	PlatformYouTube    Platform = "youtube"
	PlatformAppleMusic Platform = "apple"
	PlatformSoundCloud Platform = "soundcloud"
	PlatformCustom     Platform = "custom"
)

// platformTargets maps each known platform to its loudness target in LUFS.
var platformTargets = map[Platform]float64{
	PlatformSpotify:    -14,
	PlatformYouTube:    -14,
	PlatformAppleMusic: -16,
	PlatformSoundCloud: -10,
}

// ParsePlatform maps a platform name to its Platform value,
// case-insensitively.
func ParsePlatform(name string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(name)))
	switch p {
	case PlatformSpotify, PlatformYouTube, PlatformAppleMusic,
		PlatformSoundCloud, PlatformCustom:
		return p, nil
	}

	return "", fmt.Errorf("mastering: unknown platform %q", name)
}

// TargetLUFS returns the loudness target of a known platform. Custom has
// no built-in target; its loudness is supplied per chain.
func (p Platform) TargetLUFS() (float64, bool) {
	target, ok := platformTargets[p]

	return target, ok
}
