package tts

import (
	"math"
	"strconv"
	"strings"

	"github.com/dgnsrekt/chatvoice/internal/config"
)

// Settings are the per-conversation speech preferences as stored by the
// chat layer. SpeechRate is a decimal string.
type Settings struct {
	Enabled    bool
	Voice      string
	SpeechRate string
}

// settings is the parsed form of Settings.
type settings struct {
	enabled bool
	voice   string
	rate    float64
}

func (s Settings) parse() settings {
	return settings{
		enabled: s.Enabled,
		voice:   strings.ToLower(strings.TrimSpace(s.Voice)),
		rate:    ParseRate(s.SpeechRate),
	}
}

// ParseRate converts a stored rate. Unparsable values give 1.0 and
// out-of-range values are clamped to [config.MinRate, config.MaxRate].
func ParseRate(s string) float64 {
	r, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(r) {
		return 1.0
	}
	return ClampRate(r)
}

// ClampRate limits r to the supported speaking rates.
func ClampRate(r float64) float64 {
	switch {
	case r < config.MinRate:
		return config.MinRate
	case r > config.MaxRate:
		return config.MaxRate
	}
	return r
}
