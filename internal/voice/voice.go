// Package voice holds the static catalog of synthetic voices and their
// acoustic parameters.
package voice

import "strings"

// WaveShape is the periodic waveform used by a formant oscillator.
type WaveShape string

// Supported oscillator shapes.
const (
	Sine     WaveShape = "sine"
	Triangle WaveShape = "triangle"
	Sawtooth WaveShape = "sawtooth"
	Square   WaveShape = "square"
)

// Formant describes one resonant band. Its position in Profile.Formants is
// the synthesis channel index.
type Formant struct {
	FrequencyHz float64
	Gain        float64 // 0..1
	Shape       WaveShape
}

// Profile identifies a synthetic voice.
type Profile struct {
	ID          string
	DisplayName string
	Gender      string
	Description string

	BaseFrequencyHz float64
	Formants        []Formant
	EmphasisFactor  float64
	Breathiness     float64 // 0..1, noise admixture
	SyllableRate    float64
}

// DefaultID is the id of the profile returned for unknown voices.
const DefaultID = "default"

var defaultProfile = Profile{
	ID:              DefaultID,
	DisplayName:     "Default",
	Gender:          "Neutral",
	Description:     "Plain reference voice used when a voice id is unknown.",
	BaseFrequencyHz: 160,
	Formants: []Formant{
		{FrequencyHz: 500, Gain: 1.0, Shape: Sine},
		{FrequencyHz: 1500, Gain: 0.5, Shape: Sine},
		{FrequencyHz: 2500, Gain: 0.25, Shape: Sine},
	},
	EmphasisFactor: 1.2,
	Breathiness:    0.1,
	SyllableRate:   4.0,
}

// catalog is ordered; Catalog returns it in this order.
var catalog = []Profile{
	{
		ID:              "alloy",
		DisplayName:     "Alloy",
		Gender:          "Neutral",
		Description:     "Balanced mid-range voice with a soft, even timbre.",
		BaseFrequencyHz: 165,
		Formants: []Formant{
			{FrequencyHz: 550, Gain: 1.0, Shape: Sine},
			{FrequencyHz: 1600, Gain: 0.55, Shape: Triangle},
			{FrequencyHz: 2600, Gain: 0.25, Shape: Sine},
		},
		EmphasisFactor: 1.2,
		Breathiness:    0.1,
		SyllableRate:   4.0,
	},
	{
		ID:              "echo",
		DisplayName:     "Echo",
		Gender:          "Male",
		Description:     "Low, resonant male voice.",
		BaseFrequencyHz: 110,
		Formants: []Formant{
			{FrequencyHz: 450, Gain: 1.0, Shape: Sawtooth},
			{FrequencyHz: 1250, Gain: 0.45, Shape: Sine},
			{FrequencyHz: 2300, Gain: 0.2, Shape: Sine},
		},
		EmphasisFactor: 1.15,
		Breathiness:    0.05,
		SyllableRate:   3.8,
	},
	{
		ID:              "fable",
		DisplayName:     "Fable",
		Gender:          "Male",
		Description:     "Warm storytelling voice with pronounced emphasis.",
		BaseFrequencyHz: 130,
		Formants: []Formant{
			{FrequencyHz: 500, Gain: 1.0, Shape: Triangle},
			{FrequencyHz: 1400, Gain: 0.6, Shape: Sine},
			{FrequencyHz: 2450, Gain: 0.3, Shape: Triangle},
		},
		EmphasisFactor: 1.35,
		Breathiness:    0.15,
		SyllableRate:   3.6,
	},
	{
		ID:              "onyx",
		DisplayName:     "Onyx",
		Gender:          "Male",
		Description:     "Deep, authoritative voice.",
		BaseFrequencyHz: 95,
		Formants: []Formant{
			{FrequencyHz: 400, Gain: 1.0, Shape: Square},
			{FrequencyHz: 1100, Gain: 0.4, Shape: Sine},
			{FrequencyHz: 2200, Gain: 0.15, Shape: Sine},
		},
		EmphasisFactor: 1.1,
		Breathiness:    0.05,
		SyllableRate:   3.5,
	},
	{
		ID:              "nova",
		DisplayName:     "Nova",
		Gender:          "Female",
		Description:     "Bright, energetic female voice.",
		BaseFrequencyHz: 220,
		Formants: []Formant{
			{FrequencyHz: 650, Gain: 1.0, Shape: Sine},
			{FrequencyHz: 1850, Gain: 0.6, Shape: Sine},
			{FrequencyHz: 2900, Gain: 0.3, Shape: Triangle},
		},
		EmphasisFactor: 1.25,
		Breathiness:    0.12,
		SyllableRate:   4.4,
	},
	{
		ID:              "shimmer",
		DisplayName:     "Shimmer",
		Gender:          "Female",
		Description:     "Light, airy female voice with noticeable breath.",
		BaseFrequencyHz: 240,
		Formants: []Formant{
			{FrequencyHz: 700, Gain: 1.0, Shape: Triangle},
			{FrequencyHz: 2000, Gain: 0.5, Shape: Sine},
			{FrequencyHz: 3100, Gain: 0.35, Shape: Sine},
		},
		EmphasisFactor: 1.2,
		Breathiness:    0.3,
		SyllableRate:   4.2,
	},
}

// Lookup returns the profile for id. Unknown ids resolve to Default; Lookup
// never fails. Matching is case-insensitive.
func Lookup(id string) Profile {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, p := range catalog {
		if p.ID == id {
			return p.clone()
		}
	}
	return Default()
}

// Known reports whether id names a built-in voice.
func Known(id string) bool {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, p := range catalog {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Default returns the designated fallback profile.
func Default() Profile {
	return defaultProfile.clone()
}

// Catalog returns the built-in voices in presentation order.
func Catalog() []Profile {
	out := make([]Profile, len(catalog))
	for i, p := range catalog {
		out[i] = p.clone()
	}
	return out
}

// clone copies the formant slice so callers cannot mutate the table.
func (p Profile) clone() Profile {
	f := make([]Formant, len(p.Formants))
	copy(f, p.Formants)
	p.Formants = f
	return p
}
