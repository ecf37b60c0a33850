// Package synth renders speech-like audio from text without any external
// service. A voice profile drives a bank of oscillators; sentence and word
// structure shape pitch and amplitude.
package synth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/chatvoice/internal/audio"
	"github.com/dgnsrekt/chatvoice/internal/voice"
)

// Pacing heuristics. They are tunable constants, not calibrated values.
const (
	WordsPerMinute = 150.0
	CharsPerWord   = 5.0

	// MaxSeconds bounds the rendered length regardless of text length.
	MaxSeconds = 10.0

	attackSeconds  = 0.020
	releaseSeconds = 0.050
	envelopePeak   = 0.5

	raisedPitch  = 1.05
	loweredPitch = 0.97

	wordPitchBend  = 0.04
	syllableDepth  = 0.3
	wordGapSeconds = 0.012
	wordGapGain    = 0.4
	breathGain     = 0.2

	toneSeconds = 0.5
	toneHz      = 440.0
)

// ErrSynthesis reports an irrecoverable rendering failure.
var ErrSynthesis = errors.New("synthesis failed")

// Options configures a Synthesizer.
type Options struct {
	// SampleRate is the output rate, normally the device's native rate.
	SampleRate int
	// Prosody enables the per-word pitch and emphasis pass.
	Prosody bool
	// ProsodyWordLimit skips the prosody pass for texts with more words.
	// Zero means no limit.
	ProsodyWordLimit int
	Logger           *log.Logger
}

// DefaultOptions returns full-fidelity settings at 44.1 kHz.
func DefaultOptions() Options {
	return Options{
		SampleRate:       44100,
		Prosody:          true,
		ProsodyWordLimit: 400,
	}
}

// Synthesizer turns text into mono sample buffers.
type Synthesizer struct {
	opts   Options
	logger *log.Logger
}

// New returns a Synthesizer.
func New(opts Options) *Synthesizer {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("synth")
	}
	return &Synthesizer{opts: opts, logger: logger}
}

// SampleRate returns the output sample rate.
func (s *Synthesizer) SampleRate() int {
	return s.opts.SampleRate
}

// Synthesize renders text with the given voice at rate (1.0 is normal
// speed). Long text is compressed into at most MaxSeconds of audio. Only an
// unusable output format or a cancelled ctx is an error; everything else
// degrades quality instead.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, p voice.Profile, rate float64) (*audio.Buffer, error) {
	if s.opts.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrSynthesis, s.opts.SampleRate)
	}
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		rate = 1
	}
	if p.BaseFrequencyHz <= 0 {
		p.BaseFrequencyHz = voice.Default().BaseFrequencyHz
	}

	n := SampleCount(utf8.RuneCountInString(text), rate, s.opts.SampleRate)
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}

	prosody := s.opts.Prosody
	if words := len(strings.Fields(text)); prosody && s.opts.ProsodyWordLimit > 0 && words > s.opts.ProsodyWordLimit {
		s.logger.Debug("skipping prosody pass", "words", words, "limit", s.opts.ProsodyWordLimit)
		prosody = false
	}

	buf := audio.NewMonoBuffer(s.opts.SampleRate, n)
	r := &renderer{
		out:        buf.Channels[0],
		sampleRate: float64(s.opts.SampleRate),
		profile:    p,
		rate:       rate,
		bank:       newBank(p),
		noise:      rand.New(rand.NewPCG(uint64(n), uint64(len(sentences)))),
	}
	for i, sentence := range sentences {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := i * n / len(sentences)
		end := (i + 1) * n / len(sentences)
		r.sentence(i, sentence, start, end, prosody)
	}
	applyEnvelope(buf.Channels[0], s.opts.SampleRate)

	s.logger.Debug("rendered",
		"voice", p.ID,
		"chars", len(text),
		"sentences", len(sentences),
		"samples", n,
		"prosody", prosody)
	return buf, nil
}

// SampleCount converts a text length into a clamped number of samples:
// (chars / 5) words at 150 words per minute, scaled by rate, at most
// MaxSeconds long and never empty.
func SampleCount(chars int, rate float64, sampleRate int) int {
	if rate <= 0 {
		rate = 1
	}
	words := float64(chars) / CharsPerWord
	seconds := (words / WordsPerMinute) * 60 / rate
	n := int(math.Round(seconds * float64(sampleRate)))
	if limit := int(MaxSeconds * float64(sampleRate)); n > limit {
		n = limit
	}
	if n < 1 {
		n = 1
	}
	return n
}

// SplitSentences splits on '.', '!' and '?' and drops empty segments.
func SplitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sentencePitch alternates a small pitch offset so consecutive sentences
// are not delivered on the same note.
func sentencePitch(index int) float64 {
	if index%2 == 0 {
		return raisedPitch
	}
	return loweredPitch
}

// Tone renders the short fallback cue: a 440 Hz sine with the same fade in
// and out as speech.
func Tone(sampleRate int) *audio.Buffer {
	n := int(toneSeconds * float64(sampleRate))
	buf := audio.NewMonoBuffer(sampleRate, n)
	for i := range buf.Channels[0] {
		buf.Channels[0][i] = math.Sin(2 * math.Pi * toneHz * float64(i) / float64(sampleRate))
	}
	applyEnvelope(buf.Channels[0], sampleRate)
	return buf
}

// applyEnvelope ramps 0 to envelopePeak over the attack, holds, and ramps
// back to 0 over the release so buffer edges do not click. Very short
// buffers shrink both ramps proportionally.
func applyEnvelope(samples []float64, sampleRate int) {
	n := len(samples)
	if n == 0 {
		return
	}
	attack := int(attackSeconds * float64(sampleRate))
	release := int(releaseSeconds * float64(sampleRate))
	if attack+release > n {
		attack = n * 2 / 7
		release = n - attack
	}
	for i := range samples {
		e := envelopePeak
		if attack > 0 && i < attack {
			e *= float64(i) / float64(attack)
		}
		if tail := n - 1 - i; release > 0 && tail < release {
			e = math.Min(e, envelopePeak*float64(tail)/float64(release))
		}
		samples[i] *= e
	}
}
