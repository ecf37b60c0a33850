package synth

import (
	"math"
	"math/rand/v2"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgnsrekt/chatvoice/internal/voice"
)

// oscillator is a phase accumulator; phase is kept in cycles so frequency
// changes between samples never produce discontinuities.
type oscillator struct {
	harmonic float64
	gain     float64
	shape    voice.WaveShape
	phase    float64
}

func (o *oscillator) next(fundamental, sampleRate float64) float64 {
	v := wave(o.shape, o.phase)
	o.phase += fundamental * o.harmonic / sampleRate
	o.phase -= math.Floor(o.phase)
	return v * o.gain
}

func wave(shape voice.WaveShape, phase float64) float64 {
	switch shape {
	case voice.Triangle:
		return 4*math.Abs(phase-0.5) - 1
	case voice.Sawtooth:
		return 2*phase - 1
	case voice.Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

// bank is the fundamental plus one oscillator per formant. Formants sit on
// the nearest harmonic of the base frequency so they follow pitch changes.
type bank struct {
	oscs  []*oscillator
	total float64
}

func newBank(p voice.Profile) *bank {
	b := &bank{oscs: []*oscillator{{harmonic: 1, gain: 1, shape: voice.Sine}}}
	b.total = 1
	for _, f := range p.Formants {
		if f.Gain <= 0 || f.FrequencyHz <= 0 {
			continue
		}
		h := math.Max(1, math.Round(f.FrequencyHz/p.BaseFrequencyHz))
		b.oscs = append(b.oscs, &oscillator{harmonic: h, gain: f.Gain, shape: f.Shape})
		b.total += f.Gain
	}
	return b
}

// next returns the normalized mix in [-1, 1].
func (b *bank) next(fundamental, sampleRate float64) float64 {
	var sum float64
	for _, o := range b.oscs {
		sum += o.next(fundamental, sampleRate)
	}
	return sum / b.total
}

type renderer struct {
	out        []float64
	sampleRate float64
	profile    voice.Profile
	rate       float64
	bank       *bank
	noise      *rand.Rand
}

// span is a run of samples rendered with one gain, usually a word.
type span struct {
	start, end int
	gain       float64
}

// sentence renders out[start:end] for one sentence.
func (r *renderer) sentence(index int, text string, start, end int, prosody bool) {
	pitch := r.profile.BaseFrequencyHz * sentencePitch(index)
	spans := []span{{start: start, end: end, gain: 1}}
	if prosody {
		if ws := wordSpans(text, start, end, r.profile.EmphasisFactor); len(ws) > 0 {
			spans = ws
		}
	}

	gap := int(wordGapSeconds * r.sampleRate)
	syllableHz := r.profile.SyllableRate * r.rate
	for _, s := range spans {
		length := s.end - s.start
		for i := s.start; i < s.end; i++ {
			bend, gain := 1.0, s.gain
			if prosody {
				t := float64(i-s.start) / float64(max(length, 1))
				bend += wordPitchBend * math.Sin(math.Pi*t)
				if syllableHz > 0 {
					secs := float64(i-s.start) / r.sampleRate
					gain *= 1 - syllableDepth*(0.5-0.5*math.Cos(2*math.Pi*syllableHz*secs))
				}
				if length > 2*gap && i >= s.end-gap {
					gain *= wordGapGain
				}
			}
			v := r.bank.next(pitch*bend, r.sampleRate)
			if r.profile.Breathiness > 0 {
				v += r.profile.Breathiness * breathGain * (r.noise.Float64()*2 - 1)
			}
			r.out[i] = v * gain
		}
	}
}

// wordSpans divides [start, end) among the words of text in proportion to
// their length. The first word of the sentence and words carrying trailing
// punctuation are emphasized.
func wordSpans(text string, start, end int, emphasis float64) []span {
	words := strings.Fields(text)
	if len(words) == 0 || end <= start {
		return nil
	}
	if emphasis <= 0 {
		emphasis = 1
	}

	weights := make([]int, len(words))
	var total int
	for i, w := range words {
		weights[i] = utf8.RuneCountInString(w) + 1
		total += weights[i]
	}

	spans := make([]span, 0, len(words))
	length := end - start
	var acc int
	for i, w := range words {
		s := start + acc*length/total
		acc += weights[i]
		e := start + acc*length/total
		if e <= s {
			continue
		}
		gain := 1.0
		if i == 0 || endsWithPunct(w) {
			gain = emphasis
		}
		spans = append(spans, span{start: s, end: e, gain: gain})
	}
	return spans
}

func endsWithPunct(word string) bool {
	r, _ := utf8.DecodeLastRuneInString(word)
	return r != utf8.RuneError && unicode.IsPunct(r)
}
