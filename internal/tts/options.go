package tts

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/chatvoice/internal/audio"
	"github.com/dgnsrekt/chatvoice/internal/native"
	"github.com/dgnsrekt/chatvoice/internal/observe"
)

// Option configures an Engine.
type Option func(*Engine)

// WithPlayer sets the audio output. A nil Player leaves the engine without
// output.
func WithPlayer(p Player) Option {
	return func(e *Engine) {
		e.player = p
	}
}

// WithCache sets the clip cache. The default never hits.
func WithCache(c Cache) Option {
	return func(e *Engine) {
		if c != nil {
			e.cache = c
		}
	}
}

// WithNative sets the host speech engine used as the last fallback.
func WithNative(n native.Engine) Option {
	return func(e *Engine) {
		if n != nil {
			e.native = n
		}
	}
}

// WithEncoder replaces audio.Encode.
func WithEncoder(fn func(*audio.Buffer) ([]byte, error)) Option {
	return func(e *Engine) {
		if fn != nil {
			e.encode = fn
		}
	}
}

// WithMetrics sets the metrics sink. The default is observe.DefaultMetrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithStatusHook registers fn to receive state changes. Calls are
// serialized and in order; a change overtaken by a newer one is skipped. fn
// may read Status but must not call Speak, Stop or ApplySettings.
func WithStatusHook(fn func(Status)) Option {
	return func(e *Engine) {
		e.onStatus = fn
	}
}

// WithTone plays a short tone when every fallback failed.
func WithTone(enabled bool) Option {
	return func(e *Engine) {
		e.tone = enabled
	}
}

// WithSampleRate sets the rate of the failure tone. It defaults to the
// synthesizer's rate.
func WithSampleRate(hz int) Option {
	return func(e *Engine) {
		if hz > 0 {
			e.sampleRate = hz
		}
	}
}

// WithLanguage sets the BCP 47 tag used to choose native voices.
func WithLanguage(tag string) Option {
	return func(e *Engine) {
		if tag != "" {
			e.language = tag
		}
	}
}

// WithSettings sets the initial speech preferences.
func WithSettings(s Settings) Option {
	return func(e *Engine) {
		e.settings = s.parse()
	}
}

// withCloser hands c to the engine; Close closes it.
func withCloser(c io.Closer) Option {
	return func(e *Engine) {
		e.closers = append(e.closers, c)
	}
}
