// Package native drives the host's own speech engine. It is the last rung of
// the fallback ladder: when offline rendering or playback fails the text is
// handed to espeak-ng, espeak or macOS say.
package native

import (
	"context"
	"errors"
)

// ErrNoNativeEngine is returned when no speech program is installed.
var ErrNoNativeEngine = errors.New("no native speech engine available")

// Voice is one voice offered by the host engine.
type Voice struct {
	// ID is the value passed to the engine to select the voice.
	ID       string
	Name     string
	Language string // BCP 47 where the engine reports one
	Gender   string // "male", "female" or empty when unknown
}

// Request is a single utterance.
type Request struct {
	Text string
	// Voice is a Voice.ID; empty uses the engine default.
	Voice string
	// Rate scales the engine's normal speaking rate; 1.0 is normal.
	Rate float64
}

// Engine is a host speech engine. At most one utterance is audible: Speak
// cancels the previous one.
type Engine interface {
	Name() string
	Available() bool
	Voices(ctx context.Context) ([]Voice, error)
	// Speak starts the utterance and returns a channel closed when it ends
	// or is cancelled.
	Speak(ctx context.Context, req Request) (<-chan struct{}, error)
	// Cancel stops the current utterance, if any.
	Cancel()
}

// None is the Engine used when the host has no speech program.
type None struct{}

func (None) Name() string { return "none" }

func (None) Available() bool { return false }

func (None) Voices(context.Context) ([]Voice, error) { return nil, ErrNoNativeEngine }

func (None) Speak(context.Context, Request) (<-chan struct{}, error) {
	return nil, ErrNoNativeEngine
}

func (None) Cancel() {}
