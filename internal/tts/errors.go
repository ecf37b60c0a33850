package tts

import (
	"errors"
	"fmt"
)

var (
	// ErrAudioUnavailable means the output device could not be opened.
	ErrAudioUnavailable = errors.New("audio output unavailable")

	// ErrClosed is returned by Speak after Close.
	ErrClosed = errors.New("speech engine closed")

	// ErrPlaybackFailed wraps a player that refused to start a clip.
	ErrPlaybackFailed = errors.New("audio playback failed")
)

// Kind classifies a failure by how far it propagates.
type Kind string

const (
	// KindRecoverable failures are absorbed by the next rung of the
	// fallback ladder.
	KindRecoverable Kind = "recoverable"

	// KindTerminal failures end the request. The engine returns to Idle and
	// stays usable.
	KindTerminal Kind = "terminal"

	// KindRejected marks input that was dropped without speaking.
	KindRejected Kind = "rejected"
)

// Stage names the step of a request where an error happened.
type Stage string

const (
	StageStartup      Stage = "startup"
	StagePreparing    Stage = "preparing"
	StageCacheCheck   Stage = "cache_check"
	StageSynthesizing Stage = "synthesizing"
	StageEncoding     Stage = "encoding"
	StageCaching      Stage = "caching"
	StagePlaying      Stage = "playing"
	StageFallback     Stage = "fallback"
)

// Error is a classified failure of a speak request.
type Error struct {
	Kind  Kind
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTerminal reports whether err ended a request.
func IsTerminal(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindTerminal
}

// stageOf returns the stage recorded in err, or fallback when err is not an
// *Error.
func stageOf(err error, fallback Stage) Stage {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return fallback
}
