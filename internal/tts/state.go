package tts

// State is a step of the speak state machine.
type State int

const (
	StateIdle State = iota
	StatePreparing
	StateCacheCheck
	StateSynthesizing
	StateEncoding
	StateCachingResult
	StatePlaying
	// StateBrowserFallback hands the text to the host speech engine.
	StateBrowserFallback
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StateCacheCheck:
		return "cache_check"
	case StateSynthesizing:
		return "synthesizing"
	case StateEncoding:
		return "encoding"
	case StateCachingResult:
		return "caching_result"
	case StatePlaying:
		return "playing"
	case StateBrowserFallback:
		return "browser_fallback"
	default:
		return "unknown"
	}
}

// loading is true while audio is being looked up or produced.
func (s State) loading() bool {
	return s >= StateCacheCheck && s <= StateCachingResult
}

// Status is the observable state of an Engine.
type Status struct {
	State State
	// Speaking is true while a clip or native utterance is audible.
	Speaking bool
	// Loading is true from the cache lookup until audio is ready.
	Loading bool
	// Available is false when the audio output failed to open.
	Available bool
	// Error is the last terminal error, cleared by the next request.
	Error string
}
