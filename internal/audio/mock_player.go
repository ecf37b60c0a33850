package audio

import (
	"errors"
	"fmt"
	"sync"
)

// MockPlayer records clips instead of producing sound. Playback of a clip
// lasts until Finish or Stop is called, or forever if neither is.
type MockPlayer struct {
	mu      sync.Mutex
	clips   [][]byte
	current chan struct{}
	stops   int
	err     error
	closed  bool
	format  Format

	// OnPlay is invoked after a clip starts.
	OnPlay func(clip []byte)
}

// NewMockPlayer returns a ready MockPlayer.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{}
}

// FailWith makes every following Play return err. A nil err clears it.
func (m *MockPlayer) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// RequireFormat makes Play reject clips that are not WAV data in f, the way
// a Player rejects clips that do not match its device.
func (m *MockPlayer) RequireFormat(f Format) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.format = f
}

// Play records the clip and starts simulated playback.
func (m *MockPlayer) Play(clip []byte) (<-chan struct{}, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrPlayerClosed
	}
	if m.err != nil {
		err := m.err
		m.mu.Unlock()
		return nil, err
	}
	if m.format != (Format{}) {
		_, got, err := PCM(clip)
		if err != nil {
			m.mu.Unlock()
			return nil, err
		}
		if got.SampleRate != m.format.SampleRate || got.Channels != m.format.Channels {
			m.mu.Unlock()
			return nil, fmt.Errorf("%w: clip %d Hz, device %d Hz", ErrFormatMismatch, got.SampleRate, m.format.SampleRate)
		}
	}
	if len(clip) == 0 {
		m.mu.Unlock()
		return nil, errors.New("audio data is empty")
	}
	m.stopLocked()

	c := make([]byte, len(clip))
	copy(c, clip)
	m.clips = append(m.clips, c)
	done := make(chan struct{})
	m.current = done
	cb := m.OnPlay
	m.mu.Unlock()

	if cb != nil {
		cb(c)
	}
	return done, nil
}

// Finish ends the current clip as if it played to completion.
func (m *MockPlayer) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		close(m.current)
		m.current = nil
	}
}

// Stop halts the current clip.
func (m *MockPlayer) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *MockPlayer) stopLocked() {
	if m.current != nil {
		close(m.current)
		m.current = nil
		m.stops++
	}
}

// IsPlaying reports whether a clip is in progress.
func (m *MockPlayer) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Clips returns copies of every clip played so far.
func (m *MockPlayer) Clips() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.clips))
	copy(out, m.clips)
	return out
}

// Stops returns how many in-progress clips were interrupted.
func (m *MockPlayer) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

// Close rejects further clips.
func (m *MockPlayer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
	m.closed = true
	return nil
}
