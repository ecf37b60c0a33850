package native

import (
	"context"
	"sync"
)

// Mock records utterances instead of speaking them.
type Mock struct {
	mu        sync.Mutex
	available bool
	voices    []Voice
	requests  []Request
	current   chan struct{}
	cancels   int
	err       error
}

// NewMock returns an available Mock offering voices.
func NewMock(voices ...Voice) *Mock {
	return &Mock{available: true, voices: voices}
}

// SetAvailable toggles Available.
func (m *Mock) SetAvailable(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = ok
}

// FailWith makes Speak return err. A nil err clears it.
func (m *Mock) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

func (m *Mock) Voices(context.Context) ([]Voice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.available {
		return nil, ErrNoNativeEngine
	}
	return append([]Voice(nil), m.voices...), nil
}

// Speak records req. The utterance lasts until Finish or Cancel.
func (m *Mock) Speak(_ context.Context, req Request) (<-chan struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.available {
		return nil, ErrNoNativeEngine
	}
	if m.err != nil {
		return nil, m.err
	}
	m.cancelLocked()
	m.requests = append(m.requests, req)
	m.current = make(chan struct{})
	return m.current, nil
}

// Finish ends the current utterance normally.
func (m *Mock) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		close(m.current)
		m.current = nil
	}
}

func (m *Mock) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked()
}

func (m *Mock) cancelLocked() {
	if m.current != nil {
		close(m.current)
		m.current = nil
		m.cancels++
	}
}

// Requests returns every utterance started so far.
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Cancels returns how many in-progress utterances were cancelled.
func (m *Mock) Cancels() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancels
}
