package tts

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/chatvoice/internal/audio"
	"github.com/dgnsrekt/chatvoice/internal/cache"
	"github.com/dgnsrekt/chatvoice/internal/native"
	"github.com/dgnsrekt/chatvoice/internal/synth"
	"github.com/dgnsrekt/chatvoice/internal/voice"
)

const testSampleRate = 8000

// countingSynth wraps the real synthesizer and counts invocations. With a
// gate set, each call signals started and blocks until the gate closes.
type countingSynth struct {
	inner   *synth.Synthesizer
	rate    int
	calls   atomic.Int32
	err     error
	panic   bool
	gate    chan struct{}
	started chan struct{}
}

func newCountingSynth() *countingSynth {
	return newCountingSynthAt(testSampleRate)
}

func newCountingSynthAt(rate int) *countingSynth {
	opts := synth.DefaultOptions()
	opts.SampleRate = rate
	return &countingSynth{inner: synth.New(opts), rate: rate}
}

func (s *countingSynth) Synthesize(ctx context.Context, text string, p voice.Profile, rate float64) (*audio.Buffer, error) {
	s.calls.Add(1)
	if s.gate != nil {
		select {
		case s.started <- struct{}{}:
		default:
		}
		<-s.gate
	}
	if s.panic {
		panic("oscillator exploded")
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.inner.Synthesize(ctx, text, p, rate)
}

func (s *countingSynth) SampleRate() int { return s.rate }

// memCache is an in-memory Cache that records traffic.
type memCache struct {
	mu    sync.Mutex
	clips map[string][]byte
	gets  int
	puts  []string
	usage []usageRecord
}

type usageRecord struct {
	voice     string
	length    int
	generated bool
}

func newMemCache() *memCache {
	return &memCache{clips: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, v, text string, rate float64, sampleRate int) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	clip, ok := c.clips[cache.Key(v, text, rate, sampleRate)]
	return clip, ok
}

func (c *memCache) Put(_ context.Context, v, text string, rate float64, sampleRate int, clip []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := cache.Key(v, text, rate, sampleRate)
	c.clips[k] = clip
	c.puts = append(c.puts, k)
}

func (c *memCache) RecordUsage(_ context.Context, v string, n int, generated bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.usage = append(c.usage, usageRecord{v, n, generated})
}

func (c *memCache) counts() (gets, puts int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets, len(c.puts)
}

// stateRecorder collects every status passed to the hook.
type stateRecorder struct {
	mu     sync.Mutex
	states []State
}

func (r *stateRecorder) hook(st Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, st.State)
}

func (r *stateRecorder) take() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.states
	r.states = nil
	return out
}

func contains(states []State, s State) bool {
	for _, v := range states {
		if v == s {
			return true
		}
	}
	return false
}

type fixture struct {
	engine  *Engine
	synth   *countingSynth
	player  *audio.MockPlayer
	host    *native.Mock
	cache   *memCache
	states  *stateRecorder
	encodes *atomic.Int32
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		synth:   newCountingSynth(),
		player:  audio.NewMockPlayer(),
		host:    native.NewMock(native.Voice{ID: "en-us", Name: "English (America)", Language: "en-US"}),
		cache:   newMemCache(),
		states:  &stateRecorder{},
		encodes: &atomic.Int32{},
	}
	encode := func(b *audio.Buffer) ([]byte, error) {
		f.encodes.Add(1)
		return audio.Encode(b)
	}
	base := []Option{
		WithPlayer(f.player),
		WithCache(f.cache),
		WithNative(f.host),
		WithEncoder(encode),
		WithStatusHook(f.states.hook),
		WithLogger(log.New(io.Discard)),
	}
	f.engine = New(f.synth, append(base, opts...)...)
	t.Cleanup(func() { _ = f.engine.Close() })
	return f
}

// waitIdle fails the test if the engine does not return to Idle quickly.
func waitIdle(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.Wait(ctx); err != nil {
		t.Fatalf("engine did not become idle: %v (state %v)", err, e.Status().State)
	}
}
