// Package tts turns chat text into speech. An Engine runs each request
// through markdown stripping, the audio cache, offline synthesis and
// playback, and descends to the host speech engine when one of those fails.
//
// At most one utterance is audible: a new request stops the previous one.
package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/chatvoice/internal/audio"
	"github.com/dgnsrekt/chatvoice/internal/cache"
	"github.com/dgnsrekt/chatvoice/internal/config"
	"github.com/dgnsrekt/chatvoice/internal/markdown"
	"github.com/dgnsrekt/chatvoice/internal/native"
	"github.com/dgnsrekt/chatvoice/internal/observe"
	"github.com/dgnsrekt/chatvoice/internal/synth"
	"github.com/dgnsrekt/chatvoice/internal/voice"
	"golang.org/x/sync/singleflight"
)

// Apology is spoken by the native engine when a clip could not be played.
const Apology = "Audio playback failed. Using fallback voice."

// Synthesizer renders text with a voice profile.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, p voice.Profile, rate float64) (*audio.Buffer, error)
}

// Player plays encoded clips. The returned channel is closed when the clip
// ends or is stopped.
type Player interface {
	Play(clip []byte) (<-chan struct{}, error)
	Stop()
}

// Cache stores encoded clips keyed by voice, text, rate and the sample rate
// they were rendered at. Implementations handle their own failures, a broken
// cache behaves like an empty one.
type Cache interface {
	Get(ctx context.Context, voice, text string, rate float64, sampleRate int) ([]byte, bool)
	Put(ctx context.Context, voice, text string, rate float64, sampleRate int, clip []byte)
	RecordUsage(ctx context.Context, voice string, textLength int, generated bool)
}

// Engine is the speech state machine.
type Engine struct {
	synth      Synthesizer
	player     Player
	cache      Cache
	native     native.Engine
	encode     func(*audio.Buffer) ([]byte, error)
	metrics    *observe.Metrics
	logger     *log.Logger
	onStatus   func(Status)
	tone       bool
	sampleRate int
	language   string
	closers    []io.Closer

	renders singleflight.Group

	mu           sync.Mutex
	settings     settings
	gen          uint64
	key          string
	status       Status
	seq          uint64
	idle         chan struct{}
	idleClosed   bool
	closed       bool
	nativeVoices []native.Voice

	// hookMu orders status hook calls; delivered is the seq of the last
	// update passed to onStatus.
	hookMu    sync.Mutex
	delivered uint64
}

// request is one accepted Speak call.
type request struct {
	gen     uint64
	key     string
	text    string
	profile voice.Profile
	rate    float64
}

// New returns an Engine around s. Without WithPlayer the engine has no
// audio output and every request goes to the native engine.
func New(s Synthesizer, opts ...Option) *Engine {
	d := config.Default()
	e := &Engine{
		synth:      s,
		cache:      cache.Nop{},
		native:     native.None{},
		encode:     audio.Encode,
		sampleRate: d.SampleRate,
		language:   "en",
		settings:   settings{enabled: d.Enabled, voice: d.Voice, rate: d.Rate},
		idle:       make(chan struct{}),
		idleClosed: true,
	}
	close(e.idle)
	if sr, ok := s.(interface{ SampleRate() int }); ok {
		e.sampleRate = sr.SampleRate()
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	if e.logger == nil {
		e.logger = log.Default().WithPrefix("tts")
	}
	e.status.Available = e.player != nil
	return e
}

// Speak speaks text, replacing whatever is audible. It returns once audio
// has started, the request was dropped or superseded, or every fallback
// failed. Only terminal errors are returned; they are mirrored in Status.
func (e *Engine) Speak(ctx context.Context, text string) error {
	r, err := e.prepare(text)
	if err != nil || r == nil {
		return err
	}
	return e.run(ctx, r)
}

// SpeakAsync is the fire-and-forget form of Speak. The new request
// supersedes earlier ones before SpeakAsync returns. Failures are reported
// through Status.
func (e *Engine) SpeakAsync(text string) {
	r, err := e.prepare(text)
	if err != nil || r == nil {
		return
	}
	go func() { _ = e.run(context.Background(), r) }()
}

// Stop silences the current utterance and returns to Idle. Rendering
// already under way finishes and is cached but not played.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.gen++
	e.stopOutputsLocked()
	prev := e.status
	u := e.setStateLocked(StateIdle)
	e.mu.Unlock()
	if prev.State != StateIdle {
		e.logger.Debug("stopped", "state", prev.State)
		e.notify(u)
	}
}

// Wait blocks until the engine is Idle or ctx is done.
func (e *Engine) Wait(ctx context.Context) error {
	e.mu.Lock()
	idle := e.idle
	e.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns a snapshot of the observable state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// ApplySettings replaces the speech preferences used by later requests.
// Disabling speech stops the current utterance.
func (e *Engine) ApplySettings(s Settings) {
	p := s.parse()
	if p.voice != "" && !voice.Known(p.voice) {
		e.logger.Warn("unknown voice, using default", "voice", p.voice)
	}
	e.mu.Lock()
	e.settings = p
	e.mu.Unlock()
	if !p.enabled {
		e.Stop()
	}
}

// Close stops speech and releases the resources handed over by Open.
// Speak returns ErrClosed afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.Stop()
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// prepare strips markdown and, when there is something to say, supersedes
// the current request.
func (e *Engine) prepare(text string) (*request, error) {
	clean := markdown.Strip(text)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	s := e.settings
	if !s.enabled {
		e.mu.Unlock()
		e.logger.Debug("speech disabled, dropping request")
		return nil, nil
	}
	if clean == "" {
		e.mu.Unlock()
		e.logger.Debug("nothing to speak", "kind", KindRejected, "stage", StagePreparing)
		return nil, nil
	}
	e.gen++
	p := voice.Lookup(s.voice)
	r := &request{gen: e.gen, text: clean, profile: p, rate: s.rate}
	r.key = cache.Key(p.ID, clean, s.rate, e.sampleRate)
	e.key = r.key
	e.stopOutputsLocked()
	e.status.Error = ""
	st := e.setStateLocked(StatePreparing)
	e.mu.Unlock()

	e.notify(st)
	return r, nil
}

func (e *Engine) run(ctx context.Context, r *request) error {
	if e.player == nil {
		return e.fallback(ctx, r, r.text, &Error{Kind: KindRecoverable, Stage: StagePreparing, Err: ErrAudioUnavailable})
	}

	if !e.enter(r.gen, StateCacheCheck) {
		return nil
	}
	if clip, ok := e.cache.Get(ctx, r.profile.ID, r.text, r.rate, e.sampleRate); ok {
		e.metrics.RecordCacheLookup(ctx, true)
		e.cache.RecordUsage(ctx, r.profile.ID, utf8.RuneCountInString(r.text), false)
		return e.play(ctx, r, clip, "cache")
	}
	e.metrics.RecordCacheLookup(ctx, false)

	clip, err := e.render(ctx, r)
	if err != nil {
		return e.fallback(ctx, r, r.text, err)
	}
	return e.play(ctx, r, clip, "synth")
}

// render produces the clip for r. Concurrent requests for the same key
// share one rendering.
func (e *Engine) render(ctx context.Context, r *request) ([]byte, error) {
	v, err, _ := e.renders.Do(r.key, func() (any, error) {
		return e.produce(context.WithoutCancel(ctx), r)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// produce runs Synthesizing, Encoding and CachingResult. The stages always
// complete so a superseded request still fills the cache.
func (e *Engine) produce(ctx context.Context, r *request) ([]byte, error) {
	start := time.Now()
	e.advance(r, StateSynthesizing)
	buf, err := e.synthesize(ctx, r)
	if err != nil {
		return nil, &Error{Kind: KindRecoverable, Stage: StageSynthesizing, Err: err}
	}

	e.advance(r, StateEncoding)
	clip, err := e.encode(buf)
	if err != nil {
		return nil, &Error{Kind: KindRecoverable, Stage: StageEncoding, Err: err}
	}
	e.metrics.RecordSynthesis(ctx, r.profile.ID, time.Since(start))

	e.advance(r, StateCachingResult)
	e.cache.Put(ctx, r.profile.ID, r.text, r.rate, e.sampleRate, clip)
	e.cache.RecordUsage(ctx, r.profile.ID, utf8.RuneCountInString(r.text), true)
	e.logger.Debug("rendered", "voice", r.profile.ID, "chars", utf8.RuneCountInString(r.text), "bytes", len(clip), "took", time.Since(start))
	return clip, nil
}

func (e *Engine) synthesize(ctx context.Context, r *request) (buf *audio.Buffer, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: panic: %v", synth.ErrSynthesis, p)
		}
	}()
	buf, err = e.synth.Synthesize(ctx, r.text, r.profile, r.rate)
	if err == nil && buf == nil {
		err = fmt.Errorf("%w: no audio produced", synth.ErrSynthesis)
	}
	return buf, err
}

// play starts clip unless r has been superseded. A player failure falls
// back to the native engine with Apology.
func (e *Engine) play(ctx context.Context, r *request, clip []byte, source string) error {
	e.mu.Lock()
	if r.gen != e.gen {
		e.mu.Unlock()
		return nil
	}
	done, err := e.player.Play(clip)
	if err != nil {
		e.mu.Unlock()
		return e.fallback(ctx, r, Apology, &Error{
			Kind:  KindRecoverable,
			Stage: StagePlaying,
			Err:   fmt.Errorf("%w: %v", ErrPlaybackFailed, err),
		})
	}
	st := e.setStateLocked(StatePlaying)
	e.mu.Unlock()

	e.notify(st)
	e.metrics.RecordUtterance(ctx, source)
	go e.watch(r.gen, done)
	return nil
}

// fallback hands text to the native engine. When there is none the request
// ends with a terminal error.
func (e *Engine) fallback(ctx context.Context, r *request, text string, cause error) error {
	stage := stageOf(cause, StageFallback)
	if !e.enter(r.gen, StateBrowserFallback) {
		return nil
	}
	e.logger.Warn("falling back to native speech", "stage", stage, "kind", KindRecoverable, "err", cause)
	e.metrics.RecordFallback(ctx, string(stage), "native")

	err := e.speakNative(ctx, r, text)
	if err == nil {
		return nil
	}

	e.playTone(ctx, r, stage)
	inner := cause
	var ce *Error
	if errors.As(cause, &ce) {
		inner = ce.Err
	}
	terr := &Error{Kind: KindTerminal, Stage: stage, Err: fmt.Errorf("%w; %w", err, inner)}
	if !e.fail(ctx, r.gen, terr) {
		return nil
	}
	return terr
}

// speakNative starts a native utterance. It returns nil when the utterance
// started or r was superseded.
func (e *Engine) speakNative(ctx context.Context, r *request, text string) error {
	if !e.native.Available() {
		return native.ErrNoNativeEngine
	}
	req := native.Request{Text: text, Rate: r.rate}
	if v, ok := native.SelectVoice(e.hostVoices(ctx), r.profile, e.language); ok {
		req.Voice = v.ID
	}

	e.mu.Lock()
	if r.gen != e.gen {
		e.mu.Unlock()
		return nil
	}
	done, err := e.native.Speak(ctx, req)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	st := e.setStateLocked(StatePlaying)
	e.mu.Unlock()

	e.notify(st)
	e.metrics.RecordUtterance(ctx, "native")
	e.logger.Debug("speaking natively", "engine", e.native.Name(), "voice", req.Voice)
	go e.watch(r.gen, done)
	return nil
}

// hostVoices lists the native voices once per Engine.
func (e *Engine) hostVoices(ctx context.Context) []native.Voice {
	e.mu.Lock()
	vs := e.nativeVoices
	e.mu.Unlock()
	if vs != nil {
		return vs
	}
	vs, err := e.native.Voices(ctx)
	if err != nil {
		e.logger.Debug("list native voices", "err", err)
		return nil
	}
	e.mu.Lock()
	e.nativeVoices = vs
	e.mu.Unlock()
	return vs
}

// playTone sounds the failure cue when enabled and an output exists.
func (e *Engine) playTone(ctx context.Context, r *request, stage Stage) {
	if !e.tone || e.player == nil {
		return
	}
	clip, err := e.encode(synth.Tone(e.sampleRate))
	if err != nil {
		e.logger.Debug("encode failure tone", "err", err)
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if r.gen != e.gen {
		return
	}
	if _, err := e.player.Play(clip); err != nil {
		e.logger.Debug("play failure tone", "err", err)
		return
	}
	e.metrics.RecordFallback(ctx, string(stage), "tone")
}

// fail records a terminal error and returns to Idle. It reports false when
// r was superseded.
func (e *Engine) fail(ctx context.Context, gen uint64, err *Error) bool {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return false
	}
	e.status.Error = err.Error()
	st := e.setStateLocked(StateIdle)
	e.mu.Unlock()

	e.logger.Error("speech failed", "stage", err.Stage, "kind", err.Kind, "err", err.Err)
	e.metrics.RecordError(ctx, string(err.Kind), string(err.Stage))
	e.notify(st)
	return true
}

// watch returns to Idle when the utterance of gen ends on its own.
func (e *Engine) watch(gen uint64, done <-chan struct{}) {
	<-done
	e.mu.Lock()
	if gen != e.gen || e.status.State != StatePlaying {
		e.mu.Unlock()
		return
	}
	st := e.setStateLocked(StateIdle)
	e.mu.Unlock()
	e.notify(st)
}

// advance moves the rendering of r to s. When r was superseded by a request
// for the same clip, that request is waiting on this rendering and takes the
// state instead.
func (e *Engine) advance(r *request, s State) {
	e.mu.Lock()
	if r.gen != e.gen && (r.key != e.key || !e.status.State.loading()) {
		e.mu.Unlock()
		return
	}
	st := e.setStateLocked(s)
	e.mu.Unlock()
	e.notify(st)
}

// enter moves request gen to s. It reports false when gen was superseded.
func (e *Engine) enter(gen uint64, s State) bool {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return false
	}
	st := e.setStateLocked(s)
	e.mu.Unlock()
	e.notify(st)
	return true
}

// update is a status snapshot numbered in the order it was taken.
type update struct {
	seq    uint64
	status Status
}

func (e *Engine) setStateLocked(s State) update {
	e.status.State = s
	e.status.Speaking = s == StatePlaying
	e.status.Loading = s.loading()
	if s == StateIdle {
		if !e.idleClosed {
			close(e.idle)
			e.idleClosed = true
		}
	} else if e.idleClosed {
		e.idle = make(chan struct{})
		e.idleClosed = false
	}
	e.seq++
	return update{seq: e.seq, status: e.status}
}

func (e *Engine) stopOutputsLocked() {
	if e.player != nil {
		e.player.Stop()
	}
	e.native.Cancel()
}

// notify passes u to the status hook unless a newer update already went out.
func (e *Engine) notify(u update) {
	e.hookMu.Lock()
	defer e.hookMu.Unlock()
	if u.seq <= e.delivered {
		return
	}
	e.delivered = u.seq
	st := u.status
	e.logger.Debug("state", "state", st.State, "speaking", st.Speaking, "loading", st.Loading)
	if e.onStatus != nil {
		e.onStatus(st)
	}
}
