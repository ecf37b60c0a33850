package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

var (
	// ErrPlayerClosed is returned by Play after Close.
	ErrPlayerClosed = errors.New("player is closed")

	// ErrFormatMismatch is returned when a clip's format differs from the
	// output device's.
	ErrFormatMismatch = errors.New("audio format does not match output device")
)

// PlayerConfig contains configuration for the audio player.
type PlayerConfig struct {
	SampleRate int
	Channels   int
	// BufferSize is the device buffer length. Zero lets oto choose.
	BufferSize time.Duration
	// ReadyTimeout bounds how long NewPlayer waits for the device.
	ReadyTimeout time.Duration
}

// DefaultPlayerConfig returns the default player configuration.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate:   44100,
		Channels:     1,
		BufferSize:   50 * time.Millisecond,
		ReadyTimeout: 5 * time.Second,
	}
}

func validateConfig(config PlayerConfig) error {
	if config.SampleRate < 8000 || config.SampleRate > 192000 {
		return fmt.Errorf("sample rate must be between 8000 and 192000 Hz, got %d", config.SampleRate)
	}
	if config.Channels != 1 && config.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", config.Channels)
	}
	if config.BufferSize < 0 {
		return errors.New("buffer size must not be negative")
	}
	return nil
}

// Player plays WAV clips on the host audio device. One clip is audible at a
// time; Play stops whatever was playing before.
type Player struct {
	context *oto.Context
	config  PlayerConfig
	logger  *log.Logger

	mu     sync.Mutex
	active *stream
	closed bool
}

// stream keeps the PCM data referenced for the lifetime of an oto player.
type stream struct {
	data   []byte
	player *oto.Player
	done   chan struct{}
	once   sync.Once
}

func (s *stream) finish() {
	s.once.Do(func() { close(s.done) })
}

// NewPlayer opens the output device. oto allows a single context per
// process, so callers create one Player and share it.
func NewPlayer(config PlayerConfig) (*Player, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.ReadyTimeout <= 0 {
		config.ReadyTimeout = 5 * time.Second
	}

	op := &oto.NewContextOptions{
		SampleRate:   config.SampleRate,
		ChannelCount: config.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   config.BufferSize,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	select {
	case <-ready:
	case <-time.After(config.ReadyTimeout):
		return nil, fmt.Errorf("audio context initialization timeout after %v", config.ReadyTimeout)
	}

	logger := log.Default().WithPrefix("audio")
	logger.Debug("audio device ready",
		"sample_rate", config.SampleRate,
		"channels", config.Channels,
		"buffer_size", config.BufferSize)

	return &Player{context: ctx, config: config, logger: logger}, nil
}

// Play starts playback of a WAV clip and returns a channel that is closed
// when the clip ends or is stopped.
func (p *Player) Play(clip []byte) (<-chan struct{}, error) {
	pcm, format, err := PCM(clip)
	if err != nil {
		return nil, err
	}
	if format.SampleRate != p.config.SampleRate || format.Channels != p.config.Channels {
		return nil, fmt.Errorf("%w: clip %d Hz/%d ch, device %d Hz/%d ch", ErrFormatMismatch,
			format.SampleRate, format.Channels, p.config.SampleRate, p.config.Channels)
	}
	if len(pcm) == 0 {
		return nil, errors.New("audio data is empty")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPlayerClosed
	}
	p.stopLocked()

	s := &stream{data: pcm, done: make(chan struct{})}
	s.player = p.context.NewPlayer(bytes.NewReader(s.data))
	s.player.Play()
	p.active = s

	go p.monitor(s)
	return s.done, nil
}

// monitor waits for the device to drain the stream.
func (p *Player) monitor(s *stream) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if s.player.IsPlaying() {
				continue
			}
			if err := s.player.Err(); err != nil {
				p.logger.Warn("playback ended with error", "err", err)
			}
			p.mu.Lock()
			if p.active == s {
				p.active = nil
				_ = s.player.Close()
			}
			p.mu.Unlock()
			s.finish()
			return
		}
	}
}

// Stop halts playback immediately, rewinding and pausing the output.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	s := p.active
	if s == nil {
		return
	}
	p.active = nil
	s.player.Pause()
	if _, err := s.player.Seek(0, io.SeekStart); err != nil {
		p.logger.Debug("rewind failed", "err", err)
	}
	_ = s.player.Close()
	s.finish()
}

// IsPlaying reports whether a clip is audible.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active != nil && p.active.player.IsPlaying()
}

// SampleRate returns the device sample rate.
func (p *Player) SampleRate() int {
	return p.config.SampleRate
}

// Close stops playback and rejects further clips. The oto context itself
// lives until process exit.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.closed = true
	return nil
}
