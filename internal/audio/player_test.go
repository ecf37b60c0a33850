package audio

import (
	"errors"
	"testing"
	"time"
)

func TestPlayerConfig(t *testing.T) {
	tests := []struct {
		name      string
		config    PlayerConfig
		expectErr bool
	}{
		{"default", DefaultPlayerConfig(), false},
		{"stereo 48000Hz", PlayerConfig{SampleRate: 48000, Channels: 2}, false},
		{"invalid sample rate", PlayerConfig{SampleRate: 100, Channels: 1}, true},
		{"invalid channels", PlayerConfig{SampleRate: 44100, Channels: 3}, true},
		{"negative buffer", PlayerConfig{SampleRate: 44100, Channels: 1, BufferSize: -time.Second}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfig(tt.config)
			if tt.expectErr && err == nil {
				t.Errorf("validateConfig() expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("validateConfig() unexpected error: %v", err)
			}
		})
	}
}

func TestMockPlayerLifecycle(t *testing.T) {
	m := NewMockPlayer()
	var played int
	m.OnPlay = func([]byte) { played++ }

	done, err := m.Play([]byte{1, 2})
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if !m.IsPlaying() {
		t.Error("expected playing after Play")
	}

	// a second clip interrupts the first
	done2, _ := m.Play([]byte{3})
	select {
	case <-done:
	default:
		t.Error("first clip not stopped by second Play")
	}
	if m.Stops() != 1 {
		t.Errorf("Stops() = %d, want 1", m.Stops())
	}

	m.Finish()
	select {
	case <-done2:
	case <-time.After(time.Second):
		t.Fatal("Finish did not close done channel")
	}
	if m.IsPlaying() {
		t.Error("still playing after Finish")
	}
	if played != 2 || len(m.Clips()) != 2 {
		t.Errorf("played %d, clips %d", played, len(m.Clips()))
	}
}

func TestMockPlayerFailures(t *testing.T) {
	m := NewMockPlayer()
	boom := errors.New("boom")
	m.FailWith(boom)
	if _, err := m.Play([]byte{1}); !errors.Is(err, boom) {
		t.Errorf("Play() error = %v, want boom", err)
	}
	m.FailWith(nil)
	if _, err := m.Play(nil); err == nil {
		t.Error("expected error for empty clip")
	}
	_ = m.Close()
	if _, err := m.Play([]byte{1}); !errors.Is(err, ErrPlayerClosed) {
		t.Errorf("Play() after Close error = %v", err)
	}
}

func TestMockPlayerRequireFormat(t *testing.T) {
	clip, err := Encode(NewMonoBuffer(22050, 100))
	if err != nil {
		t.Fatal(err)
	}
	m := NewMockPlayer()
	m.RequireFormat(Format{SampleRate: 48000, Channels: 1})
	if _, err := m.Play(clip); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("Play() error = %v, want ErrFormatMismatch", err)
	}
	m.RequireFormat(Format{SampleRate: 22050, Channels: 1})
	if _, err := m.Play(clip); err != nil {
		t.Errorf("Play() error = %v", err)
	}
}
