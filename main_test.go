package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/chatvoice/internal/cache"
	"github.com/dgnsrekt/chatvoice/internal/tts"
	"github.com/dgnsrekt/chatvoice/internal/voice"
)

func TestSpeechTextSources(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "answer.md")
	if err := os.WriteFile(file, []byte("---\ntitle: x\n---\n# Answer\nYes."), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"words", []string{"Hello", "there."}, "Hello there."},
		{"single phrase", []string{"Hello there."}, "Hello there."},
		{"file without frontmatter", []string{file}, "# Answer\nYes."},
		{"directory is text", []string{dir}, dir},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := speechText(tt.args)
			if err != nil {
				t.Fatalf("speechText() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("speechText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusLine(t *testing.T) {
	tests := []struct {
		name string
		st   tts.Status
		want []string
	}{
		{"playing", tts.Status{State: tts.StatePlaying, Speaking: true, Available: true}, []string{"speaking"}},
		{"loading", tts.Status{State: tts.StateSynthesizing, Loading: true, Available: true}, []string{"synthesizing", "⟳"}},
		{"fallback", tts.Status{State: tts.StateBrowserFallback}, []string{"system voice", "no audio output"}},
		{"error", tts.Status{State: tts.StateIdle, Error: strings.Repeat("x", 200), Available: true}, []string{"✗", "..."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := statusLine(tt.st, 60)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("statusLine() = %q, missing %q", got, w)
				}
			}
		})
	}
}

func TestFilterProfiles(t *testing.T) {
	got := filterProfiles(voice.Catalog(), "shim")
	if len(got) == 0 || got[0].ID != "shimmer" {
		t.Errorf("filterProfiles(shim) = %v, want shimmer first", got)
	}
	if got := filterProfiles(voice.Catalog(), "zzzzqq"); len(got) != 0 {
		t.Errorf("filterProfiles(zzzzqq) = %d results, want none", len(got))
	}
}

func TestRenderVoicesMarksCurrent(t *testing.T) {
	out := renderVoices(voice.Catalog(), "nova", 80)
	for _, p := range voice.Catalog() {
		if !strings.Contains(out, p.ID) {
			t.Errorf("voice %s missing from listing", p.ID)
		}
	}
	if !strings.Contains(out, "* ") {
		t.Error("current voice not marked")
	}
}

func TestRenderStats(t *testing.T) {
	out := renderStats(cache.Summary{
		Entries:     3,
		StoredBytes: 2048,
		Oldest:      time.Now().Add(-time.Hour),
		Newest:      time.Now(),
		Requests:    4,
		Generated:   1,
		Voices:      []cache.VoiceUsage{{Voice: "alloy", Requests: 4, Generated: 1, Chars: 1200}},
		Days:        []cache.DayUsage{{Date: "2026-10-18", Requests: 4}},
	}, "/tmp/audio.db")

	for _, want := range []string{"3 clips", "2.0 kB", "3 from cache (75%)", "alloy", "1,200 characters", "2026-10-18"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}

	if empty := renderStats(cache.Summary{}, "/tmp/audio.db"); !strings.Contains(empty, "nothing spoken yet") {
		t.Errorf("empty stats = %q", empty)
	}
}
