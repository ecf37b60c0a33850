package cache

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func openTestStore(t *testing.T, opts Options) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	if opts.Path == "" {
		opts.Path = filepath.Join(t.TempDir(), "audio", "cache.db")
	}
	opts.Now = clock.Now
	s, err := Open(context.Background(), opts)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, clock
}

func TestStoreGetPut(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t, Options{})

	if _, ok := s.Get(ctx, "alloy", "Hello world.", 1, 22050); ok {
		t.Fatal("expected miss on empty cache")
	}
	clip := []byte("RIFF-fake-clip")
	s.Put(ctx, "alloy", "Hello world.", 1, 22050, clip)

	got, ok := s.Get(ctx, "alloy", "Hello world.", 1, 22050)
	if !ok || !bytes.Equal(got, clip) {
		t.Fatalf("Get() = %q, %v", got, ok)
	}

	tests := []struct {
		name  string
		voice string
		text  string
		rate  float64
	}{
		{"other voice", "nova", "Hello world.", 1},
		{"other text", "alloy", "Hello world!", 1},
		{"other rate", "alloy", "Hello world.", 1.5},
	}
	for _, tt := range tests {
		if _, ok := s.Get(ctx, tt.voice, tt.text, tt.rate, 22050); ok {
			t.Errorf("%s: unexpected hit", tt.name)
		}
	}
}

func TestStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s, clock := openTestStore(t, Options{MemoryCapacity: 1 << 20})
	s.Put(ctx, "echo", "old news", 1, 22050, []byte("clip"))

	clock.Advance(DefaultRetention - time.Minute)
	if _, ok := s.Get(ctx, "echo", "old news", 1, 22050); !ok {
		t.Fatal("entry expired early")
	}

	clock.Advance(2 * time.Minute)
	if _, ok := s.Get(ctx, "echo", "old news", 1, 22050); ok {
		t.Fatal("expired entry returned")
	}

	// the row still exists until it is overwritten or pruned
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM audio_cache`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}

	s.Put(ctx, "echo", "old news", 1, 22050, []byte("fresh"))
	if got, ok := s.Get(ctx, "echo", "old news", 1, 22050); !ok || string(got) != "fresh" {
		t.Errorf("Get() after overwrite = %q, %v", got, ok)
	}
}

func TestStoreCompression(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t, Options{Compress: true})

	clip := bytes.Repeat([]byte{0, 1, 2, 3}, 4096)
	s.Put(ctx, "onyx", "compress me", 1, 22050, clip)

	var (
		stored     []byte
		compressed bool
	)
	err := s.db.QueryRow(`SELECT audio_data, compressed FROM audio_cache`).Scan(&stored, &compressed)
	if err != nil {
		t.Fatal(err)
	}
	if !compressed || len(stored) >= len(clip) {
		t.Errorf("compressed = %v, stored %d of %d bytes", compressed, len(stored), len(clip))
	}

	got, ok := s.Get(ctx, "onyx", "compress me", 1, 22050)
	if !ok || !bytes.Equal(got, clip) {
		t.Error("round trip through compression failed")
	}

	small := []byte("tiny")
	s.Put(ctx, "onyx", "small", 1, 22050, small)
	if got, _ := s.Get(ctx, "onyx", "small", 1, 22050); !bytes.Equal(got, small) {
		t.Errorf("small clip = %q", got)
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := Open(ctx, Options{Path: path, Compress: true})
	if err != nil {
		t.Fatal(err)
	}
	s.Put(ctx, "fable", "persist", 1, 22050, bytes.Repeat([]byte("ab"), 2048))
	s.Close()

	s, err = Open(ctx, Options{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, ok := s.Get(ctx, "fable", "persist", 1, 22050); !ok {
		t.Error("clip lost after reopen")
	}
}

func TestStorePruneAndClear(t *testing.T) {
	ctx := context.Background()
	s, clock := openTestStore(t, Options{MemoryCapacity: 1 << 20})

	s.Put(ctx, "nova", "first", 1, 22050, []byte("a"))
	clock.Advance(20 * 24 * time.Hour)
	s.Put(ctx, "nova", "second", 1, 22050, []byte("b"))

	n, err := s.Prune(ctx, 0)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d, want 1", n)
	}
	if s.hot.len() != 1 {
		t.Errorf("memory layer has %d entries, want 1", s.hot.len())
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, ok := s.Get(ctx, "nova", "second", 1, 22050); ok {
		t.Error("hit after Clear")
	}
}

func TestStoreStats(t *testing.T) {
	ctx := context.Background()
	s, clock := openTestStore(t, Options{})

	s.Put(ctx, "alloy", "one", 1, 22050, []byte("1234"))
	s.RecordUsage(ctx, "alloy", 3, true)
	s.RecordUsage(ctx, "alloy", 3, false)
	clock.Advance(24 * time.Hour)
	s.Put(ctx, "shimmer", "two", 1, 22050, []byte("12"))
	s.RecordUsage(ctx, "shimmer", 3, true)

	sum, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if sum.Entries != 2 || sum.StoredBytes != 6 {
		t.Errorf("entries %d bytes %d", sum.Entries, sum.StoredBytes)
	}
	if sum.Requests != 3 || sum.Generated != 2 || sum.Served() != 1 {
		t.Errorf("requests %d generated %d", sum.Requests, sum.Generated)
	}
	if len(sum.Voices) != 2 || sum.Voices[0].Voice != "alloy" || sum.Voices[0].Requests != 2 {
		t.Errorf("voices = %+v", sum.Voices)
	}
	if len(sum.Days) != 2 || sum.Days[0].Date != "2025-03-02" {
		t.Errorf("days = %+v", sum.Days)
	}
	if !sum.Newest.After(sum.Oldest) {
		t.Errorf("oldest %v newest %v", sum.Oldest, sum.Newest)
	}
}

func TestStoreTextLengthCountsRunes(t *testing.T) {
	s, _ := openTestStore(t, Options{})
	ctx := context.Background()
	text := "Grüße, café!"
	s.Put(ctx, "alloy", text, 1, 22050, []byte("clip"))

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT text_length FROM audio_cache WHERE key = ?`, Key("alloy", text, 1, 22050)).Scan(&n)
	if err != nil {
		t.Fatal(err)
	}
	if n != 12 {
		t.Errorf("text_length = %d, want 12 characters", n)
	}
}

func TestKey(t *testing.T) {
	a := Key("Alloy", "Hello world.", 1, 22050)
	if a != Key("alloy", "Hello world.", 1, 22050) {
		t.Error("key should ignore voice case")
	}
	if !strings.HasPrefix(a, "v2:alloy:1.00:22050:") || !strings.HasSuffix(a, ":hello_world_") {
		t.Errorf("Key() = %q", a)
	}

	// texts sharing a long prefix still get distinct keys
	long := strings.Repeat("x", 40)
	if Key("alloy", long+"a", 1, 22050) == Key("alloy", long+"b", 1, 22050) {
		t.Error("keys collide for texts differing after the prefix")
	}
	if Key("alloy", "hi", 1, 22050) == Key("alloy", "hi", 1.25, 22050) {
		t.Error("rate not part of key")
	}
	if Key("alloy", "hi", 1, 22050) == Key("alloy", "hi", 1, 48000) {
		t.Error("sample rate not part of key")
	}
}

func TestMemoryCacheEviction(t *testing.T) {
	c := newMemoryCache(10)
	now := time.Now()
	c.put("a", []byte("aaaa"), now)
	c.put("b", []byte("bbbb"), now)
	c.get("a")
	c.put("c", []byte("cccc"), now)

	if _, _, ok := c.get("b"); ok {
		t.Error("least recently used entry not evicted")
	}
	if _, _, ok := c.get("a"); !ok {
		t.Error("recently used entry evicted")
	}
	c.put("huge", make([]byte, 11), now)
	if _, _, ok := c.get("huge"); ok {
		t.Error("oversized value stored")
	}
	if c.size != 8 {
		t.Errorf("size = %d, want 8", c.size)
	}
}

func TestNopAlwaysMisses(t *testing.T) {
	var n Nop
	n.Put(context.Background(), "alloy", "x", 1, 22050, []byte("x"))
	if _, ok := n.Get(context.Background(), "alloy", "x", 1, 22050); ok {
		t.Error("Nop returned a hit")
	}
}
