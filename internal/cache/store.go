package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"
)

// DefaultRetention is how long a clip stays valid after it was stored.
const DefaultRetention = 14 * 24 * time.Hour

// ErrCorrupted is returned when a stored payload cannot be decoded.
var ErrCorrupted = errors.New("cache data corrupted")

// Options configures a Store.
type Options struct {
	// Path is the SQLite database file. Parent directories are created.
	Path string
	// Retention is the maximum age of a usable clip. Zero means
	// DefaultRetention.
	Retention time.Duration
	// Compress stores payloads larger than 1 KiB zstd-compressed.
	Compress bool
	// MemoryCapacity bounds the in-memory layer in bytes. Zero disables it.
	MemoryCapacity int64
	Logger         *log.Logger
	// Now overrides the clock.
	Now func() time.Time
}

// Store is the persistent clip cache. Get, Put and RecordUsage never fail
// from the caller's point of view; storage errors are logged and the
// operation degrades to a miss or a no-op.
type Store struct {
	db        *sql.DB
	codec     *codec
	hot       *memoryCache
	retention time.Duration
	logger    *log.Logger
	now       func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS audio_cache (
	key TEXT PRIMARY KEY,
	timestamp INTEGER NOT NULL,
	voice TEXT NOT NULL,
	text_length INTEGER NOT NULL,
	audio_data BLOB NOT NULL,
	compressed INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_audio_cache_timestamp ON audio_cache(timestamp);
CREATE INDEX IF NOT EXISTS idx_audio_cache_voice ON audio_cache(voice);

CREATE TABLE IF NOT EXISTS tts_stats (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date TEXT NOT NULL,
	voice TEXT NOT NULL,
	text_length INTEGER NOT NULL,
	generated INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tts_stats_date ON tts_stats(date);
`

// Open opens or creates the database at opts.Path.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, errors.New("cache path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection serializes writers; SQLite would otherwise report
	// SQLITE_BUSY under concurrent flows.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	c, err := newCodec(opts.Compress)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{
		db:        db,
		codec:     c,
		hot:       newMemoryCache(opts.MemoryCapacity),
		retention: opts.Retention,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if s.retention <= 0 {
		s.retention = DefaultRetention
	}
	if s.logger == nil {
		s.logger = log.Default().WithPrefix("cache")
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.logger.Debug("cache opened", "path", opts.Path, "retention", s.retention, "compress", opts.Compress)
	return s, nil
}

// Retention returns the configured retention window.
func (s *Store) Retention() time.Duration {
	return s.retention
}

// Get returns the clip for (voice, text, rate, sampleRate). Entries older
// than the retention window are reported as misses but left in place.
func (s *Store) Get(ctx context.Context, voice, text string, rate float64, sampleRate int) ([]byte, bool) {
	key := Key(voice, text, rate, sampleRate)
	cutoff := s.now().Add(-s.retention)

	if data, stored, ok := s.hot.get(key); ok && !stored.Before(cutoff) {
		return data, true
	}

	var (
		ts         int64
		blob       []byte
		compressed bool
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT timestamp, audio_data, compressed FROM audio_cache WHERE key = ?`, key,
	).Scan(&ts, &blob, &compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("cache read failed", "kind", "recoverable", "key", key, "err", err)
		return nil, false
	}

	stored := time.UnixMilli(ts)
	if stored.Before(cutoff) {
		s.logger.Debug("cache entry expired", "key", key, "stored", stored)
		return nil, false
	}

	data, err := s.codec.unpack(blob, compressed)
	if err != nil {
		s.logger.Warn("cache entry unreadable", "kind", "recoverable", "key", key, "err", err)
		return nil, false
	}
	s.hot.put(key, data, stored)
	return data, true
}

// Put stores a clip, replacing any previous entry for the same key.
func (s *Store) Put(ctx context.Context, voice, text string, rate float64, sampleRate int, clip []byte) {
	key := Key(voice, text, rate, sampleRate)
	now := s.now()
	blob, compressed := s.codec.pack(clip)

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO audio_cache (key, timestamp, voice, text_length, audio_data, compressed)
		VALUES (?, ?, ?, ?, ?, ?)`,
		key, now.UnixMilli(), voice, utf8.RuneCountInString(text), blob, boolInt(compressed))
	if err != nil {
		s.logger.Warn("cache write failed", "kind", "recoverable", "key", key, "err", err)
		return
	}
	s.hot.put(key, clip, now)
	s.logger.Debug("cached clip", "key", key, "bytes", len(clip), "stored", len(blob), "compressed", compressed)
}

// RecordUsage appends one row to the usage log. generated is true when the
// clip was rendered and false when it was served from the cache.
func (s *Store) RecordUsage(ctx context.Context, voice string, textLength int, generated bool) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tts_stats (date, voice, text_length, generated) VALUES (?, ?, ?, ?)`,
		s.now().Format(time.DateOnly), voice, textLength, boolInt(generated))
	if err != nil {
		s.logger.Warn("usage record failed", "kind", "recoverable", "err", err)
	}
}

// Prune deletes entries stored more than olderThan ago and returns how many
// rows were removed. A zero olderThan uses the retention window.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		olderThan = s.retention
	}
	cutoff := s.now().Add(-olderThan)
	res, err := s.db.ExecContext(ctx, `DELETE FROM audio_cache WHERE timestamp < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	s.hot.prune(cutoff)
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	s.logger.Info("pruned cache", "removed", n, "older_than", olderThan)
	return n, nil
}

// Clear removes every clip. The usage log is kept.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM audio_cache`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	s.hot.clear()
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	s.codec.close()
	s.hot.clear()
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
