package cache

import (
	"context"
	"fmt"
	"time"
)

// Summary describes the cache contents and the usage log.
type Summary struct {
	Entries     int64
	StoredBytes int64
	Oldest      time.Time
	Newest      time.Time
	Expired     int64

	Requests  int64
	Generated int64
	Voices    []VoiceUsage
	Days      []DayUsage
}

// Served returns how many requests were answered from the cache.
func (s Summary) Served() int64 {
	return s.Requests - s.Generated
}

// HitRate returns the fraction of requests served from the cache.
func (s Summary) HitRate() float64 {
	if s.Requests == 0 {
		return 0
	}
	return float64(s.Served()) / float64(s.Requests)
}

// VoiceUsage aggregates the usage log for one voice.
type VoiceUsage struct {
	Voice     string
	Requests  int64
	Generated int64
	Chars     int64
}

// DayUsage counts requests on one calendar day (YYYY-MM-DD).
type DayUsage struct {
	Date     string
	Requests int64
}

// maxDays bounds the per-day breakdown.
const maxDays = 14

// Stats summarizes the store.
func (s *Store) Stats(ctx context.Context) (Summary, error) {
	var (
		sum            Summary
		oldest, newest int64
	)
	cutoff := s.now().Add(-s.retention).UnixMilli()
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(LENGTH(audio_data)), 0),
			COALESCE(MIN(timestamp), 0),
			COALESCE(MAX(timestamp), 0),
			COALESCE(SUM(CASE WHEN timestamp < ? THEN 1 ELSE 0 END), 0)
		FROM audio_cache`, cutoff,
	).Scan(&sum.Entries, &sum.StoredBytes, &oldest, &newest, &sum.Expired)
	if err != nil {
		return Summary{}, fmt.Errorf("query cache summary: %w", err)
	}
	if sum.Entries > 0 {
		sum.Oldest = time.UnixMilli(oldest)
		sum.Newest = time.UnixMilli(newest)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT voice, COUNT(*), COALESCE(SUM(generated), 0), COALESCE(SUM(text_length), 0)
		FROM tts_stats
		GROUP BY voice
		ORDER BY COUNT(*) DESC, voice`)
	if err != nil {
		return Summary{}, fmt.Errorf("query voice usage: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v VoiceUsage
		if err := rows.Scan(&v.Voice, &v.Requests, &v.Generated, &v.Chars); err != nil {
			return Summary{}, fmt.Errorf("scan voice usage: %w", err)
		}
		sum.Requests += v.Requests
		sum.Generated += v.Generated
		sum.Voices = append(sum.Voices, v)
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("scan voice usage: %w", err)
	}

	days, err := s.db.QueryContext(ctx, `
		SELECT date, COUNT(*) FROM tts_stats
		GROUP BY date
		ORDER BY date DESC
		LIMIT ?`, maxDays)
	if err != nil {
		return Summary{}, fmt.Errorf("query daily usage: %w", err)
	}
	defer days.Close()
	for days.Next() {
		var d DayUsage
		if err := days.Scan(&d.Date, &d.Requests); err != nil {
			return Summary{}, fmt.Errorf("scan daily usage: %w", err)
		}
		sum.Days = append(sum.Days, d)
	}
	if err := days.Err(); err != nil {
		return Summary{}, fmt.Errorf("scan daily usage: %w", err)
	}
	return sum, nil
}
