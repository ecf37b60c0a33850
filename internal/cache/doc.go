// Package cache persists synthesized clips so repeated utterances skip
// rendering. Clips live in a SQLite database (tables audio_cache and
// tts_stats) fronted by a small in-memory LRU. Entries older than the
// retention window read as misses until overwritten or pruned.
package cache
