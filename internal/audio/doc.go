// Package audio holds the in-memory sample buffer, the WAV container codec,
// and cross-platform playback through oto/v3.
package audio
