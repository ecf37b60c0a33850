package audio

import "time"

// Buffer is a block of floating point samples in [-1, 1]. Channels holds one
// slice per channel; all slices have the same length.
type Buffer struct {
	SampleRate int
	Channels   [][]float64
}

// NewMonoBuffer allocates a silent single-channel buffer of n frames.
func NewMonoBuffer(sampleRate, n int) *Buffer {
	if n < 0 {
		n = 0
	}
	return &Buffer{
		SampleRate: sampleRate,
		Channels:   [][]float64{make([]float64, n)},
	}
}

// Mono returns the first channel.
func (b *Buffer) Mono() []float64 {
	if b == nil || len(b.Channels) == 0 {
		return nil
	}
	return b.Channels[0]
}

// Frames returns the number of sample frames.
func (b *Buffer) Frames() int {
	if b == nil || len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the playback length of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}
