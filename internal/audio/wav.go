package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAV container constants.
const (
	// HeaderSize is the size of the canonical RIFF/WAVE PCM header.
	HeaderSize = 44
	// BitDepth is the sample size written by Encode.
	BitDepth = 16

	formatPCM = 1
	maxInt16  = 32767
)

var (
	// ErrInvalidBuffer is returned for buffers with no channels, a
	// non-positive sample rate, or ragged channel slices.
	ErrInvalidBuffer = errors.New("invalid audio buffer")

	// ErrInvalidWAV is returned when bytes are not a 16-bit PCM WAV file.
	ErrInvalidWAV = errors.New("invalid WAV data")
)

// Encode wraps b into a 16-bit little-endian linear PCM WAV container. The
// output is a 44-byte header followed by interleaved samples in channel
// order. Samples are clipped to [-1, 1] before scaling so loud input cannot
// wrap around. Encode is deterministic.
func Encode(b *Buffer) ([]byte, error) {
	if err := validate(b); err != nil {
		return nil, err
	}

	frames := b.Frames()
	numChans := len(b.Channels)
	data := make([]int, frames*numChans)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < numChans; ch++ {
			data[i*numChans+ch] = FloatToPCM16(b.Channels[ch][i])
		}
	}

	ws := &seekBuffer{buf: make([]byte, 0, HeaderSize+len(data)*2)}
	enc := wav.NewEncoder(ws, b.SampleRate, BitDepth, numChans, formatPCM)
	ib := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{SampleRate: b.SampleRate, NumChannels: numChans},
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(ib); err != nil {
		return nil, fmt.Errorf("failed to write samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize header: %w", err)
	}
	return ws.Bytes(), nil
}

// Decode parses a 16-bit PCM WAV file produced by Encode (or any compliant
// writer) back into a float buffer.
func Decode(data []byte) (*Buffer, error) {
	ib, err := decodeInts(data)
	if err != nil {
		return nil, err
	}

	numChans := ib.Format.NumChannels
	frames := len(ib.Data) / numChans
	b := &Buffer{
		SampleRate: ib.Format.SampleRate,
		Channels:   make([][]float64, numChans),
	}
	for ch := range b.Channels {
		b.Channels[ch] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < numChans; ch++ {
			b.Channels[ch][i] = PCM16ToFloat(ib.Data[i*numChans+ch])
		}
	}
	return b, nil
}

// Format describes the PCM stream inside a WAV file.
type Format struct {
	SampleRate int
	Channels   int
}

// PCM extracts the raw interleaved little-endian 16-bit payload of a WAV
// file, ready for an output device.
func PCM(data []byte) ([]byte, Format, error) {
	ib, err := decodeInts(data)
	if err != nil {
		return nil, Format{}, err
	}
	out := make([]byte, len(ib.Data)*2)
	for i, v := range ib.Data {
		s := uint16(int16(v))
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out, Format{SampleRate: ib.Format.SampleRate, Channels: ib.Format.NumChannels}, nil
}

// FloatToPCM16 clips v to [-1, 1] and scales it to a signed 16-bit value.
func FloatToPCM16(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Max(-1, math.Min(1, v))
	return int(math.Round(v * maxInt16))
}

// PCM16ToFloat is the inverse of FloatToPCM16.
func PCM16ToFloat(v int) float64 {
	return float64(v) / maxInt16
}

func decodeInts(data []byte) (*goaudio.IntBuffer, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than a header", ErrInvalidWAV, len(data))
	}
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE chunks", ErrInvalidWAV)
	}
	if dec.BitDepth != BitDepth || dec.WavAudioFormat != formatPCM {
		return nil, fmt.Errorf("%w: unsupported format %d/%d-bit", ErrInvalidWAV, dec.WavAudioFormat, dec.BitDepth)
	}
	ib, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	if ib.Format == nil || ib.Format.NumChannels <= 0 {
		return nil, fmt.Errorf("%w: no channels", ErrInvalidWAV)
	}
	return ib, nil
}

func validate(b *Buffer) error {
	if b == nil || len(b.Channels) == 0 {
		return fmt.Errorf("%w: no channels", ErrInvalidBuffer)
	}
	if b.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidBuffer, b.SampleRate)
	}
	n := len(b.Channels[0])
	for i, ch := range b.Channels {
		if len(ch) != n {
			return fmt.Errorf("%w: channel %d has %d frames, want %d", ErrInvalidBuffer, i, len(ch), n)
		}
	}
	return nil
}

// seekBuffer is an in-memory io.WriteSeeker; the WAV encoder seeks back to
// patch chunk sizes once all samples are written.
type seekBuffer struct {
	buf []byte
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	end := s.pos + len(p)
	if end > len(s.buf) {
		if end > cap(s.buf) {
			grown := make([]byte, len(s.buf), 2*end)
			copy(grown, s.buf)
			s.buf = grown
		}
		s.buf = s.buf[:end]
	}
	copy(s.buf[s.pos:], p)
	s.pos = end
	return len(p), nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(s.pos) + offset
	case io.SeekEnd:
		abs = int64(len(s.buf)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	s.pos = int(abs)
	return abs, nil
}

func (s *seekBuffer) Bytes() []byte {
	return s.buf
}
