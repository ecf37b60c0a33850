package cache

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// compressThreshold is the payload size below which compression is skipped.
const compressThreshold = 1024

// codec compresses blobs with zstd. The decoder is always available so rows
// written with compression stay readable after it is turned off.
type codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newCodec(compress bool) (*codec, error) {
	c := &codec{}
	var err error
	if compress {
		c.encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}
	c.decoder, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return c, nil
}

// pack returns the bytes to store and whether they are compressed.
// Compression is used only when it makes the payload smaller.
func (c *codec) pack(data []byte) ([]byte, bool) {
	if c.encoder == nil || len(data) <= compressThreshold {
		return data, false
	}
	out := c.encoder.EncodeAll(data, nil)
	if len(out) >= len(data) {
		return data, false
	}
	return out, true
}

func (c *codec) unpack(data []byte, compressed bool) ([]byte, error) {
	if !compressed {
		return data, nil
	}
	out, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return out, nil
}

func (c *codec) close() {
	if c.encoder != nil {
		_ = c.encoder.Close()
	}
	c.decoder.Close()
}
