package attribute

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Compression selects how encoded items are stored
type Compression string

// Supported compression options
const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

// Encoded item header bytes
const (
	headerJSON byte = 0x01
	headerZstd byte = 0x02
)

// ErrCorruptItem is returned when stored bytes cannot be decoded
var ErrCorruptItem = errors.New("corrupt item encoding")

// Codec converts items to and from their stored form. Decoding accepts every
// encoding regardless of the compression configured for writing.
// A Codec is safe for concurrent use.
type Codec struct {
	encoder *zstd.Encoder // nil when writing uncompressed
	decoder *zstd.Decoder
}

// NewCodec creates a codec that writes with the given compression
func NewCodec(compression Compression) (*Codec, error) {
	if compression == "" {
		compression = CompressionNone
	}
	if compression != CompressionNone && compression != CompressionZstd {
		return nil, fmt.Errorf("unsupported compression %q", compression)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	c := &Codec{decoder: decoder}

	if compression == CompressionZstd {
		c.encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			decoder.Close()
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}

	return c, nil
}

// Encode serializes an item
func (c *Codec) Encode(item Item) ([]byte, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}

	if c.encoder == nil {
		return append([]byte{headerJSON}, data...), nil
	}

	out := make([]byte, 1, len(data)/2+1)
	out[0] = headerZstd
	return c.encoder.EncodeAll(data, out), nil
}

// Decode deserializes an item
func (c *Codec) Decode(data []byte) (Item, error) {
	if len(data) == 0 {
		return nil, ErrCorruptItem
	}

	payload := data[1:]
	switch data[0] {
	case headerJSON:
	case headerZstd:
		var err error
		payload, err = c.decoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptItem, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown header 0x%02x", ErrCorruptItem, data[0])
	}

	var item Item
	if err := json.Unmarshal(payload, &item); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptItem, err)
	}
	return item, nil
}

// Close releases the codec's compression state
func (c *Codec) Close() {
	if c.encoder != nil {
		c.encoder.Close()
	}
	c.decoder.Close()
}
