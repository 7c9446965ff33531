package attribute

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCodecRoundTrip(t *testing.T) {
	item := Item{
		"id":   String("k1"),
		"body": String(strings.Repeat("compressible ", 64)),
		"n":    Int(99),
	}

	for _, compression := range []Compression{CompressionNone, CompressionZstd} {
		t.Run(string(compression), func(t *testing.T) {
			codec, err := NewCodec(compression)
			if err != nil {
				t.Fatalf("Failed to create codec: %v", err)
			}
			defer codec.Close()

			data, err := codec.Encode(item)
			if err != nil {
				t.Fatalf("Failed to encode item: %v", err)
			}

			decoded, err := codec.Decode(data)
			if err != nil {
				t.Fatalf("Failed to decode item: %v", err)
			}

			if diff := cmp.Diff(item, decoded); diff != "" {
				t.Errorf("Decoded item mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCodecCompresses(t *testing.T) {
	item := Item{"body": String(strings.Repeat("a", 4096))}

	plain, _ := NewCodec(CompressionNone)
	defer plain.Close()
	zstdCodec, _ := NewCodec(CompressionZstd)
	defer zstdCodec.Close()

	raw, err := plain.Encode(item)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}
	compressed, err := zstdCodec.Encode(item)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	if len(compressed) >= len(raw) {
		t.Errorf("Expected compressed size %d to be smaller than %d", len(compressed), len(raw))
	}

	// A codec writing plain JSON still reads compressed items
	decoded, err := plain.Decode(compressed)
	if err != nil {
		t.Fatalf("Plain codec failed to decode zstd item: %v", err)
	}
	if decoded["body"].Text() != strings.Repeat("a", 4096) {
		t.Error("Decoded body does not match")
	}
}

func TestCodecCorruptInput(t *testing.T) {
	codec, _ := NewCodec(CompressionNone)
	defer codec.Close()

	inputs := [][]byte{
		nil,
		{0x7f, '{', '}'},
		append([]byte{headerJSON}, []byte("not json")...),
		append([]byte{headerZstd}, bytes.Repeat([]byte{0xff}, 8)...),
	}

	for i, input := range inputs {
		if _, err := codec.Decode(input); !errors.Is(err, ErrCorruptItem) {
			t.Errorf("input %d: expected ErrCorruptItem, got %v", i, err)
		}
	}
}

func TestNewCodecRejectsUnknownCompression(t *testing.T) {
	if _, err := NewCodec("lz4"); err == nil {
		t.Error("Expected error for unsupported compression")
	}
}
