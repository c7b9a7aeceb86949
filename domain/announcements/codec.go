package announcements

import (
	"bytes"
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression is the first byte of every announcement payload; the
// rest is the (possibly compressed) body.
type Compression byte

const (
	CompressionNone Compression = 0
	CompressionZstd Compression = 1
	CompressionLZ4  Compression = 2
)

// Decode parses a wire payload. The body is CBOR, or JSON when it
// starts with '{' (some producers publish human-readable feeds).
func Decode(payload []byte) (*HeadAnnouncement, error) {
	if len(payload) < 2 {
		return nil, ErrEmptyPayload
	}

	body, err := decompress(Compression(payload[0]), payload[1:])
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, ErrEmptyPayload
	}

	if body[0] == '{' {
		return decodeJSON(body)
	}

	a := &HeadAnnouncement{}
	if err := cbor.Unmarshal(body, a); err != nil {
		return nil, fmt.Errorf("unable to decode CBOR announcement: %w", err)
	}
	return a, nil
}

// Encode produces a CBOR-bodied wire payload.
func Encode(a *HeadAnnouncement, c Compression) ([]byte, error) {
	body, err := cbor.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("unable to encode announcement: %w", err)
	}

	body, err = compress(c, body)
	if err != nil {
		return nil, err
	}
	return append([]byte{byte(c)}, body...), nil
}

var zstdOnce sync.Once
var zstdDecoder *zstd.Decoder
var zstdEncoder *zstd.Encoder

func getZstd() (*zstd.Decoder, *zstd.Encoder) {
	zstdOnce.Do(func() {
		var err error
		zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(runtime.GOMAXPROCS(0)))
		if err != nil {
			panic("Cannot initialize the zstd decoder")
		}
		zstdEncoder, err = zstd.NewWriter(nil)
		if err != nil {
			panic("Cannot initialize the zstd encoder")
		}
	})
	return zstdDecoder, zstdEncoder
}

func decompress(c Compression, body []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return body, nil
	case CompressionZstd:
		dec, _ := getZstd()
		out, err := dec.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("unable to decompress zstd body: %w", err)
		}
		return out, nil
	case CompressionLZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("unable to decompress lz4 body: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("codec byte %d: %w", c, ErrUnknownCompression)
	}
}

func compress(c Compression, body []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return body, nil
	case CompressionZstd:
		_, enc := getZstd()
		return enc.EncodeAll(body, nil), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(body); err != nil {
			return nil, fmt.Errorf("unable to compress lz4 body: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("unable to compress lz4 body: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("codec byte %d: %w", c, ErrUnknownCompression)
	}
}
