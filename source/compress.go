package source

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/wippyai/redpkg/errors"
)

// Compression identifies the framing around a package blob.
type Compression uint8

const (
	// CompressionAuto detects the framing from its magic number.
	CompressionAuto Compression = iota
	CompressionNone
	// CompressionLZ4 is the LZ4 frame format.
	CompressionLZ4
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionAuto:
		return "auto"
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses the String form of a compression. The empty
// string is CompressionAuto.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "auto":
		return CompressionAuto, nil
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown compression %q", name))
	}
}

// MaxSize bounds the decompressed size of a package.
const MaxSize = 1 << 30

var (
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// zstd.Encoder and zstd.Decoder are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("source: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxSize))
	if err != nil {
		panic("source: zstd decoder initialization failed: " + err.Error())
	}
}

// Detect returns the framing data starts with, or CompressionNone.
func Detect(data []byte) Compression {
	switch {
	case bytes.HasPrefix(data, lz4Magic):
		return CompressionLZ4
	case bytes.HasPrefix(data, zstdMagic):
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// Decompress removes the framing c from data. CompressionNone returns data
// unchanged.
func Decompress(data []byte, c Compression) ([]byte, error) {
	if c == CompressionAuto {
		c = Detect(data)
	}

	switch c {
	case CompressionNone:
		return data, nil
	case CompressionLZ4:
		out, err := io.ReadAll(io.LimitReader(lz4.NewReader(bytes.NewReader(data)), MaxSize+1))
		if err != nil {
			return nil, errors.Load("lz4 decompress", err)
		}
		if len(out) > MaxSize {
			return nil, errors.Load(fmt.Sprintf("lz4 payload exceeds %d bytes", MaxSize), nil)
		}
		return out, nil
	case CompressionZstd:
		out, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, errors.Load("zstd decompress", err)
		}
		return out, nil
	default:
		return nil, errors.InvalidInput(errors.PhaseLoad, fmt.Sprintf("unsupported compression %s", c))
	}
}

// Compress frames data with c. CompressionAuto behaves like
// CompressionNone.
func Compress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionAuto, CompressionNone:
		return data, nil
	case CompressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, errors.Load("lz4 compress", err)
		}
		if err := w.Close(); err != nil {
			return nil, errors.Load("lz4 compress", err)
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		return zstdEncoder.EncodeAll(data, nil), nil
	default:
		return nil, errors.InvalidInput(errors.PhaseLoad, fmt.Sprintf("unsupported compression %s", c))
	}
}
