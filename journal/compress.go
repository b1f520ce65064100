// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the algorithm applied to segment files. The
// algorithm is recorded in the segment's file extension so a reader
// never needs out-of-band metadata to replay one.
type Compression uint8

const (
	// CompressionNone writes segments uncompressed.
	CompressionNone Compression = 0

	// CompressionLZ4 writes LZ4-framed segments. Fast with a modest
	// ratio; the right choice when the journal sits on the hot path of
	// a busy manager connection.
	CompressionLZ4 Compression = 1

	// CompressionZstd writes zstd segments at the default level.
	// Manager events are highly repetitive text, so zstd typically
	// shrinks segments several-fold.
	CompressionZstd Compression = 2
)

// String returns the human-readable name of the compression algorithm.
func (c Compression) String() string {
	switch c {
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

// ParseCompression parses a compression name from configuration. The
// empty string selects CompressionNone.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression: %q", name)
	}
}

// extension returns the file suffix appended to segment names written
// with this compression. CompressionNone has no suffix.
func (c Compression) extension() string {
	switch c {
	case CompressionLZ4:
		return ".lz4"
	case CompressionZstd:
		return ".zst"
	default:
		return ""
	}
}

// compressionForPath derives the compression of a segment from its
// file extension.
func compressionForPath(path string) Compression {
	switch filepath.Ext(path) {
	case ".lz4":
		return CompressionLZ4
	case ".zst":
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// newCompressor wraps sink in a streaming compressor for c, or returns
// nil when c is CompressionNone and writes should go to sink directly.
func newCompressor(sink io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nil, nil
	case CompressionLZ4:
		return lz4.NewWriter(sink), nil
	case CompressionZstd:
		encoder, err := zstd.NewWriter(sink, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
		return encoder, nil
	default:
		return nil, fmt.Errorf("unsupported compression: %d", c)
	}
}

// newDecompressor wraps source in the streaming decompressor matching
// c. The returned closer releases decoder resources and must be called
// even when reading fails; it does not close source.
func newDecompressor(source io.Reader, c Compression) (io.Reader, func(), error) {
	switch c {
	case CompressionNone:
		return source, func() {}, nil
	case CompressionLZ4:
		return lz4.NewReader(source), func() {}, nil
	case CompressionZstd:
		decoder, err := zstd.NewReader(source)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd decoder: %w", err)
		}
		return decoder, decoder.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported compression: %d", c)
	}
}
