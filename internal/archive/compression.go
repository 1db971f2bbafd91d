package archive

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionStats contains statistics about a compression operation
type CompressionStats struct {
	OriginalSize   int64         `json:"original_size"`
	CompressedSize int64         `json:"compressed_size"`
	Ratio          float64       `json:"ratio"`
	Algorithm      Algorithm     `json:"algorithm"`
	Duration       time.Duration `json:"duration"`
}

// codec implements one compression algorithm
type codec interface {
	encode(data []byte, level int) ([]byte, error)
	decode(data []byte) ([]byte, error)
}

var codecs = map[Algorithm]codec{
	AlgorithmGzip: gzipCodec{},
	AlgorithmLZ4:  lz4Codec{},
	AlgorithmZstd: zstdCodec{},
}

// SupportedAlgorithms lists the compression algorithms the packer accepts
func SupportedAlgorithms() []Algorithm {
	return []Algorithm{AlgorithmNone, AlgorithmGzip, AlgorithmLZ4, AlgorithmZstd}
}

// Compress compresses data with the given algorithm. Level semantics follow
// the algorithm's own scale; out-of-range levels fall back to the default.
func Compress(data []byte, algorithm Algorithm, level int) ([]byte, *CompressionStats, error) {
	if algorithm == AlgorithmNone || algorithm == "" {
		return data, &CompressionStats{
			OriginalSize:   int64(len(data)),
			CompressedSize: int64(len(data)),
			Ratio:          1.0,
			Algorithm:      AlgorithmNone,
		}, nil
	}

	c, ok := codecs[algorithm]
	if !ok {
		return nil, nil, NewCompressionError(fmt.Sprintf("unsupported compression algorithm: %s", algorithm), nil)
	}

	start := time.Now()
	compressed, err := c.encode(data, level)
	if err != nil {
		return nil, nil, err
	}

	return compressed, &CompressionStats{
		OriginalSize:   int64(len(data)),
		CompressedSize: int64(len(compressed)),
		Ratio:          ratio(int64(len(data)), int64(len(compressed))),
		Algorithm:      algorithm,
		Duration:       time.Since(start),
	}, nil
}

// Decompress reverses Compress for the given algorithm
func Decompress(data []byte, algorithm Algorithm) ([]byte, error) {
	if algorithm == AlgorithmNone || algorithm == "" {
		return data, nil
	}

	c, ok := codecs[algorithm]
	if !ok {
		return nil, NewCompressionError(fmt.Sprintf("unsupported compression algorithm: %s", algorithm), nil)
	}

	return c.decode(data)
}

func ratio(originalSize, compressedSize int64) float64 {
	if originalSize == 0 {
		return 1.0
	}
	return float64(compressedSize) / float64(originalSize)
}

type gzipCodec struct{}

func (gzipCodec) encode(data []byte, level int) ([]byte, error) {
	if level < gzip.BestSpeed || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}

	var buf bytes.Buffer
	writer, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, NewCompressionError("failed to create gzip writer", err)
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, NewCompressionError("failed to write gzip data", err)
	}
	if err := writer.Close(); err != nil {
		return nil, NewCompressionError("failed to close gzip writer", err)
	}

	return buf.Bytes(), nil
}

func (gzipCodec) decode(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, NewCompressionError("failed to create gzip reader", err)
	}
	defer reader.Close()

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, NewCompressionError("failed to decompress gzip data", err)
	}
	return decompressed, nil
}

type lz4Codec struct{}

func (lz4Codec) encode(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	writer := lz4.NewWriter(&buf)

	// lz4 only distinguishes fast mode from the high-compression levels
	if level > 6 {
		if err := writer.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
			return nil, NewCompressionError("failed to set lz4 compression level", err)
		}
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, NewCompressionError("failed to write lz4 data", err)
	}
	if err := writer.Close(); err != nil {
		return nil, NewCompressionError("failed to close lz4 writer", err)
	}

	return buf.Bytes(), nil
}

func (lz4Codec) decode(data []byte) ([]byte, error) {
	reader := lz4.NewReader(bytes.NewReader(data))
	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, NewCompressionError("failed to decompress lz4 data", err)
	}
	return decompressed, nil
}

type zstdCodec struct{}

func (zstdCodec) encode(data []byte, level int) ([]byte, error) {
	encoderLevel := zstd.SpeedDefault
	switch {
	case level <= 1:
		encoderLevel = zstd.SpeedFastest
	case level <= 3:
		encoderLevel = zstd.SpeedDefault
	case level <= 6:
		encoderLevel = zstd.SpeedBetterCompression
	default:
		encoderLevel = zstd.SpeedBestCompression
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encoderLevel))
	if err != nil {
		return nil, NewCompressionError("failed to create zstd encoder", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, make([]byte, 0, len(data))), nil
}

func (zstdCodec) decode(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, NewCompressionError("failed to create zstd decoder", err)
	}
	defer decoder.Close()

	decompressed, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, NewCompressionError("failed to decompress zstd data", err)
	}
	return decompressed, nil
}
