package archive

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayload() []byte {
	// Repetitive data compresses well enough to assert on ratios
	return bytes.Repeat([]byte("COPY jdb.users (id, email, created_at) FROM stdin;\n"), 200)
}

func TestCompress_RoundTrip(t *testing.T) {
	payload := testPayload()

	for _, algorithm := range []Algorithm{AlgorithmGzip, AlgorithmLZ4, AlgorithmZstd} {
		t.Run(string(algorithm), func(t *testing.T) {
			compressed, stats, err := Compress(payload, algorithm, 0)
			require.NoError(t, err)
			require.NotNil(t, stats)

			assert.Equal(t, algorithm, stats.Algorithm)
			assert.Equal(t, int64(len(payload)), stats.OriginalSize)
			assert.Less(t, stats.CompressedSize, stats.OriginalSize)
			assert.Less(t, stats.Ratio, 1.0)

			decompressed, err := Decompress(compressed, algorithm)
			require.NoError(t, err)
			assert.Equal(t, payload, decompressed)
		})
	}
}

func TestCompress_None(t *testing.T) {
	payload := testPayload()

	compressed, stats, err := Compress(payload, AlgorithmNone, 0)
	require.NoError(t, err)
	assert.Equal(t, payload, compressed)
	assert.Equal(t, 1.0, stats.Ratio)

	decompressed, err := Decompress(compressed, AlgorithmNone)
	require.NoError(t, err)
	assert.Equal(t, payload, decompressed)
}

func TestCompress_UnsupportedAlgorithm(t *testing.T) {
	_, _, err := Compress(testPayload(), "brotli", 0)
	require.Error(t, err)

	archiveErr, ok := err.(*ArchiveError)
	require.True(t, ok)
	assert.Equal(t, ArchiveErrorTypeCompression, archiveErr.Type)
}

func TestCompress_HighLevels(t *testing.T) {
	payload := testPayload()

	for _, algorithm := range []Algorithm{AlgorithmGzip, AlgorithmLZ4, AlgorithmZstd} {
		compressed, _, err := Compress(payload, algorithm, 9)
		require.NoError(t, err)

		decompressed, err := Decompress(compressed, algorithm)
		require.NoError(t, err)
		assert.Equal(t, payload, decompressed)
	}
}

func TestDecompress_CorruptData(t *testing.T) {
	_, err := Decompress([]byte("not compressed data"), AlgorithmGzip)
	assert.Error(t, err)

	_, err = Decompress([]byte("not compressed data"), AlgorithmZstd)
	assert.Error(t, err)
}

func TestSupportedAlgorithms(t *testing.T) {
	algorithms := SupportedAlgorithms()
	assert.Contains(t, algorithms, AlgorithmNone)
	assert.Contains(t, algorithms, AlgorithmGzip)
	assert.Contains(t, algorithms, AlgorithmLZ4)
	assert.Contains(t, algorithms, AlgorithmZstd)
}
