package blockdev

import (
	"bytes"
	"testing"

	"github.com/hairymnstr/gristle/utilities/compression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCompressedFixture_RoundTrips(t *testing.T) {
	const blockSize = 512
	raw := make([]byte, blockSize*4)
	copy(raw, []byte("GRISTLE TEST IMAGE"))
	for i := 400; i < 430; i++ {
		raw[i] = 0xAA
	}

	var compressed bytes.Buffer
	_, err := compression.CompressImage(bytes.NewReader(raw), &compressed)
	require.NoError(t, err)

	dev, err := LoadCompressedFixture(compressed.Bytes(), blockSize, true)
	require.NoError(t, err)
	assert.EqualValues(t, 4, dev.VolumeSize())

	got := make([]byte, blockSize)
	require.NoError(t, dev.Read(0, got))
	assert.Equal(t, raw[:blockSize], got)
	assert.True(t, dev.ReadOnly())
}
