package blockdev

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachingDevice_WritesDeferredUntilFlush(t *testing.T) {
	backing, err := NewBlankMemoryDevice(512, 4)
	require.NoError(t, err)
	cache := NewCachingDevice(backing)

	require.NoError(t, cache.Write(1, bytes(512, 0xAB)))

	// The backing device hasn't seen the write yet.
	raw := make([]byte, 512)
	require.NoError(t, backing.Read(1, raw))
	assert.NotEqual(t, bytes(512, 0xAB), raw)

	require.NoError(t, cache.Flush())
	require.NoError(t, backing.Read(1, raw))
	assert.Equal(t, bytes(512, 0xAB), raw)
}

func TestCachingDevice_ReadFaultsInFromBacking(t *testing.T) {
	backing, err := NewBlankMemoryDevice(512, 4)
	require.NoError(t, err)
	require.NoError(t, backing.Write(2, bytes(512, 0xCD)))

	cache := NewCachingDevice(backing)
	buf := make([]byte, 512)
	require.NoError(t, cache.Read(2, buf))
	assert.Equal(t, bytes(512, 0xCD), buf)
}

func TestCachingDevice_OutOfRangeBlockErrors(t *testing.T) {
	backing, err := NewBlankMemoryDevice(512, 2)
	require.NoError(t, err)
	cache := NewCachingDevice(backing)

	err = cache.Read(5, make([]byte, 512))
	assert.Error(t, err)
}

func bytes(n int, b byte) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = b
	}
	return buf
}
