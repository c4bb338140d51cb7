package fat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyChain_CleanChainReportsNoError(t *testing.T) {
	fs := newMountedFAT16(t)
	c1, err := fs.freeMap.Allocate()
	require.NoError(t, err)
	_, err = fs.engine.NextCluster(c1, true)
	require.NoError(t, err)

	assert.NoError(t, VerifyChain(fs.engine, c1))
}

func TestVerifyChain_CorruptPointerIsReported(t *testing.T) {
	fs := newMountedFAT16(t)
	c1, err := fs.freeMap.Allocate()
	require.NoError(t, err)
	require.NoError(t, fs.engine.WriteEntry(c1, 1)) // 1 is a reserved, invalid pointer

	err = VerifyChain(fs.engine, c1)
	assert.Error(t, err)
}

func TestVerifyChain_CycleIsReported(t *testing.T) {
	fs := newMountedFAT16(t)
	c1, err := fs.freeMap.Allocate()
	require.NoError(t, err)
	c2, err := fs.freeMap.Allocate()
	require.NoError(t, err)
	require.NoError(t, fs.engine.WriteEntry(c1, uint32(c2)))
	require.NoError(t, fs.engine.WriteEntry(c2, uint32(c1)))

	err = VerifyChain(fs.engine, c1)
	assert.Error(t, err)
}

func TestVerifyDirectory_CleanTreeReportsNoError(t *testing.T) {
	fs := newMountedFAT16(t)
	now := time.Now().UTC()
	require.NoError(t, fs.mkdirAt(fs.rootLocation(), 0, shortNameOf(t, "A"), now))

	assert.NoError(t, fs.VerifyDirectory(fs.rootLocation()))
}

func TestFindLostClusters_DetectsUnreachableAllocation(t *testing.T) {
	fs := newMountedFAT16(t)
	now := time.Now().UTC()
	require.NoError(t, fs.mkdirAt(fs.rootLocation(), 0, shortNameOf(t, "A"), now))

	// Simulate the crash window: a cluster allocated but never linked from
	// any directory entry.
	orphan, err := fs.freeMap.Allocate()
	require.NoError(t, err)

	lost, err := fs.FindLostClusters()
	require.NoError(t, err)
	assert.Contains(t, lost, orphan)
}
