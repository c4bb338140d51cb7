package fat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMkdirAt_CreatesEntryWithDotAndDotDot(t *testing.T) {
	fs := newMountedFAT16(t)
	now := time.Date(2024, time.March, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, fs.mkdirAt(fs.rootLocation(), 0, shortNameOf(t, "A"), now))

	entries, err := fs.listDirectory(fs.rootLocation())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "A", entries[0].Name())
	assert.True(t, entries[0].IsDir())

	sub := dirLocation{firstCluster: entries[0].FirstCluster}
	subEntries, err := fs.listDirectory(sub)
	require.NoError(t, err)
	require.Len(t, subEntries, 2)
	assert.Equal(t, ".", subEntries[0].Name())
	assert.Equal(t, "..", subEntries[1].Name())
	assert.EqualValues(t, entries[0].FirstCluster, subEntries[0].FirstCluster)
}

func TestMkdirAt_DuplicateNameFails(t *testing.T) {
	fs := newMountedFAT16(t)
	now := time.Now().UTC()
	require.NoError(t, fs.mkdirAt(fs.rootLocation(), 0, shortNameOf(t, "A"), now))
	err := fs.mkdirAt(fs.rootLocation(), 0, shortNameOf(t, "A"), now)
	assert.Error(t, err)
}

func TestRmdirAt_EmptyDirSucceeds(t *testing.T) {
	fs := newMountedFAT16(t)
	now := time.Now().UTC()
	require.NoError(t, fs.mkdirAt(fs.rootLocation(), 0, shortNameOf(t, "A"), now))

	require.NoError(t, fs.rmdirAt(fs.rootLocation(), shortNameOf(t, "A")))

	entries, err := fs.listDirectory(fs.rootLocation())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRmdirAt_NonEmptyDirFails(t *testing.T) {
	fs := newMountedFAT16(t)
	now := time.Now().UTC()
	require.NoError(t, fs.mkdirAt(fs.rootLocation(), 0, shortNameOf(t, "A"), now))

	entries, err := fs.listDirectory(fs.rootLocation())
	require.NoError(t, err)
	aLoc := dirLocation{firstCluster: entries[0].FirstCluster}
	require.NoError(t, fs.mkdirAt(aLoc, entries[0].FirstCluster, shortNameOf(t, "B"), now))

	err = fs.rmdirAt(fs.rootLocation(), shortNameOf(t, "A"))
	assert.Error(t, err)
}

func TestUnlinkAt_RefusesDirectory(t *testing.T) {
	fs := newMountedFAT16(t)
	now := time.Now().UTC()
	require.NoError(t, fs.mkdirAt(fs.rootLocation(), 0, shortNameOf(t, "A"), now))

	err := fs.unlinkAt(fs.rootLocation(), shortNameOf(t, "A"))
	assert.Error(t, err)
}

func TestUnlinkAt_ThenRecreateSameNameReusesFreshSlot(t *testing.T) {
	fs := newMountedFAT16(t)
	now := time.Now().UTC()

	cluster, err := fs.freeMap.Allocate()
	require.NoError(t, err)
	slot, err := fs.findOrCreateSlot(fs.rootLocation())
	require.NoError(t, err)
	slot.Raw = rawDirentFor(shortNameOf(t, "TMP.BIN"), 0o644, cluster, 1, now)
	require.NoError(t, fs.writeSlot(slot))

	require.NoError(t, fs.unlinkAt(fs.rootLocation(), shortNameOf(t, "TMP.BIN")))

	// The deleted slot is skipped rather than reused: the next create lands
	// on the following (still-free) slot, one entry further along.
	newSlot, err := fs.findOrCreateSlot(fs.rootLocation())
	require.NoError(t, err)
	assert.Equal(t, slot.Sector, newSlot.Sector)
	assert.Equal(t, slot.Offset+DirentSize, newSlot.Offset)
}
