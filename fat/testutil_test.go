package fat

import (
	"testing"

	"github.com/hairymnstr/gristle"
	"github.com/hairymnstr/gristle/blockdev"
	"github.com/stretchr/testify/require"
)

// newMountedFAT16 builds and mounts a small, blank, writable FAT16 volume
// for use across directory/handle/path/context tests.
func newMountedFAT16(t *testing.T) *FS {
	t.Helper()

	const (
		bytesPerSector    = 512
		sectorsPerCluster = 1
		reserved          = 1
		numFATs           = 1
		rootEntryCount    = 16
		sectorsPerFAT     = 1
		totalClusters     = 20
	)
	rootDirSectors := uint(rootEntryCount*DirentSize) / bytesPerSector
	dataSectors := uint(totalClusters * sectorsPerCluster)
	totalSectors := uint(reserved + numFATs*sectorsPerFAT + int(rootDirSectors)) + dataSectors

	sector := buildRawSector(t, rawBootSector{
		BytesPerSector:  bytesPerSector,
		SectorsPerClust: sectorsPerCluster,
		ReservedSectors: reserved,
		NumFATs:         numFATs,
		RootEntryCount:  rootEntryCount,
		TotalSectors16:  uint16(totalSectors),
		Media:           0xF8,
		SectorsPerFAT16: sectorsPerFAT,
	})

	dev, err := blockdev.NewBlankMemoryDevice(bytesPerSector, totalSectors)
	require.NoError(t, err)
	require.NoError(t, dev.Write(0, sector))

	fs, err := Mount(dev, 0, Variant16, gristle.DefaultConfig(), gristle.MountFlagsAllowReadWrite)
	require.NoError(t, err)
	return fs
}

func shortNameOf(t *testing.T, name string) [11]byte {
	t.Helper()
	cursor := 0
	sn, err := makeDOSName(name, &cursor)
	require.NoError(t, err)
	return sn
}
