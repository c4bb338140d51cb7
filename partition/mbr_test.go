package partition_test

import (
	"encoding/binary"
	"testing"

	"github.com/hairymnstr/gristle/partition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMBR(t *testing.T, entries map[int]partition.Entry) []byte {
	t.Helper()
	sector := make([]byte, 512)

	for slot, entry := range entries {
		offset := 446 + slot*16
		if entry.Bootable {
			sector[offset] = 0x80
		}
		sector[offset+4] = byte(entry.TypeHint)
		binary.LittleEndian.PutUint32(sector[offset+8:offset+12], entry.StartLBA)
		binary.LittleEndian.PutUint32(sector[offset+12:offset+16], entry.LengthLBA)
	}

	binary.LittleEndian.PutUint16(sector[510:512], 0xAA55)
	return sector
}

func TestRead_SingleFAT32Partition(t *testing.T) {
	sector := buildMBR(t, map[int]partition.Entry{
		0: {Bootable: true, TypeHint: partition.TypeFAT32LBA, StartLBA: 2048, LengthLBA: 204800},
	})

	entries, err := partition.Read(sector, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Bootable)
	assert.EqualValues(t, 2048, entries[0].StartLBA)
	assert.EqualValues(t, 204800, entries[0].LengthLBA)

	_, isFAT32 := entries[0].TypeHint.FATKindHint()
	assert.True(t, isFAT32)
}

func TestRead_SkipsEmptyAndOutOfRange(t *testing.T) {
	sector := buildMBR(t, map[int]partition.Entry{
		0: {TypeHint: partition.TypeFAT16, StartLBA: 0, LengthLBA: 0},           // zero length, skipped
		1: {TypeHint: partition.TypeFAT16, StartLBA: 1000, LengthLBA: 100_000},  // exceeds volume size, skipped
		2: {TypeHint: partition.TypeFAT16, StartLBA: 63, LengthLBA: 1000},
	})

	entries, err := partition.Read(sector, 2000)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.EqualValues(t, 63, entries[0].StartLBA)
}

func TestRead_BadSignature(t *testing.T) {
	sector := make([]byte, 512)
	_, err := partition.Read(sector, 0)
	assert.Error(t, err)
}

func TestType_IsLinuxNative(t *testing.T) {
	assert.True(t, partition.TypeLinux.IsLinuxNative())
	assert.False(t, partition.TypeFAT32LBA.IsLinuxNative())
}
