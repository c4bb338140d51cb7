package fat

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirentRoundTrip_RegularFile(t *testing.T) {
	cursor := 0
	shortName, err := makeDOSName("README.TXT", &cursor)
	require.NoError(t, err)

	now := time.Date(2024, time.March, 2, 10, 30, 0, 0, time.UTC)
	raw := rawDirentFor(shortName, 0o644, 5, 1234, now)

	encoded := encodeRawDirent(raw)
	require.Len(t, encoded, DirentSize)

	decoded := decodeRawDirent(encoded)
	d, ok := direntFromRaw(decoded)
	require.True(t, ok)

	assert.Equal(t, "README.TXT", d.Name())
	assert.EqualValues(t, 5, d.FirstCluster)
	assert.EqualValues(t, 1234, d.Size())
	assert.False(t, d.IsDir())
}

func TestDirentRoundTrip_Directory(t *testing.T) {
	cursor := 0
	shortName, err := makeDOSName("SUBDIR", &cursor)
	require.NoError(t, err)

	now := time.Date(2024, time.March, 2, 10, 30, 0, 0, time.UTC)
	raw := rawDirentFor(shortName, os.ModeDir, 9, 0, now)

	decoded := decodeRawDirent(encodeRawDirent(raw))
	d, ok := direntFromRaw(decoded)
	require.True(t, ok)

	assert.Equal(t, "SUBDIR", d.Name())
	assert.True(t, d.IsDir())
	assert.EqualValues(t, 0, d.Size())
}

func TestDirentFromRaw_FreeSlotIsSkipped(t *testing.T) {
	var data [DirentSize]byte
	_, ok := direntFromRaw(decodeRawDirent(data[:]))
	assert.False(t, ok)
}

func TestDirentFromRaw_DeletedSlotIsSkipped(t *testing.T) {
	var data [DirentSize]byte
	data[0] = nameDeletedMarker
	_, ok := direntFromRaw(decodeRawDirent(data[:]))
	assert.False(t, ok)
}

func TestDirentFromRaw_LongNameEntrySkipped(t *testing.T) {
	var data [DirentSize]byte
	copy(data[0:8], "SOMETHIN")
	data[11] = AttrLongName
	_, ok := direntFromRaw(decodeRawDirent(data[:]))
	assert.False(t, ok)
}

func TestDirentFromRaw_VolumeLabelSkipped(t *testing.T) {
	var data [DirentSize]byte
	copy(data[0:8], "MYDISK  ")
	data[11] = AttrVolumeLabel
	_, ok := direntFromRaw(decodeRawDirent(data[:]))
	assert.False(t, ok)
}

func TestDirentFromRaw_EscapedE5FirstByte(t *testing.T) {
	var data [DirentSize]byte
	data[0] = nameDeletedMarkerEscape
	copy(data[1:8], "ESCAPE ")
	_, ok := direntFromRaw(decodeRawDirent(data[:]))
	require.True(t, ok)
}
