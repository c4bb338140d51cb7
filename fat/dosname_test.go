package fat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeDOSName_SimpleNameAndExtension(t *testing.T) {
	cursor := 0
	name, err := makeDOSName("README.TXT", &cursor)
	require.NoError(t, err)
	assert.Equal(t, "README  TXT", string(name[:]))
	assert.Equal(t, len("README.TXT"), cursor)
}

func TestMakeDOSName_NoExtension(t *testing.T) {
	cursor := 0
	name, err := makeDOSName("BOOT", &cursor)
	require.NoError(t, err)
	assert.Equal(t, "BOOT       ", string(name[:]))
}

func TestMakeDOSName_LowerCaseUpcased(t *testing.T) {
	cursor := 0
	name, err := makeDOSName("hello.c", &cursor)
	require.NoError(t, err)
	assert.Equal(t, "HELLO   C  ", string(name[:]))
}

func TestMakeDOSName_DotDirectory(t *testing.T) {
	cursor := 0
	name, err := makeDOSName(".", &cursor)
	require.NoError(t, err)
	assert.Equal(t, ".          ", string(name[:]))
}

func TestMakeDOSName_DotDotDirectory(t *testing.T) {
	cursor := 0
	name, err := makeDOSName("..", &cursor)
	require.NoError(t, err)
	assert.Equal(t, "..         ", string(name[:]))
}

func TestMakeDOSName_StopsAtSeparator(t *testing.T) {
	cursor := 0
	path := "ETC/PASSWD"
	name, err := makeDOSName(path, &cursor)
	require.NoError(t, err)
	assert.Equal(t, "ETC        ", string(name[:]))
	assert.Equal(t, byte('/'), path[cursor])
}

func TestMakeDOSName_NameTooLong(t *testing.T) {
	cursor := 0
	_, err := makeDOSName("REALLYLONGNAME.TXT", &cursor)
	assert.Error(t, err)
}

func TestMakeDOSName_ExtensionTooLong(t *testing.T) {
	cursor := 0
	_, err := makeDOSName("FILE.TXTXX", &cursor)
	assert.Error(t, err)
}

func TestFatNameToStr(t *testing.T) {
	var raw [11]byte
	copy(raw[:], "README  TXT")
	assert.Equal(t, "README.TXT", fatNameToStr(raw))
}

func TestFatNameToStr_NoExtension(t *testing.T) {
	var raw [11]byte
	copy(raw[:], "BOOT       ")
	assert.Equal(t, "BOOT", fatNameToStr(raw))
}

func TestStrToFATName_ShortNamePassesThrough(t *testing.T) {
	got, err := strToFATName("short.txt")
	require.NoError(t, err)
	assert.Equal(t, "short.txt", got)
}

func TestStrToFATName_LongNameSynthesizesTilde(t *testing.T) {
	got, err := strToFATName("reallylongfilename.txt")
	require.NoError(t, err)
	assert.Equal(t, "REALLY~1.txt", got)
}
