package fat

import (
	"testing"
	"time"

	"github.com/hairymnstr/gristle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath_LongNameSynthesizesTildeShortName(t *testing.T) {
	fs := newMountedFAT16(t)

	res, err := fs.resolvePath("/reallylongfilename.txt")
	require.NoError(t, err)
	assert.False(t, res.found)
	assert.Equal(t, shortNameOf(t, "REALLY~1.txt"), res.shortName)
}

func TestOpen_LongFileNameCreatesAndIsFoundAgainByTheSameName(t *testing.T) {
	fs := newMountedFAT16(t)

	fd, err := fs.Open("/reallylongfilename.txt", gristle.O_RDWR|gristle.O_CREAT, 0o644)
	require.NoError(t, err)
	require.NoError(t, fs.Close(fd))

	entries, err := fs.listDirectory(fs.rootLocation())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "REALLY~1.TXT", entries[0].Name())

	fd2, err := fs.Open("/reallylongfilename.txt", gristle.O_RDONLY, 0)
	require.NoError(t, err)
	assert.NoError(t, fs.Close(fd2))
}

func TestResolvePath_DotDotThroughClusterZeroResolvesToRoot(t *testing.T) {
	fs := newMountedFAT16(t)
	now := time.Now().UTC()

	// A top-level directory's ".." entry stores cluster 0 (mkdirAt's
	// parentCluster for a root-level parent), the same convention FAT32
	// uses for a root-level ".." entry.
	require.NoError(t, fs.mkdirAt(fs.rootLocation(), 0, shortNameOf(t, "A"), now))

	res, err := fs.resolvePath("/A/../A")
	require.NoError(t, err)
	assert.True(t, res.found)
	assert.True(t, res.dirent.IsDir())
	assert.Equal(t, shortNameOf(t, "A"), res.shortName)
}

func TestOpen_DotDotThroughClusterZeroListsRoot(t *testing.T) {
	fs := newMountedFAT16(t)
	now := time.Now().UTC()

	require.NoError(t, fs.mkdirAt(fs.rootLocation(), 0, shortNameOf(t, "A"), now))
	require.NoError(t, fs.mkdirAt(fs.rootLocation(), 0, shortNameOf(t, "B"), now))

	fd, err := fs.Open("/A/..", gristle.O_RDONLY, 0)
	require.NoError(t, err)
	defer fs.Close(fd)

	var names []string
	for {
		d, err := fs.ReadDirNext(fd)
		if err != nil {
			break
		}
		names = append(names, d.Name())
	}
	assert.ElementsMatch(t, []string{"A", "B"}, names)
}
