package mount_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/hairymnstr/gristle"
	"github.com/hairymnstr/gristle/blockdev"
	"github.com/hairymnstr/gristle/ext2"
	"github.com/hairymnstr/gristle/mount"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildEXT2Image assembles the same minimal single-file EXT2 image shape
// package ext2's own tests use, reimplemented here since that package's
// fixture builder is test-only and unexported. Layout identical to
// ext2/testutil_test.go's buildImage.
func buildEXT2Image(t *testing.T) *blockdev.MemoryDevice {
	t.Helper()

	const (
		blockSize      = 1024
		totalBlocks    = 16
		inodesPerGroup = 16
		inodeSize      = 128
		rootInodeNum   = 2
		fileInodeNum   = 11
		inodeTableBlk  = 5
		rootDataBlk    = 7
		fileDataBlk    = 8
		modeIFDIR      = 0x4000
		modeIFREG      = 0x8000
	)

	raw := make([]byte, blockSize*totalBlocks)

	sb := ext2.Superblock{
		InodesCount:    inodesPerGroup,
		BlocksCount:    totalBlocks,
		FirstDataBlock: 1,
		BlocksPerGroup: 8192,
		FragsPerGroup:  8192,
		InodesPerGroup: inodesPerGroup,
		Magic:          ext2.Magic,
		InodeSize:      inodeSize,
	}
	var sbBuf bytes.Buffer
	require.NoError(t, binary.Write(&sbBuf, binary.LittleEndian, &sb))
	copy(raw[1*blockSize:], sbBuf.Bytes())

	bgd := ext2.BlockGroupDescriptor{InodeTable: inodeTableBlk}
	var bgdBuf bytes.Buffer
	require.NoError(t, binary.Write(&bgdBuf, binary.LittleEndian, &bgd))
	copy(raw[2*blockSize:], bgdBuf.Bytes())

	writeInode := func(inodeNum uint32, in ext2.Inode) {
		index := (inodeNum - 1) % inodesPerGroup
		block := inodeTableBlk + index/(blockSize/inodeSize)
		offset := block*blockSize + (index%(blockSize/inodeSize))*inodeSize

		var buf bytes.Buffer
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, &in))
		copy(raw[offset:], buf.Bytes())
	}

	writeInode(rootInodeNum, ext2.Inode{Mode: modeIFDIR, Size: blockSize, LinksCount: 2, Block: [15]uint32{rootDataBlk}})
	writeInode(fileInodeNum, ext2.Inode{Mode: modeIFREG, Size: 5, LinksCount: 1, Block: [15]uint32{fileDataBlk}})

	rootDir := raw[rootDataBlk*blockSize : rootDataBlk*blockSize+blockSize]
	writeDirent := func(pos int, inode uint32, name string, recLen int) {
		binary.LittleEndian.PutUint32(rootDir[pos:pos+4], inode)
		binary.LittleEndian.PutUint16(rootDir[pos+4:pos+6], uint16(recLen))
		rootDir[pos+6] = byte(len(name))
		rootDir[pos+7] = byte(ext2.FileTypeRegular)
		copy(rootDir[pos+8:pos+8+len(name)], name)
	}
	writeDirent(0, rootInodeNum, ".", 12)
	writeDirent(12, rootInodeNum, "..", 12)
	writeDirent(24, fileInodeNum, "hi.txt", blockSize-24)

	copy(raw[fileDataBlk*blockSize:], []byte("hello"))

	dev, err := blockdev.NewMemoryDevice(raw, 512, false)
	require.NoError(t, err)
	return dev
}

func TestAt_FallsBackToEXT2WhenNotFAT(t *testing.T) {
	dev := buildEXT2Image(t)

	mounted, err := mount.At(dev, 0, 0, gristle.DefaultConfig(), gristle.MountFlagsAllowReadWrite)
	require.NoError(t, err)
	require.Nil(t, mounted.FAT)
	require.NotNil(t, mounted.EXT2)

	data, err := mounted.EXT2.ReadFile("/hi.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}
