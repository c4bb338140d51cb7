package ext2

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/hairymnstr/gristle/blockdev"
	"github.com/stretchr/testify/require"
)

// buildImage assembles a minimal, hand-built EXT2 image: a 1024-byte block
// size, one block group, a root directory holding a single regular file.
// Layout (block numbers):
//
//	0: boot block (unused)
//	1: superblock
//	2: block group descriptor table
//	3: block bitmap (unused by this read-only path)
//	4: inode bitmap (unused by this read-only path)
//	5-6: inode table (16 inodes x 128 bytes = 2 blocks)
//	7: root directory data
//	8: "hello.txt" file data
func buildImage(t *testing.T, fileContents string) *blockdev.MemoryDevice {
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
	)

	raw := make([]byte, blockSize*totalBlocks)

	sb := Superblock{
		InodesCount:     inodesPerGroup,
		BlocksCount:     totalBlocks,
		FreeBlocksCount: 4,
		FreeInodesCount: 10,
		FirstDataBlock:  1,
		LogBlockSize:    0,
		BlocksPerGroup:  8192,
		FragsPerGroup:   8192,
		InodesPerGroup:  inodesPerGroup,
		Magic:           Magic,
		InodeSize:       inodeSize,
	}
	var sbBuf bytes.Buffer
	require.NoError(t, binary.Write(&sbBuf, binary.LittleEndian, &sb))
	copy(raw[1*blockSize:], sbBuf.Bytes())

	bgd := BlockGroupDescriptor{
		BlockBitmap:     3,
		InodeBitmap:     4,
		InodeTable:      inodeTableBlk,
		FreeBlocksCount: 4,
		FreeInodesCount: 10,
		UsedDirsCount:   1,
	}
	var bgdBuf bytes.Buffer
	require.NoError(t, binary.Write(&bgdBuf, binary.LittleEndian, &bgd))
	copy(raw[2*blockSize:], bgdBuf.Bytes())

	writeInode := func(inodeNum uint32, in Inode) {
		group := (inodeNum - 1) / inodesPerGroup
		require.EqualValues(t, 0, group)
		index := (inodeNum - 1) % inodesPerGroup
		block := inodeTableBlk + index/(blockSize/inodeSize)
		offset := block*blockSize + (index%(blockSize/inodeSize))*inodeSize

		var buf bytes.Buffer
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, &in))
		copy(raw[offset:], buf.Bytes())
	}

	writeInode(rootInodeNum, Inode{
		Mode:       modeIFDIR,
		Size:       blockSize,
		LinksCount: 2,
		Blocks:     blockSize / 512,
		Block:      [15]uint32{rootDataBlk},
	})

	writeInode(fileInodeNum, Inode{
		Mode:       modeIFREG,
		Size:       uint32(len(fileContents)),
		LinksCount: 1,
		Blocks:     blockSize / 512,
		Block:      [15]uint32{fileDataBlk},
	})

	rootDir := raw[rootDataBlk*blockSize : rootDataBlk*blockSize+blockSize]
	pos := 0
	writeDirent(rootDir, pos, rootInodeNum, ".", FileTypeDir, 12)
	pos += 12
	writeDirent(rootDir, pos, rootInodeNum, "..", FileTypeDir, 12)
	pos += 12
	writeDirent(rootDir, pos, fileInodeNum, "hello.txt", FileTypeRegular, blockSize-pos)

	copy(raw[fileDataBlk*blockSize:], []byte(fileContents))

	dev, err := blockdev.NewMemoryDevice(raw, 512, false)
	require.NoError(t, err)
	return dev
}

// writeDirent writes one ext2_dirent at byte offset pos within block, with
// an explicit rec_len (the real format rounds rec_len up to a 4-byte
// boundary and extends the last entry in a block to its end; callers here
// pass the exact value wanted for each case and are responsible for
// advancing pos by recLen themselves before writing the next entry).
func writeDirent(block []byte, pos int, inode uint32, name string, fileType uint8, recLen int) {
	binary.LittleEndian.PutUint32(block[pos:pos+4], inode)
	binary.LittleEndian.PutUint16(block[pos+4:pos+6], uint16(recLen))
	block[pos+6] = byte(len(name))
	block[pos+7] = fileType
	copy(block[pos+8:pos+8+len(name)], name)
}
