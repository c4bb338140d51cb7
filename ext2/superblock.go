// Package ext2 is an experimental, read-only mount path for EXT2 volumes,
// living alongside the FAT engine in package fat behind the same block
// device abstraction.
//
// Grounded on embext.c and embext.h: in that file only
// ext2_mount and ext2_select_inode (superblock, block-group-descriptor and
// inode-table lookup) are live code, everything else (ext2_open, ext2_read,
// ext2_write, ext2_close, ext2_get_next_dirent) is commented out or an empty
// stub. This package ports that much plus whole-file and directory reads: a
// real superblock and inode reader that resolves direct blocks and one level
// of single indirection (no double or triple indirection), no file creation,
// no block-group-descriptor writeback. Struct field layout follows embext.h's
// superblock/block_group_descriptor/inode byte-for-byte; the decode style
// (exported Go struct, encoding/binary, little-endian) matches how other
// ext4 superblock readers decode the same first 0x54 bytes embext.h's
// superblock shares.
package ext2

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Magic is the value Superblock.Magic must hold for this to be a valid EXT2
// (or EXT3/EXT4-compatible) superblock.
const Magic = 0xEF53

// ErrNotExt2 is returned by Mount when the superblock magic doesn't match.
var ErrNotExt2 = errors.New("ext2: not an ext2 volume")

// superblockOffset is the byte offset of the superblock from the start of
// the partition; it always sits 1024 bytes in, regardless of block size.
const superblockOffset = 1024

// rootInode is the fixed inode number of a volume's root directory.
const rootInode = 2

// Superblock mirrors embext.h's `struct superblock` field for field. Fields
// this path does not itself consult (UUID, feature flags and the like) are
// decoded as-is for anything that wants them, without this package having
// an opinion on every one of them; LastMounted is not decoded and stays
// zero.
type Superblock struct {
	InodesCount     uint32
	BlocksCount     uint32
	RBlocksCount    uint32
	FreeBlocksCount uint32
	FreeInodesCount uint32
	FirstDataBlock  uint32
	LogBlockSize    uint32
	LogFragSize     uint32
	BlocksPerGroup  uint32
	FragsPerGroup   uint32
	InodesPerGroup  uint32
	Mtime           uint32
	Wtime           uint32
	MntCount        uint16
	MaxMntCount     uint16
	Magic           uint16
	State           uint16
	Errors          uint16
	MinorRevLevel   uint16
	Lastcheck       uint32
	Checkinterval   uint32
	CreatorOS       uint32
	RevLevel        uint32
	DefResuid       uint16
	DefResgid       uint16
	FirstIno        uint32
	InodeSize       uint16
	BlockGroupNr    uint16
	FeatureCompat   uint32
	FeatureIncompat uint32
	FeatureROCompat uint32
	UUID            [16]byte
	VolumeName      [16]byte
	LastMounted     [64]byte
}

// BlockSize returns the filesystem block size in bytes: 1024 << LogBlockSize,
// per embext.c's `1 << (s_log_block_size + 1)` (that shift is in units of
// 512-byte disk sectors; this returns bytes instead, which is what every
// caller in this package actually wants).
func (sb *Superblock) BlockSize() uint32 {
	return 1024 << sb.LogBlockSize
}

// MountTime, WriteTime and LastCheckTime decode the corresponding raw Unix
// timestamps.
func (sb *Superblock) MountTime() time.Time     { return time.Unix(int64(sb.Mtime), 0).UTC() }
func (sb *Superblock) WriteTime() time.Time     { return time.Unix(int64(sb.Wtime), 0).UTC() }
func (sb *Superblock) LastCheckTime() time.Time { return time.Unix(int64(sb.Lastcheck), 0).UTC() }

// Label returns the volume name with its trailing NUL padding trimmed.
func (sb *Superblock) Label() string {
	return cString(sb.VolumeName[:])
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// BlockGroupDescriptor mirrors embext.h's `struct block_group_descriptor`.
type BlockGroupDescriptor struct {
	BlockBitmap     uint32
	InodeBitmap     uint32
	InodeTable      uint32
	FreeBlocksCount uint16
	FreeInodesCount uint16
	UsedDirsCount   uint16
	_               uint16 // bg_pad
}

func parseSuperblock(raw []byte) (*Superblock, error) {
	if len(raw) < 84 {
		return nil, fmt.Errorf("ext2: superblock buffer too short (%d bytes)", len(raw))
	}

	sb := &Superblock{}
	r := bytes.NewReader(raw)
	fields := []any{
		&sb.InodesCount, &sb.BlocksCount, &sb.RBlocksCount, &sb.FreeBlocksCount,
		&sb.FreeInodesCount, &sb.FirstDataBlock, &sb.LogBlockSize, &sb.LogFragSize,
		&sb.BlocksPerGroup, &sb.FragsPerGroup, &sb.InodesPerGroup, &sb.Mtime, &sb.Wtime,
		&sb.MntCount, &sb.MaxMntCount, &sb.Magic, &sb.State, &sb.Errors, &sb.MinorRevLevel,
		&sb.Lastcheck, &sb.Checkinterval, &sb.CreatorOS, &sb.RevLevel,
		&sb.DefResuid, &sb.DefResgid, &sb.FirstIno, &sb.InodeSize, &sb.BlockGroupNr,
		&sb.FeatureCompat, &sb.FeatureIncompat, &sb.FeatureROCompat,
	}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return nil, fmt.Errorf("ext2: decoding superblock: %w", err)
		}
	}
	if _, err := r.Read(sb.UUID[:]); err != nil {
		return nil, fmt.Errorf("ext2: decoding superblock uuid: %w", err)
	}
	if _, err := r.Read(sb.VolumeName[:]); err != nil {
		return nil, fmt.Errorf("ext2: decoding superblock volume name: %w", err)
	}

	if sb.Magic != Magic {
		return nil, ErrNotExt2
	}
	if sb.InodeSize == 0 {
		// Revision 0 volumes don't carry an explicit inode size; embext.h's
		// layout assumes the fixed 128-byte original_inode struct.
		sb.InodeSize = 128
	}
	return sb, nil
}

func parseBlockGroupDescriptor(raw []byte) (*BlockGroupDescriptor, error) {
	bgd := &BlockGroupDescriptor{}
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, bgd); err != nil {
		return nil, fmt.Errorf("ext2: decoding block group descriptor: %w", err)
	}
	return bgd, nil
}
