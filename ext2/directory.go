package ext2

import (
	"encoding/binary"
	"fmt"
)

// File type tags carried in ext2_dirent.file_type, per the standard EXT2
// directory entry format (embext.h declares the struct but not these
// constants; they're universal across every EXT2/3/4 implementation).
const (
	FileTypeUnknown  = 0
	FileTypeRegular  = 1
	FileTypeDir      = 2
	FileTypeCharDev  = 3
	FileTypeBlockDev = 4
	FileTypeFIFO     = 5
	FileTypeSocket   = 6
	FileTypeSymlink  = 7
)

// Dirent is one decoded directory entry, following embext.h's
// `struct ext2_dirent` (inode, rec_len, name_len, file_type, name).
type Dirent struct {
	Inode    uint32
	FileType uint8
	Name     string
}

// direntsFromBlock walks the fixed-record-length entries packed into one
// directory block. A rec_len of 0 or an inode of 0 for a non-first entry
// would spin forever, so both end the walk instead of looping.
func direntsFromBlock(raw []byte) ([]Dirent, error) {
	var entries []Dirent
	pos := 0
	for pos+8 <= len(raw) {
		inode := binary.LittleEndian.Uint32(raw[pos : pos+4])
		recLen := binary.LittleEndian.Uint16(raw[pos+4 : pos+6])
		nameLen := raw[pos+6]
		fileType := raw[pos+7]

		if recLen < 8 {
			return entries, fmt.Errorf("ext2: directory entry at offset %d has implausible rec_len %d", pos, recLen)
		}

		if inode != 0 {
			nameStart := pos + 8
			nameEnd := nameStart + int(nameLen)
			if nameEnd > len(raw) {
				return entries, fmt.Errorf("ext2: directory entry at offset %d has out-of-range name length", pos)
			}
			entries = append(entries, Dirent{
				Inode:    inode,
				FileType: fileType,
				Name:     string(raw[nameStart:nameEnd]),
			})
		}

		pos += int(recLen)
	}
	return entries, nil
}

// ReadDir lists the entries of the directory at inode number dirInode. "."
// and ".." are included, matching how a directory's own blocks actually
// store them, the way callers expect from fat.FS.ReadDirNext.
func (c *Context) ReadDir(dirInode uint32) ([]Dirent, error) {
	in, err := c.ReadInode(dirInode)
	if err != nil {
		return nil, err
	}
	if !in.IsDir() {
		return nil, fmt.Errorf("ext2: inode %d is not a directory", dirInode)
	}

	blocks, err := c.blockListFor(in)
	if err != nil {
		return nil, err
	}

	var all []Dirent
	for _, block := range blocks {
		if block == 0 {
			continue
		}
		raw, err := c.readBlock(block)
		if err != nil {
			return nil, err
		}
		entries, err := direntsFromBlock(raw)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}
	return all, nil
}
