package ext2

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hairymnstr/gristle"
	"github.com/hairymnstr/gristle/blockdev"
)

// sectorSize is the fixed physical sector size every device in this module
// is assumed to use (see blockdev.Device's doc comment).
const sectorSize = 512

// Context is a mounted, read-only EXT2 volume: the validated superblock and
// enough geometry to locate inodes and directory blocks. There is no open
// handle table — this path only supports whole-file reads and directory
// listings by path, not the positional lseek/read/write state machine
// package fat implements for FAT.
//
// Grounded on embext.c's struct ext2context, trimmed to
// the fields this port actually resolves (no sysbuf scratch buffer, no
// sparse-superblock bookkeeping — this path always goes through the primary
// superblock and block group 0's descriptor table, matching what
// ext2_mount actually did before its printf-laden body ends).
type Context struct {
	dev       blockdev.Device
	partStart blockdev.LogicalBlock
	sb        *Superblock
	bgdtBlock uint32
}

// Mount reads the superblock 1024 bytes into partStart and validates its
// magic. partStart is the LBA of the start of the EXT2 partition, in the
// device's native (512-byte) sectors.
func Mount(dev blockdev.Device, partStart blockdev.LogicalBlock) (*Context, error) {
	raw := make([]byte, 1024)
	if err := readBytes(dev, partStart+blockdev.LogicalBlock(superblockOffset/sectorSize), raw); err != nil {
		return nil, fmt.Errorf("ext2: reading superblock: %w", err)
	}

	sb, err := parseSuperblock(raw)
	if err != nil {
		return nil, err
	}

	// The block group descriptor table immediately follows the superblock's
	// own block: block 2 for a 1024-byte filesystem block size (FirstDataBlock
	// is 1 there and the superblock occupies block 1), block 1 for larger
	// block sizes, since FirstDataBlock is 0 in that case and the superblock
	// sits inside block 0.
	bgdtBlock := sb.FirstDataBlock + 1

	return &Context{dev: dev, partStart: partStart, sb: sb, bgdtBlock: bgdtBlock}, nil
}

// Superblock returns the mounted volume's decoded superblock.
func (c *Context) Superblock() *Superblock { return c.sb }

// readBytes reads n sectors worth of data starting at sector start into
// buf, which must be a sector-size multiple. Used for the superblock read,
// which happens before Context.sb exists to compute block sizes from, and by
// readBlock.
func readBytes(dev blockdev.Device, start blockdev.LogicalBlock, buf []byte) error {
	sectors := len(buf) / sectorSize
	for i := 0; i < sectors; i++ {
		if err := dev.Read(start+blockdev.LogicalBlock(i), buf[i*sectorSize:(i+1)*sectorSize]); err != nil {
			return err
		}
	}
	return nil
}

// readBlock reads one EXT2 filesystem block (c.sb.BlockSize() bytes,
// possibly spanning several physical sectors) given its EXT2-relative block
// number.
func (c *Context) readBlock(block uint32) ([]byte, error) {
	blockSize := c.sb.BlockSize()
	sectorsPerBlock := blockdev.LogicalBlock(blockSize / sectorSize)
	start := c.partStart + blockdev.LogicalBlock(block)*sectorsPerBlock

	buf := make([]byte, blockSize)
	if err := readBytes(c.dev, start, buf); err != nil {
		return nil, fmt.Errorf("ext2: reading block %d: %w", block, err)
	}
	return buf, nil
}

// Lookup resolves a '/'-separated path to its inode number, starting at the
// root directory (inode 2). An empty path, or "/", resolves to the root
// itself. This walks one component at a time via ReadDir, same shape as
// fat.FS.resolvePath, but without that path's short-name/8.3 concerns —
// EXT2 names are stored as-is, up to 255 bytes.
func (c *Context) Lookup(path string) (uint32, *Inode, error) {
	rootIn, err := c.ReadInode(rootInode)
	if err != nil {
		return 0, nil, err
	}

	parts := splitPath(path)
	current := uint32(rootInode)
	currentInode := rootIn

	for _, part := range parts {
		if !currentInode.IsDir() {
			return 0, nil, fmt.Errorf("ext2: %q is not a directory", part)
		}
		entries, err := c.ReadDir(current)
		if err != nil {
			return 0, nil, err
		}

		var next *Dirent
		for i := range entries {
			if entries[i].Name == part {
				next = &entries[i]
				break
			}
		}
		if next == nil {
			return 0, nil, os.ErrNotExist
		}

		current = next.Inode
		currentInode, err = c.ReadInode(current)
		if err != nil {
			return 0, nil, err
		}
	}

	return current, currentInode, nil
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// ReadFile reads the whole contents of the regular file at path. There is
// no partial/positional read here — this experimental path only supports
// reading a file in one shot, not package fat's seek-and-read-by-sector
// state machine.
func (c *Context) ReadFile(path string) ([]byte, error) {
	_, in, err := c.Lookup(path)
	if err != nil {
		return nil, err
	}
	if !in.IsRegular() {
		return nil, fmt.Errorf("ext2: %q is not a regular file", path)
	}

	blocks, err := c.blockListFor(in)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, in.Size)
	for _, block := range blocks {
		raw, err := c.readBlock(block)
		if err != nil {
			return nil, err
		}
		data = append(data, raw...)
	}
	if uint32(len(data)) > in.Size {
		data = data[:in.Size]
	}
	return data, nil
}

// Stat resolves path and returns it in the same platform-independent form
// fat.FS.Fstat uses, so a caller dispatching between the two mounted
// filesystem types doesn't need a type switch just to print a listing.
// EXT2's classic inode has no creation timestamp (that's an ext4 addition);
// CreatedAt is filled from i_ctime, the closest analogue the format has.
func (c *Context) Stat(path string) (gristle.FileStat, error) {
	number, in, err := c.Lookup(path)
	if err != nil {
		return gristle.FileStat{}, err
	}

	mode := os.FileMode(in.Mode & 0o777)
	if in.IsDir() {
		mode |= os.ModeDir
	}

	return gristle.FileStat{
		InodeNumber:  uint64(number),
		ModeFlags:    mode,
		Size:         int64(in.Size),
		BlockSize:    int64(c.sb.BlockSize()),
		NumBlocks:    int64(in.Blocks),
		CreatedAt:    time.Unix(int64(in.Ctime), 0).UTC(),
		LastAccessed: time.Unix(int64(in.Atime), 0).UTC(),
		LastModified: time.Unix(int64(in.Mtime), 0).UTC(),
	}, nil
}
