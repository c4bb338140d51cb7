package blockdev

import (
	"fmt"

	"github.com/boljen/go-bitmap"
)

// CachingDevice wraps another Device with a write-back block cache: a read
// faults a block in and keeps it, a write only marks it dirty, and nothing
// reaches the backing Device until Flush runs. Useful in front of a slow
// backing store — a FileDevice over a real disk, or a network block device —
// where the caller wants to batch writes rather than hit storage on every
// sector.
//
// Built as a direct, one-block-per-call wrapper around a Device rather than
// a pair of fetch/flush callbacks operating on arbitrary byte ranges,
// matching this module's Device.Read/Write contract (always exactly one
// block).
type CachingDevice struct {
	backing     Device
	loaded      bitmap.Bitmap
	dirty       bitmap.Bitmap
	data        []byte
	blockSize   uint
	totalBlocks uint
}

// NewCachingDevice wraps backing with an initially-empty block cache.
func NewCachingDevice(backing Device) *CachingDevice {
	total := backing.VolumeSize()
	blockSize := backing.BlockSize()
	return &CachingDevice{
		backing:     backing,
		loaded:      bitmap.NewSlice(int(total)),
		dirty:       bitmap.NewSlice(int(total)),
		data:        make([]byte, blockSize*total),
		blockSize:   blockSize,
		totalBlocks: total,
	}
}

func (c *CachingDevice) Init() error { return c.backing.Init() }
func (c *CachingDevice) Halt() error {
	if err := c.Flush(); err != nil {
		return err
	}
	return c.backing.Halt()
}

func (c *CachingDevice) VolumeSize() uint { return c.totalBlocks }
func (c *CachingDevice) BlockSize() uint  { return c.blockSize }
func (c *CachingDevice) ReadOnly() bool   { return c.backing.ReadOnly() }

func (c *CachingDevice) checkBounds(block LogicalBlock) error {
	if uint(block) >= c.totalBlocks {
		return &ErrOutOfRange{Block: block, Total: c.totalBlocks}
	}
	return nil
}

func (c *CachingDevice) slice(block LogicalBlock) []byte {
	offset := uint(block) * c.blockSize
	return c.data[offset : offset+c.blockSize]
}

// Read fills buf with the contents of block, faulting it in from the
// backing device first if it isn't already cached.
func (c *CachingDevice) Read(block LogicalBlock, buf []byte) error {
	if err := c.checkBounds(block); err != nil {
		return err
	}
	if !c.loaded.Get(int(block)) {
		if err := c.backing.Read(block, c.slice(block)); err != nil {
			return fmt.Errorf("caching device: loading block %d: %w", block, err)
		}
		c.loaded.Set(int(block), true)
	}
	copy(buf, c.slice(block))
	return nil
}

// Write copies buf into the cache at block, marking it dirty. Nothing
// reaches the backing device until Flush.
func (c *CachingDevice) Write(block LogicalBlock, buf []byte) error {
	if c.backing.ReadOnly() {
		return errReadOnlyDevice{}
	}
	if err := c.checkBounds(block); err != nil {
		return err
	}
	copy(c.slice(block), buf)
	c.loaded.Set(int(block), true)
	c.dirty.Set(int(block), true)
	return nil
}

// Flush writes every dirty block back to the backing device and clears the
// dirty bitmap.
func (c *CachingDevice) Flush() error {
	for i := uint(0); i < c.totalBlocks; i++ {
		if !c.dirty.Get(int(i)) {
			continue
		}
		block := LogicalBlock(i)
		if err := c.backing.Write(block, c.slice(block)); err != nil {
			return fmt.Errorf("caching device: flushing block %d: %w", block, err)
		}
		c.dirty.Set(int(i), false)
	}
	return nil
}
