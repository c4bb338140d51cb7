package blockdev

import (
	"io"

	"github.com/xaionaro-go/bytesextra"
)

// MemoryDevice is a Device backed entirely by an in-memory byte slice. It's
// the backend used by the engine's own tests, and is convenient for tools
// that build or inspect disk images without touching real storage. Wraps a
// decompressed fixture image via bytesextra.NewReadWriteSeeker.
type MemoryDevice struct {
	stream    io.ReadWriteSeeker
	blockSize uint
	total     uint
	readOnly  bool
}

// NewMemoryDevice wraps data (whose length must be a multiple of blockSize)
// as a Device. Writes to the returned Device mutate data in place.
func NewMemoryDevice(data []byte, blockSize uint, readOnly bool) (*MemoryDevice, error) {
	if blockSize == 0 {
		return nil, &ErrOutOfRange{Total: 0}
	}
	if uint(len(data))%blockSize != 0 {
		return nil, errShortImage{have: uint(len(data)), blockSize: blockSize}
	}

	return &MemoryDevice{
		stream:    bytesextra.NewReadWriteSeeker(data),
		blockSize: blockSize,
		total:     uint(len(data)) / blockSize,
		readOnly:  readOnly,
	}, nil
}

// NewBlankMemoryDevice allocates a zero-filled image of the given size.
func NewBlankMemoryDevice(blockSize, totalBlocks uint) (*MemoryDevice, error) {
	return NewMemoryDevice(make([]byte, blockSize*totalBlocks), blockSize, false)
}

type errShortImage struct {
	have      uint
	blockSize uint
}

func (e errShortImage) Error() string {
	return "image size is not a multiple of the block size"
}

func (dev *MemoryDevice) Init() error { return nil }
func (dev *MemoryDevice) Halt() error { return nil }

func (dev *MemoryDevice) VolumeSize() uint { return dev.total }
func (dev *MemoryDevice) BlockSize() uint  { return dev.blockSize }
func (dev *MemoryDevice) ReadOnly() bool   { return dev.readOnly }

func (dev *MemoryDevice) checkBounds(block LogicalBlock) error {
	if uint(block) >= dev.total {
		return &ErrOutOfRange{Block: block, Total: dev.total}
	}
	return nil
}

func (dev *MemoryDevice) Read(block LogicalBlock, buf []byte) error {
	if err := dev.checkBounds(block); err != nil {
		return err
	}
	if _, err := dev.stream.Seek(int64(block)*int64(dev.blockSize), io.SeekStart); err != nil {
		return err
	}
	_, err := io.ReadFull(dev.stream, buf[:dev.blockSize])
	return err
}

func (dev *MemoryDevice) Write(block LogicalBlock, buf []byte) error {
	if dev.readOnly {
		return errReadOnlyDevice{}
	}
	if err := dev.checkBounds(block); err != nil {
		return err
	}
	if _, err := dev.stream.Seek(int64(block)*int64(dev.blockSize), io.SeekStart); err != nil {
		return err
	}
	_, err := dev.stream.Write(buf[:dev.blockSize])
	return err
}

type errReadOnlyDevice struct{}

func (errReadOnlyDevice) Error() string { return "device is read-only" }
