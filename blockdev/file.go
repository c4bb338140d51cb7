package blockdev

import (
	"io"
	"os"
)

// FileDevice adapts an *os.File (typically an SD card block device node, or a
// raw disk image on a developer's machine) into a Device.
type FileDevice struct {
	file      *os.File
	blockSize uint
	total     uint
	readOnly  bool
}

// NewFileDevice opens path and wraps it as a Device with the given block
// size. If readOnly is false the file is opened for read/write.
func NewFileDevice(path string, blockSize uint, readOnly bool) (*FileDevice, error) {
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}

	file, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}

	size, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		file.Close()
		return nil, err
	}

	return &FileDevice{
		file:      file,
		blockSize: blockSize,
		total:     uint(size) / blockSize,
		readOnly:  readOnly,
	}, nil
}

func (dev *FileDevice) Init() error { return nil }
func (dev *FileDevice) Halt() error { return dev.file.Close() }

func (dev *FileDevice) VolumeSize() uint { return dev.total }
func (dev *FileDevice) BlockSize() uint  { return dev.blockSize }
func (dev *FileDevice) ReadOnly() bool   { return dev.readOnly }

func (dev *FileDevice) checkBounds(block LogicalBlock) error {
	if uint(block) >= dev.total {
		return &ErrOutOfRange{Block: block, Total: dev.total}
	}
	return nil
}

func (dev *FileDevice) Read(block LogicalBlock, buf []byte) error {
	if err := dev.checkBounds(block); err != nil {
		return err
	}
	_, err := dev.file.ReadAt(buf[:dev.blockSize], int64(block)*int64(dev.blockSize))
	return err
}

func (dev *FileDevice) Write(block LogicalBlock, buf []byte) error {
	if dev.readOnly {
		return errReadOnlyDevice{}
	}
	if err := dev.checkBounds(block); err != nil {
		return err
	}
	_, err := dev.file.WriteAt(buf[:dev.blockSize], int64(block)*int64(dev.blockSize))
	return err
}
