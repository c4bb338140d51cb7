package blockdev

import (
	"bytes"

	"github.com/hairymnstr/gristle/utilities/compression"
)

// LoadCompressedFixture decompresses a gzip+RLE8 encoded disk image (as
// produced by compression.CompressImage) and wraps the result as a
// MemoryDevice. Test code that ships a golden FAT or EXT2 image keeps it
// compressed on disk (via go:embed) and calls this at test setup to
// decompress it before mounting.
func LoadCompressedFixture(compressed []byte, blockSize uint, readOnly bool) (*MemoryDevice, error) {
	data, err := compression.DecompressImageToBytes(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	return NewMemoryDevice(data, blockSize, readOnly)
}
