package blockdev

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
)

// Geometry names a standard disk size/shape, the kind of thing a caller might
// pick from when formatting a fresh image for a test or a tool. A gocsv-backed
// lookup table, narrowed to the fields this module's block-device layer
// actually needs (no bits-per-word geometry — that targets much older,
// non-byte-addressable hardware than FAT ever ran on).
type Geometry struct {
	Slug        string `csv:"slug"`
	Name        string `csv:"name"`
	BlockSize   uint   `csv:"block_size"`
	TotalBlocks uint   `csv:"total_blocks"`
	FormFactor  string `csv:"form_factor"`
}

// TotalSizeBytes returns the size of the volume this geometry describes.
func (g *Geometry) TotalSizeBytes() int64 {
	return int64(g.BlockSize) * int64(g.TotalBlocks)
}

//go:embed geometry.csv
var rawGeometryCSV string

var predefinedGeometries map[string]Geometry

func init() {
	predefinedGeometries = make(map[string]Geometry)
	reader := strings.NewReader(rawGeometryCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Geometry) error {
		if _, exists := predefinedGeometries[row.Slug]; exists {
			return fmt.Errorf("duplicate predefined geometry slug %q", row.Slug)
		}
		predefinedGeometries[row.Slug] = row
		return nil
	})
	if err != nil {
		panic(err)
	}
}

// PredefinedGeometry looks up a standard disk geometry by slug (e.g.
// "floppy_1440k", "sd_1g"). It's used by tests to build synthetic images of
// realistic sizes without hand-coding block counts.
func PredefinedGeometry(slug string) (Geometry, error) {
	geometry, ok := predefinedGeometries[slug]
	if ok {
		return geometry, nil
	}
	return Geometry{}, fmt.Errorf("no predefined disk geometry with slug %q", slug)
}

// NewBlankMemoryDeviceFromGeometry is a convenience wrapper combining
// PredefinedGeometry with NewBlankMemoryDevice.
func NewBlankMemoryDeviceFromGeometry(slug string) (*MemoryDevice, error) {
	geometry, err := PredefinedGeometry(slug)
	if err != nil {
		return nil, err
	}
	return NewBlankMemoryDevice(geometry.BlockSize, geometry.TotalBlocks)
}
