package fat

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/hairymnstr/gristle"
)

// DirentSize is the size in bytes of a single 32-byte FAT directory entry.
const DirentSize = 32

// ClusterID identifies a cluster by its index in the FAT. Clusters 0 and 1
// are reserved; valid data clusters start at 2.
type ClusterID uint32

// SectorID identifies a sector by number. ReadBootSector derives them
// relative to the start of the volume; Mount then rebases a mounted volume's
// BootSector by the partition's starting LBA, so the engine hands SectorIDs
// straight to the block device.
type SectorID uint32

const bootSectorSize = 512

// validSectorsPerCluster enumerates the only legal SectorsPerCluster values:
// powers of two from 1 through 128.
var validSectorsPerCluster = map[uint8]bool{
	1: true, 2: true, 4: true, 8: true, 16: true, 32: true, 64: true, 128: true,
}

// Variant selects which FAT flavor the boot-sector parser attempts to
// validate against: FAT16's fixed-size root directory, or FAT32's
// cluster-chained one.
type Variant int

const (
	Variant16 Variant = iota
	Variant32
)

// rawBootSector is the on-disk BIOS Parameter Block, decoded field by field
// in its native little-endian layout.
type rawBootSector struct {
	JmpBoot          [3]byte
	OEMName          [8]byte
	BytesPerSector   uint16
	SectorsPerClust  uint8
	ReservedSectors  uint16
	NumFATs          uint8
	RootEntryCount   uint16
	TotalSectors16   uint16
	Media            uint8
	SectorsPerFAT16  uint16
	SectorsPerTrack  uint16
	NumHeads         uint16
	HiddenSectors    uint32
	TotalSectors32   uint32
	SectorsPerFAT32  uint32
}

// BootSector holds a validated, fully derived FAT volume geometry: the raw
// BPB fields plus every quantity the rest of the engine needs computed from
// them (cluster size, first data sector, cluster count, and so on).
type BootSector struct {
	Variant           Variant
	BytesPerSector    uint
	SectorsPerCluster uint
	ReservedSectors   uint
	NumFATs           uint
	RootEntryCount    uint
	Media             uint8
	SectorsPerFAT     uint
	TotalSectors      uint
	RootDirSectors    uint
	BytesPerCluster   uint
	TotalClusters     uint
	TotalDataSectors  uint
	FirstDataSector   SectorID
	FirstFATSector    SectorID
	FirstRootDirSector SectorID
	RootDirFirstCluster ClusterID // FAT32 only; 0 for FAT16
	DirentsPerCluster int
	VolumeLabel       string
}

// ReadBootSector validates a 512-byte boot sector, already read by the
// caller, for a volume of volumeSectors total sectors. It tries hintVariant
// first; if that variant's invariants don't hold, it retries as the other
// variant before giving up.
//
// Validates both FAT16 and FAT32 shapes of the same bytes instead of
// inferring the version after the fact from cluster count. The sector
// numbers it derives count from the start of the volume; the caller rebases
// them by the partition's starting LBA (see Mount and package partition).
func ReadBootSector(sector []byte, volumeSectors uint, hintVariant Variant) (*BootSector, error) {
	if len(sector) < bootSectorSize {
		return nil, gristle.NewDriverErrorf(
			gristle.EIO, "boot sector short read: got %d bytes, need %d", len(sector), bootSectorSize)
	}

	raw, err := decodeRawBootSector(sector)
	if err != nil {
		return nil, err
	}

	first := hintVariant
	second := Variant32
	if hintVariant == Variant32 {
		second = Variant16
	}

	bs, errFirst := validateBootSector(raw, volumeSectors, first)
	if errFirst == nil {
		return bs, nil
	}

	bs, errSecond := validateBootSector(raw, volumeSectors, second)
	if errSecond == nil {
		return bs, nil
	}

	err16, err32 := errFirst, errSecond
	if first == Variant32 {
		err16, err32 = errSecond, errFirst
	}
	return nil, gristle.NewDriverErrorf(
		gristle.EINVAL, "not a valid FAT16 or FAT32 boot sector: FAT16: %s; FAT32: %s", err16, err32)
}

func decodeRawBootSector(sector []byte) (rawBootSector, error) {
	var raw rawBootSector
	r := bytes.NewReader(sector)
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return raw, gristle.NewDriverErrorWithMessage(gristle.EIO, err.Error())
	}
	return raw, nil
}

func validateBootSector(raw rawBootSector, volumeSectors uint, variant Variant) (*BootSector, error) {
	if raw.BytesPerSector != 512 {
		return nil, fmt.Errorf("BytesPerSector must be 512, got %d", raw.BytesPerSector)
	}

	if !validSectorsPerCluster[raw.SectorsPerClust] {
		return nil, fmt.Errorf("SectorsPerCluster must be a power of 2 in 1..128, got %d", raw.SectorsPerClust)
	}

	reservedSectors := uint(raw.ReservedSectors)
	if reservedSectors < 1 || (volumeSectors != 0 && reservedSectors >= volumeSectors) {
		return nil, fmt.Errorf("ReservedSectors out of range: %d", reservedSectors)
	}

	numFATs := uint(raw.NumFATs)
	if numFATs < 1 || numFATs >= 15 {
		return nil, fmt.Errorf("NumFATs out of range: %d", numFATs)
	}

	totalSectors := uint(raw.TotalSectors16)
	if totalSectors == 0 {
		totalSectors = uint(raw.TotalSectors32)
	}
	if totalSectors == 0 {
		return nil, fmt.Errorf("TotalSectors is zero in both 16-bit and 32-bit fields")
	}
	if volumeSectors != 0 && totalSectors > volumeSectors {
		return nil, fmt.Errorf("TotalSectors %d exceeds volume length %d", totalSectors, volumeSectors)
	}

	rootEntryCount := uint(raw.RootEntryCount)
	switch variant {
	case Variant16:
		if rootEntryCount == 0 {
			return nil, fmt.Errorf("RootEntryCount must be nonzero for FAT16")
		}
	case Variant32:
		if rootEntryCount != 0 {
			return nil, fmt.Errorf("RootEntryCount must be zero for FAT32")
		}
	}

	rootDirBytes := rootEntryCount * DirentSize
	if rootDirBytes%uint(raw.BytesPerSector) != 0 {
		return nil, fmt.Errorf("root directory does not occupy an integer number of sectors")
	}
	rootDirSectors := (rootDirBytes + uint(raw.BytesPerSector) - 1) / uint(raw.BytesPerSector)

	sectorsPerFAT := uint(raw.SectorsPerFAT16)
	if sectorsPerFAT == 0 {
		if variant == Variant16 {
			return nil, fmt.Errorf("SectorsPerFAT16 is zero but variant is FAT16")
		}
		sectorsPerFAT = uint(raw.SectorsPerFAT32)
	}
	if sectorsPerFAT == 0 {
		return nil, fmt.Errorf("SectorsPerFAT is zero in both 16-bit and 32-bit fields")
	}

	totalFATSectors := numFATs * sectorsPerFAT
	firstFATSector := SectorID(reservedSectors)
	firstRootDirSector := SectorID(reservedSectors + totalFATSectors)
	firstDataSector := SectorID(reservedSectors + totalFATSectors + rootDirSectors)

	dataSectors := totalSectors - uint(firstDataSector)
	sectorsPerCluster := uint(raw.SectorsPerClust)
	totalClusters := dataSectors / sectorsPerCluster

	bytesPerCluster := uint(raw.BytesPerSector) * sectorsPerCluster
	if bytesPerCluster > 32768 && variant == Variant16 {
		return nil, fmt.Errorf("BytesPerCluster cannot exceed 32768 on FAT16, got %d", bytesPerCluster)
	}

	bs := &BootSector{
		Variant:             variant,
		BytesPerSector:      uint(raw.BytesPerSector),
		SectorsPerCluster:   sectorsPerCluster,
		ReservedSectors:     reservedSectors,
		NumFATs:             numFATs,
		RootEntryCount:      rootEntryCount,
		Media:               raw.Media,
		SectorsPerFAT:       sectorsPerFAT,
		TotalSectors:        totalSectors,
		RootDirSectors:      rootDirSectors,
		BytesPerCluster:     bytesPerCluster,
		TotalClusters:       totalClusters,
		TotalDataSectors:    dataSectors,
		FirstDataSector:     firstDataSector,
		FirstFATSector:      firstFATSector,
		FirstRootDirSector:  firstRootDirSector,
		DirentsPerCluster:   int(bytesPerCluster) / DirentSize,
	}

	if variant == Variant32 {
		bs.RootDirFirstCluster = ClusterID(2)
	}

	return bs, nil
}
