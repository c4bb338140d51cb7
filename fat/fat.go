package fat

import (
	"io"

	"github.com/hairymnstr/gristle"
	"github.com/hairymnstr/gristle/blockdev"
)

// endOfChainMarker16 and endOfChainMarker32 are the values the engine writes
// into a FAT entry to mark it as the last cluster of a chain. They're also
// the threshold above which a read-back entry means "end of chain" rather
// than "pointer to the next cluster" (entries between the real cluster count
// and these markers are reserved/bad-cluster values FAT never produces when
// walking a healthy chain).
const (
	endOfChainMarker16 uint32 = 0xFFF8
	endOfChainMarker32 uint32 = 0x0FFFFFF8
)

// Engine reads and writes the active FAT: allocating free clusters, walking
// chains, and freeing them. Only the active FAT (the first one, per
// active_fat_start) is ever touched; mirror FATs are left stale, matching
// the original driver's design.
//
// Grounded on gristle.c's fat_get_free_cluster and
// fat_free_clusters, reworked from their block-at-a-time sysbuf style into
// explicit per-entry reads/writes through a blockdev.Device.
type Engine struct {
	dev       blockdev.Device
	boot      *BootSector
	entryLen  uint
	endMarker uint32
}

// NewEngine builds a FAT engine over the active FAT described by boot.
func NewEngine(dev blockdev.Device, boot *BootSector) *Engine {
	entryLen := uint(2)
	endMarker := endOfChainMarker16
	if boot.Variant == Variant32 {
		entryLen = 4
		endMarker = endOfChainMarker32
	}

	return &Engine{dev: dev, boot: boot, entryLen: entryLen, endMarker: endMarker}
}

// entriesPerSector is how many FAT entries fit in one sector.
func (e *Engine) entriesPerSector() uint {
	return e.boot.BytesPerSector / e.entryLen
}

// sectorForCluster returns the FAT sector holding cluster's entry, and the
// entry's byte offset within that sector.
func (e *Engine) sectorForCluster(cluster ClusterID) (SectorID, uint) {
	entryOffset := uint(cluster) * e.entryLen
	sectorIndex := entryOffset / e.boot.BytesPerSector
	byteOffset := entryOffset % e.boot.BytesPerSector
	return SectorID(uint(e.boot.FirstFATSector) + sectorIndex), byteOffset
}

func (e *Engine) readSector(sector SectorID) ([]byte, error) {
	buf := make([]byte, e.boot.BytesPerSector)
	if err := e.dev.Read(blockdev.LogicalBlock(sector), buf); err != nil {
		return nil, gristle.NewDriverErrorWithMessage(gristle.EIO, err.Error())
	}
	return buf, nil
}

func (e *Engine) writeSector(sector SectorID, buf []byte) error {
	if err := e.dev.Write(blockdev.LogicalBlock(sector), buf); err != nil {
		return gristle.NewDriverErrorWithMessage(gristle.EIO, err.Error())
	}
	return nil
}

func (e *Engine) decodeEntry(buf []byte, byteOffset uint) uint32 {
	if e.entryLen == 2 {
		return uint32(buf[byteOffset]) | uint32(buf[byteOffset+1])<<8
	}
	v := uint32(buf[byteOffset]) | uint32(buf[byteOffset+1])<<8 |
		uint32(buf[byteOffset+2])<<16 | uint32(buf[byteOffset+3])<<24
	return v & 0x0FFFFFFF
}

func (e *Engine) encodeEntry(buf []byte, byteOffset uint, value uint32) {
	buf[byteOffset] = byte(value)
	buf[byteOffset+1] = byte(value >> 8)
	if e.entryLen == 4 {
		// The top 4 bits of a FAT32 entry are reserved; preserve whatever was
		// already on disk there instead of clobbering it.
		buf[byteOffset+2] = byte(value>>16)&0xFF | buf[byteOffset+2]&0xF0
		buf[byteOffset+3] = byte(value>>24)&0x0F | buf[byteOffset+3]&0xF0
	}
}

// ReadEntry returns the raw value stored in cluster's FAT entry.
func (e *Engine) ReadEntry(cluster ClusterID) (uint32, error) {
	sector, offset := e.sectorForCluster(cluster)
	buf, err := e.readSector(sector)
	if err != nil {
		return 0, err
	}
	return e.decodeEntry(buf, offset), nil
}

// WriteEntry stores value into cluster's FAT entry.
func (e *Engine) WriteEntry(cluster ClusterID, value uint32) error {
	sector, offset := e.sectorForCluster(cluster)
	buf, err := e.readSector(sector)
	if err != nil {
		return err
	}
	e.encodeEntry(buf, offset, value)
	return e.writeSector(sector, buf)
}

// AllocateCluster linearly scans the active FAT for the first entry reading
// as free (0), marks it end-of-chain, and returns its cluster number.
// Returns ENOSPC if the FAT holds no free entries.
func (e *Engine) AllocateCluster() (ClusterID, error) {
	perSector := e.entriesPerSector()

	for sectorIndex := uint(0); sectorIndex < e.boot.SectorsPerFAT; sectorIndex++ {
		sector := SectorID(uint(e.boot.FirstFATSector) + sectorIndex)
		buf, err := e.readSector(sector)
		if err != nil {
			return 0, err
		}

		for j := uint(0); j < perSector; j++ {
			byteOffset := j * e.entryLen
			cluster := ClusterID(sectorIndex*perSector + j)
			if cluster < 2 || uint(cluster) >= e.boot.TotalClusters+2 {
				continue
			}

			if e.decodeEntry(buf, byteOffset) == 0 {
				e.encodeEntry(buf, byteOffset, e.endMarker)
				if err := e.writeSector(sector, buf); err != nil {
					return 0, err
				}
				return cluster, nil
			}
		}
	}

	return 0, gristle.NewDriverError(gristle.ENOSPC)
}

// NextCluster follows the chain pointer stored in current's FAT entry. If
// the chain ends there and extend is true (the owning handle is
// write-enabled), a new cluster is allocated, linked in, and returned.
// Otherwise io.EOF is returned to signal the natural end of the chain.
// A pointer below 2 indicates on-disk corruption and is reported as EIO.
func (e *Engine) NextCluster(current ClusterID, extend bool) (ClusterID, error) {
	entry, err := e.ReadEntry(current)
	if err != nil {
		return 0, err
	}

	if entry < 2 {
		return 0, gristle.NewDriverErrorf(gristle.EIO, "corrupt FAT chain: cluster %d points to reserved entry %d", current, entry)
	}

	if entry < e.endMarker {
		return ClusterID(entry), nil
	}

	if !extend {
		return 0, io.EOF
	}

	next, err := e.AllocateCluster()
	if err != nil {
		return 0, err
	}
	if err := e.WriteEntry(current, uint32(next)); err != nil {
		return 0, err
	}
	return next, nil
}

// FreeChain walks a cluster chain starting at first, zeroing each entry as
// it goes, and returns the list of clusters that were freed. Writes are
// buffered per FAT sector: the buffered sector is written back whenever the
// walk moves into a different FAT sector, so a sector the chain leaves and
// later re-enters is written more than once.
func (e *Engine) FreeChain(first ClusterID) ([]ClusterID, error) {
	var freed []ClusterID
	if first < 2 {
		return freed, nil
	}

	cluster := first
	var currentSector SectorID = SectorID(^uint32(0))
	var buf []byte

	flush := func() error {
		if buf != nil {
			if err := e.writeSector(currentSector, buf); err != nil {
				return err
			}
		}
		return nil
	}

	for {
		sector, offset := e.sectorForCluster(cluster)
		if sector != currentSector {
			if err := flush(); err != nil {
				return freed, err
			}
			var err error
			buf, err = e.readSector(sector)
			if err != nil {
				return freed, err
			}
			currentSector = sector
		}

		next := e.decodeEntry(buf, offset)
		e.encodeEntry(buf, offset, 0)
		freed = append(freed, cluster)

		if next < 2 || next >= e.endMarker {
			break
		}
		cluster = ClusterID(next)
	}

	if err := flush(); err != nil {
		return freed, err
	}
	return freed, nil
}

// IsEndOfChain reports whether a raw FAT entry value marks the end of a
// cluster chain.
func (e *Engine) IsEndOfChain(entry uint32) bool {
	return entry >= e.endMarker
}

// TotalClusters is the number of data clusters addressable in this FAT,
// clusters 2..TotalClusters+1.
func (e *Engine) TotalClusters() uint {
	return e.boot.TotalClusters
}
