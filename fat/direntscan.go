package fat

import (
	"errors"
	"io"

	"github.com/hairymnstr/gristle"
)

// dirLocation identifies where a directory's entries live: either the
// fixed-size FAT16 root region, or a cluster chain (every other directory,
// including the FAT32 root).
type dirLocation struct {
	root16       bool
	firstCluster ClusterID
}

// dirSlot is one 32-byte directory entry together with the on-disk location
// it was read from, so a caller can write a modified copy back to exactly
// the same place.
type dirSlot struct {
	Sector SectorID
	Offset uint
	Raw    RawDirent
}

func (fs *FS) direntsPerSector() uint {
	return fs.boot.BytesPerSector / DirentSize
}

// scanDirectory visits every physical directory slot in loc, in order,
// calling visit for each. visit returns stop=true to end the scan early.
// It returns the last cluster visited (0 for the FAT16 root, which never
// spans clusters) so findOrCreateSlot knows where to extend the chain if no
// free slot turned up.
func (fs *FS) scanDirectory(loc dirLocation, visit func(slot dirSlot) bool) (ClusterID, error) {
	perSector := fs.direntsPerSector()

	scanSector := func(sector SectorID) (bool, error) {
		buf, err := fs.engine.readSector(sector)
		if err != nil {
			return false, err
		}
		for i := uint(0); i < perSector; i++ {
			offset := i * DirentSize
			slot := dirSlot{Sector: sector, Offset: offset, Raw: decodeRawDirent(buf[offset : offset+DirentSize])}
			if visit(slot) {
				return true, nil
			}
		}
		return false, nil
	}

	if loc.root16 {
		for i := uint(0); i < fs.boot.RootDirSectors; i++ {
			sector := fs.boot.FirstRootDirSector + SectorID(i)
			stop, err := scanSector(sector)
			if err != nil || stop {
				return 0, err
			}
		}
		return 0, nil
	}

	cluster := loc.firstCluster
	for {
		first := fs.clusterFirstSector(cluster)
		for i := uint(0); i < fs.boot.SectorsPerCluster; i++ {
			stop, err := scanSector(first + SectorID(i))
			if err != nil || stop {
				return cluster, err
			}
		}

		next, err := fs.engine.NextCluster(cluster, false)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return cluster, nil
			}
			return cluster, err
		}
		cluster = next
	}
}

// writeSlot re-encodes slot.Raw and writes it back to slot.Sector at
// slot.Offset.
func (fs *FS) writeSlot(slot dirSlot) error {
	buf, err := fs.engine.readSector(slot.Sector)
	if err != nil {
		return err
	}
	copy(buf[slot.Offset:slot.Offset+DirentSize], encodeRawDirent(slot.Raw))
	return fs.engine.writeSector(slot.Sector, buf)
}

// listDirectory returns every live entry in loc, in on-disk order, skipping
// deleted slots, LFN continuations, and volume labels, and stopping at the
// logical end-of-directory marker.
func (fs *FS) listDirectory(loc dirLocation) ([]Dirent, error) {
	var entries []Dirent
	_, err := fs.scanDirectory(loc, func(slot dirSlot) bool {
		if slot.Raw.Name[0] == nameFreeMarker {
			return true
		}
		if d, ok := direntFromRaw(slot.Raw); ok {
			entries = append(entries, d)
		}
		return false
	})
	return entries, err
}

// findSlotByShortName scans loc for a live entry whose packed name matches
// shortName exactly. found is false if the directory runs out (hits the
// logical end marker) without a match.
func (fs *FS) findSlotByShortName(loc dirLocation, shortName [11]byte) (dirSlot, bool, error) {
	var result dirSlot
	found := false

	_, err := fs.scanDirectory(loc, func(slot dirSlot) bool {
		if slot.Raw.Name[0] == nameFreeMarker {
			return true
		}
		var candidate [11]byte
		copy(candidate[0:8], slot.Raw.Name[:])
		copy(candidate[8:11], slot.Raw.Extension[:])
		if candidate == shortName && slot.Raw.Name[0] != nameDeletedMarker {
			result = slot
			found = true
			return true
		}
		return false
	})
	return result, found, err
}

// findOrCreateSlot returns the first free slot in loc, extending the
// directory's cluster chain by one cluster if none is available. The FAT16
// root cannot be extended; findOrCreateSlot returns ENOSPC if it's full.
func (fs *FS) findOrCreateSlot(loc dirLocation) (dirSlot, error) {
	var result dirSlot
	found := false

	lastCluster, err := fs.scanDirectory(loc, func(slot dirSlot) bool {
		if slot.Raw.Name[0] == nameFreeMarker {
			result = slot
			found = true
			return true
		}
		return false
	})
	if err != nil {
		return dirSlot{}, err
	}
	if found {
		return result, nil
	}

	if loc.root16 {
		return dirSlot{}, gristle.NewDriverError(gristle.ENOSPC)
	}

	newCluster, err := fs.freeMap.Allocate()
	if err != nil {
		return dirSlot{}, err
	}
	if err := fs.zeroCluster(newCluster); err != nil {
		return dirSlot{}, err
	}
	if err := fs.engine.WriteEntry(lastCluster, uint32(newCluster)); err != nil {
		return dirSlot{}, err
	}

	return dirSlot{Sector: fs.clusterFirstSector(newCluster), Offset: 0}, nil
}
