package fat

import (
	"os"
	"time"

	"github.com/hairymnstr/gristle"
)

// mkdirAt creates a new subdirectory named shortName inside parent, linking
// it into parent's directory (via findOrCreateSlot) and initializing its
// first cluster with "." and ".." entries.
//
// Grounded on gristle.c's directory-creation code around
// its two GRISTLE_TIME-stamped RawDirent writes (one for "." one for "..").
func (fs *FS) mkdirAt(parent dirLocation, parentCluster ClusterID, shortName [11]byte, now time.Time) error {
	if !fs.mountFlags.CanWrite() {
		return gristle.NewDriverError(gristle.EROFS)
	}

	if _, found, err := fs.findSlotByShortName(parent, shortName); err != nil {
		return err
	} else if found {
		return gristle.NewDriverError(gristle.EEXIST)
	}

	newCluster, err := fs.freeMap.Allocate()
	if err != nil {
		return err
	}
	if err := fs.zeroCluster(newCluster); err != nil {
		return err
	}

	dotName, _ := makeDOSName(".", new(int))
	dotdotName, _ := makeDOSName("..", new(int))

	// ".." gets parentCluster as it is, which is 0 for a directory created
	// directly under the root (FAT16 or FAT32); dirLocationForCluster maps
	// cluster 0 back to the root on read (see the path resolver).
	parentPointer := parentCluster

	dotEntry := rawDirentFor(dotName, os.ModeDir, newCluster, 0, now)
	dotdotEntry := rawDirentFor(dotdotName, os.ModeDir, parentPointer, 0, now)

	firstSector := fs.clusterFirstSector(newCluster)
	buf, err := fs.engine.readSector(firstSector)
	if err != nil {
		return err
	}
	copy(buf[0:DirentSize], encodeRawDirent(dotEntry))
	copy(buf[DirentSize:2*DirentSize], encodeRawDirent(dotdotEntry))
	if err := fs.engine.writeSector(firstSector, buf); err != nil {
		return err
	}

	slot, err := fs.findOrCreateSlot(parent)
	if err != nil {
		return err
	}
	slot.Raw = rawDirentFor(shortName, os.ModeDir, newCluster, 0, now)
	return fs.writeSlot(slot)
}

// rmdirAt removes the empty subdirectory named shortName from parent. It is
// an error if the subdirectory contains any live entry other than "." and
// "..".
//
// No existing cluster-chain walker to build on here (nothing upstream
// implements rmdir), so the emptiness scan follows the same scanDirectory
// machinery Readdir uses.
func (fs *FS) rmdirAt(parent dirLocation, shortName [11]byte) error {
	if !fs.mountFlags.CanWrite() {
		return gristle.NewDriverError(gristle.EROFS)
	}

	slot, found, err := fs.findSlotByShortName(parent, shortName)
	if err != nil {
		return err
	}
	if !found {
		return gristle.NewDriverError(gristle.ENOENT)
	}
	dirent, ok := direntFromRaw(slot.Raw)
	if !ok || !dirent.IsDir() {
		return gristle.NewDriverError(gristle.ENOTDIR)
	}

	target := fs.dirLocationForCluster(dirent.FirstCluster)
	empty := true
	_, err = fs.scanDirectory(target, func(s dirSlot) bool {
		if s.Raw.Name[0] == nameFreeMarker {
			return true
		}
		d, ok := direntFromRaw(s.Raw)
		if !ok {
			return false
		}
		if d.Name() != "." && d.Name() != ".." {
			empty = false
			return true
		}
		return false
	})
	if err != nil {
		return err
	}
	if !empty {
		return gristle.NewDriverError(gristle.ENOTEMPTY)
	}

	slot.Raw.Name[0] = nameDeletedMarker
	if err := fs.writeSlot(slot); err != nil {
		return err
	}

	if dirent.FirstCluster != 0 {
		if _, err := fs.engine.FreeChain(dirent.FirstCluster); err != nil {
			return err
		}
		fs.freeMap.Invalidate()
	}
	return nil
}

// unlinkAt removes the regular file named shortName from parent. Refuses
// with EPERM on subdirectories: this engine has no recursive delete.
func (fs *FS) unlinkAt(parent dirLocation, shortName [11]byte) error {
	if !fs.mountFlags.CanWrite() {
		return gristle.NewDriverError(gristle.EROFS)
	}

	slot, found, err := fs.findSlotByShortName(parent, shortName)
	if err != nil {
		return err
	}
	if !found {
		return gristle.NewDriverError(gristle.ENOENT)
	}
	dirent, ok := direntFromRaw(slot.Raw)
	if !ok {
		return gristle.NewDriverError(gristle.ENOENT)
	}
	if dirent.IsDir() {
		return gristle.NewDriverError(gristle.EPERM)
	}

	slot.Raw.Name[0] = nameDeletedMarker
	if err := fs.writeSlot(slot); err != nil {
		return err
	}

	if dirent.FirstCluster != 0 {
		if _, err := fs.engine.FreeChain(dirent.FirstCluster); err != nil {
			return err
		}
		fs.freeMap.Invalidate()
	}
	return nil
}
