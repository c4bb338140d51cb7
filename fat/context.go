// Package fat implements a POSIX-style FAT16/FAT32 filesystem engine over an
// abstract block device.
//
// Every operation is a method on a single Context value (FS), turning what
// was once a global fatfs/file_num[] state into an explicit, non-global
// value a program can mount more than one of at a time.
package fat

import (
	"github.com/hairymnstr/gristle"
	"github.com/hairymnstr/gristle/blockdev"
)

// FS is a mounted FAT volume: the validated boot sector, the FAT engine and
// its free-cluster cache, and the table of open handles. Every exported
// operation (Open, Read, Write, Mkdir, ...) is a method on *FS.
type FS struct {
	dev        blockdev.Device
	boot       *BootSector
	engine     *Engine
	freeMap    *FreeMap
	cfg        gristle.Config
	mountFlags gristle.MountFlags
	handles    []*Handle
}

// partitionStart is the LBA within dev where the FAT volume's boot sector
// lives. A caller mounting a whole-device image with no partition table
// passes 0.
//
// Mount reads the boot sector at partitionStart, validates it against
// hintVariant (see ReadBootSector), and returns a ready-to-use *FS.
func Mount(dev blockdev.Device, partitionStart SectorID, hintVariant Variant, cfg gristle.Config, flags gristle.MountFlags) (*FS, error) {
	if cfg.ReadOnly {
		flags &^= gristle.MountFlagsAllowWrite
	}
	if dev.ReadOnly() && flags.CanWrite() {
		return nil, gristle.NewDriverError(gristle.EROFS)
	}

	sector := make([]byte, dev.BlockSize())
	if err := dev.Read(blockdev.LogicalBlock(partitionStart), sector); err != nil {
		return nil, gristle.NewDriverErrorWithMessage(gristle.EIO, err.Error())
	}

	boot, err := ReadBootSector(sector, dev.VolumeSize()-uint(partitionStart), hintVariant)
	if err != nil {
		return nil, err
	}

	// Boot sector offsets are relative to the start of the volume (the
	// partition), not the whole device; rebase them onto absolute LBAs.
	boot.FirstFATSector += SectorID(partitionStart)
	boot.FirstRootDirSector += SectorID(partitionStart)
	boot.FirstDataSector += SectorID(partitionStart)

	engine := NewEngine(dev, boot)

	if boot.Variant == Variant32 {
		entry, err := engine.ReadEntry(boot.RootDirFirstCluster)
		if err != nil {
			return nil, err
		}
		if entry == 0 {
			return nil, gristle.NewDriverErrorf(gristle.EIO, "corrupt FAT32 volume: root cluster %d is unallocated", boot.RootDirFirstCluster)
		}
	}

	if cfg.MaxOpenFiles <= 0 {
		cfg = gristle.DefaultConfig()
	}

	return &FS{
		dev:        dev,
		boot:       boot,
		engine:     engine,
		freeMap:    NewFreeMap(engine),
		cfg:        cfg,
		mountFlags: flags,
		handles:    make([]*Handle, cfg.MaxOpenFiles),
	}, nil
}

// rootLocation returns the directory location of the volume's root
// directory: the fixed region on FAT16, or the cluster chain starting at
// cluster 2 on FAT32.
func (fs *FS) rootLocation() dirLocation {
	if fs.boot.Variant == Variant16 {
		return dirLocation{root16: true}
	}
	return dirLocation{firstCluster: fs.boot.RootDirFirstCluster}
}

// dirLocationForCluster turns a decoded dirent's FirstCluster into the
// dirLocation it names. A ".." entry one level under the root stores 0
// rather than the root's real cluster number (FAT32's own convention, also
// tolerated on FAT16 where the root isn't cluster-addressed at all), so
// cluster 0 always means "the volume root" here, never "cluster 0 of data".
func (fs *FS) dirLocationForCluster(cluster ClusterID) dirLocation {
	if cluster == 0 {
		return fs.rootLocation()
	}
	return dirLocation{firstCluster: cluster}
}

// clusterFirstSector returns the absolute LBA of the first sector of a data
// cluster.
func (fs *FS) clusterFirstSector(cluster ClusterID) SectorID {
	return fs.boot.FirstDataSector + SectorID((uint(cluster)-2)*fs.boot.SectorsPerCluster)
}

// zeroCluster overwrites every sector of cluster with zero bytes.
func (fs *FS) zeroCluster(cluster ClusterID) error {
	blank := make([]byte, fs.boot.BytesPerSector)
	first := fs.clusterFirstSector(cluster)
	for i := uint(0); i < fs.boot.SectorsPerCluster; i++ {
		if err := fs.engine.writeSector(first+SectorID(i), blank); err != nil {
			return err
		}
	}
	return nil
}

// allocHandle reserves a slot in the handle table and returns its index.
// Returns ENFILE if the table is full.
func (fs *FS) allocHandle(h *Handle) (int, error) {
	for i, existing := range fs.handles {
		if existing == nil {
			fs.handles[i] = h
			return i, nil
		}
	}
	return -1, gristle.NewDriverError(gristle.ENFILE)
}

// handleAt returns the handle at index fd, or EBADF if it's out of range or
// not open.
func (fs *FS) handleAt(fd int) (*Handle, error) {
	if fd < 0 || fd >= len(fs.handles) || fs.handles[fd] == nil {
		return nil, gristle.NewDriverError(gristle.EBADF)
	}
	return fs.handles[fd], nil
}

func (fs *FS) releaseHandle(fd int) {
	if fd >= 0 && fd < len(fs.handles) {
		fs.handles[fd] = nil
	}
}

// Stat describes the mounted volume, for an fstatfs-equivalent call.
func (fs *FS) Stat() gristle.FSStat {
	return gristle.FSStat{
		BlockSize:     int64(fs.boot.BytesPerCluster),
		TotalBlocks:   uint64(fs.boot.TotalClusters),
		MaxNameLength: 12, // 8.3 plus the dot
	}
}
