// Package mount is a thin dispatcher over the FAT engine and the read-only
// EXT2 experimental path: it tries FAT first, falling back to EXT2, so a
// caller with a block device of unknown filesystem type doesn't need to
// know which one it is ahead of time. It lives outside package gristle (and
// outside package fat) specifically to avoid a dependency cycle — both fat
// and ext2 already import gristle for the shared error taxonomy and stat
// types, so the dispatcher that sits above both of them has to live one
// level further out.
package mount

import (
	"fmt"

	"github.com/hairymnstr/gristle"
	"github.com/hairymnstr/gristle/blockdev"
	"github.com/hairymnstr/gristle/ext2"
	"github.com/hairymnstr/gristle/fat"
	"github.com/hairymnstr/gristle/partition"
)

// Mounted is whichever filesystem Mount actually found: exactly one of FAT
// or EXT2 is non-nil.
type Mounted struct {
	FAT  *fat.FS
	EXT2 *ext2.Context
}

// At tries to mount dev at partitionStart as FAT16/32 first, falling back
// to the read-only EXT2 experimental path if that fails. hintVariant and
// cfg/flags are passed through to fat.Mount unchanged; the EXT2 path takes
// no equivalent tunables, being read-only and handle-table-free.
func At(dev blockdev.Device, partitionStart fat.SectorID, hintVariant fat.Variant, cfg gristle.Config, flags gristle.MountFlags) (*Mounted, error) {
	fs, fatErr := fat.Mount(dev, partitionStart, hintVariant, cfg, flags)
	if fatErr == nil {
		return &Mounted{FAT: fs}, nil
	}

	ctx, ext2Err := ext2.Mount(dev, blockdev.LogicalBlock(partitionStart))
	if ext2Err == nil {
		return &Mounted{EXT2: ctx}, nil
	}

	return nil, fmt.Errorf("mount: neither FAT (%s) nor EXT2 (%s) recognized the volume", fatErr, ext2Err)
}

// Auto reads the MBR at sector 0 of dev, picks the first partition entry it
// recognizes, and mounts it: FAT16/32 by partition.Type's FATKindHint, or
// the EXT2 experimental path for a TypeLinux-hinted partition.
func Auto(dev blockdev.Device, cfg gristle.Config, flags gristle.MountFlags) (*Mounted, error) {
	sector := make([]byte, dev.BlockSize())
	if err := dev.Read(0, sector); err != nil {
		return nil, fmt.Errorf("mount: reading MBR: %w", err)
	}

	entries, err := partition.Read(sector, uint32(dev.VolumeSize()))
	if err != nil {
		return nil, fmt.Errorf("mount: parsing MBR: %w", err)
	}

	for _, entry := range entries {
		isFAT16, isFAT32 := entry.TypeHint.FATKindHint()
		switch {
		case isFAT16:
			return At(dev, fat.SectorID(entry.StartLBA), fat.Variant16, cfg, flags)
		case isFAT32:
			return At(dev, fat.SectorID(entry.StartLBA), fat.Variant32, cfg, flags)
		case entry.TypeHint.IsLinuxNative():
			ctx, err := ext2.Mount(dev, blockdev.LogicalBlock(entry.StartLBA))
			if err != nil {
				return nil, err
			}
			return &Mounted{EXT2: ctx}, nil
		}
	}

	return nil, fmt.Errorf("mount: no FAT or Linux-native partition found")
}
