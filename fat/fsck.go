package fat

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Package-level diagnostic checks. Every other operation in this package
// reports exactly one error per call (errors are not accumulated) — these
// two are the deliberate exception, since an fsck-style sweep is only
// useful if it tells you everything wrong at once rather than stopping at
// the first problem. A crash between cluster allocation and directory-entry
// publication can leave an unreachable cluster chain behind — a tolerable
// leak, but one that should be detectable; this file is that detector.

// VerifyChain walks the cluster chain starting at first, purely for
// consistency checking (it never extends or modifies anything). It reports
// every corrupt pointer (< 2) or cycle it finds instead of stopping at the
// first one.
func VerifyChain(engine *Engine, first ClusterID) error {
	if first == 0 {
		return nil
	}

	var result *multierror.Error
	seen := make(map[ClusterID]bool)
	cluster := first

	for {
		if seen[cluster] {
			result = multierror.Append(result, fmt.Errorf("cluster chain starting at %d cycles back to cluster %d", first, cluster))
			break
		}
		seen[cluster] = true

		entry, err := engine.ReadEntry(cluster)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("reading FAT entry for cluster %d: %w", cluster, err))
			break
		}
		if entry < 2 {
			result = multierror.Append(result, fmt.Errorf("cluster %d in chain starting at %d points to reserved entry %d", cluster, first, entry))
			break
		}
		if engine.IsEndOfChain(entry) {
			break
		}
		cluster = ClusterID(entry)
	}

	return result.ErrorOrNil()
}

// VerifyDirectory scans every live entry in loc, checking each subdirectory
// or file's cluster chain with VerifyChain and flagging any short name that
// appears more than once (which findSlotByShortName's first-match semantics
// would otherwise silently shadow). It does not recurse into subdirectories;
// call it again with each subdirectory's location to check the whole tree.
func (fs *FS) VerifyDirectory(loc dirLocation) error {
	var result *multierror.Error
	seenNames := make(map[[11]byte]bool)

	_, err := fs.scanDirectory(loc, func(slot dirSlot) bool {
		if slot.Raw.Name[0] == nameFreeMarker {
			return true
		}
		d, ok := direntFromRaw(slot.Raw)
		if !ok {
			return false
		}

		var shortName [11]byte
		copy(shortName[0:8], slot.Raw.Name[:])
		copy(shortName[8:11], slot.Raw.Extension[:])
		if d.Name() != "." && d.Name() != ".." {
			if seenNames[shortName] {
				result = multierror.Append(result, fmt.Errorf("duplicate directory entry name %q", d.Name()))
			}
			seenNames[shortName] = true

			if err := VerifyChain(fs.engine, d.FirstCluster); err != nil {
				result = multierror.Append(result, fmt.Errorf("entry %q: %w", d.Name(), err))
			}
		}
		return false
	})
	if err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// FindLostClusters walks the directory tree from root, collecting every
// cluster reachable from a live entry, then reports any cluster the FAT
// marks occupied that reachability walk never reached — the "unreachable
// cluster chain" a crash between cluster allocation and directory-entry
// publication can leave behind.
func (fs *FS) FindLostClusters() ([]ClusterID, error) {
	reachable := make(map[ClusterID]bool)

	var walk func(loc dirLocation) error
	walk = func(loc dirLocation) error {
		var subdirs []ClusterID
		_, err := fs.scanDirectory(loc, func(slot dirSlot) bool {
			if slot.Raw.Name[0] == nameFreeMarker {
				return true
			}
			d, ok := direntFromRaw(slot.Raw)
			if !ok || d.Name() == "." || d.Name() == ".." {
				return false
			}
			markChainReachable(fs.engine, reachable, d.FirstCluster)
			if d.IsDir() && d.FirstCluster != 0 {
				subdirs = append(subdirs, d.FirstCluster)
			}
			return false
		})
		if err != nil {
			return err
		}
		for _, sub := range subdirs {
			if err := walk(fs.dirLocationForCluster(sub)); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(fs.rootLocation()); err != nil {
		return nil, err
	}

	var lost []ClusterID
	total := fs.engine.TotalClusters()
	for i := uint(0); i < total; i++ {
		cluster := ClusterID(i + 2)
		entry, err := fs.engine.ReadEntry(cluster)
		if err != nil {
			return nil, err
		}
		if entry != 0 && !reachable[cluster] {
			lost = append(lost, cluster)
		}
	}
	return lost, nil
}

func markChainReachable(engine *Engine, reachable map[ClusterID]bool, first ClusterID) {
	cluster := first
	for cluster != 0 && !reachable[cluster] {
		reachable[cluster] = true
		entry, err := engine.ReadEntry(cluster)
		if err != nil || entry < 2 || engine.IsEndOfChain(entry) {
			return
		}
		cluster = ClusterID(entry)
	}
}
