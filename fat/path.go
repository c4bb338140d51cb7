package fat

import (
	"strings"

	"github.com/hairymnstr/gristle"
	"golang.org/x/exp/slices"
)

// errBadPath is the internal signal for a miss on a non-terminal path
// component. The public entry points (Open, Mkdir, Rmdir, Unlink) translate
// it to a plain ENOENT error; the distinction exists only so a future caller that needs to tell
// "the whole path doesn't exist" from "the last component doesn't exist"
// can, without parsing error strings.
var errBadPath = gristle.NewDriverErrorWithMessage(gristle.ENOENT, "path component not found")

// resolved is what walking a path to its final component yields: the
// directory that would contain (or does contain) the named entry, that
// entry's would-be short name, and — if it exists — its slot and decoded
// form.
type resolved struct {
	parentLoc     dirLocation
	parentCluster ClusterID // 0 for the FAT16 root or the FAT32 root
	shortName     [11]byte
	slot          dirSlot
	dirent        Dirent
	found         bool
	isRoot        bool // path resolved to the volume root itself
}

// resolvePath splits path on '/' and walks it component by component from
// the root. A miss on the final component is reported via resolved.found
// being false (not an error) so callers implementing O_CREAT can proceed.
// A miss on any earlier component, an attempt to descend through a
// non-directory, or a component that fails 8.3 encoding are all errors.
//
// Non-absolute paths are treated exactly like absolute ones (a leading '/'
// is optional) rather than rejected — see DESIGN.md's note on this.
func (fs *FS) resolvePath(path string) (resolved, error) {
	if len(path) > fs.cfg.MaxPathLen {
		return resolved{}, gristle.NewDriverError(gristle.ENAMETOOLONG)
	}

	components := splitPath(path)
	if len(components) > fs.cfg.MaxPathLevels {
		return resolved{}, gristle.NewDriverError(gristle.ENAMETOOLONG)
	}

	loc := fs.rootLocation()
	var parentCluster ClusterID

	if len(components) == 0 {
		// The root itself. Its own "short name" and slot are meaningless;
		// callers asking to resolve "/" should special-case IsDir/size
		// rather than inspect shortName.
		return resolved{parentLoc: loc, parentCluster: parentCluster, found: true, isRoot: true}, nil
	}

	for i, component := range components {
		isLast := i == len(components)-1

		fatName, err := strToFATName(component)
		if err != nil {
			return resolved{}, err
		}

		cursor := 0
		shortName, err := makeDOSName(fatName, &cursor)
		if err != nil {
			return resolved{}, err
		}

		slot, found, err := fs.findSlotByShortName(loc, shortName)
		if err != nil {
			return resolved{}, err
		}

		if !found {
			if isLast {
				return resolved{parentLoc: loc, parentCluster: parentCluster, shortName: shortName}, nil
			}
			return resolved{}, errBadPath
		}

		dirent, ok := direntFromRaw(slot.Raw)
		if !ok {
			if isLast {
				return resolved{parentLoc: loc, parentCluster: parentCluster, shortName: shortName}, nil
			}
			return resolved{}, errBadPath
		}

		if isLast {
			return resolved{
				parentLoc:     loc,
				parentCluster: parentCluster,
				shortName:     shortName,
				slot:          slot,
				dirent:        dirent,
				found:         true,
			}, nil
		}

		if !dirent.IsDir() {
			return resolved{}, gristle.NewDriverError(gristle.ENOTDIR)
		}

		parentCluster = dirent.FirstCluster
		loc = fs.dirLocationForCluster(dirent.FirstCluster)
	}

	// Unreachable: the loop always returns on its last iteration.
	return resolved{}, errBadPath
}

// splitPath breaks a path into its non-empty '/'-delimited components.
// Leading, trailing, and repeated slashes collapse away, so "/a//b/" and
// "a/b" both yield ["a", "b"].
func splitPath(path string) []string {
	components := strings.Split(path, "/")
	components = slices.DeleteFunc(components, func(p string) bool { return p == "" })
	return slices.Clip(components)
}
