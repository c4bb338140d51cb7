package fat

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/hairymnstr/gristle"
)

// Open resolves path and returns a handle descriptor, creating the entry
// first if flags carries O_CREAT and it doesn't already exist.
//
// An out-parameter errno and an "internal-call" sentinel (used so mkdir can
// open a directory for writing without tripping EISDIR) become, respectively,
// a plain error return and the unexported internal parameter on openAt —
// mkdirAt in this package never actually calls through Open (it writes "."
// and ".." via the engine directly), but the parameter is kept so any future
// caller needing that suppression has it available without restructuring
// Open's signature.
func (fs *FS) Open(path string, flags gristle.IOFlags, mode os.FileMode) (int, error) {
	return fs.openAt(path, flags, mode, false)
}

func (fs *FS) openAt(path string, flags gristle.IOFlags, mode os.FileMode, internal bool) (int, error) {
	if flags.RequiresWritePerm() && !fs.mountFlags.CanWrite() {
		return -1, gristle.NewDriverError(gristle.EROFS)
	}

	res, err := fs.resolvePath(path)
	if err != nil {
		if errors.Is(err, errBadPath) {
			return -1, gristle.NewDriverError(gristle.ENOENT)
		}
		return -1, err
	}

	var h *Handle
	switch {
	case res.isRoot:
		h = newHandle(fs, flags, res.parentLoc, 0, 0, [11]byte{}, Dirent{mode: os.ModeDir | 0o111}, internal)
		h.dirLoc = fs.rootLocation()

	case res.found:
		if res.dirent.IsDir() {
			if !internal && flags.RequiresWritePerm() {
				return -1, gristle.NewDriverError(gristle.EISDIR)
			}
		} else if flags.Create() && flags.Exclusive() {
			return -1, gristle.NewDriverError(gristle.EEXIST)
		}

		h = newHandle(fs, flags, res.parentLoc, res.slot.Sector, res.slot.Offset, res.shortName, res.dirent, internal)
		if res.dirent.IsDir() {
			h.dirLoc = fs.dirLocationForCluster(res.dirent.FirstCluster)
		}

		if flags.Truncate() && !res.dirent.IsDir() {
			if res.dirent.FirstCluster != 0 {
				if _, err := fs.engine.FreeChain(res.dirent.FirstCluster); err != nil {
					return -1, err
				}
				fs.freeMap.Invalidate()
			}
			h.firstCluster = 0
			h.currentCluster = 0
			h.sector = 0
			h.size = 0
			h.metaDirty = true
		}

	default:
		if !flags.Create() {
			return -1, gristle.NewDriverError(gristle.ENOENT)
		}
		now := time.Now().UTC()
		fresh := Dirent{
			Attributes:   fileModeToAttrFlags(mode),
			Created:      now,
			LastModified: now,
			LastAccessed: now,
		}
		h = newHandle(fs, flags, res.parentLoc, 0, 0, res.shortName, fresh, internal)
		// Publish the new entry on Close even if nothing is ever written.
		h.metaDirty = true
	}

	return fs.allocHandle(h)
}

// Close flushes a handle's buffer and directory entry (in that order) and
// releases its descriptor.
func (fs *FS) Close(fd int) error {
	h, err := fs.handleAt(fd)
	if err != nil {
		return err
	}
	closeErr := h.close()
	fs.releaseHandle(fd)
	return closeErr
}

// Read reads into p from the handle's current position.
func (fs *FS) Read(fd int, p []byte) (int, error) {
	h, err := fs.handleAt(fd)
	if err != nil {
		return 0, err
	}
	return h.Read(p)
}

// Write writes p at the handle's current position.
func (fs *FS) Write(fd int, p []byte) (int, error) {
	h, err := fs.handleAt(fd)
	if err != nil {
		return 0, err
	}
	return h.Write(p)
}

// Lseek repositions the handle per io.Seeker's whence values.
func (fs *FS) Lseek(fd int, offset int64, whence int) (int64, error) {
	h, err := fs.handleAt(fd)
	if err != nil {
		return 0, err
	}
	return h.Lseek(offset, whence)
}

// Fstat reports the handle's cached metadata.
func (fs *FS) Fstat(fd int) (gristle.FileStat, error) {
	h, err := fs.handleAt(fd)
	if err != nil {
		return gristle.FileStat{}, err
	}
	mode := attrFlagsToFileMode(h.mode)
	blockSize := int64(fs.boot.BytesPerCluster)
	numBlocks := (h.size + blockSize - 1) / blockSize
	if h.size == 0 {
		numBlocks = 0
	}
	return gristle.FileStat{
		ModeFlags:    mode,
		Size:         h.size,
		BlockSize:    blockSize,
		NumBlocks:    numBlocks,
		CreatedAt:    h.created,
		LastAccessed: h.accessed,
		LastModified: h.modified,
	}, nil
}

// ReadDirNext returns the next live entry in a handle opened on a directory,
// or io.EOF once exhausted. The listing (and "." / ".." if present) is
// snapshotted on the first call.
func (fs *FS) ReadDirNext(fd int) (Dirent, error) {
	h, err := fs.handleAt(fd)
	if err != nil {
		return Dirent{}, err
	}
	if !h.isDir {
		return Dirent{}, gristle.NewDriverError(gristle.ENOTDIR)
	}
	if h.dirEntries == nil {
		entries, err := fs.listDirectory(h.dirLoc)
		if err != nil {
			return Dirent{}, err
		}
		h.dirEntries = entries
	}
	if h.dirPos >= len(h.dirEntries) {
		return Dirent{}, io.EOF
	}
	d := h.dirEntries[h.dirPos]
	h.dirPos++
	return d, nil
}

// Mkdir creates a new, empty subdirectory at path.
func (fs *FS) Mkdir(path string, mode os.FileMode) error {
	res, err := fs.resolvePath(path)
	if err != nil {
		if errors.Is(err, errBadPath) {
			return gristle.NewDriverError(gristle.ENOENT)
		}
		return err
	}
	if res.isRoot || res.found {
		return gristle.NewDriverError(gristle.EEXIST)
	}
	return fs.mkdirAt(res.parentLoc, res.parentCluster, res.shortName, time.Now().UTC())
}

// Rmdir removes the empty subdirectory at path.
func (fs *FS) Rmdir(path string) error {
	res, err := fs.resolvePath(path)
	if err != nil {
		if errors.Is(err, errBadPath) {
			return gristle.NewDriverError(gristle.ENOENT)
		}
		return err
	}
	if res.isRoot || !res.found {
		return gristle.NewDriverError(gristle.ENOENT)
	}
	return fs.rmdirAt(res.parentLoc, res.shortName)
}

// Unlink removes the regular file at path.
func (fs *FS) Unlink(path string) error {
	res, err := fs.resolvePath(path)
	if err != nil {
		if errors.Is(err, errBadPath) {
			return gristle.NewDriverError(gristle.ENOENT)
		}
		return err
	}
	if res.isRoot || !res.found {
		return gristle.NewDriverError(gristle.ENOENT)
	}
	return fs.unlinkAt(res.parentLoc, res.shortName)
}
