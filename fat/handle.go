package fat

import (
	"errors"
	"io"
	"time"

	"github.com/hairymnstr/gristle"
)

// Handle is an open file or directory: a positional read/write state
// machine reduced to Go idiom (explicit error returns instead of an
// out-parameter errno, a single buffer slice instead of a fixed C array).
//
// The buffer/cursor/sectors_remaining bookkeeping here mirrors the per-handle
// fields a file_num[] table keeps in a sector-at-a-time driver: each handle
// owns one sector-sized scratch buffer rather than going through a shared
// block cache, since an embedded caller with a handful of open files at once
// doesn't benefit from cache contention bookkeeping the way a general-purpose
// filesystem driver would.
type Handle struct {
	fs    *FS
	flags gristle.IOFlags
	isDir bool

	parentLoc   dirLocation
	entrySector SectorID // 0 until the directory entry is first flushed
	entryOffset uint

	shortName [11]byte
	mode      fileModeBits

	firstCluster   ClusterID // 0 until the first cluster is allocated
	currentCluster ClusterID
	clusterIndex   uint64 // 0-based index of currentCluster within the chain

	sector           SectorID // LBA currently loaded in buf; 0 means unpositioned
	sectorsRemaining uint     // sectors left in currentCluster after sector
	cursor           uint     // byte offset within buf, 0..BytesPerSector
	fileSector       uint64   // 0-based sector index within the file's data stream
	buf              []byte

	size                         int64
	created, modified, accessed time.Time

	dirty     bool // buf differs from what's on disk
	metaDirty bool // size/cluster/timestamps differ from the directory entry on disk

	// Directory-iteration state for ReadDirNext. Populated lazily on first
	// use; dirLoc is meaningless unless isDir is true.
	dirLoc     dirLocation
	dirEntries []Dirent
	dirPos     int

	// internalCall suppresses EISDIR when a directory is opened with write
	// flags (openAt's internal parameter). mkdirAt does not use it: it writes
	// "." and ".." through the engine directly.
	internalCall bool
}

// fileModeBits mirrors the subset of os.FileMode this package cares about,
// kept distinct from os.FileMode so a caller can't smuggle bits FAT has no
// representation for into a directory entry.
type fileModeBits = uint8

func newHandle(fs *FS, flags gristle.IOFlags, parentLoc dirLocation, entrySector SectorID, entryOffset uint, shortName [11]byte, d Dirent, internalCall bool) *Handle {
	return &Handle{
		fs:           fs,
		flags:        flags,
		isDir:        d.IsDir(),
		parentLoc:    parentLoc,
		entrySector:  entrySector,
		entryOffset:  entryOffset,
		shortName:    shortName,
		mode:         d.Attributes,
		firstCluster: d.FirstCluster,
		size:         d.Size(),
		created:      d.Created,
		modified:     d.LastModified,
		accessed:     d.LastAccessed,
		internalCall: internalCall,
	}
}

func (h *Handle) fileOffset() int64 {
	return int64(h.fileSector)*int64(h.fs.boot.BytesPerSector) + int64(h.cursor)
}

func (h *Handle) loadSector(sector SectorID) error {
	buf, err := h.fs.engine.readSector(sector)
	if err != nil {
		return err
	}
	h.buf = buf
	h.sector = sector
	h.cursor = 0
	return nil
}

// positionAtFirstCluster loads the first sector of the handle's own first
// cluster. A handle whose firstCluster is still 0 (never written to) is left
// unpositioned; Read sees this as an empty file, Write allocates on demand.
func (h *Handle) positionAtFirstCluster() error {
	if h.firstCluster == 0 {
		return nil
	}
	h.currentCluster = h.firstCluster
	h.clusterIndex = 0
	h.sectorsRemaining = h.fs.boot.SectorsPerCluster - 1
	h.fileSector = 0
	return h.loadSector(h.fs.clusterFirstSector(h.firstCluster))
}

// nextSector flushes a dirty buffer, then advances to the following sector,
// crossing into the next cluster (optionally allocating one) when the
// current cluster is exhausted. Returns io.EOF when the chain ends and
// allowExtend is false.
func (h *Handle) nextSector(allowExtend bool) error {
	if h.dirty {
		if err := h.fs.engine.writeSector(h.sector, h.buf); err != nil {
			return err
		}
		h.dirty = false
	}

	if h.sectorsRemaining > 0 {
		h.sectorsRemaining--
		h.fileSector++
		return h.loadSector(h.sector + 1)
	}

	next, err := h.fs.engine.NextCluster(h.currentCluster, allowExtend)
	if err != nil {
		return err
	}
	h.currentCluster = next
	h.clusterIndex++
	h.sectorsRemaining = h.fs.boot.SectorsPerCluster - 1
	h.fileSector++
	return h.loadSector(h.fs.clusterFirstSector(next))
}

// Read copies up to len(p) bytes starting at the handle's current position,
// stopping at end of file (regular files) or end of chain (directories,
// whose logical size is always 0). Returns (0, io.EOF) only when no bytes
// were available at all.
func (h *Handle) Read(p []byte) (int, error) {
	if !h.flags.Readable() {
		return 0, gristle.NewDriverError(gristle.EBADF)
	}
	if h.sector == 0 {
		if h.firstCluster == 0 {
			return 0, io.EOF
		}
		if err := h.positionAtFirstCluster(); err != nil {
			return 0, err
		}
	}

	bytesPerSector := h.fs.boot.BytesPerSector
	n := 0
	for n < len(p) {
		if !h.isDir && h.fileOffset() >= h.size {
			break
		}
		if h.cursor == bytesPerSector {
			if err := h.nextSector(false); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return n, err
			}
		}

		avail := bytesPerSector - h.cursor
		toCopy := avail
		if remaining := uint(len(p) - n); remaining < toCopy {
			toCopy = remaining
		}
		if !h.isDir {
			if remainingInFile := uint(h.size - h.fileOffset()); remainingInFile < toCopy {
				toCopy = remainingInFile
			}
		}
		if toCopy == 0 {
			break
		}

		copy(p[n:n+int(toCopy)], h.buf[h.cursor:h.cursor+toCopy])
		h.cursor += toCopy
		n += int(toCopy)
	}

	if n > 0 {
		h.touchAccessTime()
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// touchAccessTime marks MetaDirty only if today's date differs from the
// stored access date — FAT only stores access date at one-day resolution,
// so a same-day read needn't dirty the entry at all.
func (h *Handle) touchAccessTime() {
	now := time.Now().UTC()
	if sameDay(now, h.accessed) {
		return
	}
	h.accessed = now
	h.metaDirty = true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Write copies len(p) bytes into the file starting at the current position,
// allocating clusters as needed and extending size. Append-mode handles seek
// to end-of-file first.
func (h *Handle) Write(p []byte) (int, error) {
	if !h.flags.Writable() {
		return 0, gristle.NewDriverError(gristle.EBADF)
	}
	if len(p) == 0 {
		return 0, nil
	}
	if h.flags.Append() {
		if _, err := h.Lseek(0, io.SeekEnd); err != nil {
			return 0, err
		}
	}

	if h.sector == 0 {
		targetSector, targetCursor := h.fileSector, h.cursor
		if h.firstCluster == 0 {
			newCluster, err := h.fs.freeMap.Allocate()
			if err != nil {
				return 0, err
			}
			if err := h.fs.zeroCluster(newCluster); err != nil {
				return 0, err
			}
			h.firstCluster = newCluster
			h.metaDirty = true
		}
		if err := h.positionAtFirstCluster(); err != nil {
			return 0, err
		}
		// Walk forward to a position Lseek recorded before anything was
		// allocated.
		for h.fileSector < targetSector {
			if err := h.nextSector(true); err != nil {
				return 0, err
			}
		}
		h.cursor = targetCursor
	}

	bytesPerSector := h.fs.boot.BytesPerSector
	n := 0
	for n < len(p) {
		if h.cursor == bytesPerSector {
			if err := h.nextSector(true); err != nil {
				return n, err
			}
		}

		avail := bytesPerSector - h.cursor
		toCopy := avail
		if remaining := uint(len(p) - n); remaining < toCopy {
			toCopy = remaining
		}

		copy(h.buf[h.cursor:h.cursor+toCopy], p[n:n+int(toCopy)])
		h.cursor += toCopy
		h.dirty = true
		n += int(toCopy)

		if off := h.fileOffset(); off > h.size {
			h.size = off
			h.metaDirty = true
		}
	}

	h.modified = time.Now().UTC()
	h.metaDirty = true
	return n, nil
}

// Lseek repositions the handle. Same-cluster seeks (which include
// same-sector seeks) just recompute the sector within the already-loaded
// cluster; a seek into a different cluster restarts from the first cluster
// and walks the chain.
func (h *Handle) Lseek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = h.fileOffset() + offset
	case io.SeekEnd:
		target = h.size + offset
	default:
		return 0, gristle.NewDriverError(gristle.EINVAL)
	}
	if target < 0 {
		return 0, gristle.NewDriverError(gristle.EINVAL)
	}

	if h.dirty {
		if err := h.fs.engine.writeSector(h.sector, h.buf); err != nil {
			return 0, err
		}
		h.dirty = false
	}

	bytesPerSector := uint64(h.fs.boot.BytesPerSector)
	sectorsPerCluster := uint64(h.fs.boot.SectorsPerCluster)
	targetSector := uint64(target) / bytesPerSector
	targetCursor := uint(uint64(target) % bytesPerSector)
	targetClusterIndex := targetSector / sectorsPerCluster
	targetSectorInCluster := uint(targetSector % sectorsPerCluster)

	if h.firstCluster == 0 {
		// Nothing allocated yet: record where we'd be: Write will allocate
		// and walk forward from there on the next call.
		h.sector = 0
		h.fileSector = targetSector
		h.cursor = targetCursor
		return target, nil
	}

	if h.sector != 0 && targetClusterIndex == h.clusterIndex {
		first := h.fs.clusterFirstSector(h.currentCluster)
		if err := h.loadSector(first + SectorID(targetSectorInCluster)); err != nil {
			return 0, err
		}
		h.sectorsRemaining = h.fs.boot.SectorsPerCluster - 1 - targetSectorInCluster
		h.fileSector = targetSector
		h.cursor = targetCursor
		return target, nil
	}

	if err := h.positionAtFirstCluster(); err != nil {
		return 0, err
	}
	for h.clusterIndex < targetClusterIndex || h.fileSector < targetSector {
		if err := h.nextSector(h.flags.Writable()); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, err
		}
	}
	h.cursor = targetCursor
	return target, nil
}

// flushBuffer writes back a dirty buffer. This always runs (and so always
// reaches disk) before flushEntry, so a directory entry is never published
// pointing at a cluster that doesn't yet hold the data it claims.
func (h *Handle) flushBuffer() error {
	if !h.dirty {
		return nil
	}
	if err := h.fs.engine.writeSector(h.sector, h.buf); err != nil {
		return err
	}
	buf, err := h.fs.engine.readSector(h.sector)
	if err != nil {
		return err
	}
	h.buf = buf
	h.dirty = false
	return nil
}

// flushEntry publishes cached size/cluster/timestamp fields to the directory
// entry, finding a free slot on first flush for a brand-new file.
func (h *Handle) flushEntry() error {
	if !h.metaDirty {
		return nil
	}

	if h.entrySector == 0 {
		slot, err := h.fs.findOrCreateSlot(h.parentLoc)
		if err != nil {
			return err
		}
		h.entrySector = slot.Sector
		h.entryOffset = slot.Offset
		raw := rawDirentFor(h.shortName, attrFlagsToFileMode(h.mode), h.firstCluster, h.size, h.modified)
		if err := h.fs.writeSlot(dirSlot{Sector: h.entrySector, Offset: h.entryOffset, Raw: raw}); err != nil {
			return err
		}
		h.metaDirty = false
		return nil
	}

	buf, err := h.fs.engine.readSector(h.entrySector)
	if err != nil {
		return err
	}
	existing := decodeRawDirent(buf[h.entryOffset : h.entryOffset+DirentSize])
	updated := updateRawDirent(existing, h.firstCluster, h.size, h.modified, h.accessed)
	if err := h.fs.writeSlot(dirSlot{Sector: h.entrySector, Offset: h.entryOffset, Raw: updated}); err != nil {
		return err
	}
	h.metaDirty = false
	return nil
}

// close flushes the buffer, then the directory entry, in that order. The
// caller (FS.Close) is responsible for releasing the handle table slot
// afterward.
func (h *Handle) close() error {
	if err := h.flushBuffer(); err != nil {
		return err
	}
	return h.flushEntry()
}
