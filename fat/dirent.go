package fat

import (
	"encoding/binary"
	"os"
	"time"
)

// Directory entry attribute flags. AttrLongName is the combination LFN
// entries set to distinguish themselves from anything a pre-LFN reader
// would otherwise try to interpret as a short entry.
const (
	AttrReadOnly    = 0x01
	AttrHidden      = 0x02
	AttrSystem      = 0x04
	AttrVolumeLabel = 0x08
	AttrDirectory   = 0x10
	AttrArchive     = 0x20
	AttrDevice      = 0x40
	AttrReserved    = 0x80
	AttrLongName    = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeLabel
)

// nameDeletedMarker is the byte a directory entry's name starts with once
// the entry has been deleted. nameFreeMarker marks an entry (and everything
// after it in the directory) as never having been used.
const (
	nameDeletedMarker byte = 0xE5
	nameFreeMarker    byte = 0x00
	// nameDeletedMarkerEscape is what a real filename byte of 0xE5 is
	// remapped to on disk, so it never collides with nameDeletedMarker.
	nameDeletedMarkerEscape byte = 0x05
)

// RawDirent is the on-disk layout of a 32-byte directory entry.
type RawDirent struct {
	Name              [8]byte
	Extension         [3]byte
	AttributeFlags    uint8
	NTReserved        uint8
	CreatedTimeTenths uint8
	CreatedTime       uint16
	CreatedDate       uint16
	LastAccessedDate  uint16
	FirstClusterHigh  uint16
	LastModifiedTime  uint16
	LastModifiedDate  uint16
	FirstClusterLow   uint16
	FileSize          uint32
}

// Dirent is the user-facing form of a directory entry.
type Dirent struct {
	name         string
	Attributes   uint8
	Created      time.Time
	LastAccessed time.Time
	LastModified time.Time
	FirstCluster ClusterID
	size         int64
	mode         os.FileMode
}

func (d *Dirent) Name() string      { return d.name }
func (d *Dirent) Size() int64       { return d.size }
func (d *Dirent) Mode() os.FileMode { return d.mode }
func (d *Dirent) ModTime() time.Time { return d.LastModified }
func (d *Dirent) IsDir() bool       { return d.mode.IsDir() }
func (d *Dirent) Sys() interface{}  { return nil }

// attrFlagsToFileMode maps FAT attribute flags to Go's os.FileMode. FAT has
// no notion of an executable bit for regular files; directories get the
// traversal bit set since Unix requires it for traversal.
func attrFlagsToFileMode(flags uint8) os.FileMode {
	if flags&AttrDirectory != 0 {
		return os.ModeDir | 0o111
	}
	if flags&AttrReadOnly != 0 {
		return 0o444
	}
	return 0o666
}

// fileModeToAttrFlags is the inverse of attrFlagsToFileMode, used when
// creating a new entry.
func fileModeToAttrFlags(mode os.FileMode) uint8 {
	var flags uint8
	if mode.IsDir() {
		flags |= AttrDirectory
	}
	if mode&0o222 == 0 {
		flags |= AttrReadOnly
	}
	return flags
}

// decodeRawDirent parses one 32-byte slot. data must be exactly DirentSize
// bytes.
func decodeRawDirent(data []byte) RawDirent {
	var raw RawDirent
	copy(raw.Name[:], data[0:8])
	copy(raw.Extension[:], data[8:11])
	raw.AttributeFlags = data[11]
	raw.NTReserved = data[12]
	raw.CreatedTimeTenths = data[13]
	raw.CreatedTime = binary.LittleEndian.Uint16(data[14:16])
	raw.CreatedDate = binary.LittleEndian.Uint16(data[16:18])
	raw.LastAccessedDate = binary.LittleEndian.Uint16(data[18:20])
	raw.FirstClusterHigh = binary.LittleEndian.Uint16(data[20:22])
	raw.LastModifiedTime = binary.LittleEndian.Uint16(data[22:24])
	raw.LastModifiedDate = binary.LittleEndian.Uint16(data[24:26])
	raw.FirstClusterLow = binary.LittleEndian.Uint16(data[26:28])
	raw.FileSize = binary.LittleEndian.Uint32(data[28:32])
	return raw
}

// encodeRawDirent serializes raw into a 32-byte slot.
func encodeRawDirent(raw RawDirent) []byte {
	data := make([]byte, DirentSize)
	copy(data[0:8], raw.Name[:])
	copy(data[8:11], raw.Extension[:])
	data[11] = raw.AttributeFlags
	data[12] = raw.NTReserved
	data[13] = raw.CreatedTimeTenths
	binary.LittleEndian.PutUint16(data[14:16], raw.CreatedTime)
	binary.LittleEndian.PutUint16(data[16:18], raw.CreatedDate)
	binary.LittleEndian.PutUint16(data[18:20], raw.LastAccessedDate)
	binary.LittleEndian.PutUint16(data[20:22], raw.FirstClusterHigh)
	binary.LittleEndian.PutUint16(data[22:24], raw.LastModifiedTime)
	binary.LittleEndian.PutUint16(data[24:26], raw.LastModifiedDate)
	binary.LittleEndian.PutUint16(data[26:28], raw.FirstClusterLow)
	binary.LittleEndian.PutUint32(data[28:32], raw.FileSize)
	return data
}

// direntFromRaw converts a decoded raw slot into the user-facing Dirent.
// Returns ok=false for slots that are free, deleted, LFN continuations, or
// volume labels — none of those are real files or directories a caller
// should see.
func direntFromRaw(raw RawDirent) (Dirent, bool) {
	if raw.Name[0] == nameFreeMarker {
		return Dirent{}, false
	}
	if raw.Name[0] == nameDeletedMarker {
		return Dirent{}, false
	}
	if raw.AttributeFlags&AttrLongName == AttrLongName {
		return Dirent{}, false
	}
	if raw.AttributeFlags&AttrVolumeLabel != 0 {
		return Dirent{}, false
	}

	name := raw.Name
	if name[0] == nameDeletedMarkerEscape {
		name[0] = nameDeletedMarker
	}

	var shortName [11]byte
	copy(shortName[0:8], name[:])
	copy(shortName[8:11], raw.Extension[:])

	d := Dirent{
		name:         fatNameToStr(shortName),
		Attributes:   raw.AttributeFlags,
		LastAccessed: dateFromWord(raw.LastAccessedDate),
		LastModified: timestampFromWords(raw.LastModifiedDate, raw.LastModifiedTime, 0),
		Created:      timestampFromWords(raw.CreatedDate, raw.CreatedTime, raw.CreatedTimeTenths),
		FirstCluster: ClusterID(uint32(raw.FirstClusterHigh)<<16 | uint32(raw.FirstClusterLow)),
		size:         int64(raw.FileSize),
		mode:         attrFlagsToFileMode(raw.AttributeFlags),
	}
	return d, true
}

// rawDirentFor builds the on-disk slot for a new entry with the given short
// name, mode, and first cluster. size is ignored for directories (FAT always
// stores 0 there).
func rawDirentFor(shortName [11]byte, mode os.FileMode, firstCluster ClusterID, size int64, now time.Time) RawDirent {
	datePart, timePart, tenths := timestampToWords(now)

	var fileSize uint32
	if !mode.IsDir() {
		fileSize = uint32(size)
	}

	raw := RawDirent{
		AttributeFlags:    fileModeToAttrFlags(mode),
		CreatedTimeTenths: tenths,
		CreatedTime:       timePart,
		CreatedDate:       datePart,
		LastAccessedDate:  datePart,
		LastModifiedTime:  timePart,
		LastModifiedDate:  datePart,
		FirstClusterHigh:  uint16(uint32(firstCluster) >> 16),
		FirstClusterLow:   uint16(uint32(firstCluster) & 0xFFFF),
		FileSize:          fileSize,
	}
	copy(raw.Name[:], shortName[0:8])
	copy(raw.Extension[:], shortName[8:11])
	return raw
}

// updateRawDirent refreshes an existing slot's mutable fields (cluster, size,
// modified and accessed stamps) while leaving its name, attributes, and
// creation stamp untouched.
func updateRawDirent(raw RawDirent, firstCluster ClusterID, size int64, modified, accessed time.Time) RawDirent {
	datePart, timePart, _ := timestampToWords(modified)
	raw.LastModifiedDate = datePart
	raw.LastModifiedTime = timePart
	raw.LastAccessedDate = dateToWord(accessed)
	raw.FirstClusterHigh = uint16(uint32(firstCluster) >> 16)
	raw.FirstClusterLow = uint16(uint32(firstCluster) & 0xFFFF)
	if raw.AttributeFlags&AttrDirectory == 0 {
		raw.FileSize = uint32(size)
	}
	return raw
}
