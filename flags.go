package gristle

// File attribute bits, POSIX st_mode-compatible. FAT has no concept of most
// of these (no execute bit, no setuid, no group/other distinctions) but the
// engine's FileStat still reports modes built from this vocabulary so
// callers can use os.FileMode-style checks.
const (
	S_IXOTH = 1 << iota
	S_IWOTH
	S_IROTH
	S_IXGRP
	S_IWGRP
	S_IRGRP
	S_IXUSR
	S_IWUSR
	S_IRUSR
	S_ISVTX
	S_ISGID
	S_ISUID
	S_IFDIR = 0o040000
	S_IFREG = 0o100000
)

const (
	S_IEXEC  = S_IXUSR
	S_IWRITE = S_IWUSR
	S_IREAD  = S_IRUSR

	S_IRWXO = S_IXOTH | S_IWOTH | S_IROTH
	S_IRWXG = S_IXGRP | S_IWGRP | S_IRGRP
	S_IRWXU = S_IXUSR | S_IWUSR | S_IRUSR
)

// IOFlags mirrors the open(2) flag bits relevant to this filesystem. Go's
// standard library has os.O_* for this purpose, but those are defined in
// terms of the host OS's open(2), not in terms of a POSIX-style value an
// embedded caller can build up bit by bit independent of the host — so this
// module defines its own.
type IOFlags int

const (
	O_RDONLY IOFlags = 0
	O_WRONLY IOFlags = 1 << iota
	O_RDWR
	O_APPEND
	O_CREAT
	O_EXCL
	O_TRUNC
)

// AccessMode returns the read/write access mode bits only (O_RDONLY,
// O_WRONLY, or O_RDWR), discarding the other flags.
func (f IOFlags) AccessMode() IOFlags {
	return f & (O_WRONLY | O_RDWR)
}

func (f IOFlags) Readable() bool {
	mode := f.AccessMode()
	return mode == O_RDONLY || mode == O_RDWR
}

func (f IOFlags) Writable() bool {
	mode := f.AccessMode()
	return mode == O_WRONLY || mode == O_RDWR
}

func (f IOFlags) Append() bool {
	return f&O_APPEND != 0
}

func (f IOFlags) Create() bool {
	return f&O_CREAT != 0
}

func (f IOFlags) Exclusive() bool {
	return f&O_EXCL != 0
}

func (f IOFlags) Truncate() bool {
	return f&O_TRUNC != 0
}

// RequiresWritePerm reports whether these flags need the underlying volume to
// be mounted with write permission.
func (f IOFlags) RequiresWritePerm() bool {
	return f.Writable() || f.Create() || f.Truncate()
}

// MountFlags controls what a mounted volume allows a caller to do. Trimmed
// to the permissions this module's non-goals leave meaningful (no
// "administer" bit: this engine has no permission model beyond a single
// read-only bit).
type MountFlags int

const (
	MountFlagsAllowRead = MountFlags(1 << iota)
	MountFlagsAllowWrite
	MountFlagsPreserveTimestamps
)

const MountFlagsAllowReadWrite = MountFlagsAllowRead | MountFlagsAllowWrite

func (flags MountFlags) CanRead() bool {
	return flags&MountFlagsAllowRead != 0
}

func (flags MountFlags) CanWrite() bool {
	return flags&MountFlagsAllowWrite != 0
}

func (flags MountFlags) PreservesTimestamps() bool {
	return flags&MountFlagsPreserveTimestamps != 0
}
