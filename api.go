package gristle

import (
	"os"
	"time"
)

// FileStat is a platform-independent form of [syscall.Stat_t], returned by
// fstat-equivalent calls. Trimmed of the ownership/link fields this module's
// non-goals (permissions beyond a read-only bit, hard links) make
// meaningless.
type FileStat struct {
	InodeNumber  uint64
	ModeFlags    os.FileMode
	Size         int64
	BlockSize    int64
	NumBlocks    int64
	CreatedAt    time.Time
	LastAccessed time.Time
	LastModified time.Time
}

func (stat *FileStat) IsDir() bool  { return stat.ModeFlags.IsDir() }
func (stat *FileStat) IsFile() bool { return stat.ModeFlags.IsRegular() }

// FSStat is a platform-independent form of [syscall.Statfs_t].
type FSStat struct {
	BlockSize       int64
	TotalBlocks     uint64
	BlocksFree      uint64
	BlocksAvailable uint64
	Files           uint64
	FilesFree       uint64
	FileSystemID    uint64
	MaxNameLength   int64
	Label           string
}

// Config carries tunables that would otherwise be build-time #defines as
// runtime fields instead, passed to Mount() like MountFlags rather than
// baked in at compile time. Zero value is not valid; use DefaultConfig().
type Config struct {
	// MaxOpenFiles bounds the handle table size. Default 4.
	MaxOpenFiles int
	// MaxPathLen bounds the length, in bytes, of a path passed to Open et al.
	// Default 256.
	MaxPathLen int
	// MaxPathLevels bounds the number of '/'-delimited components in a path.
	// Default 20.
	MaxPathLevels int
	// ReadOnly forces every mutating operation to fail with EROFS, regardless
	// of the block device's own ReadOnly() state.
	ReadOnly bool
}

// DefaultConfig returns the engine's default tunables.
func DefaultConfig() Config {
	return Config{
		MaxOpenFiles:  4,
		MaxPathLen:    256,
		MaxPathLevels: 20,
	}
}
