// Package gristle is an embedded, POSIX-style FAT16/FAT32 filesystem engine.
//
// It mounts a volume over an abstract block device (see package blockdev) and
// exposes file and directory operations comparable to those a minimal C
// runtime would call under the hood of open/read/write/lseek/mkdir/rmdir/
// unlink/readdir/fstat. The filesystem engine itself lives in package fat; this
// package holds the pieces shared by every filesystem this module can mount
// (FAT16/32 today, an experimental read-only EXT2 path alongside it): the
// error taxonomy, I/O and mount flags, and the platform-independent stat
// structures.
package gristle

import (
	"fmt"
	"syscall"
)

// DriverError is a wrapper around a POSIX errno code, with an optional
// human-readable message. Every public operation this module exposes returns
// one of these (wrapped in the standard `error` interface) on failure.
type DriverError struct {
	ErrnoCode syscall.Errno
	message   string
}

// Error implements the `error` interface.
func (e *DriverError) Error() string {
	if e.message != "" {
		return e.message
	}
	return e.ErrnoCode.Error()
}

// Errno returns the underlying POSIX error code, for callers that want to
// switch on it directly or use errors.Is(err, syscall.ENOSPC) and friends.
func (e *DriverError) Errno() syscall.Errno {
	return e.ErrnoCode
}

// Is allows errors.Is(err, syscall.ENOENT) to work against a *DriverError.
func (e *DriverError) Is(target error) bool {
	errno, ok := target.(syscall.Errno)
	return ok && errno == e.ErrnoCode
}

// Unwrap exposes the underlying errno so errors.As can retrieve it.
func (e *DriverError) Unwrap() error {
	return e.ErrnoCode
}

// NewDriverError creates a new DriverError with a default message derived from
// the errno code.
func NewDriverError(errnoCode syscall.Errno) *DriverError {
	return &DriverError{ErrnoCode: errnoCode, message: errnoCode.Error()}
}

// NewDriverErrorWithMessage creates a new DriverError from an errno code with a
// custom message.
func NewDriverErrorWithMessage(errnoCode syscall.Errno, message string) *DriverError {
	return &DriverError{
		ErrnoCode: errnoCode,
		message:   fmt.Sprintf("%s: %s", errnoCode.Error(), message),
	}
}

// NewDriverErrorf is like NewDriverErrorWithMessage but with a format string.
func NewDriverErrorf(errnoCode syscall.Errno, format string, args ...interface{}) *DriverError {
	return NewDriverErrorWithMessage(errnoCode, fmt.Sprintf(format, args...))
}

// Common errno values used throughout the engine, aliased here so callers
// don't need to import "syscall" themselves. These map directly onto the
// taxonomy this module's error handling design is built around:
//
//   - Environmental: EIO, EROFS, ENOSPC
//   - Usage: EBADF, ENFILE, ENAMETOOLONG, EINVAL
//   - Namespace: ENOENT, EEXIST, ENOTDIR, EISDIR, ENOTEMPTY, EACCES, EPERM
const (
	EIO          = syscall.EIO
	EROFS        = syscall.EROFS
	ENOSPC       = syscall.ENOSPC
	EBADF        = syscall.EBADF
	ENFILE       = syscall.ENFILE
	ENAMETOOLONG = syscall.ENAMETOOLONG
	EINVAL       = syscall.EINVAL
	ENOENT       = syscall.ENOENT
	EEXIST       = syscall.EEXIST
	ENOTDIR      = syscall.ENOTDIR
	EISDIR       = syscall.EISDIR
	ENOTEMPTY    = syscall.ENOTEMPTY
	EACCES       = syscall.EACCES
	EPERM        = syscall.EPERM
	ERANGE       = syscall.ERANGE
)
