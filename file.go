// SPDX-License-Identifier: MIT

package capfs

import (
	"io"
	iofs "io/fs"

	"golang.org/x/sys/unix"
)

// DirEntry is an entry read from a directory. It carries a back-reference
// to the directory it was read from, so Open/Info on it re-enter the
// resolver on a single-component path instead of re-walking from the root
//.
type DirEntry interface {
	iofs.DirEntry

	// Open opens the entry for reading, re-entering the sandboxed resolver
	// relative to the directory the entry was read from.
	Open() (File, error)
}

// File describes a readable and/or writable file obtained from a Dir.
type File interface {
	// Name returns the name the file was opened with.
	Name() string

	// Stat returns the Metadata describing the file.
	Stat() (Metadata, error)

	// ReadDir reads the contents of the directory associated with f and
	// returns a slice of DirEntry values in directory order. If n > 0, at
	// most n entries are returned; if n <= 0, all remaining entries are
	// returned. At the end of a directory the error is io.EOF (only when
	// n > 0).
	ReadDir(n int) ([]DirEntry, error)

	// Readdirnames is the name-only analog of ReadDir.
	Readdirnames(n int) ([]string, error)

	// Fd returns the integer file descriptor referencing the open file.
	// Because descriptors are reused, the result is valid only until the
	// File is closed.
	Fd() uintptr

	// Truncate changes the size of the file. It does not change the I/O
	// offset.
	Truncate(size int64) error

	io.Closer
	io.Reader
	io.ReaderAt
	io.ReaderFrom
	io.Writer
	io.WriterAt
	io.Seeker
}

// FileMode represents a file's type and Unix permission bits. It reuses
// io/fs's bit layout so values interoperate with the rest of the standard
// library without conversion.
type FileMode = iofs.FileMode

const (
	ModeDir        = iofs.ModeDir
	ModeAppend     = iofs.ModeAppend
	ModeExclusive  = iofs.ModeExclusive
	ModeTemporary  = iofs.ModeTemporary
	ModeSymlink    = iofs.ModeSymlink
	ModeDevice     = iofs.ModeDevice
	ModeNamedPipe  = iofs.ModeNamedPipe
	ModeSocket     = iofs.ModeSocket
	ModeSetuid     = iofs.ModeSetuid
	ModeSetgid     = iofs.ModeSetgid
	ModeCharDevice = iofs.ModeCharDevice
	ModeSticky     = iofs.ModeSticky
	ModeIrregular  = iofs.ModeIrregular
	ModeType       = iofs.ModeType
	ModePerm       = iofs.ModePerm
)

// Open flags accepted by OpenOptions.CustomFlags and used internally by the
// unchecked primitives. These mirror the O_* constants of the host so
// callers porting code from os.OpenFile don't need a translation table.
const (
	O_RDONLY    = unix.O_RDONLY
	O_WRONLY    = unix.O_WRONLY
	O_RDWR      = unix.O_RDWR
	O_APPEND    = unix.O_APPEND
	O_CREATE    = unix.O_CREAT
	O_EXCL      = unix.O_EXCL
	O_SYNC      = unix.O_SYNC
	O_TRUNC     = unix.O_TRUNC
	O_DIRECTORY = unix.O_DIRECTORY
	O_NOFOLLOW  = unix.O_NOFOLLOW
	O_CLOEXEC   = unix.O_CLOEXEC
	O_LARGEFILE = unix.O_LARGEFILE
)

const (
	atSymlinkNoFollow = unix.AT_SYMLINK_NOFOLLOW
	atRemoveDir       = unix.AT_REMOVEDIR
	atEmptyPath       = unix.AT_EMPTY_PATH
)
