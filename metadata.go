// SPDX-License-Identifier: MIT

// Code deriving the Unix field layout was adapted from
// `go/src/os/stat_linux.go` and `go/src/os/types_unix.go`.

package capfs

import (
	"time"

	"golang.org/x/sys/unix"
)

// FileType is a platform-neutral classification of a filesystem entry. It
// is a closed tagged union, not an inheritance
// hierarchy: callers switch on it rather than type-asserting.
type FileType int

const (
	TypeUnknown FileType = iota
	TypeDir
	TypeFile
	TypeSymlink
	TypeBlockDevice
	TypeCharDevice
	TypeFifo
	TypeSocket
	// TypeSymlinkDir and TypeSymlinkFile distinguish the target kind a
	// symlink was created against, which only a handful of backends (e.g.
	// Windows reparse points) track at creation time. On Unix backends a
	// symlink is always reported as TypeSymlink; these two variants exist
	// so cross-platform callers have somewhere to match them.
	TypeSymlinkDir
	TypeSymlinkFile
)

func (t FileType) String() string {
	switch t {
	case TypeDir:
		return "dir"
	case TypeFile:
		return "file"
	case TypeSymlink, TypeSymlinkDir, TypeSymlinkFile:
		return "symlink"
	case TypeBlockDevice:
		return "block_device"
	case TypeCharDevice:
		return "char_device"
	case TypeFifo:
		return "fifo"
	case TypeSocket:
		return "socket"
	default:
		return "unknown"
	}
}

func (t FileType) IsDir() bool     { return t == TypeDir }
func (t FileType) IsFile() bool    { return t == TypeFile }
func (t FileType) IsSymlink() bool { return t == TypeSymlink || t == TypeSymlinkDir || t == TypeSymlinkFile }

func fileTypeFromMode(mode uint32) FileType {
	switch mode & unix.S_IFMT {
	case unix.S_IFDIR:
		return TypeDir
	case unix.S_IFREG:
		return TypeFile
	case unix.S_IFLNK:
		return TypeSymlink
	case unix.S_IFBLK:
		return TypeBlockDevice
	case unix.S_IFCHR:
		return TypeCharDevice
	case unix.S_IFIFO:
		return TypeFifo
	case unix.S_IFSOCK:
		return TypeSocket
	default:
		return TypeUnknown
	}
}

// Permissions is a platform-neutral permissions value. It owns no OS
// resource and can be compared or stored freely.
type Permissions struct {
	readonly bool
	// mode holds the low 12 bits (permission + setuid/setgid/sticky) on
	// Unix; it is meaningless on platforms without a Unix mode concept.
	mode uint32
}

// Readonly reports whether the permissions deny writing. On Unix this is
// derived from the absence of any write bit.
func (p Permissions) Readonly() bool { return p.readonly }

// Mode returns the Unix permission bits (masked to the low 12 bits) and
// whether this Permissions value carries Unix semantics at all.
func (p Permissions) Mode() (uint32, bool) { return p.mode & 0o7777, true }

func permissionsFromMode(mode uint32) Permissions {
	return Permissions{
		readonly: mode&0o222 == 0,
		mode:     mode & 0o7777,
	}
}

// Metadata is a read-only snapshot of a filesystem entry's attributes
//. It is obtained via Dir.Stat, Dir.Lstat, or
// File.Stat, never constructed directly by callers.
type Metadata struct {
	name        string
	fileType    FileType
	len         int64
	permissions Permissions
	modified    time.Time
	accessed    time.Time
	created     time.Time
	hasCreated  bool
	sys         unix.Stat_t
}

func (m Metadata) Name() string            { return m.name }
func (m Metadata) FileType() FileType      { return m.fileType }
func (m Metadata) Len() int64              { return m.len }
func (m Metadata) Permissions() Permissions { return m.permissions }
func (m Metadata) IsDir() bool             { return m.fileType == TypeDir }

// Modified, Accessed, and Created return the corresponding timestamp. Created
// always reports ok=false: the creation (birth) time is not read from
// stat(2), which on Linux generally does not carry one.
func (m Metadata) Modified() time.Time { return m.modified }
func (m Metadata) Accessed() time.Time { return m.accessed }
func (m Metadata) Created() (time.Time, bool) { return m.created, m.hasCreated }

// Dev and Ino are the platform extension used by SameFile.
func (m Metadata) Dev() uint64 { return uint64(m.sys.Dev) }
func (m Metadata) Ino() uint64 { return uint64(m.sys.Ino) }

func (m Metadata) Nlink() uint64 { return uint64(m.sys.Nlink) }
func (m Metadata) Uid() uint32   { return m.sys.Uid }
func (m Metadata) Gid() uint32   { return m.sys.Gid }
func (m Metadata) Rdev() uint64  { return uint64(m.sys.Rdev) }
func (m Metadata) Blksize() int64 { return int64(m.sys.Blksize) }
func (m Metadata) Blocks() int64  { return m.sys.Blocks }

// Sys exposes the raw platform stat structure for callers that need it.
func (m Metadata) Sys() *unix.Stat_t { return &m.sys }

// SameFile implements the same-file predicate: two
// metadata snapshots name the same filesystem object iff their (device,
// inode) pairs are equal. Nothing in this package calls it; it is exported
// because embedding applications commonly need it to detect hardlink or rename
// aliasing (cap-primitives/src/fs/assert_same_file.rs in the original).
func SameFile(a, b Metadata) bool {
	return a.Dev() == b.Dev() && a.Ino() == b.Ino()
}

func metadataFromStat(name string, st *unix.Stat_t) Metadata {
	m := Metadata{
		name:        name,
		fileType:    fileTypeFromMode(st.Mode),
		len:         st.Size,
		permissions: permissionsFromMode(st.Mode),
		modified:    time.Unix(st.Mtim.Unix()),
		accessed:    time.Unix(st.Atim.Unix()),
		sys:         *st,
	}
	return m
}

// fileStat adapts Metadata to io/fs.FileInfo so values returned from this
// package interoperate with code written against the standard library
// (io/fs.WalkDir callbacks, io/fs.FileInfoToDirEntry, etc).
type fileStat struct{ m Metadata }

var _ FileInfo = fileStat{}

func (fs fileStat) Name() string       { return fs.m.name }
func (fs fileStat) Size() int64        { return fs.m.len }
func (fs fileStat) ModTime() time.Time { return fs.m.modified }
func (fs fileStat) Sys() any           { return fs.m.Sys() }
func (fs fileStat) IsDir() bool        { return fs.m.IsDir() }

func (fs fileStat) Mode() FileMode {
	mode := FileMode(fs.m.sys.Mode & 0o777)
	switch fs.m.sys.Mode & unix.S_IFMT {
	case unix.S_IFBLK:
		mode |= ModeDevice
	case unix.S_IFCHR:
		mode |= ModeDevice | ModeCharDevice
	case unix.S_IFDIR:
		mode |= ModeDir
	case unix.S_IFIFO:
		mode |= ModeNamedPipe
	case unix.S_IFLNK:
		mode |= ModeSymlink
	case unix.S_IFSOCK:
		mode |= ModeSocket
	}
	if fs.m.sys.Mode&unix.S_ISGID != 0 {
		mode |= ModeSetgid
	}
	if fs.m.sys.Mode&unix.S_ISUID != 0 {
		mode |= ModeSetuid
	}
	if fs.m.sys.Mode&unix.S_ISVTX != 0 {
		mode |= ModeSticky
	}
	return mode
}

// FileInfo is an alias of io/fs.FileInfo kept for callers migrating from
// os/io-fs based code; prefer Metadata for new code.
type FileInfo = interface {
	Name() string
	Size() int64
	Mode() FileMode
	ModTime() time.Time
	IsDir() bool
	Sys() any
}

// ToFileInfo adapts a Metadata value to the standard library's
// io/fs.FileInfo interface.
func (m Metadata) ToFileInfo() FileInfo { return fileStat{m} }
