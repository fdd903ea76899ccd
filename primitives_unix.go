// SPDX-License-Identifier: MIT

//go:build unix

package capfs

import (
	"time"

	"golang.org/x/sys/unix"
)

// This file holds the unchecked primitives: thin wrappers
// around the *at(2) family that operate on a single path component relative
// to an already-open directory descriptor. None of them perform any
// sandboxing on their own — they trust the caller (the resolver in
// resolve_unix.go, or the openat2 fast path in resolve_openat2_linux.go) to
// have already proven dirfd names a location inside the sandbox and name is
// a single component with no embedded slashes or "..". Calling these
// directly with an attacker-controlled multi-component name defeats the
// sandbox; that is why they are unexported.

// ignoringEINTR runs f in a loop, retrying on EINTR, matching the standard
// library's handling of the same issue (go.dev/issue/11180, go.dev/issue/39237).
func ignoringEINTR(f func() error) error {
	for {
		err := f()
		if err != unix.EINTR {
			return err
		}
	}
}

func openUnchecked(dirfd int, name string, flags int, mode uint32) (int, error) {
	flags |= unix.O_CLOEXEC
	var fd int
	err := ignoringEINTR(func() (err error) {
		fd, err = unix.Openat(dirfd, name, flags, mode)
		return err
	})
	if err != nil {
		return -1, &PathError{Op: "openat", Path: name, Err: err}
	}
	return fd, nil
}

func mkdirUnchecked(dirfd int, name string, mode uint32) error {
	err := ignoringEINTR(func() error { return unix.Mkdirat(dirfd, name, mode) })
	if err != nil {
		return &PathError{Op: "mkdirat", Path: name, Err: err}
	}
	return nil
}

// unlinkUnchecked removes name. If dir is true, AT_REMOVEDIR is set and only
// an empty directory may be removed; otherwise only a non-directory may be.
func unlinkUnchecked(dirfd int, name string, dir bool) error {
	var flags int
	if dir {
		flags |= atRemoveDir
	}
	err := ignoringEINTR(func() error { return unix.Unlinkat(dirfd, name, flags) })
	if err != nil {
		return &PathError{Op: "unlinkat", Path: name, Err: err}
	}
	return nil
}

func renameUnchecked(oldDirfd int, oldName string, newDirfd int, newName string) error {
	err := ignoringEINTR(func() error { return unix.Renameat(oldDirfd, oldName, newDirfd, newName) })
	if err != nil {
		return &LinkError{Op: "renameat", Old: oldName, New: newName, Err: err}
	}
	return nil
}

func linkUnchecked(oldDirfd int, oldName string, newDirfd int, newName string, followOld bool) error {
	var flags int
	if followOld {
		flags |= unix.AT_SYMLINK_FOLLOW
	}
	err := ignoringEINTR(func() error { return unix.Linkat(oldDirfd, oldName, newDirfd, newName, flags) })
	if err != nil {
		return &LinkError{Op: "linkat", Old: oldName, New: newName, Err: err}
	}
	return nil
}

func symlinkUnchecked(target string, dirfd int, name string) error {
	err := ignoringEINTR(func() error { return unix.Symlinkat(target, dirfd, name) })
	if err != nil {
		return &LinkError{Op: "symlinkat", Old: target, New: name, Err: err}
	}
	return nil
}

func readlinkUnchecked(dirfd int, name string) (string, error) {
	for size := 256; ; size *= 2 {
		buf := make([]byte, size)
		var n int
		err := ignoringEINTR(func() (err error) {
			n, err = unix.Readlinkat(dirfd, name, buf)
			return err
		})
		if err != nil {
			return "", &PathError{Op: "readlinkat", Path: name, Err: err}
		}
		if n < size {
			return string(buf[:n]), nil
		}
	}
}

// fstatatUnchecked stats name relative to dirfd. followSymlink controls
// AT_SYMLINK_NOFOLLOW; an empty name with atEmptyPath allows stating dirfd
// itself.
func fstatatUnchecked(dirfd int, name string, followSymlink bool) (unix.Stat_t, error) {
	var st unix.Stat_t
	flags := 0
	if !followSymlink {
		flags |= atSymlinkNoFollow
	}
	if name == "" {
		flags |= atEmptyPath
	}
	err := ignoringEINTR(func() error { return unix.Fstatat(dirfd, name, &st, flags) })
	if err != nil {
		return st, &PathError{Op: "fstatat", Path: name, Err: err}
	}
	return st, nil
}

func fstatUnchecked(fd int) (unix.Stat_t, error) {
	var st unix.Stat_t
	err := unix.Fstat(fd, &st)
	if err != nil {
		return st, NewSyscallError("fstat", err)
	}
	return st, nil
}

func chmodatUnchecked(dirfd int, name string, mode uint32, followSymlink bool) error {
	flags := 0
	if !followSymlink {
		flags |= atSymlinkNoFollow
	}
	err := ignoringEINTR(func() error { return unix.Fchmodat(dirfd, name, mode, flags) })
	if err != nil {
		return &PathError{Op: "fchmodat", Path: name, Err: err}
	}
	return nil
}

func chownatUnchecked(dirfd int, name string, uid, gid int, followSymlink bool) error {
	flags := 0
	if !followSymlink {
		flags |= atSymlinkNoFollow
	}
	err := ignoringEINTR(func() error { return unix.Fchownat(dirfd, name, uid, gid, flags) })
	if err != nil {
		return &PathError{Op: "fchownat", Path: name, Err: err}
	}
	return nil
}

func chtimesatUnchecked(dirfd int, name string, atime, mtime time.Time, followSymlink bool) error {
	flags := 0
	if !followSymlink {
		flags |= atSymlinkNoFollow
	}
	// A zero time leaves that timestamp unchanged (UTIME_OMIT).
	ts := make([]unix.Timespec, 2)
	for i, t := range []time.Time{atime, mtime} {
		if t.IsZero() {
			ts[i] = unix.Timespec{Nsec: unix.UTIME_OMIT}
		} else {
			ts[i] = unix.NsecToTimespec(t.UnixNano())
		}
	}
	err := ignoringEINTR(func() error { return unix.UtimesNanoAt(dirfd, name, ts, flags) })
	if err != nil {
		return &PathError{Op: "utimensat", Path: name, Err: err}
	}
	return nil
}

// syscallMode converts a FileMode into the permission bits expected by
// Unix syscalls, adapted from go/src/os/file_posix.go.
func syscallMode(m FileMode) uint32 {
	mode := uint32(m.Perm())
	if m&ModeSetuid != 0 {
		mode |= unix.S_ISUID
	}
	if m&ModeSetgid != 0 {
		mode |= unix.S_ISGID
	}
	if m&ModeSticky != 0 {
		mode |= unix.S_ISVTX
	}
	return mode
}
