// SPDX-License-Identifier: MIT

package capfs

import (
	"errors"
	iofs "io/fs"
	"os"

	"golang.org/x/sys/unix"
)

var (
	// ErrIsDirectory is returned when an operation that operates only on
	// files is given a path to a directory.
	ErrIsDirectory = errors.New("is a directory")
	// ErrNotDirectory is returned when an operation that operates only on
	// directories is given a path to a file.
	ErrNotDirectory = errors.New("not a directory")
	// ErrBadPathResolution is the single, deliberately uninformative error
	// returned for every kind of sandbox escape attempt: a ".." that would
	// rise above the handle it was opened from, a path with an absolute
	// prefix, a symlink target that resolves outside the sandbox, or a
	// kernel EXDEV from a resolve-beneath primitive. Callers must not be
	// able to distinguish which of these occurred; doing so would leak
	// information about the host filesystem layout outside the sandbox.
	ErrBadPathResolution = errors.New("a path led outside of the filesystem")
	// ErrTooManySymlinks is returned once the number of symlinks expanded
	// while resolving a single path exceeds the platform cap.
	ErrTooManySymlinks = errors.New("too many levels of symbolic links")
	// ErrIsSymlink is returned when OpenOptions.Follow is FollowNo and the
	// final path component names a symbolic link.
	ErrIsSymlink = errors.New("final component is a symbolic link")
	// ErrNotRegular is returned when an operation that operates only on
	// regular files is passed something else.
	ErrNotRegular = errors.New("not a regular file")

	// ErrClosed is returned when an entry or Dir is used after Close.
	ErrClosed = iofs.ErrClosed
	// ErrInvalid is returned for caller usage errors, such as invalid
	// OpenOptions combinations.
	ErrInvalid = iofs.ErrInvalid
	// ErrExist is returned when an entry that must not exist already does.
	ErrExist = iofs.ErrExist
	// ErrNotExist is returned when a required entry does not exist.
	ErrNotExist = iofs.ErrNotExist
	// ErrPermission is returned when the host denies the operation.
	ErrPermission = iofs.ErrPermission
)

// LinkError records an error during a link, symlink, or rename operation,
// and the paths that caused it.
type LinkError = os.LinkError

// PathError records an error and the operation and path that caused it.
type PathError = iofs.PathError

// SyscallError records an error from a specific system call.
type SyscallError = os.SyscallError

// NewSyscallError returns, as an error, a new SyscallError with the given
// system call name and error details. If err is nil, it returns nil.
func NewSyscallError(syscall string, err error) error {
	return os.NewSyscallError(syscall, err)
}

// convertErrorType normalizes platform-specific errno values surfaced by
// the unchecked primitives into the kind set this package promises
// callers. This is the single chokepoint where ELOOP/EMLINK/
// EFTYPE-style platform divergence gets collapsed to one vocabulary.
func convertErrorType(err error) error {
	if err == nil {
		return nil
	}
	var pErr *PathError
	if errors.As(err, &pErr) {
		switch {
		case errors.Is(pErr.Err, unix.EEXIST):
			return &PathError{Op: pErr.Op, Path: pErr.Path, Err: ErrExist}
		case errors.Is(pErr.Err, unix.EISDIR):
			return &PathError{Op: pErr.Op, Path: pErr.Path, Err: ErrIsDirectory}
		case errors.Is(pErr.Err, unix.ENOTDIR):
			return &PathError{Op: pErr.Op, Path: pErr.Path, Err: ErrNotDirectory}
		case errors.Is(pErr.Err, unix.ENOENT):
			return &PathError{Op: pErr.Op, Path: pErr.Path, Err: ErrNotExist}
		case errors.Is(pErr.Err, unix.EPERM):
			return &PathError{Op: pErr.Op, Path: pErr.Path, Err: ErrPermission}
		case errors.Is(pErr.Err, unix.EXDEV):
			return &PathError{Op: pErr.Op, Path: pErr.Path, Err: ErrBadPathResolution}
		case errors.Is(pErr.Err, unix.ELOOP):
			return &PathError{Op: pErr.Op, Path: pErr.Path, Err: ErrBadPathResolution}
		}
		return pErr
	}
	// Raw errno from a syscall we invoked directly (not yet wrapped in a
	// PathError by the caller).
	switch {
	case errors.Is(err, unix.EEXIST):
		return ErrExist
	case errors.Is(err, unix.ENOENT):
		return ErrNotExist
	case errors.Is(err, unix.EPERM):
		return ErrPermission
	case errors.Is(err, unix.EXDEV), errors.Is(err, unix.ELOOP):
		return ErrBadPathResolution
	}
	return err
}

// isSymlinkErrno reports whether err is the platform's way of saying
// "the final component was a symlink" from an open that requested
// NOFOLLOW. Linux (and most other Unixes) use ELOOP for this; FreeBSD uses
// EMLINK and NetBSD uses EFTYPE for the same condition.
func isSymlinkErrno(err error) bool {
	switch {
	case errors.Is(err, unix.ELOOP):
		return true
	case errors.Is(err, errEMLINKSymlink):
		return true
	case errors.Is(err, errEFTYPESymlink):
		return true
	default:
		return false
	}
}
