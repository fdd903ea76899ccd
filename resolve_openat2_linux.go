// SPDX-License-Identifier: MIT

//go:build linux

package capfs

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sys/unix"
)

// openat2Unavailable latches to true the first time openat2 fails with
// ENOSYS or EPERM (no seccomp allowance, or a pre-5.6 kernel), so the
// process stops paying for a doomed syscall on every subsequent open
//. It starts false and is only ever set, never cleared.
var openat2Unavailable atomic.Bool

// openat2Supported reports whether the fast path should still be attempted.
func openat2Supported() bool {
	return !openat2Unavailable.Load()
}

// openat2Beneath opens name relative to dirfd using RESOLVE_BENEATH |
// RESOLVE_NO_MAGICLINKS, the kernel-enforced fast path: the kernel itself
// refuses any resolution that would step outside dirfd, so this path needs
// none of the manual bookkeeping resolve_unix.go performs. EAGAIN (a rename raced the lookup) is retried a
// bounded number of times, retryDelay apart; ENOSYS/EPERM/EXDEV/ELOOP are
// translated and, for the first two, permanently disable the fast path for
// the rest of the process.
func openat2Beneath(dirfd int, name string, flags uint64, mode uint64) (int, error) {
	if !openat2Supported() {
		return -1, unix.ENOSYS
	}

	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(retryDelay), 4)
	var fd int
	operation := func() error {
		var err error
		fd, err = unix.Openat2(dirfd, name, &unix.OpenHow{
			Flags:   flags | unix.O_CLOEXEC,
			Mode:    mode,
			Resolve: unix.RESOLVE_BENEATH | unix.RESOLVE_NO_MAGICLINKS,
		})
		switch err {
		case nil:
			return nil
		case unix.EINTR, unix.EAGAIN:
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	err := backoff.Retry(operation, backoff.WithContext(b, context.Background()))
	if err == nil {
		return fd, nil
	}

	var perr *backoff.PermanentError
	if pe, ok := err.(*backoff.PermanentError); ok {
		perr = pe
		err = perr.Err
	}
	switch err {
	case unix.ENOSYS, unix.EPERM:
		openat2Unavailable.Store(true)
		return -1, err
	case unix.EXDEV:
		return -1, ErrBadPathResolution
	case unix.ELOOP:
		return -1, ErrTooManySymlinks
	default:
		return -1, err
	}
}

// resolveFullOpenat2 is resolveFull's Linux fast path: the whole
// relative path is handed to a single openat2(RESOLVE_BENEATH) call
// instead of walking component-by-component in userspace. It falls back
// silently (returning ok=false) whenever the fast path can't answer the
// question on its own — a final component that is itself a symlink and
// FollowNo was requested, since RESOLVE_BENEATH alone can't distinguish
// "symlink in the middle, expand it" from "symlink at the end, reject it"
// the way this package's API requires.
func resolveFullOpenat2(rootFd int, p string, follow FollowSymlinks) (fd int, isDir bool, ok bool, err error) {
	if !openat2Supported() {
		return -1, false, false, nil
	}
	_, isAbs, dirRequired := splitComponents(p)
	if isAbs {
		return -1, false, true, &PathError{Op: "resolve", Path: p, Err: ErrBadPathResolution}
	}
	if follow == FollowNo {
		// Let the portable resolver handle the no-follow-at-the-leaf case;
		// openat2 would either transparently follow the link or fail with
		// ELOOP without telling us whether that ELOOP was a true symlink at
		// the leaf or an expansion-count overflow partway through.
		return -1, false, false, nil
	}

	flags := uint64(unix.O_PATH | unix.O_CLOEXEC)
	if dirRequired {
		flags |= unix.O_DIRECTORY
	}
	newFd, oerr := openat2Beneath(rootFd, p, flags, 0)
	if oerr != nil {
		if oerr == unix.ENOSYS || oerr == unix.EPERM {
			return -1, false, false, nil
		}
		return -1, false, true, convertErrorType(oerr)
	}
	st, serr := fstatUnchecked(newFd)
	if serr != nil {
		unix.Close(newFd)
		return -1, false, true, serr
	}
	isDir = st.Mode&unix.S_IFMT == unix.S_IFDIR
	if dirRequired && !isDir {
		unix.Close(newFd)
		return -1, false, true, &PathError{Op: "resolve", Path: p, Err: ErrNotDirectory}
	}
	return newFd, isDir, true, nil
}

// resolveParentOpenat2 is resolveParent's fast path: opens the parent
// directory of the final component with RESOLVE_BENEATH, leaving the final
// unchecked primitive to the caller.
func resolveParentOpenat2(rootFd int, p string) (parentFd int, leaf string, ok bool, err error) {
	if !openat2Supported() {
		return -1, "", false, nil
	}
	parts, isAbs, _ := splitComponents(p)
	if isAbs || len(parts) == 0 {
		return -1, "", true, &PathError{Op: "resolve", Path: p, Err: ErrBadPathResolution}
	}
	leaf = parts[len(parts)-1]
	if classifyComponent(leaf) != componentNormal {
		return -1, "", true, &PathError{Op: "resolve", Path: p, Err: ErrBadPathResolution}
	}
	dirParts := parts[:len(parts)-1]
	parentPath := ""
	for i, c := range dirParts {
		if i > 0 {
			parentPath += "/"
		}
		parentPath += c
	}
	if len(dirParts) == 0 {
		dup, derr := unix.Dup(rootFd)
		if derr != nil {
			return -1, "", true, NewSyscallError("dup", derr)
		}
		return dup, leaf, true, nil
	}

	fd, oerr := openat2Beneath(rootFd, parentPath, unix.O_PATH|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if oerr != nil {
		if oerr == unix.ENOSYS || oerr == unix.EPERM {
			return -1, "", false, nil
		}
		return -1, "", true, convertErrorType(oerr)
	}
	return fd, leaf, true, nil
}

// retryDelay is kept as a named constant, rather than inlined in
// openat2Beneath, since the original cap-primitives EAGAIN retry loop
// (cap-primitives/src/fs/open_unchecked.rs) documents the rationale for
// bounding total retry time to roughly this order of magnitude.
const retryDelay = 2 * time.Millisecond
