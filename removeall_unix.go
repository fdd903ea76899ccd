// SPDX-License-Identifier: MIT

// Code in this file was adapted from a descriptor-based recursive removal routine, itself
// derived from go/src/os/removeall_at.go.

//go:build unix

package capfs

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// removeAllAt removes the entry named leaf inside the directory already
// open as parentFd, recursing into it first if it turns out to be a
// directory. Both parentFd and leaf have already been produced by the
// sandboxed resolver, so this function itself performs no path resolution —
// it only ever opens single components relative to descriptors it already
// holds or obtains by recursing.
func removeAllAt(parentFd int, leaf string) error {
	if leaf == "" || leaf == "." || leaf == ".." {
		return &PathError{Op: "removeall", Path: leaf, Err: unix.EINVAL}
	}

	err := unlinkUnchecked(parentFd, leaf, false)
	if err == nil || errors.Is(err, ErrNotExist) {
		return nil
	}

	var errno unix.Errno
	if !errors.As(err, &errno) || (errno != unix.EISDIR && errno != unix.EPERM && errno != unix.EACCES) {
		return convertErrorType(err)
	}

	st, statErr := fstatatUnchecked(parentFd, leaf, false)
	if statErr != nil {
		if errors.Is(statErr, ErrNotExist) {
			return nil
		}
		return convertErrorType(statErr)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFDIR {
		return convertErrorType(err)
	}

	var recurseErr error
	for {
		const reqSize = 1024
		var respSize int

		dirFd, openErr := openFdAt(parentFd, leaf)
		if openErr != nil {
			if errors.Is(openErr, ErrNotExist) {
				return nil
			}
			recurseErr = &PathError{Op: "openat", Path: leaf, Err: openErr}
			break
		}
		dirFile := os.NewFile(uintptr(dirFd), leaf)

		for {
			numErr := 0
			names, readErr := dirFile.Readdirnames(reqSize)
			if readErr != nil && readErr != io.EOF {
				_ = dirFile.Close()
				if errors.Is(readErr, ErrNotExist) {
					return nil
				}
				return &PathError{Op: "readdirnames", Path: leaf, Err: readErr}
			}

			respSize = len(names)
			for _, name := range names {
				if err := removeAllAt(dirFd, name); err != nil {
					if pathErr, ok := err.(*PathError); ok {
						pathErr.Path = leaf + string(os.PathSeparator) + pathErr.Path
					}
					numErr++
					if recurseErr == nil {
						recurseErr = err
					}
				}
			}

			if numErr != reqSize {
				break
			}
		}

		// Deleting entries may reshuffle the directory; a fresh open avoids
		// skipping entries on the next pass (matches go.dev/issue/20841).
		_ = dirFile.Close()

		if respSize < reqSize {
			break
		}
	}

	unlinkErr := unlinkUnchecked(parentFd, leaf, true)
	if unlinkErr == nil || errors.Is(unlinkErr, ErrNotExist) {
		return nil
	}
	if recurseErr != nil {
		return recurseErr
	}
	return convertErrorType(unlinkErr)
}

// openFdAt opens name relative to dirfd for read-only traversal, refusing
// to follow a symlink into something other than the directory it just
// statted as.
func openFdAt(dirfd int, name string) (int, error) {
	var fd int
	err := ignoringEINTR(func() (err error) {
		fd, err = unix.Openat(dirfd, name, unix.O_RDONLY|unix.O_CLOEXEC|unix.O_NOFOLLOW|unix.O_DIRECTORY, 0)
		return err
	})
	if err != nil {
		return -1, &PathError{Op: "openat", Path: name, Err: err}
	}
	return fd, nil
}
