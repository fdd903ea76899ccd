// SPDX-License-Identifier: MIT

//go:build !freebsd && !netbsd

package capfs

import "errors"

// On most Unixes (Linux included) a NOFOLLOW open on a symlink fails with
// ELOOP, which error.go already checks directly. These two sentinels exist
// so isSymlinkErrno has a uniform three-way check across platforms; on
// platforms that don't overload EMLINK/EFTYPE for this purpose they are
// defined as errors nothing will ever compare equal to.
var (
	errEMLINKSymlink = errors.New("unused: EMLINK is not a symlink signal on this platform")
	errEFTYPESymlink = errors.New("unused: EFTYPE is not a symlink signal on this platform")
)
