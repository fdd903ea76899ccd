// SPDX-License-Identifier: MIT

//go:build netbsd

package capfs

import (
	"errors"

	"golang.org/x/sys/unix"
)

// NetBSD's openat(2) reports a NOFOLLOW hit on a symlink as EFTYPE rather
// than ELOOP.
var errEFTYPESymlink = unix.EFTYPE
var errEMLINKSymlink = errors.New("unused: EMLINK is not a symlink signal on NetBSD")
