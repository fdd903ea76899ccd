// SPDX-License-Identifier: MIT

//go:build freebsd

package capfs

import (
	"errors"

	"golang.org/x/sys/unix"
)

// FreeBSD's openat(2) reports a NOFOLLOW hit on a symlink as EMLINK rather
// than ELOOP.
var errEMLINKSymlink = unix.EMLINK
var errEFTYPESymlink = errors.New("unused: EFTYPE is not a symlink signal on FreeBSD")
