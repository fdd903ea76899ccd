// SPDX-License-Identifier: MIT

//go:build unix && ufs_debug

package capfs

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// This file implements the racy-assertion debug harness,
// grounded on cap-primitives/src/fs/open.rs's check_open: after a
// sandboxed open succeeds, independently re-derive where it landed via
// /proc/self/fd and assert that result is still inside the Dir it was
// opened from. It catches resolver bugs that a unit test's fixed symlink
// layout wouldn't exercise, at the cost of an extra readlink per open; it
// is compiled in only under the ufs_debug build tag, never in production
// builds.
const racyAssertsEnabled = true

func racyAssertOpenInsideRoot(rootFd int, resultFd int, path string) {
	rootPath, err := procSelfFdReadlink(rootFd)
	if err != nil {
		return
	}
	resultPath, err := procSelfFdReadlink(resultFd)
	if err != nil {
		return
	}
	rel, err := filepath.Rel(rootPath, resultPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		panic(fmt.Sprintf("sandbox escape: root=%q path=%q result=%q", rootPath, path, resultPath))
	}
}

func procSelfFdReadlink(fd int) (string, error) {
	buf := make([]byte, 4096)
	n, err := unix.Readlink(procSelfFd(fd), buf)
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}
