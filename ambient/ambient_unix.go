// SPDX-License-Identifier: MIT

//go:build unix

package ambient

import "golang.org/x/sys/unix"

func dupCloseOnExec(fd int) (int, error) {
	newFd, err := unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return -1, err
	}
	return newFd, nil
}
