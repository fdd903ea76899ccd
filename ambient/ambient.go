// SPDX-License-Identifier: MIT

// Package ambient holds the small set of entry points that are allowed to
// reach outside any sandbox: opening a directory by its host path, finding
// the system temp directory, and the like. Every function here takes an
// Authority witness, so a `go vet`-able grep for ambient.Authority in a
// codebase finds every place ambient authority is actually used, the same
// role cap-std's AmbientAuthority type plays in the original.
package ambient

import (
	"os"

	"github.com/ferrocap/capfs"
)

// Authority is a zero-sized witness value. The only way to construct one is
// Ambient, named so call sites read as an explicit admission: "this call
// uses ambient authority, not a capability."
type Authority struct{ _ [0]byte }

// Ambient constructs the witness. There is deliberately no way to obtain an
// Authority value except by calling this function, so it is easy to audit a
// codebase for ambient-authority use by searching for its call sites.
func Ambient() Authority { return Authority{} }

// OpenDir opens path, which is resolved using ordinary host path
// resolution (following symlinks, honoring the process's working
// directory), and returns it as a capfs.Dir. This is the only supported way
// to obtain the first Dir in a program; every other Dir is reached by
// calling a method on one already held.
func OpenDir(_ Authority, path string) (*capfs.Dir, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !fi.IsDir() {
		f.Close()
		return nil, &os.PathError{Op: "opendir", Path: path, Err: os.ErrInvalid}
	}
	fd := f.Fd()
	// Detach fd's ownership from f without closing it, so it can be handed
	// to Dir.
	newFd, err := dupCloseOnExec(int(fd))
	f.Close()
	if err != nil {
		return nil, err
	}
	return capfs.OpenDirFromHandle(newFd, path)
}
