// SPDX-License-Identifier: MIT

package ambient

import (
	"os"
	"time"

	"github.com/ferrocap/capfs"
	"github.com/google/uuid"
)

// TempDir creates a fresh, uniquely named directory under the host's
// standard temp location and returns it opened as a capfs.Dir, mirroring
// cap-tempfile's TempDir (cap-tempfile/src/tempfile.rs in the original):
// ambient authority is spent once, at creation time, and every operation
// against the returned Dir afterward is sandboxed to that subtree.
func TempDir(a Authority) (dir *capfs.Dir, path string, err error) {
	name := "capfs-" + uuid.New().String()
	path = os.TempDir() + string(os.PathSeparator) + name
	if err := os.Mkdir(path, 0o700); err != nil {
		return nil, "", err
	}
	dir, err = OpenDir(a, path)
	if err != nil {
		os.Remove(path)
		return nil, "", err
	}
	return dir, path, nil
}

// Now returns the current wall-clock time. It is routed through this
// package, rather than called directly as time.Now() from sandboxed code,
// so an embedder auditing ambient-authority use sees clock reads alongside
// filesystem ones (cap-std's ambient-authority model treats the
// system clock as another resource a sandbox can choose not to grant).
func Now(_ Authority) time.Time { return time.Now() }
