// SPDX-License-Identifier: MIT

//go:build unix

package capfs_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ferrocap/capfs"
	"github.com/ferrocap/capfs/ambient"
)

type testDir struct {
	*capfs.Dir

	TmpDir string
	Root   string
}

func (d *testDir) Cleanup() {
	_ = d.Close()
	_ = os.RemoveAll(d.TmpDir)
}

func newTestDir(t *testing.T) *testDir {
	t.Helper()
	tmpDir, err := os.MkdirTemp(os.TempDir(), "capfs")
	if err != nil {
		t.Fatal(err)
	}
	root := filepath.Join(tmpDir, "root")
	if err := os.Mkdir(root, 0o755); err != nil {
		t.Fatal(err)
	}
	dir, err := ambient.OpenDir(ambient.Ambient(), root)
	if err != nil {
		t.Fatal(err)
	}
	return &testDir{Dir: dir, TmpDir: tmpDir, Root: root}
}

func TestDir_PathTraversalRejected(t *testing.T) {
	t.Parallel()
	d := newTestDir(t)
	defer d.Cleanup()

	// "a" must exist for "a/../../outside" to get as far as its second "..".
	if err := d.Mkdir("a", 0o755); err != nil {
		t.Fatal(err)
	}

	cases := []string{
		"../outside",
		"../../etc/passwd",
		"a/../../outside",
	}
	for _, name := range cases {
		name := name
		t.Run(name, func(t *testing.T) {
			if _, err := d.Open(name); !errors.Is(err, capfs.ErrBadPathResolution) {
				t.Errorf("Open(%q): expected ErrBadPathResolution, got %v", name, err)
			}
			if err := d.Mkdir(name, 0o755); !errors.Is(err, capfs.ErrBadPathResolution) {
				t.Errorf("Mkdir(%q): expected ErrBadPathResolution, got %v", name, err)
			}
		})
	}
}

func TestDir_AbsolutePathRejected(t *testing.T) {
	t.Parallel()
	d := newTestDir(t)
	defer d.Cleanup()

	if _, err := d.Open("/etc/passwd"); !errors.Is(err, capfs.ErrBadPathResolution) {
		t.Errorf("expected ErrBadPathResolution, got %v", err)
	}
}

func TestDir_CreateOpenRoundTrip(t *testing.T) {
	t.Parallel()
	d := newTestDir(t)
	defer d.Cleanup()

	f, err := d.Create("hello.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("hello world")); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	rf, err := d.Open("hello.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()

	buf := make([]byte, 32)
	n, err := rf.Read(buf)
	if err != nil && err.Error() != "EOF" {
		t.Fatal(err)
	}
	if string(buf[:n]) != "hello world" {
		t.Errorf("got %q, want %q", buf[:n], "hello world")
	}
}

func TestDir_MkdirAllThenRemoveAll(t *testing.T) {
	t.Parallel()
	d := newTestDir(t)
	defer d.Cleanup()

	if err := d.MkdirAll("a/b/c", 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Stat("a/b/c"); err != nil {
		t.Fatal(err)
	}
	if err := d.RemoveAll("a"); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Stat("a"); !errors.Is(err, capfs.ErrNotExist) {
		t.Errorf("expected ErrNotExist after RemoveAll, got %v", err)
	}
}

func TestDir_SymlinkEscapeRejected(t *testing.T) {
	t.Parallel()
	d := newTestDir(t)
	defer d.Cleanup()

	if err := d.Symlink("../../../../etc/passwd", "escape"); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Open("escape"); !errors.Is(err, capfs.ErrBadPathResolution) {
		t.Errorf("expected ErrBadPathResolution following an escaping symlink, got %v", err)
	}
}

func TestDir_SymlinkNoFollow(t *testing.T) {
	t.Parallel()
	d := newTestDir(t)
	defer d.Cleanup()

	f, err := d.Create("target.txt")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	if err := d.Symlink("target.txt", "link.txt"); err != nil {
		t.Fatal(err)
	}

	o := capfs.NewOpenOptions()
	o.Read = true
	o.Follow = capfs.FollowNo
	if _, err := d.OpenFile("link.txt", o); !errors.Is(err, capfs.ErrIsSymlink) {
		t.Errorf("expected ErrIsSymlink, got %v", err)
	}
}

func TestDir_RenameAcrossDirs(t *testing.T) {
	t.Parallel()
	d := newTestDir(t)
	defer d.Cleanup()

	if err := d.Mkdir("sub", 0o755); err != nil {
		t.Fatal(err)
	}
	sub, err := d.OpenDir("sub")
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	f, err := d.Create("movable.txt")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := d.Rename("movable.txt", sub, "moved.txt"); err != nil {
		t.Fatal(err)
	}
	if _, err := sub.Stat("moved.txt"); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Stat("movable.txt"); !errors.Is(err, capfs.ErrNotExist) {
		t.Errorf("expected source to be gone after rename, got %v", err)
	}
}

func TestSameFile(t *testing.T) {
	t.Parallel()
	d := newTestDir(t)
	defer d.Cleanup()

	f, err := d.Create("a.txt")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	if err := d.HardLink("a.txt", d, "b.txt"); err != nil {
		t.Fatal(err)
	}
	ma, err := d.Stat("a.txt")
	if err != nil {
		t.Fatal(err)
	}
	mb, err := d.Stat("b.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !capfs.SameFile(ma, mb) {
		t.Errorf("expected hardlinked files to be SameFile")
	}
}
