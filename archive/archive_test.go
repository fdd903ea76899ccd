// SPDX-License-Identifier: MIT

//go:build unix

package archive_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ferrocap/capfs"
	"github.com/ferrocap/capfs/ambient"
	"github.com/ferrocap/capfs/archive"
	"github.com/stretchr/testify/require"
)

func newTestDir(t *testing.T, name string) (*capfs.Dir, string, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp(os.TempDir(), "capfs-archive-"+name)
	require.NoError(t, err)
	root := filepath.Join(tmpDir, "root")
	require.NoError(t, os.Mkdir(root, 0o755))
	dir, err := ambient.OpenDir(ambient.Ambient(), root)
	require.NoError(t, err)
	return dir, root, func() {
		_ = dir.Close()
		_ = os.RemoveAll(tmpDir)
	}
}

func writeFile(t *testing.T, dir *capfs.Dir, name, content string) {
	t.Helper()
	f, err := dir.Create(name)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestCreateThenUnarchiveRoundTrip(t *testing.T) {
	t.Parallel()
	src, _, cleanupSrc := newTestDir(t, "src")
	defer cleanupSrc()
	dst, _, cleanupDst := newTestDir(t, "dst")
	defer cleanupDst()

	require.NoError(t, src.Mkdir("sub", 0o755))
	writeFile(t, src, "top.txt", "top level")
	writeFile(t, src, "sub/nested.txt", "nested content")

	var buf bytes.Buffer
	require.NoError(t, archive.Create(context.Background(), src, &buf, archive.Options{}))
	require.Greater(t, buf.Len(), 0)

	require.NoError(t, archive.Unarchive(context.Background(), dst, "archive.tar.gz", &buf))

	f, err := dst.Open("top.txt")
	require.NoError(t, err)
	got := make([]byte, 64)
	n, _ := f.Read(got)
	require.Equal(t, "top level", string(got[:n]))
	f.Close()

	f, err = dst.Open("sub/nested.txt")
	require.NoError(t, err)
	got = make([]byte, 64)
	n, _ = f.Read(got)
	require.Equal(t, "nested content", string(got[:n]))
	f.Close()
}

func TestCopyTree(t *testing.T) {
	t.Parallel()
	src, _, cleanupSrc := newTestDir(t, "src")
	defer cleanupSrc()
	dst, _, cleanupDst := newTestDir(t, "dst")
	defer cleanupDst()

	require.NoError(t, src.Mkdir("a", 0o755))
	writeFile(t, src, "a/one.txt", "one")
	writeFile(t, src, "a/two.txt", "two")

	require.NoError(t, archive.CopyTree(src, "a", dst, "copied", 2))

	f, err := dst.Open("copied/one.txt")
	require.NoError(t, err)
	f.Close()
	f, err = dst.Open("copied/two.txt")
	require.NoError(t, err)
	f.Close()
}

func TestImportTree(t *testing.T) {
	t.Parallel()
	hostSrc := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(hostSrc, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(hostSrc, "a.txt"), []byte("hostfile"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(hostSrc, "sub", "b.txt"), []byte("nested hostfile"), 0o644))

	dst, _, cleanupDst := newTestDir(t, "import-dst")
	defer cleanupDst()

	require.NoError(t, archive.ImportTree(hostSrc, dst, "imported", 2))

	f, err := dst.Open("imported/a.txt")
	require.NoError(t, err)
	f.Close()
	f, err = dst.Open("imported/sub/b.txt")
	require.NoError(t, err)
	f.Close()
}
