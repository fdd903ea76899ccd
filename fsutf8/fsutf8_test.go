// SPDX-License-Identifier: MIT

//go:build unix

package fsutf8_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ferrocap/capfs"
	"github.com/ferrocap/capfs/ambient"
	"github.com/ferrocap/capfs/fsutf8"
	"github.com/stretchr/testify/require"
)

func newTestDir(t *testing.T) (*fsutf8.Dir, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp(os.TempDir(), "capfs-fsutf8")
	require.NoError(t, err)
	root := filepath.Join(tmpDir, "root")
	require.NoError(t, os.Mkdir(root, 0o755))
	dir, err := ambient.OpenDir(ambient.Ambient(), root)
	require.NoError(t, err)
	return fsutf8.New(dir), func() {
		_ = dir.Close()
		_ = os.RemoveAll(tmpDir)
	}
}

func TestDir_RejectsInvalidUTF8(t *testing.T) {
	t.Parallel()
	d, cleanup := newTestDir(t)
	defer cleanup()

	invalid := string([]byte{0xff, 0xfe, 0x00})
	_, err := d.Open(invalid)
	require.Error(t, err)
	require.True(t, errors.Is(err, capfs.ErrInvalid))
}

func TestDir_AllowsValidUTF8(t *testing.T) {
	t.Parallel()
	d, cleanup := newTestDir(t)
	defer cleanup()

	f, err := d.Create("héllo-wörld.txt")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = d.Stat("héllo-wörld.txt")
	require.NoError(t, err)
}

func TestDir_SymlinkRejectsInvalidTarget(t *testing.T) {
	t.Parallel()
	d, cleanup := newTestDir(t)
	defer cleanup()

	invalid := string([]byte{0xff, 0xfe})
	err := d.Symlink(invalid, "link")
	require.Error(t, err)
	require.True(t, errors.Is(err, capfs.ErrInvalid))
}
