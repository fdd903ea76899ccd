// SPDX-License-Identifier: MIT

//go:build unix

package ambient_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ferrocap/capfs/ambient"
	"github.com/stretchr/testify/require"
)

func TestOpenDir_Succeeds(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	dir, err := ambient.OpenDir(ambient.Ambient(), root)
	require.NoError(t, err)
	defer dir.Close()

	_, err = dir.Stat(".")
	require.NoError(t, err)
}

func TestOpenDir_RejectsNonDirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	filePath := filepath.Join(root, "plain.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("x"), 0o644))

	_, err := ambient.OpenDir(ambient.Ambient(), filePath)
	require.Error(t, err)
}

func TestTempDir_CreatesUniqueDirs(t *testing.T) {
	t.Parallel()
	d1, p1, err := ambient.TempDir(ambient.Ambient())
	require.NoError(t, err)
	defer os.RemoveAll(p1)
	defer d1.Close()

	d2, p2, err := ambient.TempDir(ambient.Ambient())
	require.NoError(t, err)
	defer os.RemoveAll(p2)
	defer d2.Close()

	require.NotEqual(t, p1, p2)
}

func TestNow_ReturnsNonZero(t *testing.T) {
	t.Parallel()
	now := ambient.Now(ambient.Ambient())
	require.False(t, now.IsZero())
}
