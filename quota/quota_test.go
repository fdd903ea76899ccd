// SPDX-License-Identifier: MIT

//go:build unix

package quota_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ferrocap/capfs"
	"github.com/ferrocap/capfs/ambient"
	"github.com/ferrocap/capfs/quota"
	"github.com/stretchr/testify/require"
)

func newTestDir(t *testing.T) (*capfs.Dir, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp(os.TempDir(), "capfs-quota")
	require.NoError(t, err)
	root := filepath.Join(tmpDir, "root")
	require.NoError(t, os.Mkdir(root, 0o755))
	dir, err := ambient.OpenDir(ambient.Ambient(), root)
	require.NoError(t, err)
	return dir, func() {
		_ = dir.Close()
		_ = os.RemoveAll(tmpDir)
	}
}

func TestQuota_UnsetLimitAlwaysFits(t *testing.T) {
	t.Parallel()
	dir, cleanup := newTestDir(t)
	defer cleanup()

	q := quota.New(dir, 0)
	require.True(t, q.CanFit(1<<30))
}

func TestQuota_NegativeLimitRejectsEverything(t *testing.T) {
	t.Parallel()
	dir, cleanup := newTestDir(t)
	defer cleanup()

	q := quota.New(dir, -1)
	require.False(t, q.CanFit(1))
}

func TestQuota_TracksUsageAcrossWrites(t *testing.T) {
	t.Parallel()
	dir, cleanup := newTestDir(t)
	defer cleanup()

	q := quota.New(dir, 1024)
	q.SetUsage(0)
	require.True(t, q.CanFit(100))

	o := capfs.NewOpenOptions()
	o.Write, o.Create, o.Truncate = true, true, true
	f, err := q.OpenFile("file.bin", o)
	require.NoError(t, err)
	_, err = f.Write(make([]byte, 512))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.EqualValues(t, 512, q.Usage())
	require.True(t, q.CanFit(512))
	require.False(t, q.CanFit(513))
}

func TestQuota_RemoveDeductsUsage(t *testing.T) {
	t.Parallel()
	dir, cleanup := newTestDir(t)
	defer cleanup()

	q := quota.New(dir, 1024)
	q.SetUsage(0)

	o := capfs.NewOpenOptions()
	o.Write, o.Create, o.Truncate = true, true, true
	f, err := q.OpenFile("file.bin", o)
	require.NoError(t, err)
	_, err = f.Write(make([]byte, 200))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.EqualValues(t, 200, q.Usage())

	require.NoError(t, q.Remove("file.bin"))
	require.EqualValues(t, 0, q.Usage())
}

func TestQuota_AddClampsAtZero(t *testing.T) {
	t.Parallel()
	dir, cleanup := newTestDir(t)
	defer cleanup()

	q := quota.New(dir, 1024)
	q.SetUsage(10)
	got := q.Add(-100)
	require.EqualValues(t, 0, got)
	require.EqualValues(t, 0, q.Usage())
}
