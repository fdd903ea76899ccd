// SPDX-License-Identifier: MIT

package ufsconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ferrocap/capfs/ufsconfig"
	"github.com/stretchr/testify/require"
)

func TestNew_AppliesDefaults(t *testing.T) {
	t.Parallel()
	c, err := ufsconfig.New()
	require.NoError(t, err)
	require.True(t, c.Resolver.UseOpenat2)
	require.Equal(t, 40, c.Resolver.MaxSymlinkExpansions)
	require.Equal(t, "info", c.Log.Level)
}

func TestLoad_ParsesYAMLOverDefaults(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
resolver:
  use_openat2: false
log:
  level: debug
  no_color: true
`), 0o644))

	c, err := ufsconfig.Load(path)
	require.NoError(t, err)
	require.False(t, c.Resolver.UseOpenat2)
	require.Equal(t, "debug", c.Log.Level)
	require.True(t, c.Log.NoColor)
	// Untouched fields keep their defaults.
	require.Equal(t, 40, c.Resolver.MaxSymlinkExpansions)
}

func TestLoad_RejectsInvalidLevel(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: bogus\n"), 0o644))

	_, err := ufsconfig.Load(path)
	require.Error(t, err)
}

func TestGetSet_RoundTrip(t *testing.T) {
	c, err := ufsconfig.New()
	require.NoError(t, err)
	c.Log.Level = "warn"
	ufsconfig.Set(c)
	require.Equal(t, "warn", ufsconfig.Get().Log.Level)
}
