package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateConfigDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, createConfigDirectory(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(ConfigDirPermissions), info.Mode().Perm())

	// existing directories are fine
	assert.NoError(t, createConfigDirectory(dir))
}

func TestHasLooserMode(t *testing.T) {
	dir := t.TempDir()

	loose, err := hasLooserMode(filepath.Join(dir, "absent"), ConfigFilePermissions)
	require.NoError(t, err)
	assert.False(t, loose)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	require.NoError(t, os.Chmod(path, 0o600))
	loose, err = hasLooserMode(path, ConfigFilePermissions)
	require.NoError(t, err)
	assert.False(t, loose)

	require.NoError(t, os.Chmod(path, 0o666))
	loose, err = hasLooserMode(path, ConfigFilePermissions)
	require.NoError(t, err)
	assert.True(t, loose)
}
