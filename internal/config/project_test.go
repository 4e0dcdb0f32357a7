package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/newhook/harvest/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndFind(t *testing.T) {
	t.Cleanup(func() { _ = logging.Close() })
	root := t.TempDir()

	proj, err := Create(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(root), proj.Config.Project.Name)
	assert.FileExists(t, filepath.Join(root, ConfigDir, ConfigFile))

	_, err = Create(root)
	assert.Error(t, err, "a second init fails")

	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	found, err := Find(nested)
	require.NoError(t, err)
	assert.Equal(t, proj.Root, found.Root)
	assert.True(t, found.HasRoot())
	assert.Equal(t, proj.Config.Project.Name, found.Config.Project.Name)
	assert.Equal(t, filepath.Join(root, ConfigDir, "history.db"), found.HistoryPath())
	assert.Equal(t, filepath.Join(root, ".harvest", "cache"), found.CachePath())
	assert.Equal(t, filepath.Join(root, ".harvest", "config.toml"), found.ConfigPath())
	assert.FileExists(t, filepath.Join(root, ConfigDir, logging.LogFileName))
}

func TestFind_NoProject(t *testing.T) {
	_, err := Find(t.TempDir())
	assert.ErrorIs(t, err, ErrNoProject)

	proj, err := FindOrDefault(t.TempDir())
	require.NoError(t, err)
	assert.False(t, proj.HasRoot())
	assert.NotNil(t, proj.Config)
	assert.Equal(t, "text", proj.Config.Output.GetFormat())
}

func TestFind_BrokenConfig(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ConfigDir), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigDir, ConfigFile), []byte("= nope"), 0600))

	_, err := FindOrDefault(root)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoProject)
}

func TestCachePath_Absolute(t *testing.T) {
	p := &Project{Root: "/work", Config: &Config{Cache: CacheConfig{Dir: "/var/cache/harvest"}}}
	assert.Equal(t, "/var/cache/harvest", p.CachePath())
}
