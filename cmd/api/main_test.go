package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashdeck/flashdeck/internal/config"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "app.yml")
	content := []byte(`
api:
  port: 8080
database:
  type: sqlite
  path: ` + filepath.Join(dir, "flashcards.db") + `
auth:
  jwt_secret: test-secret
`)
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func TestInitializeAPI(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FLASHDECK_CONFIG_DIR", dir)
	writeConfig(t, dir)

	configPath = ""
	a, log, err := initializeAPI()
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.NotNil(t, log)
	assert.Equal(t, 8080, a.Config.API.Port)
	assert.NoError(t, a.Close())
	assert.FileExists(t, filepath.Join(dir, "flashcards.db"))

	originalConfigInit := configInit
	defer func() { configInit = originalConfigInit }()
	configInit = func() (*config.Config, error) {
		return nil, assert.AnError
	}

	a, _, err = initializeAPI()
	assert.ErrorIs(t, err, assert.AnError)
	assert.Nil(t, a)
}

func TestConfigFlag(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir)

	var loaded string
	originalConfigLoad := configLoad
	defer func() { configLoad = originalConfigLoad }()
	configLoad = func(p string) (*config.Config, error) {
		loaded = p
		return nil, assert.AnError
	}

	cmd := newRootCmd()
	cmd.SetArgs([]string{"migrate", "--config", path})
	err := cmd.Execute()
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, path, loaded)
	configPath = ""
}

func TestMigrateCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"migrate", "--config", path})
	require.NoError(t, cmd.Execute())
	assert.FileExists(t, filepath.Join(dir, "flashcards.db"))
	configPath = ""
}
