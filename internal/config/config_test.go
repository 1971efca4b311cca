package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
app:
  name: kanrigamen
  environment: test
backend:
  url: https://backend.example.com/exec
  auth_token: secret
database:
  path: data/admin.db
`

func TestLoadMinimal(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "kanrigamen", cfg.App.Name)
	assert.Equal(t, "https://backend.example.com/exec", cfg.Backend.URL)

	// Defaults applied.
	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, "x-api-extra", cfg.API.Auth.HeaderExtra)
	assert.Equal(t, 30, cfg.Backend.TimeoutSeconds)
	assert.Equal(t, 24*60*60, cfg.Snapshot.CacheTTLSeconds)
	assert.Equal(t, 5*60, cfg.Snapshot.RefreshIntervalSeconds)
	assert.Equal(t, "exports", cfg.Exports.Path)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("BACKEND_TOKEN", "from-env")
	cfg, err := Load(writeConfig(t, `
backend:
  url: https://backend.example.com/exec
  auth_token: ${BACKEND_TOKEN}
database:
  path: data/admin.db
`))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Backend.AuthToken)
}

func TestLoadMissingBackendURL(t *testing.T) {
	_, err := Load(writeConfig(t, `
database:
  path: data/admin.db
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend url")
}

func TestLoadMissingDatabasePath(t *testing.T) {
	_, err := Load(writeConfig(t, `
backend:
  url: https://backend.example.com/exec
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database path")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateColors(t *testing.T) {
	assert.NoError(t, ValidateColors(nil))
	assert.NoError(t, ValidateColors([]string{"#ffffff", "#000000", "#e57373"}))

	err := ValidateColors([]string{"#ffffff", "white"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid palette color")

	err = ValidateColors([]string{"#ffffff", "#ffffff"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate palette color")
}

func TestLoadRejectsBadPalette(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
colors:
  - "#ffffff"
  - "oops"
`))
	assert.Error(t, err)
}
