package cli

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, path, err := LoadConfig(t.TempDir(), "")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_ProjectFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ConfigFileName, `{
		// local development database
		"db": "data/dev.db",
		"backend": "bolt",
		"schema": "/etc/shelf/schema.cue",
	}`)

	cfg, path, err := LoadConfig(dir, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ConfigFileName), path)
	assert.Equal(t, Config{
		DB:      filepath.Join(dir, "data", "dev.db"),
		Backend: "bolt",
		Schema:  "/etc/shelf/schema.cue",
		Format:  "text",
	}, cfg)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := LoadConfig(dir, "missing.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errConfigFileNotFound))

	tests := map[string]string{
		"syntax":        `{"db": }`,
		"unknown field": `{"database": "x.db"}`,
		"bad backend":   `{"backend": "redis"}`,
		"bad format":    `{"format": "xml"}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "c.json", content)
			_, _, err := LoadConfig(dir, path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errConfigInvalid))
		})
	}
}

func TestConfig_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "shelf.json", `{"backend": "bolt", "db": "cfg.bolt", "format": "json"}`)

	mustExecute(t, "put", "todos", `{"id": 1}`, "--config", cfgPath)
	assert.FileExists(t, filepath.Join(dir, "cfg.bolt"))

	out := mustExecute(t, "get", "todos", "1", "--config", cfgPath)
	assert.JSONEq(t, `{"status":"ok","data":[{"id":1}]}`, out)

	out = mustExecute(t, "get", "todos", "1", "--config", cfgPath, "--format", "text")
	assert.Equal(t, "{\"id\":1}\n", out)

	other := filepath.Join(dir, "other.db")
	_, err := execute(t, "get", "todos", "1", "--config", cfgPath, "--backend", "sqlite", "--db", other)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.FileExists(t, other)
}

func TestConfig_BrokenFileIsCommandError(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "shelf.json", `{"backend": "redis"}`)

	_, err := execute(t, "dump", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}
