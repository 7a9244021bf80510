package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharednotes/sharednotes.go/pkg/connection"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		command Command
	}{
		{"default folder", []string{"default-folder"}, &DefaultFolderCommand{}},
		{"folders", []string{"-url", "http://localhost:9000", "folders"}, &FoldersCommand{}},
		{"serve", []string{"-listen", "127.0.0.1:0", "serve"}, &ServeCommand{Listen: "127.0.0.1:0"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, config, err := Parse(tc.args)
			require.NoError(t, err)
			assert.Equal(t, tc.command, cmd)
			assert.NotNil(t, config)
		})
	}
}

func TestParse_errors(t *testing.T) {
	testCases := map[string][]string{
		"no command":      {},
		"unknown command": {"delete"},
		"extra args":      {"folders", "extra"},
		"unknown flag":    {"-nope", "folders"},
		"bad format":      {"-format", "xml", "folders"},
		"bad log level":   {"-log-level", "loud", "folders"},
		"bad engine":      {"-engine", "nhooyr", "folders"},
		"missing config":  {"-config", filepath.Join(t.TempDir(), "missing.yaml"), "folders"},
	}

	for name, args := range testCases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Parse(args)
			require.Error(t, err)
		})
	}
}

func TestParse_precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sharednotes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
url: ws://from-file:8000
zone: notes:alice
timeout: 3s
format: text
engine: gws
log:
  level: debug
`), 0o600))

	t.Run("file", func(t *testing.T) {
		_, config, err := Parse([]string{"-config", path, "folders"})
		require.NoError(t, err)
		assert.Equal(t, "ws://from-file:8000", config.URL)
		assert.Equal(t, "notes:alice", config.Zone)
		assert.Equal(t, 3*time.Second, config.Timeout)
		assert.Equal(t, FormatText, config.Format)
		assert.Equal(t, "debug", config.Log.Level)
		assert.Equal(t, DefaultListen, config.Listen)
		assert.Equal(t, connection.EngineGWS, config.Engine)
	})

	t.Run("environment over file", func(t *testing.T) {
		t.Setenv(EnvURL, "http://from-env:8000")
		t.Setenv(EnvTimeout, "7s")

		_, config, err := Parse([]string{"-config", path, "folders"})
		require.NoError(t, err)
		assert.Equal(t, "http://from-env:8000", config.URL)
		assert.Equal(t, 7*time.Second, config.Timeout)
	})

	t.Run("flags over environment", func(t *testing.T) {
		t.Setenv(EnvURL, "http://from-env:8000")

		_, config, err := Parse([]string{"-config", path, "-url", "ws://from-flag:8000", "-format", "json", "folders"})
		require.NoError(t, err)
		assert.Equal(t, "ws://from-flag:8000", config.URL)
		assert.Equal(t, FormatJSON, config.Format)
	})

	t.Run("invalid environment", func(t *testing.T) {
		t.Setenv(EnvTimeout, "soon")

		_, _, err := Parse([]string{"folders"})
		require.ErrorContains(t, err, EnvTimeout)
	})
}

func TestLoadConfig_defaults(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
	assert.NoError(t, config.Validate())
}

func TestLoadConfig_invalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("url: [unterminated"), 0o600))

	_, err := LoadConfig(path)
	require.ErrorContains(t, err, "parsing config")
}
