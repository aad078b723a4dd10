package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	v := viper.New()
	require.NoError(t, Init(v, ""))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.APIURL)
	assert.Equal(t, "ws://localhost:8000/ws/logs", cfg.FeedURL())
	assert.Equal(t, 500*time.Millisecond, cfg.ConnectDelay)
	assert.Equal(t, 3*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, ":7070", cfg.Listen)
	assert.True(t, filepath.IsAbs(cfg.TokenFile) || cfg.TokenFile[0] == '~')
}

func TestFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_url: https://api.example.org
ws_url: wss://api.example.org/
reconnect_delay: 10s
token_file: /tmp/pulse-token.json
`), 0o600))
	t.Setenv("PULSE_LOG_LEVEL", "debug")

	v := viper.New()
	require.NoError(t, Init(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.org", cfg.APIURL)
	assert.Equal(t, "wss://api.example.org/ws/logs", cfg.FeedURL())
	assert.Equal(t, 10*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, "/tmp/pulse-token.json", cfg.TokenFile)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestExplicitFileMustExist(t *testing.T) {
	v := viper.New()
	assert.Error(t, Init(v, filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestValidation(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("api_url", "")
	v.Set("log_format", "xml")
	v.Set("reconnect_delay", "0s")

	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apiurl is required")
	assert.Contains(t, err.Error(), "logformat must be one of: console json")
	assert.Contains(t, err.Error(), "reconnectdelay must be greater than 0")
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".pulse", "token.json"), expandHome("~/.pulse/token.json"))
	assert.Equal(t, "/abs/path", expandHome("/abs/path"))
	assert.Equal(t, "rel/~x", expandHome("rel/~x"))
}
