package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8000/api", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 2000*time.Millisecond, cfg.Chat.TypingClear)
	assert.Equal(t, 1200*time.Millisecond, cfg.Chat.TypingDebounce)
	assert.Equal(t, 4000*time.Millisecond, cfg.Inbox.PollInterval)
	assert.Equal(t, int64(1<<20), cfg.Chat.ReadLimit)
	assert.True(t, cfg.Inbox.PrefetchProducts)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, Validate(cfg))
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marketchat.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[api]
base_url = "https://shop.example.com/api"

[chat]
typing_clear = "3s"

[log]
level = "debug"
`), 0o600))

	t.Setenv("MARKETCHAT_AUTH_TOKEN", "tok")
	t.Setenv("MARKETCHAT_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Chat.TypingClear)
	assert.Equal(t, 1200*time.Millisecond, cfg.Chat.TypingDebounce)
	assert.Equal(t, "tok", cfg.Auth.Token)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		return &Config{
			API:   APIConfig{BaseURL: "http://localhost:8000/api", Timeout: time.Second},
			Chat:  ChatConfig{TypingClear: time.Second, TypingDebounce: time.Second, ReadLimit: 1024},
			Inbox: InboxConfig{PollInterval: time.Second},
		}
	}

	assert.NoError(t, Validate(valid()))

	cfg := valid()
	cfg.API.BaseURL = "ftp://localhost"
	assert.ErrorContains(t, Validate(cfg), "http or https")

	cfg = valid()
	cfg.API.BaseURL = ""
	assert.ErrorContains(t, Validate(cfg), "api.base_url is required")

	cfg = valid()
	cfg.Chat.TypingClear = 0
	cfg.Inbox.PollInterval = -time.Second
	err := Validate(cfg)
	assert.ErrorContains(t, err, "chat.typing_clear must be positive")
	assert.ErrorContains(t, err, "inbox.poll_interval must be positive")
}

func TestInit(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "marketchat.toml")
	require.NoError(t, Init(path))
	assert.Error(t, Init(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Log.Pretty)
	assert.NoError(t, Validate(cfg))
}
