package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CHATRELAY_CONFIG", "")
	t.Setenv("CHATRELAY_DISCORD_TOKEN", "test-token")
}

func TestLoad_Defaults(t *testing.T) {
	setupEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "test-token", cfg.DiscordToken)
	require.Equal(t, "microsoft/DialoGPT-large", cfg.Model)
	require.Equal(t, 1024, cfg.MaxLength)
	require.InDelta(t, 0.7, cfg.Temperature, 1e-9)
	require.Equal(t, 50, cfg.TopK)
	require.InDelta(t, 0.95, cfg.TopP, 1e-9)
	require.Equal(t, "conversations.db", cfg.DBPath)
	require.Equal(t, 4, cfg.MaxConcurrentGenerations)
}

func TestLoad_RequiresDiscordToken(t *testing.T) {
	t.Setenv("CHATRELAY_CONFIG", "")
	t.Setenv("CHATRELAY_DISCORD_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "CHATRELAY_DISCORD_TOKEN"))
}

func TestLoad_EnvOverrides(t *testing.T) {
	setupEnv(t)
	t.Setenv("CHATRELAY_MODEL", "microsoft/DialoGPT-medium")
	t.Setenv("CHATRELAY_TEMPERATURE", "0.9")
	t.Setenv("CHATRELAY_MAX_CONCURRENT_GENERATIONS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "microsoft/DialoGPT-medium", cfg.Model)
	require.InDelta(t, 0.9, cfg.Temperature, 1e-9)
	require.Equal(t, 0, cfg.MaxConcurrentGenerations)
}

func TestLoad_ConfigFileWithEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	content := "discord_token: file-token\nmodel: from-file\ntop_k: 10\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("CHATRELAY_CONFIG", path)
	t.Setenv("CHATRELAY_DISCORD_TOKEN", "")
	t.Setenv("CHATRELAY_MODEL", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "file-token", cfg.DiscordToken)
	require.Equal(t, "from-env", cfg.Model)
	require.Equal(t, 10, cfg.TopK)
}

func TestLoad_ValidatesDevice(t *testing.T) {
	setupEnv(t)
	t.Setenv("CHATRELAY_DEVICE", "tpu")

	_, err := Load()
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "CHATRELAY_DEVICE"))
}

func TestLoad_ValidatesTopP(t *testing.T) {
	setupEnv(t)
	t.Setenv("CHATRELAY_TOP_P", "1.5")

	_, err := Load()
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "CHATRELAY_TOP_P"))
}
