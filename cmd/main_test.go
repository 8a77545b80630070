package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/sherlock/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"start", "claude", "happy", "gemini", "codex", "run", "config"} {
		assert.Contains(t, names, want)
	}
}

func TestToolEnv(t *testing.T) {
	environ := []string{"PATH=/usr/bin", "ANTHROPIC_BASE_URL=https://api.anthropic.com", "HOME=/home/me"}

	env := toolEnv(environ, []string{"ANTHROPIC_BASE_URL"}, "http://127.0.0.1:8080")

	assert.Equal(t, []string{"PATH=/usr/bin", "HOME=/home/me", "ANTHROPIC_BASE_URL=http://127.0.0.1:8080"}, env)
}

func TestToolEnv_MultipleVars(t *testing.T) {
	env := toolEnv(nil, []string{"GOOGLE_GEMINI_BASE_URL", "GEMINI_API_BASE_URL"}, "http://x")
	assert.Equal(t, []string{"GOOGLE_GEMINI_BASE_URL=http://x", "GEMINI_API_BASE_URL=http://x"}, env)
}

func TestRun_UnknownProvider(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "missing.yaml")

	_, err := execute(t, "--config", cfgPath, "run", "-P", "bedrock", "true")
	assert.ErrorIs(t, err, config.ErrUnknownProvider)
}

func TestRun_RequiresProvider(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "missing.yaml")

	_, err := execute(t, "--config", cfgPath, "run", "true")
	assert.Error(t, err)
}

func TestRun_PropagatesExitCodeAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "missing.yaml")
	marker := filepath.Join(dir, "env.txt")

	_, err := execute(t, "--config", cfgPath, "run", "-P", "openai",
		"sh", "-c", `printf %s "$OPENAI_BASE_URL" > "$0"; exit 3`, marker)

	var exitErr *exitCodeError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.code)

	got, readErr := os.ReadFile(marker)
	require.NoError(t, readErr)
	assert.Equal(t, "http://127.0.0.1:8080", string(got))
}

func TestConfigInitAndShow(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	_, err := execute(t, "--config", cfgPath, "config", "init")
	require.NoError(t, err)
	assert.FileExists(t, cfgPath)

	_, err = execute(t, "--config", cfgPath, "config", "init")
	assert.Error(t, err, "refuses to overwrite")

	_, err = execute(t, "--config", cfgPath, "config", "init", "--force")
	assert.NoError(t, err)

	out, err := execute(t, "--config", cfgPath, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "providers:")
	assert.Contains(t, out, "api.anthropic.com")
}

func TestSetupLogging_FileAndLevel(t *testing.T) {
	defer func() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Logger = zerolog.New(os.Stderr)
	}()
	path := filepath.Join(t.TempDir(), "logs", "sherlock.log")

	closer, err := setupLogging(config.LoggingConfig{Level: "warn", Format: "json", Output: path}, false, false)
	require.NoError(t, err)
	log.Info().Msg("hidden")
	log.Warn().Msg("visible")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"visible"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestSetupLogging_DebugFlagWins(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	closer, err := setupLogging(config.LoggingConfig{Level: "error", Output: "none"}, true, false)
	require.NoError(t, err)
	defer closer.Close()
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestSetupLogging_DashboardRedirectsToFile(t *testing.T) {
	defer func() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Logger = zerolog.New(os.Stderr)
	}()
	home := t.TempDir()
	t.Setenv("HOME", home)

	closer, err := setupLogging(config.LoggingConfig{Output: "stderr"}, false, true)
	require.NoError(t, err)
	defer closer.Close()

	assert.FileExists(t, filepath.Join(home, ".sherlock", "sherlock.log"))
}

func TestSetupLogging_InvalidLevel(t *testing.T) {
	_, err := setupLogging(config.LoggingConfig{Level: "loud"}, false, false)
	assert.Error(t, err)
}
