package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/sitesmith/internal/app"
	"github.com/dshills/sitesmith/internal/config"
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

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "sitesmith dev")
}

func TestPacksCmd(t *testing.T) {
	t.Setenv("SITESMITH_LOG_LEVEL", "error")

	out, err := execute(t, "packs", "--locale", "en-US")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	require.True(t, strings.HasPrefix(lines[0], "ID"))
	require.True(t, strings.HasPrefix(lines[1], "starter"))
	require.Contains(t, out, "price_studio")
}

func TestPacksCmd_BadLocale(t *testing.T) {
	t.Setenv("SITESMITH_LOG_LEVEL", "error")

	_, err := execute(t, "packs", "--locale", "!!")
	require.Error(t, err)
}

func TestTokenCmd(t *testing.T) {
	t.Setenv("SITESMITH_LOG_LEVEL", "error")
	t.Setenv("SITESMITH_AUTH_SECRET", "test-secret-0123456789")

	out, err := execute(t, "token", "user-1", "ada@example.com")
	require.NoError(t, err)

	authCfg := config.Default().Auth
	authCfg.Secret = "test-secret-0123456789"
	v, err := app.NewVerifier(authCfg)
	require.NoError(t, err)
	id, err := v.Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	require.Equal(t, "user-1", id.UserID)
	require.Equal(t, "ada@example.com", id.Email)
}

func TestTokenCmd_NoSecret(t *testing.T) {
	t.Setenv("SITESMITH_LOG_LEVEL", "error")
	t.Setenv("SITESMITH_AUTH_SECRET", "")

	_, err := execute(t, "token", "user-1", "ada@example.com")
	require.ErrorIs(t, err, app.ErrNoAuthSecret)
}

func TestRebuildCmd_NoKey(t *testing.T) {
	t.Setenv("SITESMITH_LOG_LEVEL", "error")
	t.Setenv("SITESMITH_AI_API_KEY", "")

	_, err := execute(t, "rebuild", "https://example.com")
	require.ErrorIs(t, err, app.ErrNoAIKey)
}

func TestRootCmd_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitesmith.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\n"), 0o600))

	_, err := execute(t, "--config", path, "packs")
	require.Error(t, err)
}
