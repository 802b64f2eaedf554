package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/questkeeper/internal/logging"
	"github.com/dmitrijs2005/questkeeper/internal/server"
	"github.com/dmitrijs2005/questkeeper/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// stubApp makes every command fail right after configuration with errInit
// and records the configuration it was given.
func stubApp(t *testing.T) *config.Config {
	t.Helper()
	origApp, origOut := newApp, logOutput
	t.Cleanup(func() { newApp, logOutput = origApp, origOut })

	logOutput = io.Discard
	got := &config.Config{}
	newApp = func(_ context.Context, c *config.Config, _ logging.Logger) (*server.App, error) {
		*got = *c
		return nil, errInit
	}
	return got
}

var errInit = errors.New("init stopped by test")

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)

	for _, sub := range []string{"serve", "migrate", "seed"} {
		assert.Contains(t, out, sub, "help missing %q command", sub)
	}
	assert.Contains(t, out, "--config")
	assert.Contains(t, out, "--database_dsn")
}

func TestSeed_RequiresFile(t *testing.T) {
	stubApp(t)

	_, err := execute(t, "seed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file")
}

func TestCommands_FlagsReachConfig(t *testing.T) {
	for _, sub := range []string{"serve", "migrate"} {
		t.Run(sub, func(t *testing.T) {
			got := stubApp(t)

			_, err := execute(t, sub, "--database_dsn", "postgres://x/y", "--auth_rate_limit", "5")
			require.ErrorIs(t, err, errInit)
			assert.Equal(t, "postgres://x/y", got.DatabaseDSN)
			assert.Equal(t, 5, got.AuthRateLimit)
		})
	}
}

func TestCommands_InvalidConfig(t *testing.T) {
	stubApp(t)

	_, err := execute(t, "migrate", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, errInit)

	_, err = execute(t, "migrate", "--secret_key", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret_key")
	assert.NotErrorIs(t, err, errInit)
}
