// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLoader(t *testing.T, env map[string]string) *Loader {
	t.Helper()
	return &Loader{
		log:     zap.NewNop(),
		homeDir: t.TempDir(),
		workDir: t.TempDir(),
		getenv:  func(k string) string { return env[k] },
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "https://webexapis.com/v1", cfg.APIBaseURL)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryFallback)
	assert.Equal(t, []string{"Workspace Name"}, cfg.RequiredHeaders)
	assert.False(t, cfg.AllowConflicts)
	assert.True(t, cfg.ValidateToken)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Layers(t *testing.T) {
	l := testLoader(t, map[string]string{
		EnvClientID:    "env-client",
		EnvAccessToken: "env-token",
	})
	writeFile(t, filepath.Join(l.homeDir, UserConfigDir, UserConfigFile), `
clientID: user-client
maxRetries: 5
retryFallback: 250ms
logDir: ~/logs
`)
	writeFile(t, filepath.Join(l.workDir, ProjectConfigFile), `
maxRetries: 7
allowConflicts: true
requiredHeaders: ["Workspace Name", "Capacity"]
`)

	cfg, err := l.Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-client", cfg.ClientID)
	assert.Equal(t, "env-token", cfg.AccessToken)
	assert.Equal(t, 7, cfg.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryFallback)
	assert.True(t, cfg.AllowConflicts)
	assert.Equal(t, []string{"Workspace Name", "Capacity"}, cfg.RequiredHeaders)
	assert.Equal(t, filepath.Join(l.homeDir, "logs"), cfg.LogDir)
	assert.Equal(t, "https://webexapis.com/v1", cfg.APIBaseURL)
}

func TestLoad_ExplicitPathReplacesProjectFile(t *testing.T) {
	l := testLoader(t, nil)
	writeFile(t, filepath.Join(l.workDir, ProjectConfigFile), "maxRetries: 9\n")
	explicit := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, explicit, "apiBaseURL: http://localhost:9999/v1\n")

	cfg, err := l.Load(explicit)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999/v1", cfg.APIBaseURL)
	assert.Equal(t, 3, cfg.MaxRetries)

	_, err = l.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvBaseURL(t *testing.T) {
	l := testLoader(t, map[string]string{EnvAPIBaseURL: "http://env/v1"})

	cfg, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://env/v1", cfg.APIBaseURL)
	assert.Empty(t, cfg.AccessToken)
}

func TestLoad_Errors(t *testing.T) {
	l := testLoader(t, nil)
	writeFile(t, filepath.Join(l.workDir, ProjectConfigFile), "maxRetries: [\n")
	_, err := l.Load("")
	assert.ErrorContains(t, err, "parse config")

	l = testLoader(t, nil)
	writeFile(t, filepath.Join(l.workDir, ProjectConfigFile), "maxRetries: 0\napiBaseURL: \"\"\n")
	_, err = l.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maxRetries")
	assert.Contains(t, err.Error(), "apiBaseURL")
}

func TestValidate_LogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "loud"
	assert.ErrorContains(t, cfg.Validate(), "logLevel")
}
