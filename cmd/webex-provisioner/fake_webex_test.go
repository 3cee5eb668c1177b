// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/monadic/webex-provisioner/internal/config"
)

// fakeWebex serves the handful of Webex endpoints the provisioner calls.
type fakeWebex struct {
	mu        sync.Mutex
	existing  []string
	created   []map[string]any
	failNames map[string]bool
	revoked   bool
}

func (f *fakeWebex) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/identity/scim/v2/Users/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"id":          "user-1",
			"displayName": "Ada Lovelace",
			"urn:scim:schemas:extension:cisco:webexidentity:2.0:User": map[string]any{
				"meta": map[string]any{"organizationId": "org-1"},
			},
		})
	})
	mux.HandleFunc("/v1/identity/organizations/org-1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "org-1", "displayName": "Acme"})
	})
	mux.HandleFunc("/idb/tokens/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			f.mu.Lock()
			f.revoked = true
			f.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "user-1"})
	})
	mux.HandleFunc("/v1/locations", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"items": []map[string]any{
			{"id": "loc-1", "name": "HQ", "address": map[string]any{"city": "Oslo"}},
		}})
	})
	mux.HandleFunc("/v1/workspaces", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		if r.Method == http.MethodPost {
			var payload map[string]any
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
				return
			}
			name, _ := payload["displayName"].(string)
			if f.failNames[name] {
				writeJSON(w, http.StatusConflict, map[string]any{"message": "Workspace name already in use", "trackingId": "t-1"})
				return
			}
			f.created = append(f.created, payload)
			writeJSON(w, http.StatusOK, map[string]any{"id": fmt.Sprintf("ws-%d", len(f.created)), "displayName": name})
			return
		}

		items := []map[string]any{}
		for i, name := range f.existing {
			items = append(items, map[string]any{"id": fmt.Sprintf("old-%d", i), "displayName": name})
		}
		for i, p := range f.created {
			items = append(items, map[string]any{"id": fmt.Sprintf("ws-%d", i+1), "displayName": p["displayName"]})
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	})
	return mux
}

func (f *fakeWebex) createdNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.created))
	for i, p := range f.created {
		out[i], _ = p["displayName"].(string)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// testEnv is an isolated home directory and config file pointing at a fake Webex.
type testEnv struct {
	fake       *fakeWebex
	dir        string
	configPath string
	cfg        *config.Config
}

func newTestEnv(t *testing.T, fake *fakeWebex) *testEnv {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv(config.EnvAccessToken, "")
	t.Setenv(config.EnvAPIBaseURL, "")
	t.Setenv(config.EnvClientID, "")

	cfg := config.Default()
	cfg.APIBaseURL = srv.URL + "/v1"
	cfg.IdentityURL = srv.URL + "/idb"
	cfg.CredentialsPath = filepath.Join(dir, "auth.json")
	cfg.LogDir = filepath.Join(dir, "logs")
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.MaxRetries = 1

	configPath := filepath.Join(dir, "webex-provisioner.yaml")
	content := fmt.Sprintf("apiBaseURL: %s\nidentityURL: %s\ncredentialsPath: %s\nlogDir: %s\noutputDir: %s\nmaxRetries: 1\n",
		cfg.APIBaseURL, cfg.IdentityURL, cfg.CredentialsPath, cfg.LogDir, cfg.OutputDir)
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	return &testEnv{fake: fake, dir: dir, configPath: configPath, cfg: cfg}
}

func (e *testEnv) writeCSV(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

// run executes the CLI in-process with the test config.
func (e *testEnv) run(args ...string) (string, error) {
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores every flag to its default so commands do not leak state
// between in-process runs.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
