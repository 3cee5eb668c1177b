// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package webex

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrNotLoggedIn is returned by CredentialStore.Load when nothing is stored.
var ErrNotLoggedIn = errors.New("not logged in")

// ErrTokenExpired is returned when stored credentials are past their expiry.
var ErrTokenExpired = errors.New("access token expired")

// DefaultTokenLifetime applies when a sign-in redirect carries no expires_in.
const DefaultTokenLifetime = 60 * time.Minute

// Credentials hold an access token and its expiry.
type Credentials struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the token is past its expiry. Credentials without an
// expiry never expire.
func (c *Credentials) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return now.After(c.ExpiresAt)
}

// CredentialStore persists credentials as a JSON file.
type CredentialStore struct {
	Path string
}

// DefaultCredentialsPath returns ~/.webex-provisioner/auth.json.
func DefaultCredentialsPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".webex-provisioner", "auth.json")
}

// NewCredentialStore returns a store at path, or at DefaultCredentialsPath when path
// is empty.
func NewCredentialStore(path string) *CredentialStore {
	if path == "" {
		path = DefaultCredentialsPath()
	}
	return &CredentialStore{Path: path}
}

// Load reads stored credentials. It returns ErrNotLoggedIn when the file does not
// exist or holds no token.
func (s *CredentialStore) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotLoggedIn
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", s.Path, err)
	}
	if creds.AccessToken == "" {
		return nil, ErrNotLoggedIn
	}
	return &creds, nil
}

// Save writes credentials readable only by the current user.
func (s *CredentialStore) Save(creds *Credentials) error {
	if creds == nil || creds.AccessToken == "" {
		return ErrTokenRequired
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// Clear removes stored credentials (logout).
func (s *CredentialStore) Clear() error {
	err := os.Remove(s.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}

// AuthorizeURL builds the implicit-grant sign-in URL.
func AuthorizeURL(authorizeURL, clientID, redirectURI string, scopes []string) string {
	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("response_type", "token")
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", strings.Join(scopes, " "))
	return authorizeURL + "?" + q.Encode()
}

// CredentialsFromRedirect reads access_token, expires_in and token_type from the URL
// the browser was sent to after sign-in. Fragment parameters win over query
// parameters.
func CredentialsFromRedirect(raw string, now time.Time) (*Credentials, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse redirect URL: %w", err)
	}
	fragment, _ := url.ParseQuery(u.Fragment)
	query := u.Query()
	param := func(key string) string {
		if v := fragment.Get(key); v != "" {
			return v
		}
		return query.Get(key)
	}

	token := param("access_token")
	if token == "" {
		return nil, fmt.Errorf("redirect URL has no access_token: %w", ErrTokenRequired)
	}

	lifetime := DefaultTokenLifetime
	if v := param("expires_in"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid expires_in %q: %w", v, err)
		}
		lifetime = time.Duration(secs) * time.Second
	}

	return &Credentials{
		AccessToken: token,
		TokenType:   param("token_type"),
		ExpiresAt:   now.Add(lifetime),
	}, nil
}
