// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package config loads provisioner settings.
//
// Settings are layered: built-in defaults, then the user file
// (~/.config/webex-provisioner/config.yaml), then the project file
// (webex-provisioner.yaml in the working directory) or an explicit --config file,
// then environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/monadic/webex-provisioner/pkg/webex"
)

const (
	// ProjectConfigFile is looked up in the working directory.
	ProjectConfigFile = "webex-provisioner.yaml"
	// UserConfigDir is relative to the home directory.
	UserConfigDir = ".config/webex-provisioner"
	// UserConfigFile is the file name inside UserConfigDir.
	UserConfigFile = "config.yaml"
)

// Environment variables read by Load.
const (
	EnvAccessToken = "WEBEX_ACCESS_TOKEN"
	EnvAPIBaseURL  = "WEBEX_API_BASE_URL"
	EnvClientID    = "WEBEX_CLIENT_ID"
)

// DefaultClientID is the public integration used by the hosted provisioner.
const DefaultClientID = "C2259fa2711278160440c28b1927e845cdc0e14daadc5595ec0b6ad513cab84ca"

// Config holds every provisioner setting.
type Config struct {
	APIBaseURL   string   `yaml:"apiBaseURL"`
	IdentityURL  string   `yaml:"identityURL"`
	AuthorizeURL string   `yaml:"authorizeURL"`
	ClientID     string   `yaml:"clientID"`
	Scopes       []string `yaml:"scopes"`
	RedirectURI  string   `yaml:"redirectURI"`

	MaxRetries     int           `yaml:"maxRetries"`
	RetryFallback  time.Duration `yaml:"retryFallback"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`

	CredentialsPath string `yaml:"credentialsPath"`
	LogDir          string `yaml:"logDir"`
	OutputDir       string `yaml:"outputDir"`
	LogLevel        string `yaml:"logLevel"`

	RequiredHeaders []string `yaml:"requiredHeaders"`
	NameColumn      string   `yaml:"nameColumn"`
	AllowConflicts  bool     `yaml:"allowConflicts"`
	ValidateToken   bool     `yaml:"validateToken"`
	SchemaFile      string   `yaml:"schemaFile"`

	// AccessToken comes from WEBEX_ACCESS_TOKEN only and is never written to disk.
	AccessToken string `yaml:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		APIBaseURL:      webex.DefaultAPIBaseURL,
		IdentityURL:     webex.DefaultIdentityURL,
		AuthorizeURL:    webex.DefaultAuthorizeURL,
		ClientID:        DefaultClientID,
		Scopes:          append([]string(nil), webex.DefaultScopes...),
		RedirectURI:     webex.DefaultRedirectURI,
		MaxRetries:      3,
		RetryFallback:   time.Second,
		RequestTimeout:  30 * time.Second,
		CredentialsPath: webex.DefaultCredentialsPath(),
		LogDir:          filepath.Join(home, ".webex-provisioner", "logs"),
		OutputDir:       ".",
		LogLevel:        "info",
		RequiredHeaders: []string{"Workspace Name"},
		NameColumn:      "Workspace Name",
		ValidateToken:   true,
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs field.ErrorList
	if strings.TrimSpace(c.APIBaseURL) == "" {
		errs = append(errs, field.Required(field.NewPath("apiBaseURL"), ""))
	}
	if c.MaxRetries < 1 {
		errs = append(errs, field.Invalid(field.NewPath("maxRetries"), c.MaxRetries, "must be at least 1"))
	}
	if c.RetryFallback < 0 {
		errs = append(errs, field.Invalid(field.NewPath("retryFallback"), c.RetryFallback.String(), "must not be negative"))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, field.Invalid(field.NewPath("requestTimeout"), c.RequestTimeout.String(), "must not be negative"))
	}
	if strings.TrimSpace(c.NameColumn) == "" {
		errs = append(errs, field.Required(field.NewPath("nameColumn"), ""))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, field.NotSupported(field.NewPath("logLevel"), c.LogLevel, []string{"debug", "info", "warn", "error"}))
	}
	if agg := errs.ToAggregate(); agg != nil {
		return fmt.Errorf("invalid config: %w", agg)
	}
	return nil
}

// Loader applies the configuration layers.
type Loader struct {
	log     *zap.Logger
	homeDir string
	workDir string
	getenv  func(string) string
}

// NewLoader creates a loader for the current user and working directory.
func NewLoader(log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	home, _ := os.UserHomeDir()
	wd, _ := os.Getwd()
	return &Loader{log: log, homeDir: home, workDir: wd, getenv: os.Getenv}
}

// Load builds the configuration. When explicitPath is set it replaces the project
// file and must exist.
func (l *Loader) Load(explicitPath string) (*Config, error) {
	cfg := Default()

	userPath := filepath.Join(l.homeDir, UserConfigDir, UserConfigFile)
	if err := mergeFile(cfg, userPath); err == nil {
		l.log.Debug("loaded user config", zap.String("path", userPath))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if explicitPath != "" {
		if err := mergeFile(cfg, l.expand(explicitPath)); err != nil {
			return nil, err
		}
		l.log.Debug("loaded config", zap.String("path", explicitPath))
	} else {
		projectPath := filepath.Join(l.workDir, ProjectConfigFile)
		if err := mergeFile(cfg, projectPath); err == nil {
			l.log.Debug("loaded project config", zap.String("path", projectPath))
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if v := l.getenv(EnvAPIBaseURL); v != "" {
		cfg.APIBaseURL = v
	}
	if v := l.getenv(EnvClientID); v != "" {
		cfg.ClientID = v
	}
	cfg.AccessToken = l.getenv(EnvAccessToken)

	cfg.CredentialsPath = l.expand(cfg.CredentialsPath)
	cfg.LogDir = l.expand(cfg.LogDir)
	cfg.OutputDir = l.expand(cfg.OutputDir)
	cfg.SchemaFile = l.expand(cfg.SchemaFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile decodes path over cfg. Keys absent from the file keep their value.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (l *Loader) expand(path string) string {
	if path == "~" {
		return l.homeDir
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(l.homeDir, path[2:])
	}
	return path
}
