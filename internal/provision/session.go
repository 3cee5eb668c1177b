// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package provision runs the workspace provisioning workflow: sign-in, identity
// lookup, reviewing an uploaded CSV against the organization, and bulk creation.
//
// A Session is shared by the interactive wizard and the one-shot CLI commands. Both
// drive the same workflow.Controller; pipelines report progress as controller actions.
package provision

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/monadic/webex-provisioner/internal/config"
	"github.com/monadic/webex-provisioner/internal/schema"
	"github.com/monadic/webex-provisioner/internal/workflow"
	"github.com/monadic/webex-provisioner/pkg/webex"
)

// OptionWorkspaces is the workflow that creates workspaces.
const OptionWorkspaces = "workspaces"

var (
	// ErrNoFile is returned when a pipeline needs an uploaded file and there is none.
	ErrNoFile = errors.New("no file uploaded")

	// ErrTokenRejected is returned when the identity broker does not accept the token.
	ErrTokenRejected = errors.New("access token not valid; check its scopes and try again")
)

// API is the part of the Webex client the workflow needs.
type API interface {
	ValidateToken(ctx context.Context) (bool, error)
	RevokeToken(ctx context.Context) error
	Me(ctx context.Context) (*webex.Person, error)
	Organization(ctx context.Context, id string) (*webex.Organization, error)
	ListWorkspaces(ctx context.Context, params url.Values, progress func(count int)) ([]webex.Workspace, error)
	ListLocations(ctx context.Context, params url.Values, progress func(count int)) ([]webex.Location, error)
	CreateWorkspace(ctx context.Context, payload map[string]any) (*webex.Workspace, error)
}

// APIFactory builds an API for credentials.
type APIFactory func(creds *webex.Credentials) (API, error)

// Job is an uploaded CSV file.
type Job struct {
	Name string
	Data []byte
}

// Session owns everything one user works with: configuration, credentials,
// the API client, the workflow controller, and the current job.
type Session struct {
	cfg        *config.Config
	store      *webex.CredentialStore
	controller *workflow.Controller
	schema     schema.Fields
	log        *zap.Logger
	newAPI     APIFactory
	recorder   RunRecorder
	now        func() time.Time

	mu  sync.Mutex
	api API
	job *Job
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithController uses an existing controller.
func WithController(c *workflow.Controller) Option {
	return func(s *Session) {
		s.controller = c
	}
}

// WithAPIFactory replaces the Webex client constructor.
func WithAPIFactory(f APIFactory) Option {
	return func(s *Session) {
		s.newAPI = f
	}
}

// WithRecorder records bulk runs, e.g. to a log file.
func WithRecorder(r RunRecorder) Option {
	return func(s *Session) {
		s.recorder = r
	}
}

// WithClock sets the time source used for token expiry and output file names.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithSchema replaces the workspace payload schema.
func WithSchema(fields schema.Fields) Option {
	return func(s *Session) {
		s.schema = fields
	}
}

// NewSession creates a session for cfg. The payload schema is read from
// cfg.SchemaFile when set.
func NewSession(cfg *config.Config, opts ...Option) (*Session, error) {
	s := &Session{
		cfg:   cfg,
		store: webex.NewCredentialStore(cfg.CredentialsPath),
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.controller == nil {
		s.controller = workflow.NewController(workflow.WithLogger(s.log), workflow.WithPanels(PanelKeys()...))
	}
	if s.newAPI == nil {
		s.newAPI = s.webexAPI
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.schema == nil {
		if cfg.SchemaFile != "" {
			fields, err := schema.LoadFile(cfg.SchemaFile)
			if err != nil {
				return nil, err
			}
			s.schema = fields
		} else {
			s.schema = schema.WorkspacePayload()
		}
	}
	return s, nil
}

func (s *Session) webexAPI(creds *webex.Credentials) (API, error) {
	return webex.NewClient(creds.AccessToken,
		webex.WithBaseURL(s.cfg.APIBaseURL),
		webex.WithIdentityURL(s.cfg.IdentityURL),
		webex.WithRetries(s.cfg.MaxRetries, s.cfg.RetryFallback),
		webex.WithHTTPClient(&http.Client{Timeout: s.cfg.RequestTimeout}),
		webex.WithLogger(s.log.Named("webex")),
	)
}

// Controller returns the workflow controller.
func (s *Session) Controller() *workflow.Controller {
	return s.controller
}

// Config returns the session configuration.
func (s *Session) Config() *config.Config {
	return s.cfg
}

// Store returns the credentials store.
func (s *Session) Store() *webex.CredentialStore {
	return s.store
}

// Mode reports the stored sign-in state. A token from the environment counts as
// logged in.
func (s *Session) Mode() webex.Mode {
	if s.cfg.AccessToken != "" {
		return webex.LoggedIn
	}
	return webex.CurrentMode(s.store, s.now())
}

func (s *Session) client() (API, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.api == nil {
		return nil, webex.ErrNotLoggedIn
	}
	return s.api, nil
}

// Resume signs in with WEBEX_ACCESS_TOKEN or the stored credentials.
// Expired stored credentials are removed and ErrTokenExpired is returned.
func (s *Session) Resume(ctx context.Context) error {
	if s.cfg.AccessToken != "" {
		return s.authenticate(ctx, &webex.Credentials{AccessToken: s.cfg.AccessToken, TokenType: "Bearer"})
	}

	creds, err := s.store.Load()
	if err != nil {
		return err
	}
	if creds.Expired(s.now()) {
		if err := s.store.Clear(); err != nil {
			s.log.Warn("failed to clear expired credentials", zap.Error(err))
		}
		return webex.ErrTokenExpired
	}
	return s.authenticate(ctx, creds)
}

// Login signs in with creds and stores them for later sessions.
func (s *Session) Login(ctx context.Context, creds *webex.Credentials) error {
	if creds == nil || creds.AccessToken == "" {
		return webex.ErrTokenRequired
	}
	if creds.Expired(s.now()) {
		return webex.ErrTokenExpired
	}
	if err := s.authenticate(ctx, creds); err != nil {
		return err
	}
	if err := s.store.Save(creds); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

// authenticate builds the API client, optionally checks the token, and moves the
// controller from login to loading.
func (s *Session) authenticate(ctx context.Context, creds *webex.Credentials) error {
	api, err := s.newAPI(creds)
	if err != nil {
		return err
	}
	if s.cfg.ValidateToken {
		ok, err := api.ValidateToken(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTokenRejected
		}
	}

	s.mu.Lock()
	s.api = api
	s.mu.Unlock()
	s.log.Info("signed in", zap.String("tokenType", creds.TokenType))

	if s.controller.Stage() == workflow.StageLogin {
		s.controller.EnableNext()
		s.controller.Advance()
	}
	return nil
}

// LoadIdentity looks up the signed-in user and organization and moves the controller
// from loading to option selection. Lookup failures leave a partial identity; the
// controller still advances and the error is returned for display.
func (s *Session) LoadIdentity(ctx context.Context) (workflow.Identity, error) {
	api, err := s.client()
	if err != nil {
		return workflow.Identity{}, err
	}

	id, err := lookupIdentity(ctx, api, s.log)
	s.controller.SetIdentity(id)
	if s.controller.Stage() == workflow.StageLoading {
		s.controller.Advance()
	}
	return id, err
}

func lookupIdentity(ctx context.Context, api API, log *zap.Logger) (workflow.Identity, error) {
	me, err := api.Me(ctx)
	if err != nil {
		return workflow.Identity{}, fmt.Errorf("load profile: %w", err)
	}
	id := workflow.Identity{
		DisplayName: me.DisplayName,
		Initials:    me.Initials(),
		Thumbnail:   me.Thumbnail(),
		OrgName:     webex.DefaultOrgName,
	}
	if orgID := me.OrgID(); orgID != "" {
		org, err := api.Organization(ctx, orgID)
		if err != nil {
			log.Warn("organization lookup failed", zap.String("orgId", orgID), zap.Error(err))
		} else {
			id.OrgName = org.Name()
		}
	}
	return id, nil
}

// Logout revokes the token when possible, forgets credentials and the job, and
// returns the controller to login.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	api := s.api
	s.api = nil
	s.job = nil
	s.mu.Unlock()

	s.controller.Logout()

	if api != nil {
		if err := api.RevokeToken(ctx); err != nil {
			s.log.Warn("token revoke failed", zap.Error(err))
		}
	}
	return s.store.Clear()
}

// SetJob records an uploaded file and opens the upload gate.
func (s *Session) SetJob(name string, data []byte) {
	s.mu.Lock()
	s.job = &Job{Name: name, Data: data}
	s.mu.Unlock()
	s.controller.EnableNext()
}

// ClearJob forgets the uploaded file and closes the upload gate.
func (s *Session) ClearJob() {
	s.mu.Lock()
	s.job = nil
	s.mu.Unlock()
	s.controller.DisableNext()
}

// LoadJobFile reads path and records it as the job. When the file cannot be read
// the previous job is dropped too, so it is never reviewed by mistake.
func (s *Session) LoadJobFile(path string) error {
	if path == "" {
		s.ClearJob()
		return ErrNoFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		s.ClearJob()
		return fmt.Errorf("read %s: %w", path, err)
	}
	s.SetJob(filepath.Base(path), data)
	return nil
}

// Job returns the uploaded file, or nil.
func (s *Session) Job() *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.job
}

// Plan parses and validates the uploaded file without calling the API.
func (s *Session) Plan() (*Plan, error) {
	job := s.Job()
	if job == nil {
		return nil, ErrNoFile
	}
	return BuildPlan(string(job.Data), s.cfg.NameColumn, s.schema), nil
}

// Locations lists the organization's locations.
func (s *Session) Locations(ctx context.Context) ([]webex.Location, error) {
	api, err := s.client()
	if err != nil {
		return nil, err
	}
	return api.ListLocations(ctx, nil, nil)
}
