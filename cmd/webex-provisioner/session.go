// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/monadic/webex-provisioner/internal/config"
	"github.com/monadic/webex-provisioner/internal/provision"
	"github.com/monadic/webex-provisioner/internal/workflow"
)

// app is what every command works with: the loaded config, the file logger, and a
// session wired to both.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	session *provision.Session
}

func loadConfig() (*config.Config, error) {
	return config.NewLoader(nil).Load(flagConfig)
}

func openApp(opts ...provision.Option) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cfg, opts...)
}

func newApp(cfg *config.Config, opts ...provision.Option) (*app, error) {
	level := cfg.LogLevel
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	log, err := newLogger(cfg.LogDir, level, flagVerbose)
	if err != nil {
		return nil, err
	}

	controller := workflow.NewController(
		workflow.WithLogger(log.Named("workflow")),
		workflow.WithPanels(provision.PanelKeys()...),
	)
	all := []provision.Option{
		provision.WithLogger(log),
		provision.WithController(controller),
	}
	s, err := provision.NewSession(cfg, append(all, opts...)...)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	return &app{cfg: cfg, log: log, session: s}, nil
}

func (a *app) Close() {
	_ = a.log.Sync()
}

// signIn resumes the stored session and loads the user's identity.
func (a *app) signIn(ctx context.Context) error {
	if err := a.session.Resume(ctx); err != nil {
		return err
	}
	if _, err := a.session.LoadIdentity(ctx); err != nil {
		a.log.Warn("identity lookup failed", zap.Error(err))
	}
	return nil
}

// openReview signs in, uploads path and moves to the review panel.
func (a *app) openReview(ctx context.Context, path string) error {
	if err := a.signIn(ctx); err != nil {
		return err
	}
	c := a.session.Controller()
	c.SelectOption(provision.OptionWorkspaces)
	if err := a.session.LoadJobFile(path); err != nil {
		return err
	}
	c.Advance()
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
