// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/monadic/webex-provisioner/internal/clierr"
	"github.com/monadic/webex-provisioner/pkg/webex"
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(authorizeURLCmd)

	loginCmd.Flags().String("token", "", "Personal or integration access token")
	loginCmd.Flags().String("redirect-url", "", "Full URL the browser was redirected to after signing in")
	statusCmd.Flags().Bool("json", false, "Output as JSON")
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to Webex",
	Long: `Sign in to Webex and store the credentials in ~/.webex-provisioner/auth.json.

Either pass an access token directly, or open the URL printed by
'webex-provisioner authorize-url', sign in, and pass the URL the browser
was redirected to.

Examples:
  webex-provisioner login --token $TOKEN
  webex-provisioner login --redirect-url 'http://localhost:8080/#access_token=...'
`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	token, _ := cmd.Flags().GetString("token")
	redirect, _ := cmd.Flags().GetString("redirect-url")

	var creds *webex.Credentials
	switch {
	case token != "" && redirect != "":
		return errors.New("use either --token or --redirect-url, not both")
	case token != "":
		creds = &webex.Credentials{AccessToken: token, TokenType: "Bearer"}
	case redirect != "":
		var err error
		creds, err = webex.CredentialsFromRedirect(redirect, time.Now())
		if err != nil {
			return err
		}
	default:
		return clierr.WrapWithHint(webex.ErrTokenRequired, "Pass --token, or --redirect-url after opening 'webex-provisioner authorize-url'")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := commandContext(cmd)
	if err := a.session.Login(ctx, creds); err != nil {
		return err
	}
	id, err := a.session.LoadIdentity(ctx)
	if err != nil {
		a.log.Warn("identity lookup failed", zap.Error(err))
		fmt.Fprintln(cmd.OutOrStdout(), "Signed in.")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", id.DisplayName, id.OrgName)
	return nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the stored token and forget it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := commandContext(cmd)
		// Resuming first lets Logout revoke the token at the identity broker.
		if err := a.session.Resume(ctx); err != nil {
			a.log.Debug("no session to revoke", zap.Error(err))
		}
		if err := a.session.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var authorizeURLCmd = &cobra.Command{
	Use:   "authorize-url",
	Short: "Print the browser sign-in URL",
	Long: `Print the Webex sign-in URL for the configured integration.

Open it in a browser, sign in, then pass the URL you are redirected to:
  webex-provisioner login --redirect-url '<URL>'
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), webex.AuthorizeURL(cfg.AuthorizeURL, cfg.ClientID, cfg.RedirectURI, cfg.Scopes))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sign-in status",
	Long: `Show whether you are signed in to Webex, as whom, and for how long.

Examples:
  webex-provisioner status
  webex-provisioner status --json
`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

// StatusInfo holds status information for display
type StatusInfo struct {
	Mode            string     `json:"mode"`
	DisplayName     string     `json:"displayName,omitempty"`
	OrgName         string     `json:"orgName,omitempty"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	APIBaseURL      string     `json:"apiBaseURL"`
	CredentialsPath string     `json:"credentialsPath"`
	Error           string     `json:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	mode := a.session.Mode()
	status := StatusInfo{
		Mode:            mode.String(),
		APIBaseURL:      a.cfg.APIBaseURL,
		CredentialsPath: a.session.Store().Path,
	}
	if creds, err := a.session.Store().Load(); err == nil && !creds.ExpiresAt.IsZero() {
		status.ExpiresAt = &creds.ExpiresAt
	}

	if mode == webex.LoggedIn {
		ctx, cancel := context.WithTimeout(commandContext(cmd), 10*time.Second)
		defer cancel()
		if err := a.signIn(ctx); err != nil {
			status.Error = err.Error()
		} else {
			id := a.session.Controller().Identity()
			status.DisplayName = id.DisplayName
			status.OrgName = id.OrgName
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	printStatus(cmd.OutOrStdout(), status, time.Now())
	return nil
}

func printStatus(w io.Writer, s StatusInfo, now time.Time) {
	switch s.Mode {
	case webex.LoggedIn.String():
		fmt.Fprintf(w, "Webex:      %s Signed in", statusOK.Render("●"))
		if s.DisplayName != "" {
			fmt.Fprintf(w, " as %s", s.DisplayName)
		}
		if s.OrgName != "" {
			fmt.Fprintf(w, " (%s)", s.OrgName)
		}
		fmt.Fprintln(w)
		if s.ExpiresAt != nil {
			fmt.Fprintf(w, "Expires:    in %s\n", formatDuration(s.ExpiresAt.Sub(now)))
		}
		if s.Error != "" {
			fmt.Fprintf(w, "            %s\n", statusErr.Render(s.Error))
		}
	case webex.Expired.String():
		fmt.Fprintf(w, "Webex:      %s Session expired\n", statusWarn.Render("○"))
		fmt.Fprintln(w, "            Run: webex-provisioner login")
	default:
		fmt.Fprintf(w, "Webex:      %s Signed out\n", statusErr.Render("○"))
		fmt.Fprintln(w, "            Run: webex-provisioner login")
	}
	fmt.Fprintf(w, "API:        %s\n", s.APIBaseURL)
	fmt.Fprintf(w, "Stored at:  %s\n", s.CredentialsPath)
}
