// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/monadic/webex-provisioner/internal/provision"
	"github.com/monadic/webex-provisioner/internal/workflow"
	"github.com/monadic/webex-provisioner/pkg/webex"
)

func init() {
	rootCmd.AddCommand(wizardCmd)
	wizardCmd.Flags().String("option", "", "Workflow to open after signing in")
	wizardCmd.Flags().String("file", "", "CSV file to upload once the workflow is open")
	_ = wizardCmd.RegisterFlagCompletionFunc("option", completeOptions)
	_ = wizardCmd.RegisterFlagCompletionFunc("file", completeCSVFiles)
}

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Walk through sign-in, upload, review and creation interactively",
	Long: `Open the interactive provisioning wizard.

Steps:
  1. Sign in (stored credentials and WEBEX_ACCESS_TOKEN are used when present)
  2. Choose a workflow
  3. Upload a CSV
  4. Review: file checks, row validation, name conflicts
  5. Create the workspaces and export the results

Examples:
  webex-provisioner wizard
  webex-provisioner wizard --option workspaces --file rooms.csv
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		option, _ := cmd.Flags().GetString("option")
		file, _ := cmd.Flags().GetString("file")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		jobLog, err := NewJobLogger(cfg.LogDir, "wizard")
		if err != nil {
			return err
		}
		defer jobLog.Close()

		a, err := newApp(cfg, provision.WithRecorder(jobLog))
		if err != nil {
			return err
		}
		defer a.Close()

		m := newWizardModel(commandContext(cmd), a.session, a.log, option, file)
		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(commandContext(cmd)))
		_, err = p.Run()
		return err
	},
}

// Panel titles, keyed by combined state.
var panelTitles = map[string]string{
	"login":                "Sign In",
	"loading":              "Loading Profile",
	"selectOption":         "Choose Workflow",
	"workspacesuploadFile": "Upload File",
	"workspacesreview":     "Review",
	"workspacesrunJob":     "Create Workspaces",
}

// Wizard styles
var (
	wizardTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Background(lipgloss.Color("236")).
				Padding(0, 1)

	wizardProgressStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	wizardProgressBarFull = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82"))

	wizardProgressBarEmpty = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	wizardPaneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	wizardAvatarStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("212")).
				Padding(0, 1)

	wizardSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("212")).
				Bold(true)

	wizardHelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	wizardNoticeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214"))
)

// Messages
type stateChangedMsg struct {
	combined string
}

type resumeMsg struct{ err error }

type loginMsg struct{ err error }

type identityMsg struct {
	id  workflow.Identity
	err error
}

type reviewMsg struct {
	report *provision.ReviewReport
	err    error
}

type runMsg struct {
	report *provision.RunReport
	err    error
}

type logoutMsg struct{ err error }

// wizardModel is the bubbletea model of the provisioning wizard. The controller in
// the session owns the state; the model renders its visible panel and turns panel
// changes into commands.
type wizardModel struct {
	ctx     context.Context
	s       *provision.Session
	log     *zap.Logger
	changes chan string

	startOption string
	startFile   string

	token   textinput.Model
	file    textinput.Model
	spinner spinner.Model

	busy        bool
	busyMessage string
	notice      string
	lastRun     *provision.RunReport

	width  int
	height int
	quit   bool
}

func newWizardModel(ctx context.Context, s *provision.Session, log *zap.Logger, option, file string) wizardModel {
	if log == nil {
		log = zap.NewNop()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

	token := textinput.New()
	token.Placeholder = "access token or redirect URL"
	token.EchoMode = textinput.EchoPassword
	token.EchoCharacter = '•'
	token.Width = 60
	token.Focus()

	path := textinput.New()
	path.Placeholder = "rooms.csv"
	path.Width = 60

	changes := make(chan string, 32)
	s.Controller().OnStateChange(func(combined string) {
		select {
		case changes <- combined:
		default:
			log.Warn("wizard state change dropped", zap.String("state", combined))
		}
	})

	return wizardModel{
		ctx:         ctx,
		s:           s,
		log:         log,
		changes:     changes,
		startOption: option,
		startFile:   file,
		token:       token,
		file:        path,
		spinner:     sp,
		busy:        true,
		busyMessage: "Checking stored credentials...",
	}
}

// Init starts the spinner, listens for panel changes and tries stored credentials.
func (m wizardModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		textinput.Blink,
		m.waitForStateChange(),
		m.resumeCmd(),
	)
}

func (m wizardModel) waitForStateChange() tea.Cmd {
	ch := m.changes
	return func() tea.Msg {
		return stateChangedMsg{combined: <-ch}
	}
}

func (m wizardModel) resumeCmd() tea.Cmd {
	s, ctx := m.s, m.ctx
	return func() tea.Msg {
		return resumeMsg{err: s.Resume(ctx)}
	}
}

func (m wizardModel) loginCmd(creds *webex.Credentials) tea.Cmd {
	s, ctx := m.s, m.ctx
	return func() tea.Msg {
		return loginMsg{err: s.Login(ctx, creds)}
	}
}

func (m wizardModel) identityCmd() tea.Cmd {
	s, ctx := m.s, m.ctx
	return func() tea.Msg {
		id, err := s.LoadIdentity(ctx)
		return identityMsg{id: id, err: err}
	}
}

func (m wizardModel) reviewCmd() tea.Cmd {
	s, ctx := m.s, m.ctx
	return func() tea.Msg {
		report, err := s.Review(ctx)
		return reviewMsg{report: report, err: err}
	}
}

func (m wizardModel) runCmd() tea.Cmd {
	s, ctx := m.s, m.ctx
	return func() tea.Msg {
		report, err := s.Run(ctx)
		return runMsg{report: report, err: err}
	}
}

func (m wizardModel) logoutCmd() tea.Cmd {
	s, ctx := m.s, m.ctx
	return func() tea.Msg {
		return logoutMsg{err: s.Logout(ctx)}
	}
}

// Update handles messages
func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stateChangedMsg:
		var cmd tea.Cmd
		m, cmd = m.enter(msg.combined)
		return m, tea.Batch(cmd, m.waitForStateChange())

	case resumeMsg:
		m.busy = false
		switch {
		case msg.err == nil:
		case errors.Is(msg.err, webex.ErrNotLoggedIn):
		case errors.Is(msg.err, webex.ErrTokenExpired):
			m.notice = "Your session expired. Sign in again."
		default:
			m.notice = "Stored credentials were not accepted: " + msg.err.Error()
		}
		return m, nil

	case loginMsg:
		m.busy = false
		if msg.err != nil {
			m.notice = "Sign-in failed: " + msg.err.Error()
			return m, nil
		}
		m.notice = ""
		m.token.Reset()
		return m, nil

	case identityMsg:
		m.busy = false
		if msg.err != nil {
			m.notice = "Could not load your profile: " + msg.err.Error()
		}
		if m.startOption != "" && m.s.Controller().Stage() == workflow.StageSelectOption {
			option := m.startOption
			m.startOption = ""
			m.s.Controller().SelectOption(option)
		}
		return m, nil

	case reviewMsg:
		// A stopped review belongs to a panel that is gone; the visible one may be
		// running its own work.
		if (msg.report != nil && msg.report.Stopped) || m.s.Controller().CombinedState() != provision.OptionWorkspaces+"review" {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			m.notice = msg.err.Error()
		} else if msg.report != nil && msg.report.Blocked {
			m.notice = "Fix the file and upload it again (esc)."
		}
		return m, nil

	case runMsg:
		if (msg.report != nil && msg.report.Stopped) || m.s.Controller().CombinedState() != provision.OptionWorkspaces+"runJob" {
			return m, nil
		}
		m.busy = false
		m.lastRun = msg.report
		switch {
		case msg.err != nil:
			m.notice = msg.err.Error()
		case msg.report != nil && !msg.report.Stopped:
			m.notice = fmt.Sprintf("Created %d, failed %d. Results: %s", msg.report.Created, msg.report.Failed, msg.report.Output)
		}
		return m, nil

	case logoutMsg:
		m.busy = false
		if msg.err != nil {
			m.notice = "Sign-out incomplete: " + msg.err.Error()
		} else {
			m.notice = "Signed out."
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateInputs(msg)
}

// enter starts the work that belongs to a newly visible panel.
func (m wizardModel) enter(combined string) (wizardModel, tea.Cmd) {
	m.notice = ""
	switch combined {
	case "login":
		m.file.Blur()
		return m, m.token.Focus()

	case "loading":
		m.token.Blur()
		m.busy = true
		m.busyMessage = "Loading profile..."
		return m, m.identityCmd()

	case provision.OptionWorkspaces + "uploadFile":
		if m.startFile != "" {
			path := m.startFile
			m.startFile = ""
			if err := m.s.LoadJobFile(path); err != nil {
				m.notice = err.Error()
			} else {
				m.s.Controller().Advance()
				return m, nil
			}
		}
		if job := m.s.Job(); job != nil {
			m.s.Controller().EnableNext()
		}
		return m, m.file.Focus()

	case provision.OptionWorkspaces + "review":
		m.file.Blur()
		m.busy = true
		m.busyMessage = "Reviewing file..."
		return m, m.reviewCmd()

	case provision.OptionWorkspaces + "runJob":
		m.busy = true
		m.busyMessage = "Creating workspaces..."
		m.lastRun = nil
		return m, m.runCmd()
	}
	return m, nil
}

func (m wizardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.s.Controller()

	switch msg.String() {
	case "ctrl+c":
		m.quit = true
		return m, tea.Quit
	case "ctrl+l":
		if c.Stage() != workflow.StageLogin {
			m.busy = true
			m.busyMessage = "Signing out..."
			return m, m.logoutCmd()
		}
		return m, nil
	}

	switch c.CombinedState() {
	case "login":
		switch msg.String() {
		case "esc":
			m.quit = true
			return m, tea.Quit
		case "enter":
			if m.busy {
				return m, nil
			}
			creds, err := parseCredentials(m.token.Value())
			if err != nil {
				m.notice = err.Error()
				return m, nil
			}
			m.busy = true
			m.busyMessage = "Signing in..."
			return m, m.loginCmd(creds)
		}
		if !m.token.Focused() {
			m.token.Focus()
		}
		var cmd tea.Cmd
		m.token, cmd = m.token.Update(msg)
		return m, cmd

	case provision.OptionWorkspaces + "uploadFile":
		switch msg.String() {
		case "esc":
			c.Retreat()
			return m, nil
		case "enter":
			path := strings.TrimSpace(m.file.Value())
			if path != "" {
				if err := m.s.LoadJobFile(path); err != nil {
					m.notice = err.Error()
					return m, nil
				}
			}
			if !c.Advance() {
				m.notice = "Enter the path of a CSV file."
			}
			return m, nil
		}
		if !m.file.Focused() {
			m.file.Focus()
		}
		var cmd tea.Cmd
		m.file, cmd = m.file.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.quit = true
		return m, tea.Quit
	}

	if m.busy && msg.String() != "esc" {
		return m, nil
	}

	switch c.CombinedState() {
	case "selectOption":
		switch msg.String() {
		case "w", "enter":
			c.SelectOption(provision.OptionWorkspaces)
		}

	case provision.OptionWorkspaces + "review":
		switch msg.String() {
		case "esc":
			m.busy = false
			c.Retreat()
		case "enter":
			if !c.Advance() {
				m.notice = "The file has problems; fix them and upload it again (esc)."
			}
		}

	case provision.OptionWorkspaces + "runJob":
		switch msg.String() {
		case "esc":
			m.busy = false
			c.Retreat()
		}
	}
	return m, nil
}

func (m wizardModel) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.token, cmd = m.token.Update(msg)
	cmds = append(cmds, cmd)
	m.file, cmd = m.file.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// parseCredentials accepts a bare token or the URL the browser was redirected to.
func parseCredentials(input string) (*webex.Credentials, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, errors.New("paste an access token or the redirect URL")
	}
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		return webex.CredentialsFromRedirect(input, time.Now())
	}
	return &webex.Credentials{AccessToken: input, TokenType: "Bearer"}, nil
}

// View renders the wizard
func (m wizardModel) View() string {
	if m.quit {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(wizardPaneStyle.Render(m.renderPanel()))
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(wizardNoticeStyle.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m wizardModel) visiblePanel() string {
	for _, p := range m.s.Controller().Panels() {
		if p.Visible {
			return p.Key
		}
	}
	return m.s.Controller().CombinedState()
}

// renderHeader renders the title, progress bar and signed-in user
func (m wizardModel) renderHeader() string {
	c := m.s.Controller()
	panel := m.visiblePanel()

	title := "WEBEX PROVISIONER"
	if name, ok := panelTitles[panel]; ok {
		title += " - " + name
	}

	total := len(workflow.Stages)
	stepNum := int(c.Stage()) + 1
	barWidth := 18
	filled := stepNum * barWidth / total
	progressBar := wizardProgressBarFull.Render(strings.Repeat("█", filled)) +
		wizardProgressBarEmpty.Render(strings.Repeat("░", barWidth-filled))

	parts := []string{
		wizardTitleStyle.Render(title),
		"  ",
		progressBar,
		"  ",
		wizardProgressStyle.Render(fmt.Sprintf("Step %d of %d", stepNum, total)),
	}
	if id := c.Identity(); id.DisplayName != "" {
		parts = append(parts,
			"  ",
			wizardAvatarStyle.Render(id.Initials),
			" ",
			id.DisplayName,
			dimStyle.Render(" · "+id.OrgName),
		)
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

func (m wizardModel) renderPanel() string {
	if m.busy && m.visiblePanel() != "workspacesreview" && m.visiblePanel() != "workspacesrunJob" {
		return m.spinner.View() + " " + m.busyMessage
	}

	var b strings.Builder
	switch m.visiblePanel() {
	case "login":
		b.WriteString("Sign in with a Webex access token, or open this URL, sign in,\n")
		b.WriteString("and paste the address you are redirected to:\n\n")
		cfg := m.s.Config()
		b.WriteString(dimStyle.Render(truncate(webex.AuthorizeURL(cfg.AuthorizeURL, cfg.ClientID, cfg.RedirectURI, cfg.Scopes), 200)))
		b.WriteString("\n\n")
		b.WriteString(m.token.View())

	case "selectOption":
		b.WriteString("Choose what to provision:\n\n")
		b.WriteString(wizardSelectedStyle.Render("▸ [w] Workspaces"))
		b.WriteString(dimStyle.Render("  create workspaces from a CSV"))

	case "workspacesuploadFile":
		b.WriteString("CSV file to upload:\n\n")
		b.WriteString(m.file.View())
		if job := m.s.Job(); job != nil {
			b.WriteString("\n\n")
			b.WriteString(statusOK.Render("Loaded: "))
			b.WriteString(fmt.Sprintf("%s (%d bytes)", job.Name, len(job.Data)))
		}

	case "workspacesreview", "workspacesrunJob":
		actions := m.s.Controller().Actions()
		if len(actions) == 0 {
			b.WriteString(m.spinner.View() + " " + m.busyMessage)
			break
		}
		b.WriteString(strings.TrimRight(renderActions(actions, m.spinner.View()), "\n"))

	default:
		b.WriteString(m.spinner.View() + " " + m.busyMessage)
	}
	return b.String()
}

// renderHelp renders the key bindings of the visible panel
func (m wizardModel) renderHelp() string {
	var help string
	switch m.visiblePanel() {
	case "login":
		help = "enter sign in  esc quit"
	case "loading":
		help = "ctrl+c quit"
	case "selectOption":
		help = "w workspaces  ctrl+l sign out  q quit"
	case "workspacesuploadFile":
		help = "enter continue  esc back  ctrl+l sign out  ctrl+c quit"
	case "workspacesreview":
		if m.busy {
			help = "reviewing...  esc back  q quit"
		} else if m.s.Controller().AllowNext() {
			help = "enter create workspaces  esc back  ctrl+l sign out  q quit"
		} else {
			help = "esc back  ctrl+l sign out  q quit"
		}
	case "workspacesrunJob":
		if m.busy {
			help = "creating...  esc stop  q quit"
		} else {
			help = "esc review again  ctrl+l sign out  q quit"
		}
	}
	return wizardHelpStyle.Render(help)
}
