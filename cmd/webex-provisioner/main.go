// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Command webex-provisioner creates Webex workspaces in bulk from a CSV file.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/monadic/webex-provisioner/internal/clierr"
)

var (
	// BuildTag is set during build
	BuildTag = "dev"
	// BuildDate is set during build
	BuildDate = "unknown"
)

var (
	flagConfig   string
	flagVerbose  bool
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "webex-provisioner",
	Short: "Bulk-create Webex workspaces from CSV",
	Long: `webex-provisioner - bulk-create Webex workspaces from CSV

webex-provisioner signs in to Webex, checks a CSV of workspaces against the
workspace schema and the workspaces that already exist, then creates the new
workspaces one by one and exports the results.

  - wizard walks through every step interactively
  - check and create run the same steps non-interactively

Configuration is read from ~/.config/webex-provisioner/config.yaml and
./webex-provisioner.yaml, then the environment.

Environment Variables:
  WEBEX_ACCESS_TOKEN      Use this token instead of stored credentials
  WEBEX_API_BASE_URL      Webex API base URL (default: https://webexapis.com/v1)
  WEBEX_CLIENT_ID         Integration client ID used by authorize-url
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, clierr.Pretty(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a config file (default: ./webex-provisioner.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Write debug entries to the log file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log file level: debug, info, warn, error (default: logLevel from config)")
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", completeLogLevels)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "webex-provisioner version %s (built %s)\n", BuildTag, BuildDate)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for webex-provisioner.

Bash:
  $ source <(webex-provisioner completion bash)

Zsh:
  $ webex-provisioner completion zsh > "${fpath[1]}/_webex-provisioner"

Fish:
  $ webex-provisioner completion fish > ~/.config/fish/completions/webex-provisioner.fish

PowerShell:
  PS> webex-provisioner completion powershell | Out-String | Invoke-Expression
`,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.ExactArgs(1),
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	})
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
