// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/monadic/webex-provisioner/internal/clierr"
	"github.com/monadic/webex-provisioner/internal/provision"
	"github.com/monadic/webex-provisioner/internal/schema"
)

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(locationsCmd)
	rootCmd.AddCommand(templateCmd)

	createCmd.Flags().String("out", "", "Directory for the results CSV (default: outputDir from config)")
	createCmd.Flags().Bool("dry-run", false, "Validate the file and print the payloads as YAML without signing in")
	templateCmd.Flags().StringP("out", "o", "workspaces-template.csv", "Where to write the template, - for stdout")
}

var checkCmd = &cobra.Command{
	Use:   "check FILE",
	Short: "Validate a workspace CSV against the schema and existing workspaces",
	Long: `Check a workspace CSV without creating anything.

The file is checked for missing headers and for duplicate values in both the
first column and the name column, every row is validated against the workspace
schema, and the names are compared with the workspaces that already exist. Exits non-zero when the file cannot be run.

Examples:
  webex-provisioner check rooms.csv
`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeCSVFiles,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := commandContext(cmd)
		if err := a.openReview(ctx, args[0]); err != nil {
			return err
		}
		report, err := a.session.Review(ctx)
		fmt.Fprint(cmd.OutOrStdout(), renderActions(a.session.Controller().Actions(), ""))
		if err != nil {
			return err
		}
		return reviewError(args[0], report)
	},
}

var createCmd = &cobra.Command{
	Use:   "create FILE",
	Short: "Create the workspaces listed in a CSV",
	Long: `Create one workspace per row of a CSV.

The file is checked first, exactly like 'check'. Workspaces are then created
one at a time in file order; a failing row does not stop the run. The
results, with the new workspace ids and any errors, are written to
workspaces-<timestamp>.csv.

Examples:
  webex-provisioner create rooms.csv
  webex-provisioner create rooms.csv --out results/
  webex-provisioner create rooms.csv --dry-run
`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeCSVFiles,
	RunE:              runCreate,
}

func runCreate(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("out")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if out != "" {
		cfg.OutputDir = out
	}
	if dryRun {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		return dryRunCreate(cmd.OutOrStdout(), a, args[0])
	}

	jobLog, err := NewJobLogger(cfg.LogDir, "create")
	if err != nil {
		return err
	}
	a, err := newApp(cfg, provision.WithRecorder(jobLog))
	if err != nil {
		jobLog.Close()
		return err
	}
	defer a.Close()

	ctx := commandContext(cmd)
	w := cmd.OutOrStdout()
	if err := a.openReview(ctx, args[0]); err != nil {
		jobLog.Close()
		return err
	}
	report, err := a.session.Review(ctx)
	fmt.Fprint(w, renderActions(a.session.Controller().Actions(), ""))
	if err == nil {
		err = reviewError(args[0], report)
	}
	if err != nil {
		jobLog.Log("Review failed: %v", err)
		jobLog.Close()
		return err
	}

	a.session.Controller().Advance()
	run, err := a.session.Run(ctx)
	fmt.Fprintln(w)
	fmt.Fprint(w, renderActions(a.session.Controller().Actions(), ""))
	if path := jobLog.Close(); path != "" {
		fmt.Fprintf(w, "Log: %s\n", path)
	}
	if err != nil {
		return err
	}
	if run.Created == 0 && run.Failed > 0 {
		return fmt.Errorf("no workspaces created, %d failed (see %s)", run.Failed, run.Output)
	}
	return nil
}

// dryRunCreate validates path offline and prints the payloads that would be sent.
func dryRunCreate(w io.Writer, a *app, path string) error {
	if err := a.session.LoadJobFile(path); err != nil {
		return err
	}
	job := a.session.Job()
	errs, err := a.session.FileErrors()
	if err != nil {
		return err
	}
	if len(errs) > 0 {
		return &clierr.ValidationError{Subject: job.Name, Messages: errs}
	}
	plan, err := a.session.Plan()
	if err != nil {
		return err
	}
	if len(plan.Errors) > 0 {
		return planError(job.Name, plan)
	}
	data, err := schema.MarshalPayloads(plan.Valid())
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// reviewError explains why a review blocked the job, or returns nil.
func reviewError(path string, report *provision.ReviewReport) error {
	if report == nil || !report.Blocked {
		return nil
	}
	subject := filepath.Base(path)
	switch {
	case len(report.FileErrors) > 0:
		return &clierr.ValidationError{Subject: subject, Messages: report.FileErrors}
	case report.Plan != nil && len(report.Plan.Rows) == 0:
		return &clierr.ValidationError{Subject: subject, Messages: []string{"No rows found"}}
	case report.Plan != nil && len(report.Plan.Errors) > 0:
		return planError(subject, report.Plan)
	case len(report.Conflicts) > 0:
		return &clierr.ValidationError{
			Subject:  subject,
			Messages: []string{fmt.Sprintf("%d name(s) already exist; set allowConflicts to create them anyway", len(report.Conflicts))},
		}
	default:
		return &clierr.ValidationError{Subject: subject}
	}
}

// planError reports the rows of plan that failed validation.
func planError(subject string, plan *provision.Plan) error {
	verr := &clierr.ValidationError{Subject: subject}
	for _, e := range plan.Errors {
		verr.Messages = append(verr.Messages, e.Error())
		verr.Errs = append(verr.Errs, e)
	}
	return verr
}

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "List locations, for the LocationId column",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := commandContext(cmd)
		if err := a.signIn(ctx); err != nil {
			return err
		}
		locations, err := a.session.Locations(ctx)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if len(locations) == 0 {
			fmt.Fprintln(w, clierr.NothingFound("locations"))
			return nil
		}
		fmt.Fprintf(w, "%-40s  %-30s  %s\n", "ID", "NAME", "CITY")
		for _, l := range locations {
			fmt.Fprintf(w, "%-40s  %-30s  %s\n", l.ID, truncate(l.Name, 30), l.Address.City)
		}
		return nil
	},
}

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write a starter workspace CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		text := provision.Template(cfg.NameColumn)
		if out == "-" {
			_, err := io.WriteString(cmd.OutOrStdout(), text)
			return err
		}
		if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
			return fmt.Errorf("write template: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
		return nil
	},
}
