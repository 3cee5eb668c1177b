// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package provision

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/monadic/webex-provisioner/internal/conflict"
	"github.com/monadic/webex-provisioner/internal/csvcodec"
	"github.com/monadic/webex-provisioner/internal/workflow"
)

// Action titles of the review pipeline.
const (
	TitleCheckFile       = "Checking File"
	TitleValidateRows    = "Validating Rows"
	TitleQueryWorkspaces = "Querying Existing Workspaces"
	TitleCheckConflicts  = "Checking Conflicts"
)

// ReviewReport is the outcome of Review.
type ReviewReport struct {
	FileErrors []string
	Plan       *Plan
	Existing   int
	Conflicts  []string
	// Blocked is set when the job must not run.
	Blocked bool
	// Stopped is set when the panel changed while the review was running.
	Stopped bool
}

// Review checks the uploaded file, validates every row, and looks for name
// conflicts with existing workspaces. Each step is shown as an action on the current
// panel. The forward gate opens only when nothing blocks the job.
//
// A failed workspace query is returned as an error after being shown on its action.
func (s *Session) Review(ctx context.Context) (*ReviewReport, error) {
	job := s.Job()
	if job == nil {
		return nil, ErrNoFile
	}
	c := s.controller
	report := &ReviewReport{}
	text := string(job.Data)

	check := c.AddAction(TitleCheckFile, workflow.IconLoading)
	report.FileErrors = s.fileErrors(text)
	if len(report.FileErrors) > 0 {
		check.AppendNotes(report.FileErrors...).AppendNotes("File invalid!").Error()
		report.Blocked = true
		s.log.Info("file rejected", zap.String("file", job.Name), zap.Strings("errors", report.FileErrors))
		return report, nil
	}
	check.AppendNotes("File looks good!").Success()

	rows := c.AddAction(TitleValidateRows, workflow.IconLoading)
	plan := BuildPlan(text, s.cfg.NameColumn, s.schema)
	report.Plan = plan
	switch {
	case len(plan.Rows) == 0:
		rows.AppendNotes("No rows found").Warning()
		report.Blocked = true
	case len(plan.Errors) > 0:
		for _, rowErr := range plan.Errors {
			rows.AppendNotes(rowErr.Error())
		}
		rows.AppendNotes(fmt.Sprintf("Invalid rows: %d/%d", len(plan.Errors), len(plan.Rows))).Error()
		report.Blocked = true
	default:
		rows.AppendNotes(fmt.Sprintf("Rows valid: %d", len(plan.Rows)))
		if len(plan.Ignored) > 0 {
			rows.AppendNotes("Ignored columns: " + strings.Join(plan.Ignored, ", ")).Warning()
		} else {
			rows.Success()
		}
	}

	api, err := s.client()
	if err != nil {
		return report, err
	}

	query := c.AddAction(TitleQueryWorkspaces, workflow.IconSpinner)
	workspaces, err := api.ListWorkspaces(ctx, nil, func(n int) {
		query.SetNotes(fmt.Sprintf("Workspaces Found: %d", n))
	})
	if query.Detached() {
		report.Stopped = true
		return report, nil
	}
	if err != nil {
		query.AppendNotes(err.Error()).Error()
		report.Blocked = true
		return report, fmt.Errorf("query existing workspaces: %w", err)
	}
	report.Existing = len(workspaces)
	query.SetNotes(fmt.Sprintf("Workspaces Found: %d", len(workspaces))).Success()

	conflicts := c.AddAction(TitleCheckConflicts, workflow.IconLoading)
	report.Conflicts = conflict.Detect(conflict.Names(workspaces), plan.Names(s.cfg.NameColumn))
	if len(report.Conflicts) > 0 {
		conflicts.AppendNotes(fmt.Sprintf("Conflicts Found: %d", len(report.Conflicts)))
		conflicts.AppendNotes(uniqueNames(report.Conflicts)...)
		if s.cfg.AllowConflicts {
			conflicts.Warning()
		} else {
			conflicts.Error()
			report.Blocked = true
		}
	} else {
		conflicts.AppendNotes("No Conflicts").Success()
	}

	s.log.Info("review finished",
		zap.String("file", job.Name),
		zap.Int("rows", len(plan.Rows)),
		zap.Int("invalid", len(plan.Errors)),
		zap.Int("conflicts", len(report.Conflicts)),
		zap.Bool("blocked", report.Blocked))

	if !report.Blocked && !conflicts.Detached() {
		c.EnableNext()
	}
	return report, nil
}

// FileErrors returns the problems that keep the loaded file from being parsed,
// or ErrNoFile.
func (s *Session) FileErrors() ([]string, error) {
	job := s.Job()
	if job == nil {
		return nil, ErrNoFile
	}
	return s.fileErrors(string(job.Data)), nil
}

func (s *Session) fileErrors(text string) []string {
	errs := csvcodec.IdentifyErrors(text, s.cfg.RequiredHeaders)
	if len(errs) > 0 {
		return errs
	}
	return duplicateNames(text, s.cfg.NameColumn)
}

// duplicateNames reports repeated names when the name column is not the first
// column, which IdentifyErrors already covers.
func duplicateNames(text, nameColumn string) []string {
	headers := csvcodec.Headers(text)
	key := csvcodec.HeaderKey(nameColumn)
	if len(headers) == 0 || csvcodec.HeaderKey(headers[0]) == key {
		return nil
	}
	rows := csvcodec.Parse(text)
	names := make([]string, len(rows))
	for i, row := range rows {
		names[i] = strings.TrimSpace(row.String(key))
	}
	return csvcodec.DuplicateErrors(names)
}
