// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/monadic/webex-provisioner/internal/csvcodec"
	"github.com/monadic/webex-provisioner/internal/workflow"
)

// Action titles of the run pipeline.
const (
	TitleCreateWorkspaces = "Creating Workspaces"
	TitleExportResults    = "Exporting Results"
)

// RunRecorder receives the progress of a bulk run.
type RunRecorder interface {
	Start(job *Job, total int)
	Result(row int, name, id string, err error)
	Finish(created, failed int, output string)
}

type nopRecorder struct{}

func (nopRecorder) Start(*Job, int) {}
func (nopRecorder) Result(int, string, string, error) {}
func (nopRecorder) Finish(int, int, string) {}

// RunReport is the outcome of Run.
type RunReport struct {
	Results []*csvcodec.Object
	Created int
	Failed  int
	Output  string
	Stopped bool
}

// Run creates one workspace per row, strictly in order, and writes the results CSV.
// A failing row is recorded in its result and the run continues. Rows that fail
// validation are not sent.
//
// Each result holds the new workspace id, the row as uploaded, and the error text.
func (s *Session) Run(ctx context.Context) (*RunReport, error) {
	job := s.Job()
	if job == nil {
		return nil, ErrNoFile
	}
	api, err := s.client()
	if err != nil {
		return nil, err
	}

	plan := BuildPlan(string(job.Data), s.cfg.NameColumn, s.schema)
	names := plan.Names(s.cfg.NameColumn)
	total := len(plan.Rows)
	report := &RunReport{Results: make([]*csvcodec.Object, 0, total)}

	create := s.controller.AddAction(TitleCreateWorkspaces, workflow.IconSpinner)
	s.recorder.Start(job, total)
	s.log.Info("bulk create started", zap.String("file", job.Name), zap.Int("rows", total))

	rowErrs := make(map[int]error, len(plan.Errors))
	for _, re := range plan.Errors {
		rowErrs[re.Row-1] = re.Err
	}

	for i, row := range plan.Rows {
		create.SetNotes(fmt.Sprintf("Created: %d/%d", report.Created, total))

		var id string
		err := rowErrs[i]
		if err == nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			} else {
				ws, createErr := api.CreateWorkspace(ctx, plan.Payloads[i])
				if createErr != nil {
					err = createErr
				} else {
					id = ws.ID
				}
			}
		}

		report.Results = append(report.Results, resultRecord(id, row, err))
		if err != nil {
			report.Failed++
			s.log.Warn("workspace not created", zap.Int("row", i+1), zap.String("name", names[i]), zap.Error(err))
		} else {
			report.Created++
		}
		s.recorder.Result(i+1, names[i], id, err)

		if create.Detached() {
			report.Stopped = true
			break
		}
	}

	create.SetNotes(fmt.Sprintf("Created: %d/%d", report.Created, total))
	switch {
	case report.Failed == 0:
		create.Success()
	case report.Created == 0:
		create.AppendNotes(fmt.Sprintf("Failed: %d", report.Failed)).Error()
	default:
		create.AppendNotes(fmt.Sprintf("Failed: %d", report.Failed)).Warning()
	}

	// A stopped run still exports what it created, but its panel is gone.
	var exportErr error
	switch {
	case len(report.Results) == 0:
	case report.Stopped:
		report.Output, exportErr = s.export(report.Results)
	default:
		export := s.controller.AddAction(TitleExportResults, workflow.IconLoading)
		report.Output, exportErr = s.export(report.Results)
		if exportErr != nil {
			export.AppendNotes(exportErr.Error()).Error()
		} else {
			export.AppendNotes(report.Output).Success()
		}
	}

	s.recorder.Finish(report.Created, report.Failed, report.Output)
	s.log.Info("bulk create finished",
		zap.Int("created", report.Created),
		zap.Int("failed", report.Failed),
		zap.String("output", report.Output))

	return report, exportErr
}

func resultRecord(id string, row *csvcodec.Object, err error) *csvcodec.Object {
	rec := csvcodec.NewObject()
	rec.Set("id", id)
	for _, key := range row.Keys() {
		v, _ := row.Get(key)
		rec.Set(key, v)
	}
	errText := ""
	if err != nil {
		errText = err.Error()
	}
	rec.Set("error", errText)
	return rec
}

// export writes results to <outputDir>/workspaces-<timestamp>.csv.
func (s *Session) export(results []*csvcodec.Object) (string, error) {
	dir := s.cfg.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("workspaces-%s.csv", s.now().Format("20060102-150405")))
	if err := os.WriteFile(path, []byte(csvcodec.Serialize(results)), 0o644); err != nil {
		return "", fmt.Errorf("write results: %w", err)
	}
	return path, nil
}
