// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package workflow

// Stage is a step of the wizard. Stages are ordered; the controller moves one step at
// a time except for logout and option selection.
type Stage int

const (
	StageLogin Stage = iota
	StageLoading
	StageSelectOption
	StageUploadFile
	StageReview
	StageRunJob
)

// Stages lists every stage in order.
var Stages = []Stage{StageLogin, StageLoading, StageSelectOption, StageUploadFile, StageReview, StageRunJob}

// String returns the stage name used in combined state keys.
func (s Stage) String() string {
	switch s {
	case StageLogin:
		return "login"
	case StageLoading:
		return "loading"
	case StageSelectOption:
		return "selectOption"
	case StageUploadFile:
		return "uploadFile"
	case StageReview:
		return "review"
	case StageRunJob:
		return "runJob"
	default:
		return "unknown"
	}
}

// CombinedKey joins a selected option and a stage into a panel key,
// e.g. "workspaces" and StageUploadFile give "workspacesuploadFile".
func CombinedKey(option string, stage Stage) string {
	return option + stage.String()
}

const lastStage = StageRunJob
