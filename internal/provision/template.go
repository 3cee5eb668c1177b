// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package provision

import (
	"github.com/monadic/webex-provisioner/internal/csvcodec"
	"github.com/monadic/webex-provisioner/internal/workflow"
)

// PanelKeys returns the panels of the wizard in the order they are shown.
func PanelKeys() []string {
	return []string{
		workflow.CombinedKey("", workflow.StageLogin),
		workflow.CombinedKey("", workflow.StageLoading),
		workflow.CombinedKey("", workflow.StageSelectOption),
		workflow.CombinedKey(OptionWorkspaces, workflow.StageUploadFile),
		workflow.CombinedKey(OptionWorkspaces, workflow.StageReview),
		workflow.CombinedKey(OptionWorkspaces, workflow.StageRunJob),
	}
}

// Template returns a starter CSV for nameColumn with two example rows.
func Template(nameColumn string) string {
	rows := []struct {
		name, kind, capacity, calling, notes string
	}{
		{"Huddle Room 1", "huddle", "4", "freeCalling", "Second floor, east wing"},
		{"Board Room", "meetingRoom", "12", "freeCalling", ""},
	}

	records := make([]*csvcodec.Object, 0, len(rows))
	for _, r := range rows {
		rec := csvcodec.NewObject()
		rec.Set(csvcodec.HeaderKey(nameColumn), r.name)
		rec.Set("type", r.kind)
		rec.Set("capacity", r.capacity)
		calling := csvcodec.NewObject()
		calling.Set("type", r.calling)
		rec.Set("calling", calling)
		rec.Set("locationId", nil)
		rec.Set("notes", nilIfEmpty(r.notes))
		records = append(records, rec)
	}
	return csvcodec.Serialize(records)
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
