// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package provision

import (
	"fmt"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/monadic/webex-provisioner/internal/csvcodec"
	"github.com/monadic/webex-provisioner/internal/schema"
)

// RowError is a row that failed schema validation.
type RowError struct {
	Row  int // 1-based data row
	Name string
	Err  error
}

func (e RowError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("Row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("Row %d (%s): %v", e.Row, e.Name, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// Plan is a parsed job: its rows and the validated payload of every valid row.
type Plan struct {
	Rows []*csvcodec.Object
	// Payloads is parallel to Rows; nil for rows listed in Errors.
	Payloads []map[string]any
	Errors   []RowError
	// Ignored lists columns that are not part of the payload schema.
	Ignored []string
}

// Names returns the workspace name of every row.
func (p *Plan) Names(nameColumn string) []string {
	key := csvcodec.HeaderKey(nameColumn)
	out := make([]string, len(p.Rows))
	for i, row := range p.Rows {
		out[i] = row.String(key)
	}
	return out
}

// Valid returns the payloads of rows without errors.
func (p *Plan) Valid() []map[string]any {
	var out []map[string]any
	for _, payload := range p.Payloads {
		if payload != nil {
			out = append(out, payload)
		}
	}
	return out
}

// BuildPlan parses text and validates each row. The name column becomes the
// payload's displayName; every other non-empty cell is passed through at its path.
func BuildPlan(text, nameColumn string, fields schema.Fields) *Plan {
	rows := csvcodec.Parse(text)
	plan := &Plan{Rows: rows, Payloads: make([]map[string]any, len(rows))}
	nameKey := csvcodec.HeaderKey(nameColumn)
	ignored := sets.New[string]()

	for i, row := range rows {
		payload := payloadFor(row, nameKey)
		res, err := schema.Validate(payload, fields)
		if err != nil {
			plan.Errors = append(plan.Errors, RowError{Row: i + 1, Name: row.String(nameKey), Err: err})
			continue
		}
		plan.Payloads[i] = res.Validated
		ignored.Insert(csvcodec.Flatten(res.Extras).Keys()...)
	}

	plan.Ignored = sets.List(ignored)
	return plan
}

// payloadFor builds the request body of a row. Blank cells are left out at every
// depth, so a blank Calling.Type does not produce an empty calling object.
func payloadFor(row *csvcodec.Object, nameKey string) map[string]any {
	payload := map[string]any{}
	for key, value := range row.Map() {
		if key == nameKey {
			continue
		}
		if value, ok := compact(value); ok {
			payload[key] = value
		}
	}
	if name := row.String(nameKey); name != "" {
		payload["displayName"] = name
	}
	return payload
}

// compact drops nil values and the objects and lists they leave empty. It reports
// false when nothing remains of v.
func compact(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			if item, ok := compact(item); ok {
				out[k] = item
			}
		}
		return out, len(out) > 0
	case []any:
		var out []any
		for _, item := range t {
			if item, ok := compact(item); ok {
				out = append(out, item)
			}
		}
		return out, len(out) > 0
	default:
		return v, true
	}
}

// uniqueNames drops repeated names, keeping first-seen order.
func uniqueNames(names []string) []string {
	seen := sets.New[string]()
	out := []string{}
	for _, n := range names {
		if !seen.Has(n) {
			seen.Insert(n)
			out = append(out, n)
		}
	}
	return out
}
