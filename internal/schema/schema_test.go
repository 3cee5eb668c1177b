// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

func TestValidate_MinimalWorkspace(t *testing.T) {
	res, err := Validate(map[string]any{"displayName": "Room1"}, WorkspacePayload())

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"displayName": "Room1"}, res.Validated)
	assert.Empty(t, res.Extras)
}

func TestValidate_ExtrasAtSamePath(t *testing.T) {
	input := map[string]any{
		"displayName":    "Room1",
		"workspace Name": "Room1",
		"calling": map[string]any{
			"type":  "freeCalling",
			"trunk": "main",
		},
	}

	res, err := Validate(input, WorkspacePayload())

	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"displayName": "Room1",
		"calling":     map[string]any{"type": "freeCalling"},
	}, res.Validated)
	assert.Equal(t, map[string]any{
		"workspace Name": "Room1",
		"calling":        map[string]any{"trunk": "main"},
	}, res.Extras)
}

func TestValidate_TriggerRequiresParentField(t *testing.T) {
	input := map[string]any{
		"displayName": "Room1",
		"calling":     map[string]any{"type": "webexEdgeForDevices"},
	}

	_, err := Validate(input, WorkspacePayload())

	var missing *MissingFieldsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"locationId"}, missing.Paths)
	assert.Contains(t, err.Error(), "locationId")

	input["locationId"] = "loc-1"
	res, err := Validate(input, WorkspacePayload())
	require.NoError(t, err)
	assert.Equal(t, "loc-1", res.Validated["locationId"])
}

func TestValidate_TriggerNotFiredForOtherValues(t *testing.T) {
	input := map[string]any{
		"displayName": "Room1",
		"calling":     map[string]any{"type": "webexCalling"},
	}

	_, err := Validate(input, WorkspacePayload())
	assert.NoError(t, err)
}

func TestValidate_OptionViolationShortCircuits(t *testing.T) {
	input := map[string]any{
		"type":    "kitchen",
		"calling": map[string]any{"type": "pstn"},
	}

	_, err := Validate(input, WorkspacePayload())

	var fe *field.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, field.ErrorTypeNotSupported, fe.Type)
	assert.Equal(t, "type", fe.Field)
	assert.Contains(t, err.Error(), "meetingRoom")

	var missing *MissingFieldsError
	assert.False(t, errors.As(err, &missing), "option errors are reported before missing fields")
}

func TestValidate_NestedOptionPath(t *testing.T) {
	input := map[string]any{
		"displayName": "Room1",
		"calling":     map[string]any{"type": "pstn"},
	}

	_, err := Validate(input, WorkspacePayload())

	var fe *field.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "calling.type", fe.Field)
}

func TestValidate_NonStringValuesSkipOptions(t *testing.T) {
	input := map[string]any{
		"displayName":      "Room1",
		"supportedDevices": []any{"phones", "anything"},
	}

	res, err := Validate(input, WorkspacePayload())

	require.NoError(t, err)
	assert.Equal(t, []any{"phones", "anything"}, res.Validated["supportedDevices"])
}

func TestValidate_CollectsAllMissing(t *testing.T) {
	input := map[string]any{
		"calling": map[string]any{
			"webexCalling": map[string]any{"extension": "1001"},
		},
		"calendar": map[string]any{"type": "microsoft"},
	}

	_, err := Validate(input, WorkspacePayload())

	var missing *MissingFieldsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{
		"displayName",
		"calling.type",
		"calling.webexCalling.phoneNumber",
		"calling.webexCalling.locationId",
		"calling.webexCalling.licenses",
		"calendar.emailAddress",
		"calendar.resourceGroupId",
	}, missing.Paths)
	assert.True(t, strings.HasPrefix(err.Error(), "missing required field(s): displayName, calling.type"))

	list := missing.ErrorList()
	require.Len(t, list, 7)
	assert.Equal(t, field.ErrorTypeRequired, list[0].Type)
	assert.Equal(t, "calling.webexCalling.phoneNumber", list[2].Field)
}

func TestValidate_NilCountsAsAbsent(t *testing.T) {
	_, err := Validate(map[string]any{"displayName": nil, "notes": nil}, WorkspacePayload())

	var missing *MissingFieldsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"displayName"}, missing.Paths)
}

func TestValidate_ContainerNotAnObject(t *testing.T) {
	schema := Fields{
		{Name: "optional", Node: Container{Fields: Fields{{Name: "a", Node: Leaf{}}}}},
		{Name: "required", Node: Container{Required: true, Fields: Fields{{Name: "a", Node: Leaf{}}}}},
	}

	_, err := Validate(map[string]any{"optional": "flat", "required": "flat"}, schema)
	var missing *MissingFieldsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"required"}, missing.Paths)

	res, err := Validate(map[string]any{"optional": "flat", "required": map[string]any{"a": "1"}}, schema)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"optional": "flat"}, res.Extras)
	assert.Equal(t, map[string]any{"required": map[string]any{"a": "1"}}, res.Validated)
}

func TestValidate_TriggerPaths(t *testing.T) {
	schema := Fields{
		{Name: "site", Node: Leaf{}},
		{Name: "outer", Node: Container{Fields: Fields{
			{Name: "zone", Node: Leaf{}},
			{Name: "inner", Node: Container{Fields: Fields{
				{Name: "mode", Node: Leaf{Triggers: []Trigger{{
					Value:   "strict",
					Require: []string{"level", "../zone", "../../site", "../../../../site", "../inner/level"},
				}}}},
				{Name: "level", Node: Leaf{}},
			}}},
		}}},
	}

	_, err := Validate(map[string]any{
		"outer": map[string]any{"inner": map[string]any{"mode": "strict"}},
	}, schema)

	var missing *MissingFieldsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{
		"outer.inner.level",
		"outer.zone",
		"site",
		"site",
		"outer.inner.level",
	}, missing.Paths)

	_, err = Validate(map[string]any{
		"site":  "hq",
		"outer": map[string]any{"zone": "z1", "inner": map[string]any{"mode": "strict", "level": "3"}},
	}, schema)
	assert.NoError(t, err)
}

func TestValidate_EmptyInput(t *testing.T) {
	res, err := Validate(map[string]any{}, Fields{{Name: "a", Node: Leaf{}}})

	require.NoError(t, err)
	assert.Empty(t, res.Validated)
	assert.Empty(t, res.Extras)
}

func TestValidate_ConvertsTypedLeaves(t *testing.T) {
	res, err := Validate(map[string]any{
		"displayName":          "Room1",
		"capacity":             " 12",
		"deviceHostedMeetings": map[string]any{"enabled": "true"},
	}, WorkspacePayload())

	require.NoError(t, err)
	assert.Equal(t, int64(12), res.Validated["capacity"])
	assert.Equal(t, map[string]any{"enabled": true}, res.Validated["deviceHostedMeetings"])
}

func TestValidate_TypedLeafRejectsBadValue(t *testing.T) {
	_, err := Validate(map[string]any{"displayName": "Room1", "capacity": "four"}, WorkspacePayload())

	var fieldErr *field.Error
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, field.ErrorTypeInvalid, fieldErr.Type)
	assert.Equal(t, "capacity", fieldErr.Field)
	assert.Contains(t, err.Error(), "must be an integer")
}

func TestValidate_TypedLeafKeepsNonStrings(t *testing.T) {
	res, err := Validate(map[string]any{"displayName": "Room1", "capacity": 8}, WorkspacePayload())

	require.NoError(t, err)
	assert.Equal(t, 8, res.Validated["capacity"])
}
