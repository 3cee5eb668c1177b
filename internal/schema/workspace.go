// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package schema

// WorkspacePayload returns the schema of a Webex workspace creation request.
func WorkspacePayload() Fields {
	return Fields{
		{Name: "displayName", Node: Leaf{Required: true}},
		{Name: "orgId", Node: Leaf{}},
		{Name: "locationId", Node: Leaf{}},
		{Name: "workspaceLocationId", Node: Leaf{}},
		{Name: "floorId", Node: Leaf{}},
		{Name: "capacity", Node: Leaf{Type: TypeInteger}},
		{Name: "type", Node: Leaf{Options: []string{"notSet", "focus", "huddle", "meetingRoom", "open"}}},
		{Name: "calling", Node: Container{Fields: Fields{
			{Name: "type", Node: Leaf{
				Required: true,
				Options: []string{
					"freeCalling",
					"hybridCalling",
					"webexCalling",
					"webexEdgeForDevices",
					"thirdPartySipCalling",
				},
				Triggers: []Trigger{
					{Value: "webexEdgeForDevices", Require: []string{"../locationId"}},
				},
			}},
			{Name: "webexCalling", Node: Container{Fields: Fields{
				{Name: "phoneNumber", Node: Leaf{Required: true}},
				{Name: "extension", Node: Leaf{Required: true}},
				{Name: "locationId", Node: Leaf{Required: true}},
				{Name: "licenses", Node: Leaf{Required: true}},
			}}},
		}}},
		{Name: "calendar", Node: Container{Fields: Fields{
			{Name: "type", Node: Leaf{Required: true, Options: []string{"microsoft"}}},
			{Name: "emailAddress", Node: Leaf{Required: true}},
			{Name: "resourceGroupId", Node: Leaf{Required: true}},
		}}},
		{Name: "notes", Node: Leaf{}},
		{Name: "hotdeskingStatus", Node: Leaf{Options: []string{"on", "off"}}},
		{Name: "deviceHostedMeetings", Node: Container{Fields: Fields{
			{Name: "enabled", Node: Leaf{Options: []string{"true", "false"}, Type: TypeBoolean}},
			{Name: "siteUrl", Node: Leaf{}},
		}}},
		{Name: "supportedDevices", Node: Leaf{Options: []string{"collaborationDevices", "phones"}}},
		{Name: "indoorNavigation", Node: Leaf{}},
	}
}
