// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name       string
		existing   []string
		candidates []string
		want       []string
	}{
		{
			name:       "duplicates preserved in candidate order",
			existing:   []string{"Room1", "Room2"},
			candidates: []string{"Room2", "Room3", "Room2"},
			want:       []string{"Room2", "Room2"},
		},
		{
			name:       "no overlap",
			existing:   []string{"Room1"},
			candidates: []string{"Room9"},
			want:       []string{},
		},
		{
			name:       "exact match only",
			existing:   []string{"Room1"},
			candidates: []string{"room1", "Room1 ", "Room1"},
			want:       []string{"Room1"},
		},
		{
			name:       "empty inputs",
			existing:   nil,
			candidates: nil,
			want:       []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.existing, tt.candidates))
		})
	}
}

type workspace struct{ name string }

func (w workspace) GetDisplayName() string { return w.name }

func TestNames(t *testing.T) {
	got := Names([]workspace{{name: "Room1"}, {name: ""}, {name: "Room2"}})
	assert.Equal(t, []string{"Room1", "", "Room2"}, got)
}
