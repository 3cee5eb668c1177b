// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package workflow

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// toSelectOption walks a fresh controller past login and loading.
func toSelectOption(t *testing.T, c *Controller) {
	t.Helper()
	c.EnableNext()
	require.True(t, c.Advance())
	require.True(t, c.Advance())
	require.Equal(t, StageSelectOption, c.Stage())
}

func TestNewController(t *testing.T) {
	c := NewController()

	assert.Equal(t, StageLogin, c.Stage())
	assert.Equal(t, "", c.Option())
	assert.Equal(t, "login", c.CombinedState())
	assert.False(t, c.AllowNext())
	assert.Empty(t, c.Actions())
}

func TestAdvance_GatedStage(t *testing.T) {
	c := NewController()

	assert.False(t, c.Advance(), "login is gated")
	assert.Equal(t, StageLogin, c.Stage())

	c.EnableNext()
	assert.True(t, c.AllowNext())
	assert.True(t, c.Advance())
	assert.Equal(t, StageLoading, c.Stage())
	assert.True(t, c.AllowNext(), "loading is not gated")

	assert.True(t, c.Advance(), "loading is not gated")
	assert.Equal(t, StageSelectOption, c.Stage())
	assert.False(t, c.Advance(), "gate closes on every state change")
}

func TestSelectOption(t *testing.T) {
	c := NewController()
	toSelectOption(t, c)

	assert.True(t, c.SelectOption("workspaces"))
	assert.Equal(t, "workspacesuploadFile", c.CombinedState())
	assert.Equal(t, StageUploadFile, c.Stage())

	assert.False(t, c.Advance(), "upload is gated until a file is chosen")
	assert.Equal(t, "workspacesuploadFile", c.CombinedState())

	c.EnableNext()
	assert.True(t, c.Advance())
	assert.Equal(t, "workspacesreview", c.CombinedState())
}

func TestSelectOption_Ignored(t *testing.T) {
	c := NewController()
	assert.False(t, c.SelectOption(""))
	assert.Equal(t, StageLogin, c.Stage())

	c = NewController(WithGatedStages())
	for c.Advance() {
	}
	require.Equal(t, StageRunJob, c.Stage())
	assert.False(t, c.SelectOption("workspaces"))
	assert.Equal(t, "", c.Option())
}

func TestSelectOption_FromAnyStage(t *testing.T) {
	c := NewController()

	assert.True(t, c.SelectOption("workspaces"))
	assert.Equal(t, "workspacesloading", c.CombinedState())
}

func TestEnteringSelectOptionClearsOption(t *testing.T) {
	c := NewController()
	toSelectOption(t, c)
	require.True(t, c.SelectOption("workspaces"))

	assert.True(t, c.Retreat())
	assert.Equal(t, StageSelectOption, c.Stage())
	assert.Equal(t, "", c.Option())
	assert.Equal(t, "selectOption", c.CombinedState())
}

func TestRetreat(t *testing.T) {
	c := NewController()
	assert.False(t, c.Retreat())

	toSelectOption(t, c)
	assert.True(t, c.Retreat())
	assert.Equal(t, StageLoading, c.Stage())
}

func TestAdvance_LastStage(t *testing.T) {
	c := NewController(WithGatedStages())
	for c.Advance() {
	}
	assert.Equal(t, StageRunJob, c.Stage())
	c.EnableNext()
	assert.False(t, c.Advance())
	assert.False(t, c.AllowNext())
}

func TestLogout(t *testing.T) {
	c := NewController()
	toSelectOption(t, c)
	require.True(t, c.SelectOption("workspaces"))
	c.SetIdentity(Identity{DisplayName: "Ada Lovelace", Initials: "AL"})

	var seen []string
	c.OnStateChange(func(combined string) { seen = append(seen, combined) })

	c.Logout()

	assert.Equal(t, StageLogin, c.Stage())
	assert.Equal(t, "", c.Option())
	assert.Equal(t, Identity{}, c.Identity())
	assert.Equal(t, []string{"login"}, seen)
}

func TestObservers(t *testing.T) {
	c := NewController(WithGatedStages())

	var first, second []string
	c.OnStateChange(func(combined string) { first = append(first, combined) })
	c.OnStateChange(nil)
	c.OnStateChange(func(combined string) { second = append(second, combined) })

	c.Advance()
	c.Advance()
	c.SelectOption("workspaces")
	c.Retreat()

	want := []string{"loading", "selectOption", "workspacesuploadFile", "selectOption"}
	assert.Equal(t, want, first)
	assert.Equal(t, want, second)
}

func TestObserverCanCallController(t *testing.T) {
	c := NewController()
	c.OnStateChange(func(combined string) {
		if combined == "loading" {
			c.AddAction("Loading profile", IconSpinner)
			c.Advance()
		}
	})

	c.EnableNext()
	require.True(t, c.Advance())

	assert.Equal(t, StageSelectOption, c.Stage())
	assert.Empty(t, c.Actions())
}

func TestObserverPanicIsRecovered(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	c := NewController(WithLogger(zap.New(core)), WithGatedStages())

	var after []string
	c.OnStateChange(func(string) { panic("boom") })
	c.OnStateChange(func(combined string) { after = append(after, combined) })

	assert.NotPanics(t, func() { c.Advance() })
	assert.Equal(t, []string{"loading"}, after)

	entries := logs.FilterMessage("state change observer panicked").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0].ContextMap()["panic"])
	assert.Equal(t, "loading", entries[0].ContextMap()["state"])
}

func TestActions(t *testing.T) {
	c := NewController()

	check := c.AddAction("Checking File", IconLoading)
	check.AppendNotes("File looks good!").Success()
	c.AddAction("Querying Existing Workspaces", Icon("bogus")).AppendNotes("a", "b").SetNotes("Workspaces Found: 3")

	got := c.Actions()
	require.Len(t, got, 2)
	assert.Equal(t, ActionSnapshot{Title: "Checking File", Notes: []string{"File looks good!"}, Icon: IconSuccess}, got[0])
	assert.Equal(t, ActionSnapshot{Title: "Querying Existing Workspaces", Notes: []string{"Workspaces Found: 3"}, Icon: IconLoading}, got[1])
	assert.Equal(t, "Checking File", check.Title())
}

func TestActionIcons(t *testing.T) {
	c := NewController()
	a := c.AddAction("x", "")

	tests := []struct {
		set  func() *Action
		want Icon
	}{
		{set: a.Spinner, want: IconSpinner},
		{set: a.Warning, want: IconWarning},
		{set: a.Error, want: IconError},
		{set: a.Success, want: IconSuccess},
		{set: a.Loading, want: IconLoading},
		{set: func() *Action { return a.SetIcon("nope") }, want: IconLoading},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.set().Snapshot().Icon)
	}
}

func TestActionRemove(t *testing.T) {
	c := NewController()
	a := c.AddAction("a", IconLoading)
	b := c.AddAction("b", IconLoading)

	a.Remove()
	a.Remove()

	assert.True(t, a.Detached())
	assert.False(t, b.Detached())
	require.Len(t, c.Actions(), 1)
	assert.Equal(t, "b", c.Actions()[0].Title)

	a.AppendNotes("ignored").Error()
	assert.Empty(t, a.Snapshot().Notes)
	assert.Equal(t, IconLoading, a.Snapshot().Icon)
}

func TestStateChangeDetachesActions(t *testing.T) {
	c := NewController()
	a := c.AddAction("Checking File", IconLoading)
	c.EnableNext()

	require.True(t, c.Advance())

	assert.True(t, a.Detached())
	assert.Empty(t, c.Actions())
	a.SetNotes("late").Success()
	assert.Empty(t, c.Actions())
	assert.Equal(t, IconLoading, a.Snapshot().Icon)
}

func TestPanels(t *testing.T) {
	c := NewController(WithPanels("login", "loading", "selectOption", "workspacesuploadFile"))
	c.RegisterPanel("workspacesreview")
	c.RegisterPanel("login")
	c.RegisterPanel("")

	panels := c.Panels()
	require.Len(t, panels, 5)
	assert.Equal(t, Panel{Key: "login", Visible: true, NextEnabled: false}, panels[0])
	for _, p := range panels[1:] {
		assert.False(t, p.Visible, p.Key)
	}

	c.EnableNext()
	assert.True(t, c.Panels()[0].NextEnabled)
	c.DisableNext()
	assert.False(t, c.Panels()[0].NextEnabled)

	c.EnableNext()
	c.Advance()
	c.Advance()
	c.SelectOption("workspaces")

	for _, p := range c.Panels() {
		assert.Equal(t, p.Key == "workspacesuploadFile", p.Visible, p.Key)
	}
}

func TestConcurrentActionUpdates(t *testing.T) {
	c := NewController()
	a := c.AddAction("Creating Workspaces", IconSpinner)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.AppendNotes("note")
			_ = c.Actions()
		}()
	}
	wg.Wait()

	assert.Len(t, a.Snapshot().Notes, 20)
}

func TestStageString(t *testing.T) {
	names := make([]string, len(Stages))
	for i, s := range Stages {
		names[i] = s.String()
	}
	assert.Equal(t, []string{"login", "loading", "selectOption", "uploadFile", "review", "runJob"}, names)
	assert.Equal(t, "unknown", Stage(42).String())
}
