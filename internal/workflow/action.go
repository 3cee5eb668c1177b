// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package workflow

import "slices"

// Icon is the status marker shown next to an action.
type Icon string

const (
	IconLoading Icon = "loading"
	IconSpinner Icon = "spinner"
	IconSuccess Icon = "success"
	IconWarning Icon = "warning"
	IconError   Icon = "error"
)

// ParseIcon maps a name to an Icon. Unknown names become IconLoading.
func ParseIcon(name string) Icon {
	switch icon := Icon(name); icon {
	case IconLoading, IconSpinner, IconSuccess, IconWarning, IconError:
		return icon
	default:
		return IconLoading
	}
}

// Action is one line of the progress log shown on the review and run panels.
// The title is fixed; notes and icon change as work progresses.
//
// An action belongs to the panel that was current when it was added. Once the panel
// changes, or the action is removed, it is detached: mutations are ignored and
// Detached reports true, so background work can stop quietly.
type Action struct {
	c        *Controller
	title    string
	notes    []string
	icon     Icon
	detached bool
}

// ActionSnapshot is a copy of an action for rendering.
type ActionSnapshot struct {
	Title string
	Notes []string
	Icon  Icon
}

// Title returns the action title.
func (a *Action) Title() string {
	return a.title
}

// AppendNotes adds notes after the existing ones.
func (a *Action) AppendNotes(notes ...string) *Action {
	a.update(func() {
		a.notes = append(a.notes, notes...)
	})
	return a
}

// SetNotes replaces all notes.
func (a *Action) SetNotes(notes ...string) *Action {
	a.update(func() {
		a.notes = slices.Clone(notes)
	})
	return a
}

// SetIcon changes the icon. Unknown icons become IconLoading.
func (a *Action) SetIcon(icon Icon) *Action {
	a.update(func() {
		a.icon = ParseIcon(string(icon))
	})
	return a
}

func (a *Action) Loading() *Action { return a.SetIcon(IconLoading) }
func (a *Action) Spinner() *Action { return a.SetIcon(IconSpinner) }
func (a *Action) Success() *Action { return a.SetIcon(IconSuccess) }
func (a *Action) Warning() *Action { return a.SetIcon(IconWarning) }
func (a *Action) Error() *Action   { return a.SetIcon(IconError) }

// Remove takes the action off its panel.
func (a *Action) Remove() {
	a.c.mu.Lock()
	defer a.c.mu.Unlock()
	if a.detached {
		return
	}
	a.detached = true
	a.c.actions = slices.DeleteFunc(a.c.actions, func(other *Action) bool { return other == a })
}

// Detached reports whether the action is no longer shown.
func (a *Action) Detached() bool {
	a.c.mu.Lock()
	defer a.c.mu.Unlock()
	return a.detached
}

// Snapshot copies the current title, notes and icon.
func (a *Action) Snapshot() ActionSnapshot {
	a.c.mu.Lock()
	defer a.c.mu.Unlock()
	return a.snapshot()
}

func (a *Action) snapshot() ActionSnapshot {
	return ActionSnapshot{Title: a.title, Notes: slices.Clone(a.notes), Icon: a.icon}
}

func (a *Action) update(fn func()) {
	a.c.mu.Lock()
	defer a.c.mu.Unlock()
	if a.detached {
		return
	}
	fn()
}
