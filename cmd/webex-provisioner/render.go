// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/monadic/webex-provisioner/internal/workflow"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	statusOK = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	statusWarn = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	statusErr = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			PaddingLeft(4)
)

// iconGlyph renders an action icon. spin is shown for running actions.
func iconGlyph(icon workflow.Icon, spin string) string {
	switch icon {
	case workflow.IconSuccess:
		return statusOK.Render("✓")
	case workflow.IconWarning:
		return statusWarn.Render("!")
	case workflow.IconError:
		return statusErr.Render("✗")
	case workflow.IconSpinner:
		if spin != "" {
			return spin
		}
		return dimStyle.Render("…")
	default:
		return dimStyle.Render("○")
	}
}

// renderActions renders an action log, one title line per action followed by its notes.
func renderActions(actions []workflow.ActionSnapshot, spin string) string {
	var b strings.Builder
	for _, a := range actions {
		b.WriteString(iconGlyph(a.Icon, spin))
		b.WriteString(" ")
		b.WriteString(titleStyle.Render(a.Title))
		b.WriteString("\n")
		for _, n := range a.Notes {
			b.WriteString(noteStyle.Render(n))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// truncate shortens s to max runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
