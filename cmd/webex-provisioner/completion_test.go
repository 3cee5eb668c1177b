// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestCompleteCSVFiles(t *testing.T) {
	cmd := &cobra.Command{}

	exts, directive := completeCSVFiles(cmd, nil, "")
	if len(exts) != 1 || exts[0] != "csv" {
		t.Fatalf("expected csv filter, got: %v", exts)
	}
	if directive != cobra.ShellCompDirectiveFilterFileExt {
		t.Errorf("directive = %v", directive)
	}

	exts, directive = completeCSVFiles(cmd, []string{"rooms.csv"}, "")
	if exts != nil || directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("second argument should not complete, got %v %v", exts, directive)
	}
}

func TestCompleteOptions(t *testing.T) {
	cmd := &cobra.Command{}

	options, _ := completeOptions(cmd, nil, "WORK")
	if len(options) != 1 || options[0] != "workspaces" {
		t.Fatalf("expected workspaces, got: %v", options)
	}
	options, _ = completeOptions(cmd, nil, "x")
	if len(options) != 0 {
		t.Errorf("expected no options, got: %v", options)
	}
}

func TestCompleteLogLevels(t *testing.T) {
	levels, _ := completeLogLevels(&cobra.Command{}, nil, "d")
	if len(levels) != 1 || levels[0] != "debug" {
		t.Errorf("expected debug, got: %v", levels)
	}
}
