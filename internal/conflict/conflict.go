// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package conflict finds workspace names that already exist in the organization.
package conflict

import (
	"k8s.io/apimachinery/pkg/util/sets"
)

// Detect returns every candidate that is exactly present in existing, in candidate
// order. Repeated candidates are reported once per occurrence.
func Detect(existing, candidates []string) []string {
	known := sets.New(existing...)

	conflicts := []string{}
	for _, name := range candidates {
		if known.Has(name) {
			conflicts = append(conflicts, name)
		}
	}
	return conflicts
}

// Named is anything with a display name, such as a listed workspace.
type Named interface {
	GetDisplayName() string
}

// Names extracts display names in order.
func Names[T Named](items []T) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.GetDisplayName()
	}
	return out
}
