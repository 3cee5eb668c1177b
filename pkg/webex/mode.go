// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package webex

import "time"

// Mode is the sign-in state of the local user.
type Mode int

const (
	// LoggedOut means no credentials are stored.
	LoggedOut Mode = iota

	// Expired means credentials are stored but past their expiry.
	// Commands that call the API ask the user to log in again.
	Expired

	// LoggedIn means a usable token is stored.
	LoggedIn
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case LoggedOut:
		return "logged out"
	case Expired:
		return "expired"
	case LoggedIn:
		return "logged in"
	default:
		return "unknown"
	}
}

// CurrentMode inspects the store at now. Unreadable credentials count as logged out.
func CurrentMode(store *CredentialStore, now time.Time) Mode {
	creds, err := store.Load()
	if err != nil {
		return LoggedOut
	}
	if creds.Expired(now) {
		return Expired
	}
	return LoggedIn
}
