// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package webex

// Default Webex endpoints.
const (
	// DefaultAPIBaseURL is the versioned REST API root.
	DefaultAPIBaseURL = "https://webexapis.com/v1"

	// DefaultIdentityURL is the identity broker OAuth root used for token checks.
	DefaultIdentityURL = "https://idbroker.webex.com/idb/oauth2/v1"

	// DefaultAuthorizeURL starts the browser sign-in flow.
	DefaultAuthorizeURL = "https://webexapis.com/v1/authorize"

	// DefaultRedirectURI receives the token after sign-in. The integration must list it.
	DefaultRedirectURI = "http://localhost:8080/"

	// DeveloperPortalURL is where personal access tokens can be copied.
	DeveloperPortalURL = "https://developer.webex.com/docs/getting-started"
)

// DefaultScopes are the OAuth scopes needed to read and create workspaces.
var DefaultScopes = []string{
	"spark:kms",
	"spark-admin:workspaces_read",
	"spark-admin:workspaces_write",
	"identity:placeonetimepassword_create",
	"identity:organizations_read",
	"identity:people_rw",
}
