// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package webex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const scimUserExtension = "urn:scim:schemas:extension:cisco:webexidentity:2.0:User"

// DefaultOrgName is shown when the organization has no display name.
const DefaultOrgName = "No Org Name"

// Person is the SCIM record of the signed-in user.
type Person struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Photos      []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"photos"`
	Extension struct {
		Meta struct {
			OrganizationID string `json:"organizationId"`
		} `json:"meta"`
	} `json:"urn:scim:schemas:extension:cisco:webexidentity:2.0:User"`
}

// OrgID returns the organization the user belongs to.
func (p Person) OrgID() string {
	return p.Extension.Meta.OrganizationID
}

// Thumbnail returns the thumbnail photo URL, or "".
func (p Person) Thumbnail() string {
	for _, ph := range p.Photos {
		if ph.Type == "thumbnail" {
			return ph.Value
		}
	}
	return ""
}

// Initials returns the upper-cased first letters of the first two words of the
// display name.
func (p Person) Initials() string {
	upper := cases.Upper(language.Und)
	var b strings.Builder
	for i, word := range strings.Fields(p.DisplayName) {
		if i == 2 {
			break
		}
		b.WriteString(upper.String(string([]rune(word)[:1])))
	}
	return b.String()
}

// Organization is a Webex organization.
type Organization struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Name returns the display name or DefaultOrgName.
func (o Organization) Name() string {
	if o.DisplayName == "" {
		return DefaultOrgName
	}
	return o.DisplayName
}

// Workspace is a listed or created workspace.
type Workspace struct {
	ID          string `json:"id"`
	OrgID       string `json:"orgId,omitempty"`
	LocationID  string `json:"locationId,omitempty"`
	DisplayName string `json:"displayName"`
	Type        string `json:"type,omitempty"`
	Capacity    int    `json:"capacity,omitempty"`
	Created     string `json:"created,omitempty"`
}

// GetDisplayName returns the workspace name.
func (w Workspace) GetDisplayName() string {
	return w.DisplayName
}

// Location is a Webex location.
type Location struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	OrgID    string `json:"orgId"`
	TimeZone string `json:"timeZone,omitempty"`
	Address  struct {
		City    string `json:"city,omitempty"`
		Country string `json:"country,omitempty"`
	} `json:"address"`
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*Person, error) {
	records, err := c.Get(ctx, c.rootURL()+"/identity/scim/v2/Users/me", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("get user: empty response")
	}
	var p Person
	if err := json.Unmarshal(records[0], &p); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &p, nil
}

// Organization returns the organization with id.
func (c *Client) Organization(ctx context.Context, id string) (*Organization, error) {
	var org Organization
	if err := c.send(ctx, http.MethodGet, "/identity/organizations/"+url.PathEscape(id), nil, &org); err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return &org, nil
}

// ListWorkspaces returns every workspace visible to the user.
func (c *Client) ListWorkspaces(ctx context.Context, params url.Values, progress func(count int)) ([]Workspace, error) {
	return list[Workspace](ctx, c, "/workspaces", params, progress)
}

// ListLocations returns every location visible to the user.
func (c *Client) ListLocations(ctx context.Context, params url.Values, progress func(count int)) ([]Location, error) {
	return list[Location](ctx, c, "/locations", params, progress)
}

func list[T any](ctx context.Context, c *Client, path string, params url.Values, progress func(int)) ([]T, error) {
	records, err := c.Get(ctx, path, params, progress)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", strings.TrimPrefix(path, "/"), err)
	}
	out := make([]T, 0, len(records))
	for _, r := range records {
		var item T
		if err := json.Unmarshal(r, &item); err != nil {
			return nil, fmt.Errorf("decode %s: %w", strings.TrimPrefix(path, "/"), err)
		}
		out = append(out, item)
	}
	return out, nil
}

// CreateWorkspace creates a workspace from a validated payload.
func (c *Client) CreateWorkspace(ctx context.Context, payload map[string]any) (*Workspace, error) {
	if name, _ := payload["displayName"].(string); name == "" {
		return nil, fmt.Errorf("create workspace: displayName is required")
	}
	var ws Workspace
	if err := c.Post(ctx, "/workspaces", payload, &ws); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &ws, nil
}

// ValidateToken asks the identity broker whether the token is still accepted.
// A non-200 answer is reported as false without an error.
func (c *Client) ValidateToken(ctx context.Context) (bool, error) {
	_, _, err := c.do(ctx, http.MethodGet, c.identityURL+"/tokens/me?authtoken=true", nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return false, nil
		}
		return false, fmt.Errorf("validate token: %w", err)
	}
	return true, nil
}

// RevokeToken invalidates the token at the identity broker.
func (c *Client) RevokeToken(ctx context.Context) error {
	if _, _, err := c.do(ctx, http.MethodDelete, c.identityURL+"/tokens/me?authtoken=true", nil); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}
