// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package clierr provides error classification and user-friendly error formatting for the CLI.
// It helps distinguish between different error types and provides actionable hints.
package clierr

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strings"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/monadic/webex-provisioner/internal/schema"
	"github.com/monadic/webex-provisioner/pkg/webex"
)

// Common error types for CLI output.
const (
	TypeUnauthorized = "unauthorized" // Missing, expired or rejected token
	TypeRateLimited  = "rate_limited" // 429 retries exhausted
	TypeNotFound     = "not_found"    // Resource or file not found
	TypeNetwork      = "network"      // Connection/network errors
	TypeValidation   = "validation"   // CSV or payload validation errors
	TypeInternal     = "internal"     // Internal/unexpected errors
)

// IsUnauthorized checks if the error means the user has to log in (again).
func IsUnauthorized(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, webex.ErrNotLoggedIn) || errors.Is(err, webex.ErrTokenExpired) || errors.Is(err, webex.ErrTokenRequired) {
		return true
	}
	var apiErr *webex.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "invalid access token")
}

// IsRateLimited checks if the error is an exhausted 429 retry loop.
func IsRateLimited(err error) bool {
	return err != nil && errors.Is(err, webex.ErrRateLimited)
}

// IsNotFound checks if the error indicates a missing resource or file.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *webex.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	if errors.Is(err, fs.ErrNotExist) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") ||
		strings.Contains(msg, "no such file")
}

// IsNetworkError checks if the error is a connection/network error.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "network is unreachable") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "context deadline exceeded")
}

// IsValidation checks if the error comes from checking a CSV file or payload.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	var missing *schema.MissingFieldsError
	var fieldErr *field.Error
	var agg utilerrors.Aggregate
	var apiErr *webex.APIError
	switch {
	case errors.As(err, &missing), errors.As(err, &fieldErr), errors.As(err, &agg):
		return true
	case errors.As(err, &apiErr):
		return apiErr.StatusCode == http.StatusBadRequest
	}
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ClassifyError determines the type of error for appropriate handling.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	if IsRateLimited(err) {
		return TypeRateLimited
	}
	if IsUnauthorized(err) {
		return TypeUnauthorized
	}
	if IsValidation(err) {
		return TypeValidation
	}
	if IsNotFound(err) {
		return TypeNotFound
	}
	if IsNetworkError(err) {
		return TypeNetwork
	}
	return TypeInternal
}

// Pretty formats an error with a user-friendly message and actionable hints.
func Pretty(err error) string {
	if err == nil {
		return ""
	}

	baseMsg := err.Error()

	switch ClassifyError(err) {
	case TypeUnauthorized:
		return fmt.Sprintf("Not signed in: %s\n\nHint: Sign in to Webex again:\n"+
			"  - webex-provisioner login --token <personal access token>\n"+
			"  - webex-provisioner authorize-url, then login --redirect-url <URL>\n"+
			"  - Personal tokens: %s", baseMsg, webex.DeveloperPortalURL)

	case TypeRateLimited:
		return fmt.Sprintf("Rate limited: %s\n\nHint: Webex is throttling requests. Wait a minute and retry,\n"+
			"  or raise maxRetries in webex-provisioner.yaml", baseMsg)

	case TypeValidation:
		var details strings.Builder
		if missing := missingFields(err); len(missing) > 0 {
			details.WriteString("\n\nMissing fields:")
			for _, fe := range missing {
				details.WriteString("\n  - " + fe.Error())
			}
		}
		return fmt.Sprintf("Invalid input: %s%s\n\nHint: Fix the CSV and run it through the check first:\n"+
			"  - webex-provisioner check <file.csv>\n"+
			"  - webex-provisioner template writes a starting file", baseMsg, details.String())

	case TypeNotFound:
		return fmt.Sprintf("Not found: %s", baseMsg)

	case TypeNetwork:
		return fmt.Sprintf("Connection error: %s\n\nHint: Check your connectivity to Webex:\n"+
			"  - The API base URL in your config (apiBaseURL)\n"+
			"  - Proxy settings (HTTPS_PROXY)", baseMsg)

	default:
		return fmt.Sprintf("Error: %s", baseMsg)
	}
}

// ValidationError carries messages produced while checking an input file.
// Errs holds the underlying row errors, when there are any.
type ValidationError struct {
	Subject  string
	Messages []string
	Errs     []error
}

func (e *ValidationError) Unwrap() []error {
	return e.Errs
}

// missingFields collects the required-field errors under err, each field once.
func missingFields(err error) field.ErrorList {
	var causes []error
	var verr *ValidationError
	if errors.As(err, &verr) && len(verr.Errs) > 0 {
		causes = verr.Errs
	} else {
		causes = []error{err}
	}

	var out field.ErrorList
	seen := sets.New[string]()
	for _, cause := range causes {
		var missing *schema.MissingFieldsError
		if !errors.As(cause, &missing) {
			continue
		}
		for _, fe := range missing.ErrorList() {
			if !seen.Has(fe.Field) {
				seen.Insert(fe.Field)
				out = append(out, fe)
			}
		}
	}
	return out
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return e.Subject + " is invalid"
	}
	return e.Subject + ": " + strings.Join(e.Messages, "; ")
}

// WrapWithHint wraps an error with an additional hint message.
func WrapWithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w\n\nHint: %s", err, hint)
}

// NothingFound returns a user-friendly message when a listing returns no results.
// This is different from an error - it's a valid "empty" result.
func NothingFound(resource string) string {
	return fmt.Sprintf("No %s found.\n\n"+
		"This might mean:\n"+
		"  - None exist in your organization yet\n"+
		"  - Your token lacks the admin scope needed to list them", resource)
}

// Unwrap returns the underlying error, stripping any wrapper.
func Unwrap(err error) error {
	for {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err
		}
		err = unwrapped
	}
}
