// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrRateLimited   = errors.New("rate limited")
	ErrTokenRequired = errors.New("token is required")
)

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("GitHub API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("GitHub API error (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap maps well known statuses onto the package sentinels.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden, http.StatusTooManyRequests:
		if e.StatusCode == http.StatusTooManyRequests || strings.Contains(strings.ToLower(e.Message), "rate limit") {
			return ErrRateLimited
		}
		return ErrUnauthorized
	}
	return nil
}

// ErrorContext describes the call that failed.
type ErrorContext struct {
	Host      string
	Repo      string
	Operation string
	Key       string
}

// FriendlyAPI decorates err with the operation and a hint for the common
// failure modes.
func FriendlyAPI(err error, ec ErrorContext) error {
	if err == nil {
		return nil
	}

	where := ec.Repo
	if ec.Host != "" {
		where = ec.Host + "/" + ec.Repo
	}
	subject := ""
	if ec.Key != "" {
		subject = fmt.Sprintf(" %q", ec.Key)
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return fmt.Errorf("%s%s on %s: nothing matched: %w", ec.Operation, subject, where, err)
	case errors.Is(err, ErrRateLimited):
		return fmt.Errorf("%s%s on %s: rate limited, try again later: %w", ec.Operation, subject, where, err)
	case errors.Is(err, ErrUnauthorized):
		return fmt.Errorf("%s%s on %s: check the token has actions:write: %w", ec.Operation, subject, where, err)
	default:
		return fmt.Errorf("%s%s on %s: %w", ec.Operation, subject, where, err)
	}
}
