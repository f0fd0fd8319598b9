// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrInvalidRepo = errors.New("repository must be in owner/repo form")

// Repo identifies a repository.
type Repo struct {
	Owner string
	Name  string
}

func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// ParseRepo parses "owner/repo".
func ParseRepo(s string) (Repo, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repo{}, fmt.Errorf("%q: %w", s, ErrInvalidRepo)
	}
	return Repo{Owner: owner, Name: name}, nil
}

// RepoFromEnv reads GITHUB_REPOSITORY, which the runner always sets.
func RepoFromEnv() (Repo, error) {
	return ParseRepo(os.Getenv("GITHUB_REPOSITORY"))
}
