// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/apex/log"

	"github.com/staranto/sccachectl/internal/backend/actions"
	"github.com/staranto/sccachectl/internal/backend/local"
	"github.com/staranto/sccachectl/internal/backend/s3"
	"github.com/staranto/sccachectl/internal/github"
	"github.com/staranto/sccachectl/internal/store"
)

const (
	TypeActions = "actions"
	TypeS3      = "s3"
	TypeLocal   = "local"
)

// Types lists the accepted --backend values, default first.
var Types = []string{TypeActions, TypeS3, TypeLocal}

var ErrUnknownType = errors.New("unknown backend")

// Options carries everything any backend may need. Each backend reads only
// its own fields.
type Options struct {
	Type string
	Repo github.Repo

	// actions
	ResultsURL   string
	RuntimeToken string
	Token        string
	APIURL       string
	Retries      int

	// s3
	Bucket   string
	Region   string
	Profile  string
	Endpoint string
	Prefix   string

	// local
	LocalDir string
}

// New returns the store for opts.Type. An empty type means actions.
func New(ctx context.Context, opts Options) (store.Store, error) {
	typ := strings.ToLower(opts.Type)
	if typ == "" {
		typ = TypeActions
	}
	log.Debugf("backend: %s repo: %s", typ, opts.Repo)

	switch typ {
	case TypeActions:
		aopts := []actions.Option{
			actions.WithResultsURL(opts.ResultsURL),
			actions.WithRuntimeToken(opts.RuntimeToken),
			actions.WithRepo(opts.Repo.Owner, opts.Repo.Name),
			actions.WithRetries(opts.Retries),
		}
		if opts.Token != "" {
			gh, err := github.NewClient(opts.Token, github.WithAPIURL(opts.APIURL))
			if err != nil {
				return nil, err
			}
			aopts = append(aopts, actions.WithGitHub(gh))
		}
		return actions.NewBackendActions(aopts...)
	case TypeS3:
		return s3.NewBackendS3(ctx,
			s3.WithBucket(opts.Bucket),
			s3.WithPrefix(opts.Prefix),
			s3.WithRegion(opts.Region),
			s3.WithProfile(opts.Profile),
			s3.WithEndpoint(opts.Endpoint),
			s3.WithRetries(opts.Retries),
			s3.WithRepo(opts.Repo.Owner, opts.Repo.Name),
		)
	case TypeLocal:
		return local.NewBackendLocal(
			local.FromDir(opts.LocalDir),
			local.WithRepo(opts.Repo.Owner, opts.Repo.Name),
		)
	}

	return nil, fmt.Errorf("%w %q, want one of %s", ErrUnknownType, opts.Type, strings.Join(Types, ", "))
}
