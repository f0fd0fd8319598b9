// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package sccache

import (
	"context"
	"errors"
	"fmt"

	"github.com/apex/log"

	"github.com/staranto/sccachectl/internal/github"
	"github.com/staranto/sccachectl/internal/lockkey"
	"github.com/staranto/sccachectl/internal/store"
)

// ErrTokenRequired is returned by Deduplicate when no token is configured.
var ErrTokenRequired = errors.New("token is required to deduplicate the cache")

// Store is the remote cache store.
type Store interface {
	Save(ctx context.Context, paths []string, key string) error
	Restore(ctx context.Context, paths []string, key string, restoreKeys []string) (string, error)
}

// Deleter removes cache entries by exact key.
type Deleter interface {
	DeleteByKey(ctx context.Context, owner, repo, key string) error
}

// StoreFactory builds the store on first use.
type StoreFactory func(ctx context.Context) (Store, error)

// DeleterFactory authenticates with token.
type DeleterFactory func(token string) (Deleter, error)

// Settings are the resolved inputs of every operation.
type Settings struct {
	// CacheDir is the sccache directory. Empty disables save and restore.
	CacheDir string
	// Token authenticates Deduplicate.
	Token string
	// Repo is the repository whose cache is deduplicated.
	Repo github.Repo
	// Root and Pattern locate the lockfile.
	Root    string
	Pattern string
}

// Operations runs the cache operations for one set of Settings.
type Operations struct {
	Settings   Settings
	NewStore   StoreFactory
	NewDeleter DeleterFactory
}

// DeleteResult is the outcome of Deduplicate.
type DeleteResult int

const (
	NotFound DeleteResult = iota
	Deleted
)

func (r DeleteResult) String() string {
	if r == Deleted {
		return "successfully deleted cache"
	}
	return "nothing to delete"
}

// RestoreResult reports what Restore put into the cache dir. A zero value
// means nothing was restored.
type RestoreResult struct {
	MatchedKey string
	ExactMatch bool
}

// Restored reports whether an entry was restored.
func (r RestoreResult) Restored() bool {
	return r.MatchedKey != ""
}

// Key derives the cache key from the configured lockfile. An empty Root is
// the working directory.
func (o *Operations) Key(ctx context.Context) (lockkey.Key, error) {
	root := o.Settings.Root
	if root == "" {
		root = "."
	}
	return lockkey.Derive(ctx, root, o.Settings.Pattern)
}

// Save uploads the cache dir under the derived key.
func (o *Operations) Save(ctx context.Context) error {
	dir := o.Settings.CacheDir
	log.Debugf("cache dir: %q", dir)
	if dir == "" {
		log.Info("no sccache dir found in SCCACHE_CACHE_DIR")
		return nil
	}

	key, err := o.Key(ctx)
	if err != nil {
		return err
	}

	st, err := o.NewStore(ctx)
	if err != nil {
		return err
	}

	log.WithField("key", key).Infof("saving %s", dir)
	if err := st.Save(ctx, []string{dir}, key.Value); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			log.WithError(err).Warnf("cache %s was not saved", key)
			return nil
		}
		return fmt.Errorf("failed to save cache %s: %w", key, err)
	}

	log.WithField("key", key).Info("cache saved")
	return nil
}

// Restore fills the cache dir from the exact key, or failing that from the
// newest entry starting with the sccache prefix. A miss is not an error.
func (o *Operations) Restore(ctx context.Context) (RestoreResult, error) {
	log.Info("restore sccache files")
	dir := o.Settings.CacheDir
	log.Debugf("cache dir: %q", dir)
	if dir == "" {
		log.Info("no sccache dir found in SCCACHE_CACHE_DIR")
		return RestoreResult{}, nil
	}

	key, err := o.Key(ctx)
	if err != nil {
		return RestoreResult{}, err
	}

	st, err := o.NewStore(ctx)
	if err != nil {
		return RestoreResult{}, err
	}

	matched, err := st.Restore(ctx, []string{dir}, key.Value, []string{lockkey.Prefix})
	if err != nil {
		return RestoreResult{}, fmt.Errorf("failed to restore cache %s: %w", key, err)
	}
	if matched == "" {
		log.Infof("no cache matching %q to restore", dir)
		return RestoreResult{}, nil
	}

	res := RestoreResult{MatchedKey: matched, ExactMatch: matched == key.Value}
	log.WithField("key", matched).WithField("exact", res.ExactMatch).Infof("restored %s", dir)
	return res, nil
}

// Deduplicate deletes the entry under the derived key so a following save
// can store a fresh one. Deletion failures are logged and reported as
// NotFound, never returned.
func (o *Operations) Deduplicate(ctx context.Context) (DeleteResult, error) {
	log.Info("trying to deduplicate cache")
	if o.Settings.Token == "" {
		return NotFound, ErrTokenRequired
	}

	deleter, err := o.NewDeleter(o.Settings.Token)
	if err != nil {
		return NotFound, err
	}

	key, err := o.Key(ctx)
	if err != nil {
		return NotFound, err
	}

	res := Deleted
	// Every failure, including auth and rate limiting, lands here.
	if err := deleter.DeleteByKey(ctx, o.Settings.Repo.Owner, o.Settings.Repo.Name, key.Value); err != nil {
		log.WithError(err).Warnf("delete %s", key)
		res = NotFound
	}

	log.Infof("delete cache api response: %s", res)
	return res, nil
}
