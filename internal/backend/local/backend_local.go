// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/staranto/sccachectl/internal/archive"
	"github.com/staranto/sccachectl/internal/store"
)

// EnvDir overrides the default base directory.
const EnvDir = "SCCACHECTL_LOCAL_DIR"

// Dir resolves the base directory. Precedence:
//  1. SCCACHECTL_LOCAL_DIR, if set and non-empty
//  2. os.UserCacheDir()/sccachectl
//
// Returns ("", false) if a base cannot be resolved.
func Dir() (string, bool) {
	if d, ok := os.LookupEnv(EnvDir); ok && d != "" {
		return d, true
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "sccachectl"), true
	}
	return "", false
}

// BackendLocal keeps archives in a directory tree laid out as
// <base>/<owner>/<repo>/<key>.tar.zst.
type BackendLocal struct {
	Base  string
	Owner string
	Repo  string
}

var (
	_ store.Store  = (*BackendLocal)(nil)
	_ store.Lister = (*BackendLocal)(nil)
)

// Option customizes a BackendLocal.
type Option func(*BackendLocal)

// FromDir sets the base directory. An empty dir keeps the Dir() default.
func FromDir(dir string) Option {
	return func(be *BackendLocal) {
		if dir != "" {
			be.Base = dir
		}
	}
}

// WithRepo scopes entries to a repository.
func WithRepo(owner, repo string) Option {
	return func(be *BackendLocal) {
		be.Owner = owner
		be.Repo = repo
	}
}

// NewBackendLocal returns a local backend. The base directory is created on
// first save, not here.
func NewBackendLocal(opts ...Option) (*BackendLocal, error) {
	be := &BackendLocal{}
	if d, ok := Dir(); ok {
		be.Base = d
	}
	for _, opt := range opts {
		opt(be)
	}
	if be.Base == "" {
		return nil, errors.New("cannot resolve a local cache directory, set --local-dir")
	}
	return be, nil
}

func (be *BackendLocal) String() string {
	return "local:" + be.Base
}

// EnsureBaseDir creates the entry directory and returns its path.
func (be *BackendLocal) EnsureBaseDir() (string, error) {
	dir := be.entryDir()
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return dir, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return dir, nil
}

// EntryPath returns where key would live and whether a file is there now.
func (be *BackendLocal) EntryPath(key string) (string, bool) {
	p := filepath.Join(be.entryDir(), key+archive.Extension)
	if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
		return p, true
	}
	return p, false
}

func (be *BackendLocal) entryDir() string {
	return filepath.Join(be.Base, be.Owner, be.Repo)
}

// Save archives paths into the entry for key. The archive is written to a
// temporary file next to its final name and renamed into place, so readers
// never see a partial entry.
func (be *BackendLocal) Save(ctx context.Context, paths []string, key string) error {
	if _, ok := be.EntryPath(key); ok {
		return fmt.Errorf("%s: %w", key, store.ErrAlreadyExists)
	}

	dir, err := be.EnsureBaseDir()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".partial-*")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	n, err := archive.Create(ctx, tmp, paths)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write cache %s: %w", key, err)
	}

	dest, _ := be.EntryPath(key)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("failed to commit cache %s: %w", key, err)
	}

	log.WithField("size", n).Debugf("wrote %s", dest)
	return nil
}

// Restore unpacks the entry for key, or the newest entry matching one of
// restoreKeys, into paths.
func (be *BackendLocal) Restore(ctx context.Context, paths []string, key string, restoreKeys []string) (string, error) {
	if p, ok := be.EntryPath(key); ok {
		return key, be.extract(ctx, p, paths)
	}

	var candidates []store.Entry
	for _, prefix := range restoreKeys {
		entries, err := be.List(ctx, prefix)
		if err != nil {
			return "", err
		}
		candidates = append(candidates, entries...)
	}

	match, ok := store.Resolve(candidates, key, restoreKeys)
	if !ok {
		return "", nil
	}
	return match.Key, be.extract(ctx, match.Location, paths)
}

func (be *BackendLocal) extract(ctx context.Context, p string, paths []string) error {
	f, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer f.Close()

	log.Debugf("extracting %s", p)
	return archive.Extract(ctx, f, paths)
}

// List returns the entries whose key starts with prefix.
func (be *BackendLocal) List(ctx context.Context, prefix string) ([]store.Entry, error) {
	des, err := os.ReadDir(be.entryDir())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var entries []store.Entry
	for _, de := range des {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key, ok := strings.CutSuffix(de.Name(), archive.Extension)
		if !ok || !de.Type().IsRegular() || !strings.HasPrefix(key, prefix) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, store.Entry{
			Key:       key,
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
			Location:  filepath.Join(be.entryDir(), de.Name()),
		})
	}
	return entries, nil
}

// Purge removes files under the base directory older than hours and
// returns how many were removed. hours <= 0 is a no-op.
func (be *BackendLocal) Purge(hours int) (int, error) {
	if hours <= 0 {
		log.Debug("cache cleaning disabled")
		return 0, nil
	}

	maxAge := time.Duration(hours) * time.Hour
	removed := 0
	err := filepath.WalkDir(be.Base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == be.Base {
				return fs.SkipAll
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil || time.Since(info.ModTime()) <= maxAge {
			return nil
		}
		if err := os.Remove(path); err != nil {
			log.WithError(err).Warnf("failed to remove cache file %s", path)
			return nil
		}
		log.Debugf("removed cache file %s", path)
		removed++
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to purge cache: %w", err)
	}
	return removed, nil
}
