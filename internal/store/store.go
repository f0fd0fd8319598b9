// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package store defines the remote cache store contract shared by the
// backends under internal/backend.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"

	"github.com/staranto/sccachectl/internal/archive"
)

var (
	// ErrAlreadyExists is returned by Save when the key is already taken.
	ErrAlreadyExists = errors.New("cache entry already exists")
	// ErrNotFound is returned when no entry matches a key.
	ErrNotFound = errors.New("cache entry not found")
)

// Store saves directories under a key and restores them.
type Store interface {
	// Save archives paths and uploads them under key.
	Save(ctx context.Context, paths []string, key string) error
	// Restore tries key, then each restoreKeys prefix in order, and unpacks
	// the first match into paths. The matched key is "" on a miss.
	Restore(ctx context.Context, paths []string, key string, restoreKeys []string) (string, error)
	String() string
}

// Lister is implemented by stores that can enumerate their entries.
type Lister interface {
	List(ctx context.Context, prefix string) ([]Entry, error)
}

// Entry describes one stored cache archive.
type Entry struct {
	Key       string    `json:"key" yaml:"key"`
	Size      int64     `json:"size" yaml:"size"`
	CreatedAt time.Time `json:"created" yaml:"created"`
	Location  string    `json:"location" yaml:"location"`
}

// Resolve picks the entry to restore from candidates. An exact key match
// wins. Otherwise each restore key is tried as a prefix in order and the
// newest entry carrying it is returned.
func Resolve(candidates []Entry, key string, restoreKeys []string) (Entry, bool) {
	for _, c := range candidates {
		if c.Key == key {
			return c, true
		}
	}

	for _, prefix := range restoreKeys {
		var matches []Entry
		for _, c := range candidates {
			if strings.HasPrefix(c.Key, prefix) {
				matches = append(matches, c)
			}
		}
		if len(matches) == 0 {
			continue
		}
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		})
		return matches[0], true
	}

	return Entry{}, false
}

// Spool archives paths into a temporary file and rewinds it. The caller
// owns the file and must call Discard when done.
func Spool(ctx context.Context, paths []string) (*os.File, int64, error) {
	f, err := os.CreateTemp("", "sccachectl-*"+archive.Extension)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create archive file: %w", err)
	}

	n, err := archive.Create(ctx, f, paths)
	if err != nil {
		Discard(f)
		return nil, 0, fmt.Errorf("failed to archive %v: %w", paths, err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		Discard(f)
		return nil, 0, err
	}

	log.Infof("archived %v (%s)", paths, humanize.Bytes(uint64(n)))
	return f, n, nil
}

// Discard closes and removes a spooled archive.
func Discard(f *os.File) {
	_ = f.Close()
	if err := os.Remove(f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Debugf("failed to remove %s", f.Name())
	}
}
