// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package lockkey

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/apex/log"
)

// Glob walks root and returns the regular files whose slash-separated path
// relative to root matches pattern. "**" matches any number of directories,
// including none. Symlinks are neither followed nor returned.
//
// Results are in walk order: lexical per directory, depth first.
func Glob(ctx context.Context, root, pattern string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	segments := strings.Split(path.Clean(pattern), "/")

	var matches []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped the same way a shell glob would.
			if p != root {
				log.WithError(err).Debugf("skipping %s", p)
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.Type()&fs.ModeSymlink != 0 || d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		if !matchSegments(segments, strings.Split(filepath.ToSlash(rel), "/")) {
			return nil
		}

		// The walk reports the entry type without following links. Stat
		// again so only regular files survive.
		if fi, err := os.Stat(p); err != nil || !fi.Mode().IsRegular() {
			return nil
		}
		matches = append(matches, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	return matches, nil
}

// matchSegments matches path elements against pattern elements.
func matchSegments(pattern, name []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			rest := pattern[1:]
			for i := 0; i <= len(name); i++ {
				if matchSegments(rest, name[i:]) {
					return true
				}
			}
			return false
		}

		if len(name) == 0 {
			return false
		}
		if ok, _ := path.Match(pattern[0], name[0]); !ok {
			return false
		}
		pattern, name = pattern[1:], name[1:]
	}
	return len(name) == 0
}
