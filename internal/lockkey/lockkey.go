// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package lockkey

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/apex/log"
)

const (
	// Prefix is both the key prefix and the restore fallback prefix.
	Prefix = "sccache"

	// DefaultPattern matches any .lock file at any depth.
	DefaultPattern = "**/*.lock"
)

// ErrNoLockfile wraps fs.ErrNotExist so callers can test either.
var ErrNoLockfile = fmt.Errorf("no lockfile found: %w", fs.ErrNotExist)

// Key is a derived cache key.
type Key struct {
	// Value is the full key, "sccache-<hex>".
	Value string
	// Digest is the lowercase hex SHA-256 of the lockfile.
	Digest string
	// Lockfile is the path the digest was computed from. Empty for keys
	// built with FromBytes.
	Lockfile string
}

func (k Key) String() string {
	return k.Value
}

// FromDigest composes a key from a hex digest.
func FromDigest(digest string) Key {
	return Key{Value: Prefix + "-" + digest, Digest: digest}
}

// FromBytes hashes b and composes a key from it.
func FromBytes(b []byte) Key {
	sum := sha256.Sum256(b)
	return FromDigest(hex.EncodeToString(sum[:]))
}

// IsKey reports whether s has the shape of a derived key.
func IsKey(s string) bool {
	digest, ok := strings.CutPrefix(s, Prefix+"-")
	if !ok || len(digest) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(digest)
	return err == nil && strings.ToLower(digest) == digest
}

// HashFile returns the lowercase hex SHA-256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open lockfile: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to read lockfile %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Derive finds the lockfiles under root matching pattern, hashes the first
// one and returns its key. An empty pattern means DefaultPattern.
func Derive(ctx context.Context, root, pattern string) (Key, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}

	files, err := Glob(ctx, root, pattern)
	if err != nil {
		return Key{}, err
	}
	log.WithField("pattern", pattern).Debugf("lockfiles: %v", files)

	if len(files) == 0 {
		return Key{}, fmt.Errorf("%w: %s under %s", ErrNoLockfile, pattern, root)
	}

	lockfile := files[0]
	log.Debugf("hashing %s", lockfile)

	digest, err := HashFile(lockfile)
	if err != nil {
		return Key{}, err
	}

	key := FromDigest(digest)
	key.Lockfile = lockfile
	return key, nil
}

// IsNotFound reports whether err means no lockfile was found.
func IsNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
