// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package lockkey

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fooDigest = "85c0eb395deba15a0b3b2fc6880982728bea32863f93b31004c6e4e92bc4c906"

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestFromBytes(t *testing.T) {
	k := FromBytes([]byte("foo=1.0.0"))
	assert.Equal(t, "sccache-"+fooDigest, k.Value)
	assert.Equal(t, fooDigest, k.Digest)
	assert.Equal(t, k.Value, k.String())

	// Stable across calls.
	assert.Equal(t, k, FromBytes([]byte("foo=1.0.0")))
}

func TestFromBytes_SensitiveToEveryByte(t *testing.T) {
	base := []byte("foo=1.0.0")
	want := FromBytes(base)
	for i := range base {
		mutated := append([]byte(nil), base...)
		mutated[i] ^= 0x01
		assert.NotEqual(t, want.Value, FromBytes(mutated).Value, "byte %d", i)
	}
}

func TestIsKey(t *testing.T) {
	assert.True(t, IsKey("sccache-"+fooDigest))
	assert.False(t, IsKey("sccache"))
	assert.False(t, IsKey("sccache-abc"))
	assert.False(t, IsKey("other-"+fooDigest))
	assert.False(t, IsKey("sccache-"+fooDigest[:63]+"Z"))
}

func TestDerive(t *testing.T) {
	root := t.TempDir()
	lock := writeFile(t, root, "Cargo.lock", "foo=1.0.0")

	k, err := Derive(context.Background(), root, "")
	require.NoError(t, err)
	assert.Equal(t, "sccache-"+fooDigest, k.Value)
	assert.Equal(t, lock, k.Lockfile)
}

func TestDerive_FirstMatchWins(t *testing.T) {
	root := t.TempDir()
	first := writeFile(t, root, "a/Cargo.lock", "foo=1.0.0")
	writeFile(t, root, "b/Cargo.lock", "foo=2.0.0")
	writeFile(t, root, "z.lock", "foo=3.0.0")

	k, err := Derive(context.Background(), root, DefaultPattern)
	require.NoError(t, err)
	assert.Equal(t, first, k.Lockfile)
	assert.Equal(t, fooDigest, k.Digest)
}

func TestDerive_NoLockfile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Cargo.toml", "[package]")

	_, err := Derive(context.Background(), root, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoLockfile)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.True(t, IsNotFound(err))
}

func TestDerive_MissingRoot(t *testing.T) {
	_, err := Derive(context.Background(), filepath.Join(t.TempDir(), "nope"), "")
	assert.True(t, IsNotFound(err))
}

func TestDerive_Canceled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Cargo.lock", "foo=1.0.0")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Derive(ctx, root, "")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestGlob(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Cargo.lock", "")
	writeFile(t, root, "crates/a/Cargo.lock", "")
	writeFile(t, root, "crates/a/Cargo.toml", "")
	writeFile(t, root, "web/yarn.lock", "")
	writeFile(t, root, "web/package.json", "")
	writeFile(t, root, "notes.lockfile", "")

	tests := []struct {
		pattern string
		want    []string
	}{
		{
			pattern: "**/*.lock",
			want:    []string{"Cargo.lock", "crates/a/Cargo.lock", "web/yarn.lock"},
		},
		{
			pattern: "**/Cargo.lock",
			want:    []string{"Cargo.lock", "crates/a/Cargo.lock"},
		},
		{
			pattern: "crates/**/*.lock",
			want:    []string{"crates/a/Cargo.lock"},
		},
		{
			pattern: "*.lock",
			want:    []string{"Cargo.lock"},
		},
		{
			pattern: "**/*.json",
			want:    []string{"web/package.json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := Glob(context.Background(), root, tt.pattern)
			require.NoError(t, err)

			var rel []string
			for _, p := range got {
				r, err := filepath.Rel(root, p)
				require.NoError(t, err)
				rel = append(rel, filepath.ToSlash(r))
			}
			assert.Equal(t, tt.want, rel)
		})
	}
}

func TestGlob_BadPattern(t *testing.T) {
	_, err := Glob(context.Background(), t.TempDir(), "**/[.lock")
	assert.Error(t, err)
}

func TestGlob_SkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	target := writeFile(t, outside, "real/Cargo.lock", "foo=1.0.0")

	// A symlinked file and a symlinked directory, both pointing at lockfiles.
	if err := os.Symlink(target, filepath.Join(root, "linked.lock")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Dir(target), filepath.Join(root, "linkdir")))

	got, err := Glob(context.Background(), root, DefaultPattern)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Derive(context.Background(), root, "")
	assert.ErrorIs(t, err, ErrNoLockfile)
}

func TestGlob_SkipsDirectoriesNamedLikeLockfiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dir.lock"), 0o755))
	want := writeFile(t, root, "dir.lock/Cargo.lock", "x")

	got, err := Glob(context.Background(), root, DefaultPattern)
	require.NoError(t, err)
	assert.Equal(t, []string{want}, got)
}

func TestHashFile(t *testing.T) {
	p := writeFile(t, t.TempDir(), "Cargo.lock", "foo=1.0.0")

	got, err := HashFile(p)
	require.NoError(t, err)
	assert.Equal(t, fooDigest, got)

	_, err = HashFile(p + ".missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
