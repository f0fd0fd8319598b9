// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Key: "sccache-aaa", CreatedAt: t0},
		{Key: "sccache-bbb", CreatedAt: t0.Add(2 * time.Hour)},
		{Key: "sccache-ccc", CreatedAt: t0.Add(time.Hour)},
		{Key: "other-zzz", CreatedAt: t0.Add(3 * time.Hour)},
	}

	tests := []struct {
		name        string
		key         string
		restoreKeys []string
		want        string
		wantOK      bool
	}{
		{name: "exact", key: "sccache-aaa", restoreKeys: []string{"sccache"}, want: "sccache-aaa", wantOK: true},
		{name: "newest prefix match", key: "sccache-new", restoreKeys: []string{"sccache"}, want: "sccache-bbb", wantOK: true},
		{name: "restore keys in order", key: "x", restoreKeys: []string{"nomatch", "other"}, want: "other-zzz", wantOK: true},
		{name: "miss", key: "sccache-new", restoreKeys: []string{"nomatch"}, wantOK: false},
		{name: "no restore keys", key: "sccache-new", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(entries, tt.key, tt.restoreKeys)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got.Key)
			}
		})
	}
}

func TestSpool(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a"), []byte("hello"), 0o600))

	f, n, err := Spool(context.Background(), []string{src})
	require.NoError(t, err)

	b, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, n, int64(len(b)))

	name := f.Name()
	Discard(f)
	_, err = os.Stat(name)
	assert.True(t, os.IsNotExist(err))
}
