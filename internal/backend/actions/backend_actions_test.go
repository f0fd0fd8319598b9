// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package actions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/staranto/sccachectl/internal/github"
	"github.com/staranto/sccachectl/internal/store"
)

// fakeService mimics the cache service and its blob storage.
type fakeService struct {
	mu      sync.Mutex
	srv     *httptest.Server
	blobs   map[string][]byte // key -> archive
	pending map[string]string // key -> version
	calls   []string
	auth    string
	blobHdr string
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	f := &fakeService{blobs: map[string][]byte{}, pending: map[string]string{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeService) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, _ := io.ReadAll(r.Body)

	if key, ok := strings.CutPrefix(r.URL.Path, "/blob/"); ok {
		switch r.Method {
		case http.MethodPut:
			f.blobHdr = r.Header.Get("x-ms-blob-type")
			f.blobs[key] = body
			w.WriteHeader(http.StatusCreated)
		case http.MethodGet:
			b, ok := f.blobs[key]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write(b)
		}
		return
	}

	method := strings.TrimPrefix(r.URL.Path, servicePath)
	f.calls = append(f.calls, method)
	f.auth = r.Header.Get("Authorization")
	req := gjson.ParseBytes(body)
	key := req.Get("key").String()

	switch method {
	case "CreateCacheEntry":
		if _, ok := f.blobs[key]; ok {
			w.WriteHeader(http.StatusConflict)
			fmt.Fprint(w, `{"code":"already_exists","msg":"cache entry exists"}`)
			return
		}
		f.pending[key] = req.Get("version").String()
		fmt.Fprintf(w, `{"ok":true,"signed_upload_url":"%s/blob/%s"}`, f.srv.URL, key)
	case "FinalizeCacheEntryUpload":
		if req.Get("size_bytes").String() == "" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"code":"invalid_argument","msg":"size_bytes"}`)
			return
		}
		fmt.Fprint(w, `{"ok":true,"entry_id":"42"}`)
	case "GetCacheEntryDownloadURL":
		candidates := []string{key}
		for _, rk := range req.Get("restore_keys").Array() {
			candidates = append(candidates, rk.String())
		}
		for i, c := range candidates {
			for k := range f.blobs {
				if (i == 0 && k == c) || (i > 0 && strings.HasPrefix(k, c)) {
					fmt.Fprintf(w, `{"ok":true,"signed_download_url":"%s/blob/%s","matched_key":"%s"}`, f.srv.URL, k, k)
					return
				}
			}
		}
		fmt.Fprint(w, `{"ok":false}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"code":"bad_route","msg":"no handler"}`)
	}
}

func newBackend(t *testing.T, f *fakeService) *BackendActions {
	t.Helper()
	be, err := NewBackendActions(WithResultsURL(f.srv.URL+"/"), WithRuntimeToken("rt"))
	require.NoError(t, err)
	return be
}

func seed(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "obj.o"), []byte(content), 0o600))
	return dir
}

func TestNewBackendActions_RequiresEnv(t *testing.T) {
	t.Setenv(EnvResultsURL, "")
	t.Setenv(EnvRuntimeToken, "")
	_, err := NewBackendActions()
	assert.ErrorContains(t, err, EnvResultsURL)

	t.Setenv(EnvResultsURL, "https://results.example/")
	t.Setenv(EnvRuntimeToken, "rt")
	be, err := NewBackendActions()
	require.NoError(t, err)
	assert.Equal(t, "actions:https://results.example", be.String())
}

func TestVersion(t *testing.T) {
	a := Version([]string{"/cache"})
	assert.Len(t, a, 64)
	assert.Equal(t, a, Version([]string{"/cache"}))
	assert.NotEqual(t, a, Version([]string{"/other"}))
}

func TestVersion_ApartFromActionsCache(t *testing.T) {
	p := "/home/runner/.cache/sccache"
	sum := sha256.Sum256([]byte(p + "|zstd|1.0"))
	assert.NotEqual(t, hex.EncodeToString(sum[:]), Version([]string{p}))
}

func TestSaveRestore(t *testing.T) {
	ctx := context.Background()
	f := newFakeService(t)
	be := newBackend(t, f)

	require.NoError(t, be.Save(ctx, []string{seed(t, "warm")}, "sccache-aaa"))
	assert.Equal(t, []string{"CreateCacheEntry", "FinalizeCacheEntryUpload"}, f.calls)
	assert.Equal(t, "Bearer rt", f.auth)
	assert.Equal(t, "BlockBlob", f.blobHdr)
	assert.Contains(t, f.blobs, "sccache-aaa")

	dest := filepath.Join(t.TempDir(), "restored")
	matched, err := be.Restore(ctx, []string{dest}, "sccache-aaa", []string{"sccache"})
	require.NoError(t, err)
	assert.Equal(t, "sccache-aaa", matched)

	b, err := os.ReadFile(filepath.Join(dest, "obj.o"))
	require.NoError(t, err)
	assert.Equal(t, "warm", string(b))
}

func TestSave_AlreadyExists(t *testing.T) {
	ctx := context.Background()
	f := newFakeService(t)
	be := newBackend(t, f)

	require.NoError(t, be.Save(ctx, []string{seed(t, "a")}, "sccache-aaa"))
	err := be.Save(ctx, []string{seed(t, "b")}, "sccache-aaa")
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestRestore_Fallback(t *testing.T) {
	ctx := context.Background()
	f := newFakeService(t)
	be := newBackend(t, f)

	require.NoError(t, be.Save(ctx, []string{seed(t, "stale")}, "sccache-old"))

	dest := filepath.Join(t.TempDir(), "restored")
	matched, err := be.Restore(ctx, []string{dest}, "sccache-new", []string{"sccache"})
	require.NoError(t, err)
	assert.Equal(t, "sccache-old", matched)
}

func TestRestore_Miss(t *testing.T) {
	be := newBackend(t, newFakeService(t))

	matched, err := be.Restore(context.Background(), []string{t.TempDir()}, "sccache-aaa", nil)
	require.NoError(t, err)
	assert.Empty(t, matched)
}

func TestCall_ServiceError(t *testing.T) {
	f := newFakeService(t)
	be := newBackend(t, f)

	_, err := be.call(context.Background(), "Nope", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned 404: no handler")
}

func TestRetries(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"ok":false}`)
	}))
	t.Cleanup(srv.Close)

	be, err := NewBackendActions(WithResultsURL(srv.URL), WithRuntimeToken("rt"))
	require.NoError(t, err)
	_, err = be.Restore(context.Background(), []string{t.TempDir()}, "sccache-aaa", nil)
	assert.ErrorContains(t, err, "returned 502")
	assert.Equal(t, 1, attempts)

	attempts = 0
	be, err = NewBackendActions(WithResultsURL(srv.URL), WithRuntimeToken("rt"), WithRetries(3))
	require.NoError(t, err)
	be.httpCli.RetryWaitMin = time.Millisecond
	be.httpCli.RetryWaitMax = time.Millisecond
	matched, err := be.Restore(context.Background(), []string{t.TempDir()}, "sccache-aaa", nil)
	require.NoError(t, err)
	assert.Empty(t, matched)
	assert.Equal(t, 3, attempts)
}

func TestList(t *testing.T) {
	be := newBackend(t, newFakeService(t))
	_, err := be.List(context.Background(), "sccache")
	assert.ErrorContains(t, err, "requires a token")

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"total_count":1,"actions_caches":[{"id":1,"key":"sccache-aaa","ref":"refs/heads/main","size_in_bytes":2048,"created_at":"2026-03-04T05:06:07Z"}]}`)
	}))
	t.Cleanup(api.Close)

	gh, err := github.NewClient("tok", github.WithAPIURL(api.URL))
	require.NoError(t, err)
	WithGitHub(gh)(be)
	WithRepo("octo", "repo")(be)

	entries, err := be.List(context.Background(), "sccache")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sccache-aaa", entries[0].Key)
	assert.Equal(t, int64(2048), entries[0].Size)
	assert.Equal(t, "refs/heads/main", entries[0].Location)
}
