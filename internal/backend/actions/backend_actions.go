// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package actions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/staranto/sccachectl/internal/archive"
	"github.com/staranto/sccachectl/internal/github"
	"github.com/staranto/sccachectl/internal/store"
)

const (
	// EnvResultsURL and EnvRuntimeToken are exported into every Actions job.
	EnvResultsURL   = "ACTIONS_RESULTS_URL"
	EnvRuntimeToken = "ACTIONS_RUNTIME_TOKEN"

	servicePath = "/twirp/github.actions.results.api.v1.CacheService/"
	// versionSalt differs from actions/cache's "1.0". Its tarballs use a
	// different layout, so their entries must never match ours.
	versionSalt = "sccachectl-1"
)

// BackendActions talks to the GitHub Actions cache service. Entries live
// next to the ones actions/cache writes but are versioned apart from them.
type BackendActions struct {
	ResultsURL string
	Owner      string
	Repo       string

	token   string
	httpCli *retryablehttp.Client
	gh      *github.Client
}

var (
	_ store.Store  = (*BackendActions)(nil)
	_ store.Lister = (*BackendActions)(nil)
)

// Option customizes a BackendActions.
type Option func(*BackendActions)

// WithResultsURL overrides ACTIONS_RESULTS_URL.
func WithResultsURL(u string) Option {
	return func(be *BackendActions) {
		if u != "" {
			be.ResultsURL = u
		}
	}
}

// WithRuntimeToken overrides ACTIONS_RUNTIME_TOKEN.
func WithRuntimeToken(token string) Option {
	return func(be *BackendActions) {
		if token != "" {
			be.token = token
		}
	}
}

// WithRepo records the repository. Only List needs it.
func WithRepo(owner, repo string) Option {
	return func(be *BackendActions) {
		be.Owner = owner
		be.Repo = repo
	}
}

// WithGitHub enables List through the REST API. The cache service itself
// cannot enumerate entries.
func WithGitHub(c *github.Client) Option {
	return func(be *BackendActions) { be.gh = c }
}

// WithRetries retries service and blob calls that fail with a connection
// error or a 5xx, up to n times with backoff. Zero disables retries.
func WithRetries(n int) Option {
	return func(be *BackendActions) {
		if n > 0 {
			be.httpCli.RetryMax = n
		}
	}
}

// WithHTTPClient replaces the transport used for service and blob calls.
func WithHTTPClient(h *http.Client) Option {
	return func(be *BackendActions) { be.httpCli.HTTPClient = h }
}

// NewBackendActions returns an Actions cache backend configured from the
// job environment.
func NewBackendActions(opts ...Option) (*BackendActions, error) {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.Logger = apexLogger{}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	be := &BackendActions{
		ResultsURL: os.Getenv(EnvResultsURL),
		token:      os.Getenv(EnvRuntimeToken),
		httpCli:    rc,
	}
	for _, opt := range opts {
		opt(be)
	}

	if be.ResultsURL == "" || be.token == "" {
		return nil, fmt.Errorf("actions backend needs %s and %s, run inside a GitHub Actions job or pick another --backend",
			EnvResultsURL, EnvRuntimeToken)
	}
	be.ResultsURL = strings.TrimRight(be.ResultsURL, "/")

	return be, nil
}

func (be *BackendActions) String() string {
	return "actions:" + be.ResultsURL
}

// Version scopes entries to the set of paths and the archive codec, so a
// key saved for other paths never restores here.
func Version(paths []string) string {
	components := append(append([]string{}, paths...), archive.Compression, versionSalt)
	sum := sha256.Sum256([]byte(strings.Join(components, "|")))
	return hex.EncodeToString(sum[:])
}

// Save uploads an archive of paths under key.
func (be *BackendActions) Save(ctx context.Context, paths []string, key string) error {
	version := Version(paths)

	res, err := be.call(ctx, "CreateCacheEntry", map[string]any{
		"key":     key,
		"version": version,
	})
	if err != nil {
		return err
	}
	uploadURL := res.Get("signed_upload_url").String()
	if !res.Get("ok").Bool() || uploadURL == "" {
		return fmt.Errorf("%s: %w", key, store.ErrAlreadyExists)
	}

	f, size, err := store.Spool(ctx, paths)
	if err != nil {
		return err
	}
	defer store.Discard(f)

	if err := be.upload(ctx, uploadURL, f, size); err != nil {
		return err
	}

	res, err = be.call(ctx, "FinalizeCacheEntryUpload", map[string]any{
		"key":        key,
		"version":    version,
		"size_bytes": strconv.FormatInt(size, 10),
	})
	if err != nil {
		return err
	}
	if !res.Get("ok").Bool() {
		return fmt.Errorf("cache service refused to finalize %s", key)
	}

	log.WithField("entry", res.Get("entry_id").String()).
		Debugf("committed %s (%s)", key, humanize.Bytes(uint64(size)))
	return nil
}

// Restore asks the service for key, falling back to restoreKeys, and
// unpacks the match into paths.
func (be *BackendActions) Restore(ctx context.Context, paths []string, key string, restoreKeys []string) (string, error) {
	if restoreKeys == nil {
		restoreKeys = []string{}
	}

	res, err := be.call(ctx, "GetCacheEntryDownloadURL", map[string]any{
		"key":          key,
		"restore_keys": restoreKeys,
		"version":      Version(paths),
	})
	if err != nil {
		return "", err
	}
	downloadURL := res.Get("signed_download_url").String()
	if !res.Get("ok").Bool() || downloadURL == "" {
		return "", nil
	}

	matched := res.Get("matched_key").String()
	if matched == "" {
		matched = key
	}

	if err := be.download(ctx, downloadURL, paths); err != nil {
		return "", fmt.Errorf("failed to restore %s: %w", matched, err)
	}
	return matched, nil
}

// List enumerates entries through the REST API.
func (be *BackendActions) List(ctx context.Context, prefix string) ([]store.Entry, error) {
	if be.gh == nil {
		return nil, errors.New("listing actions caches requires a token, set --token")
	}

	caches, err := be.gh.ListCaches(ctx, be.Owner, be.Repo, prefix)
	if err != nil {
		return nil, err
	}

	entries := make([]store.Entry, 0, len(caches))
	for _, c := range caches {
		entries = append(entries, store.Entry{
			Key:       c.Key,
			Size:      c.Size,
			CreatedAt: c.CreatedAt,
			Location:  c.Ref,
		})
	}
	return entries, nil
}

// call invokes a twirp method with a JSON body and returns the parsed
// response.
func (be *BackendActions) call(ctx context.Context, method string, payload any) (gjson.Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return gjson.Result{}, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, be.ResultsURL+servicePath+method, body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+be.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := be.httpCli.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: reading response: %w", method, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		doc := gjson.ParseBytes(raw)
		if doc.Get("code").String() == "already_exists" || resp.StatusCode == http.StatusConflict {
			return gjson.Result{}, fmt.Errorf("%s: %w", method, store.ErrAlreadyExists)
		}
		return gjson.Result{}, fmt.Errorf("%s: cache service returned %d: %s",
			method, resp.StatusCode, doc.Get("msg").String())
	}

	log.Debugf("%s: %s", method, raw)
	return gjson.ParseBytes(raw), nil
}

func (be *BackendActions) upload(ctx context.Context, signedURL string, f *os.File, size int64) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, signedURL, f)
	if err != nil {
		return fmt.Errorf("creating upload request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("x-ms-blob-type", "BlockBlob")

	resp, err := be.httpCli.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("failed to upload archive: blob storage returned %d", resp.StatusCode)
	}
	return nil
}

func (be *BackendActions) download(ctx context.Context, signedURL string, paths []string) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, signedURL, nil)
	if err != nil {
		return fmt.Errorf("creating download request: %w", err)
	}

	resp, err := be.httpCli.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("failed to download archive: blob storage returned %d", resp.StatusCode)
	}

	if resp.ContentLength > 0 {
		log.Infof("downloading %s", humanize.Bytes(uint64(resp.ContentLength)))
	}
	return archive.Extract(ctx, resp.Body, paths)
}
