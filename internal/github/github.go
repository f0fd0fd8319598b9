// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/tidwall/gjson"
)

const (
	DefaultAPIURL = "https://api.github.com"
	apiVersion    = "2022-11-28"
	pageSize      = 100
)

// Client talks to the GitHub REST API.
type Client struct {
	token   string
	apiURL  string
	httpCli *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithAPIURL overrides the API base URL, e.g. for GitHub Enterprise Server.
func WithAPIURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.apiURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpCli = h }
}

// NewClient returns a client authenticated with token. The HTTP client is a
// non-shared cleanhttp client; requests are never retried.
func NewClient(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, ErrTokenRequired
	}

	c := &Client{
		token:   token,
		apiURL:  DefaultAPIURL,
		httpCli: cleanhttp.DefaultClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CacheEntry is an Actions cache entry as reported by the API.
type CacheEntry struct {
	ID             int64     `json:"id" yaml:"id"`
	Key            string    `json:"key" yaml:"key"`
	Ref            string    `json:"ref" yaml:"ref"`
	Version        string    `json:"version" yaml:"version"`
	Size           int64     `json:"size" yaml:"size"`
	CreatedAt      time.Time `json:"created" yaml:"created"`
	LastAccessedAt time.Time `json:"last_accessed" yaml:"last_accessed"`
}

// DeleteByKey deletes every cache entry with exactly this key.
func (c *Client) DeleteByKey(ctx context.Context, owner, repo, key string) error {
	q := url.Values{"key": {key}}
	endpoint := fmt.Sprintf("%s/repos/%s/%s/actions/caches?%s",
		c.apiURL, url.PathEscape(owner), url.PathEscape(repo), q.Encode())

	body, err := c.do(ctx, http.MethodDelete, endpoint)
	if err != nil {
		return FriendlyAPI(err, ErrorContext{
			Host:      c.host(),
			Repo:      owner + "/" + repo,
			Operation: "delete cache",
			Key:       key,
		})
	}

	log.Debugf("deleted %d cache entries", gjson.GetBytes(body, "total_count").Int())
	return nil
}

// ListCaches lists the cache entries whose key starts with keyPrefix. An
// empty prefix lists everything.
func (c *Client) ListCaches(ctx context.Context, owner, repo, keyPrefix string) ([]CacheEntry, error) {
	var entries []CacheEntry

	for page := 1; ; page++ {
		q := url.Values{
			"per_page":  {strconv.Itoa(pageSize)},
			"page":      {strconv.Itoa(page)},
			"sort":      {"created_at"},
			"direction": {"desc"},
		}
		if keyPrefix != "" {
			q.Set("key", keyPrefix)
		}
		endpoint := fmt.Sprintf("%s/repos/%s/%s/actions/caches?%s",
			c.apiURL, url.PathEscape(owner), url.PathEscape(repo), q.Encode())

		body, err := c.do(ctx, http.MethodGet, endpoint)
		if err != nil {
			return nil, FriendlyAPI(err, ErrorContext{
				Host:      c.host(),
				Repo:      owner + "/" + repo,
				Operation: "list caches",
			})
		}

		doc := gjson.ParseBytes(body)
		items := doc.Get("actions_caches").Array()
		for _, item := range items {
			entries = append(entries, CacheEntry{
				ID:             item.Get("id").Int(),
				Key:            item.Get("key").String(),
				Ref:            item.Get("ref").String(),
				Version:        item.Get("version").String(),
				Size:           item.Get("size_in_bytes").Int(),
				CreatedAt:      item.Get("created_at").Time(),
				LastAccessedAt: item.Get("last_accessed_at").Time(),
			})
		}

		log.Debugf("page: %d, total: %d", page, len(entries))
		if len(items) < pageSize || int64(len(entries)) >= doc.Get("total_count").Int() {
			break
		}
	}

	return entries, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    gjson.GetBytes(body, "message").String(),
		}
	}
	return body, nil
}

func (c *Client) host() string {
	if u, err := url.Parse(c.apiURL); err == nil {
		return u.Host
	}
	return c.apiURL
}
