// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient("t0ken", WithAPIURL(srv.URL+"/"), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestNewClient_TokenRequired(t *testing.T) {
	_, err := NewClient("")
	assert.ErrorIs(t, err, ErrTokenRequired)
}

func TestDeleteByKey(t *testing.T) {
	var gotMethod, gotPath, gotKey, gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		gotKey = r.URL.Query().Get("key")
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"total_count":1,"actions_caches":[{"id":7,"key":"sccache-abc"}]}`)
	})

	err := c.DeleteByKey(context.Background(), "octo", "repo", "sccache-abc")
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/repos/octo/repo/actions/caches", gotPath)
	assert.Equal(t, "sccache-abc", gotKey)
	assert.Equal(t, "Bearer t0ken", gotAuth)
}

func TestDeleteByKey_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"message":"Not Found"}`, wantErr: ErrNotFound},
		{name: "bad credentials", status: http.StatusUnauthorized, body: `{"message":"Bad credentials"}`, wantErr: ErrUnauthorized},
		{name: "forbidden", status: http.StatusForbidden, body: `{"message":"Resource not accessible by integration"}`, wantErr: ErrUnauthorized},
		{name: "rate limited", status: http.StatusForbidden, body: `{"message":"API rate limit exceeded"}`, wantErr: ErrRateLimited},
		{name: "too many", status: http.StatusTooManyRequests, body: ``, wantErr: ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			err := c.DeleteByKey(context.Background(), "octo", "repo", "sccache-abc")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), `delete cache "sccache-abc"`)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestDeleteByKey_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := c.DeleteByKey(context.Background(), "octo", "repo", "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "status 500")
}

func TestListCaches_Paginates(t *testing.T) {
	var pages []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "sccache", q.Get("key"))
		pages = append(pages, q.Get("page"))

		page, _ := strconv.Atoi(q.Get("page"))
		n := pageSize
		if page == 2 {
			n = 1
		}
		fmt.Fprintf(w, `{"total_count":%d,"actions_caches":[`, pageSize+1)
		for i := 0; i < n; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"id":%d,"key":"sccache-%d-%d","ref":"refs/heads/main","size_in_bytes":1024,"created_at":"2026-01-02T03:04:05Z"}`, i, page, i)
		}
		fmt.Fprint(w, `]}`)
	})

	got, err := c.ListCaches(context.Background(), "octo", "repo", "sccache")
	require.NoError(t, err)
	assert.Len(t, got, pageSize+1)
	assert.Equal(t, []string{"1", "2"}, pages)
	assert.Equal(t, "sccache-1-0", got[0].Key)
	assert.Equal(t, int64(1024), got[0].Size)
	assert.Equal(t, 2026, got[0].CreatedAt.Year())
}

func TestListCaches_Error(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	})

	_, err := c.ListCaches(context.Background(), "octo", "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "octo/missing")
}

func TestParseRepo(t *testing.T) {
	tests := []struct {
		in      string
		want    Repo
		wantErr bool
	}{
		{in: "octo/repo", want: Repo{Owner: "octo", Name: "repo"}},
		{in: " octo/repo ", want: Repo{Owner: "octo", Name: "repo"}},
		{in: "octo", wantErr: true},
		{in: "/repo", wantErr: true},
		{in: "octo/", wantErr: true},
		{in: "a/b/c", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRepo(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRepo)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "octo/repo", got.String())
		})
	}
}

func TestRepoFromEnv(t *testing.T) {
	t.Setenv("GITHUB_REPOSITORY", "mozilla/sccache")
	r, err := RepoFromEnv()
	require.NoError(t, err)
	assert.Equal(t, Repo{Owner: "mozilla", Name: "sccache"}, r)
}
