// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package s3

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/apex/log"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dustin/go-humanize"

	"github.com/staranto/sccachectl/internal/archive"
	awsx "github.com/staranto/sccachectl/internal/aws"
	"github.com/staranto/sccachectl/internal/store"
)

// API is the subset of the S3 client the backend uses.
type API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// BackendS3 stores archives as objects at <prefix>/<owner>/<repo>/<key>.tar.zst.
type BackendS3 struct {
	Bucket   string
	Prefix   string
	Region   string
	Profile  string
	Endpoint string
	Owner    string
	Repo     string
	Retries  int

	client API
}

var (
	_ store.Store  = (*BackendS3)(nil)
	_ store.Lister = (*BackendS3)(nil)
)

// Option customizes a BackendS3.
type Option func(*BackendS3)

// WithBucket sets the bucket name.
func WithBucket(bucket string) Option {
	return func(be *BackendS3) { be.Bucket = bucket }
}

// WithPrefix sets the object key prefix.
func WithPrefix(prefix string) Option {
	return func(be *BackendS3) { be.Prefix = strings.Trim(prefix, "/") }
}

// WithRegion overrides the region from the AWS config chain.
func WithRegion(region string) Option {
	return func(be *BackendS3) { be.Region = region }
}

// WithProfile selects a shared config profile.
func WithProfile(profile string) Option {
	return func(be *BackendS3) { be.Profile = profile }
}

// WithEndpoint targets an S3 compatible service.
func WithEndpoint(endpoint string) Option {
	return func(be *BackendS3) { be.Endpoint = endpoint }
}

// WithRepo scopes objects to a repository.
func WithRepo(owner, repo string) Option {
	return func(be *BackendS3) {
		be.Owner = owner
		be.Repo = repo
	}
}

// WithRetries caps SDK retries at n. Zero keeps the SDK's standard retryer.
func WithRetries(n int) Option {
	return func(be *BackendS3) { be.Retries = n }
}

// WithClient replaces the S3 client. Mostly for tests.
func WithClient(c API) Option {
	return func(be *BackendS3) { be.client = c }
}

// NewBackendS3 returns an S3 backend. Unless WithClient is given, the client
// is built from the shell's AWS config.
func NewBackendS3(ctx context.Context, opts ...Option) (*BackendS3, error) {
	be := &BackendS3{}
	for _, opt := range opts {
		opt(be)
	}
	if be.Bucket == "" {
		return nil, errors.New("s3 backend requires --bucket")
	}

	if be.client == nil {
		aopts := []awsx.Option{awsx.WithProfile(be.Profile), awsx.WithRegion(be.Region)}
		if be.Retries > 0 {
			aopts = append(aopts, awsx.WithRetryer(func() aws.Retryer {
				return retry.AddWithMaxAttempts(retry.NewStandard(), be.Retries+1)
			}))
		}
		cfg, err := awsx.LoadAWSConfig(ctx, aopts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		be.client = awsx.NewS3(cfg, awsx.WithS3Endpoint(be.Endpoint))
	}

	return be, nil
}

func (be *BackendS3) String() string {
	return "s3://" + path.Join(be.Bucket, be.base())
}

func (be *BackendS3) base() string {
	return path.Join(be.Prefix, be.Owner, be.Repo)
}

func (be *BackendS3) objectKey(key string) string {
	return path.Join(be.base(), key+archive.Extension)
}

// Save uploads an archive of paths under key. An existing object is never
// overwritten.
func (be *BackendS3) Save(ctx context.Context, paths []string, key string) error {
	objKey := be.objectKey(key)

	_, err := be.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(be.Bucket),
		Key:    aws.String(objKey),
	})
	switch {
	case err == nil:
		return fmt.Errorf("%s: %w", key, store.ErrAlreadyExists)
	case isNotFound(err):
	case isForbidden(err):
		// Without s3:ListBucket a missing key answers 403. The conditional
		// put below still refuses to overwrite.
		log.Debugf("cannot check s3://%s/%s, trying the upload", be.Bucket, objKey)
	default:
		return fmt.Errorf("failed to check s3://%s/%s: %w", be.Bucket, objKey, err)
	}

	f, size, err := store.Spool(ctx, paths)
	if err != nil {
		return err
	}
	defer store.Discard(f)

	_, err = be.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(be.Bucket),
		Key:           aws.String(objKey),
		Body:          f,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("application/zstd"),
		IfNoneMatch:   aws.String("*"),
	})
	if isPreconditionFailed(err) {
		return fmt.Errorf("%s: %w", key, store.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", be.Bucket, objKey, err)
	}

	log.Debugf("uploaded s3://%s/%s (%s)", be.Bucket, objKey, humanize.Bytes(uint64(size)))
	return nil
}

// Restore downloads key, or the newest object matching one of restoreKeys,
// and unpacks it into paths.
func (be *BackendS3) Restore(ctx context.Context, paths []string, key string, restoreKeys []string) (string, error) {
	ok, err := be.extract(ctx, be.objectKey(key), paths)
	if err != nil {
		return "", err
	}
	if ok {
		return key, nil
	}

	var candidates []store.Entry
	for _, prefix := range restoreKeys {
		entries, err := be.List(ctx, prefix)
		if err != nil {
			return "", err
		}
		candidates = append(candidates, entries...)
	}

	match, found := store.Resolve(candidates, key, restoreKeys)
	if !found {
		return "", nil
	}

	ok, err = be.extract(ctx, match.Location, paths)
	if err != nil {
		return "", err
	}
	if !ok {
		// Deleted between list and get.
		return "", nil
	}
	return match.Key, nil
}

func (be *BackendS3) extract(ctx context.Context, objKey string, paths []string) (bool, error) {
	out, err := be.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(be.Bucket),
		Key:    aws.String(objKey),
	})
	if isNotFound(err) {
		log.Debugf("no object at s3://%s/%s", be.Bucket, objKey)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to download s3://%s/%s: %w", be.Bucket, objKey, err)
	}
	defer out.Body.Close()

	if err := archive.Extract(ctx, out.Body, paths); err != nil {
		return false, fmt.Errorf("failed to extract s3://%s/%s: %w", be.Bucket, objKey, err)
	}
	return true, nil
}

// List returns the objects whose key starts with prefix.
func (be *BackendS3) List(ctx context.Context, prefix string) ([]store.Entry, error) {
	base := be.base()
	if base != "" {
		base += "/"
	}

	var entries []store.Entry
	p := s3.NewListObjectsV2Paginator(be.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(be.Bucket),
		Prefix: aws.String(base + prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3://%s/%s: %w", be.Bucket, base+prefix, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), base)
			key, ok := strings.CutSuffix(name, archive.Extension)
			if !ok || strings.Contains(key, "/") {
				continue
			}
			entries = append(entries, store.Entry{
				Key:       key,
				Size:      aws.ToInt64(obj.Size),
				CreatedAt: aws.ToTime(obj.LastModified),
				Location:  aws.ToString(obj.Key),
			})
		}
	}

	log.Debugf("listed %d objects under s3://%s/%s", len(entries), be.Bucket, base+prefix)
	return entries, nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}

	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

func isForbidden(err error) bool {
	var re *awshttp.ResponseError
	if errors.As(err, &re) && re.HTTPStatusCode() == http.StatusForbidden {
		return true
	}
	return hasCode(err, "Forbidden", "AccessDenied")
}

func isPreconditionFailed(err error) bool {
	var re *awshttp.ResponseError
	if errors.As(err, &re) && re.HTTPStatusCode() == http.StatusPreconditionFailed {
		return true
	}
	return hasCode(err, "PreconditionFailed")
}

func hasCode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, c := range codes {
		if apiErr.ErrorCode() == c {
			return true
		}
	}
	return false
}
