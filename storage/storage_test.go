package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/acksell/datalake/awsiface"
	"github.com/acksell/datalake/lakestore"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *lakestore.Store {
	t.Helper()
	store, err := lakestore.New(lakestore.Options{InMemory: true, Region: "us-west-2"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// writeTree creates files (slash-separated relative paths) under a temp dir.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func putObject(t *testing.T, s3c awsiface.S3API, bucket, key, body string) {
	t.Helper()
	_, err := s3c.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   strings.NewReader(body),
	})
	require.NoError(t, err)
}

func getObject(t *testing.T, s3c awsiface.S3API, bucket, key string) string {
	t.Helper()
	out, err := s3c.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	require.NoError(t, err)
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	require.NoError(t, err)
	return string(data)
}

// recordingS3 logs the calls that mutate or list a bucket, and can fail
// selected operations.
type recordingS3 struct {
	awsiface.S3API

	mu    sync.Mutex
	calls []string

	createInputs []*s3.CreateBucketInput
	failPut      string
	failDelete   string
}

var errInjected = errors.New("injected failure")

func (r *recordingS3) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recordingS3) count(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (r *recordingS3) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	r.record("CreateBucket " + aws.ToString(params.Bucket))
	r.createInputs = append(r.createInputs, params)
	return r.S3API.CreateBucket(ctx, params, optFns...)
}

func (r *recordingS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(params.Key)
	r.record("PutObject " + key)
	if key == r.failPut {
		return nil, errInjected
	}
	return r.S3API.PutObject(ctx, params, optFns...)
}

func (r *recordingS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	key := aws.ToString(params.Key)
	r.record("DeleteObject " + key)
	if key == r.failDelete {
		return nil, errInjected
	}
	return r.S3API.DeleteObject(ctx, params, optFns...)
}

func (r *recordingS3) DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error) {
	r.record("DeleteBucket " + aws.ToString(params.Bucket))
	return r.S3API.DeleteBucket(ctx, params, optFns...)
}

func (r *recordingS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	r.record("ListObjectsV2")
	return r.S3API.ListObjectsV2(ctx, params, optFns...)
}

func (r *recordingS3) ListObjectVersions(ctx context.Context, params *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error) {
	r.record("ListObjectVersions")
	return r.S3API.ListObjectVersions(ctx, params, optFns...)
}
