package storage

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/acksell/datalake"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	root := filepath.Join("data", "S3_Data")
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{path: filepath.Join(root, "customer.json"), want: "customer.json"},
		{path: filepath.Join(root, "customer", "landing", "c.json"), want: "customer/landing/c.json"},
		{path: root, wantErr: true},
		{path: filepath.Join("data", "other.json"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := ObjectKey(root, tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func listKeys(t *testing.T, c *Client, bucket string) []string {
	t.Helper()
	out, err := c.s3.ListObjectsV2(context.Background(), &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
	require.NoError(t, err)
	var keys []string
	for _, obj := range out.Contents {
		keys = append(keys, aws.ToString(obj.Key))
	}
	sort.Strings(keys)
	return keys
}

func TestClient_UploadTree(t *testing.T) {
	ctx := context.Background()

	t.Run("uploads files keyed by relative path", func(t *testing.T) {
		store := newTestStore(t)
		c := New(store)
		require.True(t, c.EnsureBucket(ctx, "lake-data", "us-west-2").OK())

		root := writeTree(t, map[string]string{
			"raw/a.json": `{"a":1}`,
			"raw/b.json": `{"b":2}`,
		})
		require.NoError(t, os.MkdirAll(filepath.Join(root, "raw", "empty"), 0o755))

		r := c.UploadTree(ctx, root, "lake-data")
		require.True(t, r.OK(), r.Err())
		assert.Len(t, r.Of(datalake.KindObject), 2)

		assert.Equal(t, []string{"raw/a.json", "raw/b.json"}, listKeys(t, c, "lake-data"))
		assert.Equal(t, `{"a":1}`, getObject(t, store, "lake-data", "raw/a.json"))

		out, err := store.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String("lake-data"), Key: aws.String("raw/b.json")})
		require.NoError(t, err)
		out.Body.Close()
		assert.Equal(t, "application/json", aws.ToString(out.ContentType))
	})

	t.Run("upload overwrites existing objects", func(t *testing.T) {
		store := newTestStore(t)
		c := New(store)
		require.True(t, c.EnsureBucket(ctx, "lake-data", "us-west-2").OK())
		putObject(t, store, "lake-data", "a.json", "old")

		root := writeTree(t, map[string]string{"a.json": "new"})
		require.True(t, c.UploadTree(ctx, root, "lake-data").OK())
		assert.Equal(t, "new", getObject(t, store, "lake-data", "a.json"))
	})

	t.Run("one failed file does not stop the others", func(t *testing.T) {
		rec := &recordingS3{S3API: newTestStore(t), failPut: "b.json"}
		c := New(rec)
		require.True(t, c.EnsureBucket(ctx, "lake-data", "us-west-2").OK())

		root := writeTree(t, map[string]string{"a.json": "a", "b.json": "b", "c.json": "c"})
		r := c.UploadTree(ctx, root, "lake-data")

		assert.False(t, r.OK())
		require.Len(t, r.Failed(), 1)
		assert.Equal(t, "b.json", r.Failed()[0].Name)
		assert.ErrorIs(t, r.Failed()[0].Err, errInjected)
		assert.Equal(t, 2, r.Count(datalake.StatusSucceeded))
		assert.Equal(t, []string{"a.json", "c.json"}, listKeys(t, c, "lake-data"))
	})

	t.Run("missing bucket fails every file", func(t *testing.T) {
		c := New(newTestStore(t))
		root := writeTree(t, map[string]string{"a.json": "a", "b.json": "b"})
		r := c.UploadTree(ctx, root, "no-such-bucket")
		assert.Len(t, r.Failed(), 2)
	})

	t.Run("missing root is a single failure", func(t *testing.T) {
		c := New(newTestStore(t))
		r := c.UploadTree(ctx, filepath.Join(t.TempDir(), "missing"), "lake-data")
		require.Len(t, r.Outcomes, 1)
		assert.Equal(t, datalake.StatusFailed, r.Outcomes[0].Status)
	})

	t.Run("root that is a file is a single failure", func(t *testing.T) {
		c := New(newTestStore(t))
		root := writeTree(t, map[string]string{"a.json": "a"})
		r := c.UploadTree(ctx, filepath.Join(root, "a.json"), "lake-data")
		require.Len(t, r.Outcomes, 1)
		assert.False(t, r.OK())
	})

	t.Run("empty tree uploads nothing", func(t *testing.T) {
		c := New(newTestStore(t))
		r := c.UploadTree(ctx, t.TempDir(), "lake-data")
		assert.Empty(t, r.Outcomes)
		assert.True(t, r.OK())
	})
}
