package lakestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putInput(bucket, key, body string) *s3.PutObjectInput {
	return &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   strings.NewReader(body),
	}
}

func versioningInput(bucket string) *s3.PutBucketVersioningInput {
	return &s3.PutBucketVersioningInput{
		Bucket: aws.String(bucket),
		VersioningConfiguration: &s3types.VersioningConfiguration{
			Status: s3types.BucketVersioningStatusEnabled,
		},
	}
}

func readObject(t *testing.T, store *Store, bucket, key string) string {
	t.Helper()
	out, err := store.GetObject(context.Background(), &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	require.NoError(t, err)
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	require.NoError(t, err)
	return string(data)
}

func createBucket(t *testing.T, store *Store, bucket string) {
	t.Helper()
	_, err := store.CreateBucket(context.Background(), &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	require.NoError(t, err)
}

func errorCode(err error) string {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return ""
	}
	return apiErr.ErrorCode()
}

func TestStore_CreateBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("owner rules", func(t *testing.T) {
		store := newTestStore(t)
		createBucket(t, store, "lake-data")

		_, err := store.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String("lake-data")})
		var owned *s3types.BucketAlreadyOwnedByYou
		assert.ErrorAs(t, err, &owned)

		_, err = store.AsAccount("111111111111").CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String("lake-data")})
		var taken *s3types.BucketAlreadyExists
		assert.ErrorAs(t, err, &taken)
	})

	t.Run("invalid names", func(t *testing.T) {
		store := newTestStore(t)
		for _, name := range []string{"ab", "Upper", "under_score", "-leading", strings.Repeat("a", 64)} {
			_, err := store.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(name)})
			assert.Equal(t, "InvalidBucketName", errorCode(err), name)
		}
	})
}

func TestStore_Objects(t *testing.T) {
	ctx := context.Background()

	t.Run("unversioned put overwrites", func(t *testing.T) {
		store := newTestStore(t)
		createBucket(t, store, "lake-data")

		_, err := store.PutObject(ctx, putInput("lake-data", "k", "one"))
		require.NoError(t, err)
		out, err := store.PutObject(ctx, putInput("lake-data", "k", "two"))
		require.NoError(t, err)
		assert.Nil(t, out.VersionId)
		assert.Equal(t, "two", readObject(t, store, "lake-data", "k"))

		versions, err := store.ListObjectVersions(ctx, &s3.ListObjectVersionsInput{Bucket: aws.String("lake-data")})
		require.NoError(t, err)
		require.Len(t, versions.Versions, 1)
		assert.Equal(t, "null", aws.ToString(versions.Versions[0].VersionId))
	})

	t.Run("unversioned delete removes the object", func(t *testing.T) {
		store := newTestStore(t)
		createBucket(t, store, "lake-data")
		_, err := store.PutObject(ctx, putInput("lake-data", "k", "one"))
		require.NoError(t, err)

		_, err = store.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String("lake-data"), Key: aws.String("k")})
		require.NoError(t, err)

		_, err = store.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String("lake-data"), Key: aws.String("k")})
		var noKey *s3types.NoSuchKey
		assert.ErrorAs(t, err, &noKey)

		_, err = store.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String("lake-data")})
		assert.NoError(t, err)
	})

	t.Run("versioned delete adds a marker", func(t *testing.T) {
		store := newTestStore(t)
		createBucket(t, store, "lake-data")
		_, err := store.PutBucketVersioning(ctx, versioningInput("lake-data"))
		require.NoError(t, err)

		v1, err := store.PutObject(ctx, putInput("lake-data", "k", "one"))
		require.NoError(t, err)
		require.NotNil(t, v1.VersionId)

		del, err := store.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String("lake-data"), Key: aws.String("k")})
		require.NoError(t, err)
		assert.True(t, aws.ToBool(del.DeleteMarker))

		list, err := store.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: aws.String("lake-data")})
		require.NoError(t, err)
		assert.Empty(t, list.Contents)

		versions, err := store.ListObjectVersions(ctx, &s3.ListObjectVersionsInput{Bucket: aws.String("lake-data")})
		require.NoError(t, err)
		require.Len(t, versions.Versions, 1)
		require.Len(t, versions.DeleteMarkers, 1)
		assert.True(t, aws.ToBool(versions.DeleteMarkers[0].IsLatest))
		assert.False(t, aws.ToBool(versions.Versions[0].IsLatest))

		// The old version is still readable by ID.
		old, err := store.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String("lake-data"), Key: aws.String("k"), VersionId: v1.VersionId})
		require.NoError(t, err)
		old.Body.Close()

		_, err = store.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String("lake-data")})
		assert.Equal(t, "BucketNotEmpty", errorCode(err))

		for _, id := range []*string{v1.VersionId, del.VersionId} {
			_, err = store.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String("lake-data"), Key: aws.String("k"), VersionId: id})
			require.NoError(t, err)
		}
		_, err = store.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String("lake-data")})
		assert.NoError(t, err)
	})

	t.Run("delete rejects a malformed version id", func(t *testing.T) {
		store := newTestStore(t)
		createBucket(t, store, "lake-data")
		_, err := store.PutObject(ctx, putInput("lake-data", "k", "one"))
		require.NoError(t, err)

		for _, id := range []string{"", "v1", "zz000000000000000000000000000000"} {
			_, err = store.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String("lake-data"), Key: aws.String("k"), VersionId: aws.String(id)})
			assert.Equal(t, "InvalidArgument", errorCode(err), "version id %q", id)
		}
		assert.Equal(t, "one", readObject(t, store, "lake-data", "k"))

		// Well-formed but unknown IDs are a no-op, as in S3.
		_, err = store.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String("lake-data"), Key: aws.String("k"), VersionId: aws.String("00000000000000ff0123456789abcdef")})
		assert.NoError(t, err)
	})

	t.Run("expected owner", func(t *testing.T) {
		store := newTestStore(t)
		createBucket(t, store, "lake-data")

		in := putInput("lake-data", "k", "one")
		in.ExpectedBucketOwner = aws.String("111111111111")
		_, err := store.PutObject(ctx, in)
		assert.Equal(t, "AccessDenied", errorCode(err))

		in = putInput("lake-data", "k", "one")
		in.ExpectedBucketOwner = aws.String(DefaultAccountID)
		_, err = store.PutObject(ctx, in)
		assert.NoError(t, err)

		_, err = store.AsAccount("111111111111").DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String("lake-data")})
		assert.Equal(t, "AccessDenied", errorCode(err))
	})

	t.Run("missing bucket", func(t *testing.T) {
		store := newTestStore(t)
		_, err := store.PutObject(ctx, putInput("nope", "k", "x"))
		var noBucket *s3types.NoSuchBucket
		assert.ErrorAs(t, err, &noBucket)
	})
}

func TestStore_ListObjectsV2_Pagination(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	createBucket(t, store, "lake-data")
	for i := 0; i < 5; i++ {
		_, err := store.PutObject(ctx, putInput("lake-data", fmt.Sprintf("raw/%d.json", i), "x"))
		require.NoError(t, err)
	}
	_, err := store.PutObject(ctx, putInput("lake-data", "other.json", "x"))
	require.NoError(t, err)

	var keys []string
	p := s3.NewListObjectsV2Paginator(store, &s3.ListObjectsV2Input{
		Bucket:  aws.String("lake-data"),
		Prefix:  aws.String("raw/"),
		MaxKeys: aws.Int32(2),
	})
	pages := 0
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		require.NoError(t, err)
		pages++
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	assert.Equal(t, 3, pages)
	assert.Equal(t, []string{"raw/0.json", "raw/1.json", "raw/2.json", "raw/3.json", "raw/4.json"}, keys)

	_, err = store.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: aws.String("lake-data"), ContinuationToken: aws.String("!!")})
	assert.Equal(t, "InvalidArgument", errorCode(err))
}

func TestStore_ListObjectVersions_Pagination(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	createBucket(t, store, "lake-data")
	_, err := store.PutBucketVersioning(ctx, versioningInput("lake-data"))
	require.NoError(t, err)

	for _, key := range []string{"a", "b", "c"} {
		for i := 0; i < 3; i++ {
			_, err := store.PutObject(ctx, putInput("lake-data", key, fmt.Sprint(i)))
			require.NoError(t, err)
		}
	}

	seen := map[string]bool{}
	in := &s3.ListObjectVersionsInput{Bucket: aws.String("lake-data"), MaxKeys: aws.Int32(2)}
	pages := 0
	for {
		page, err := store.ListObjectVersions(ctx, in)
		require.NoError(t, err)
		pages++
		for _, v := range page.Versions {
			id := aws.ToString(v.Key) + "@" + aws.ToString(v.VersionId)
			assert.False(t, seen[id], "listed twice: %s", id)
			seen[id] = true
			// Deleting what was listed must not shift the next page.
			_, err := store.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String("lake-data"), Key: v.Key, VersionId: v.VersionId})
			require.NoError(t, err)
		}
		if !aws.ToBool(page.IsTruncated) {
			break
		}
		in.KeyMarker = page.NextKeyMarker
		in.VersionIdMarker = page.NextVersionIdMarker
	}
	assert.Len(t, seen, 9)
	assert.Equal(t, 5, pages)

	_, err = store.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String("lake-data")})
	assert.NoError(t, err)
}

func TestStore_ListObjectVersions_MarkerRequiresKey(t *testing.T) {
	store := newTestStore(t)
	createBucket(t, store, "lake-data")
	_, err := store.ListObjectVersions(context.Background(), &s3.ListObjectVersionsInput{
		Bucket:          aws.String("lake-data"),
		VersionIdMarker: aws.String("abc"),
	})
	assert.Equal(t, "InvalidArgument", errorCode(err))
}
