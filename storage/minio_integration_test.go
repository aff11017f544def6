//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/acksell/datalake"
	"github.com/acksell/datalake/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	minitc "github.com/testcontainers/testcontainers-go/modules/minio"
)

// newMinIOClient starts a MinIO container and returns an S3 client for it.
func newMinIOClient(t *testing.T) *s3.Client {
	t.Helper()
	ctx := context.Background()

	mc, err := minitc.Run(ctx, "minio/minio:latest")
	require.NoError(t, err, "start minio container")
	t.Cleanup(func() { _ = mc.Terminate(context.Background()) })

	addr, err := mc.ConnectionString(ctx)
	require.NoError(t, err)

	cfg, err := config.AWSConfig(ctx, "us-east-1", config.Credentials{
		AccessKeyID:     mc.Username,
		SecretAccessKey: mc.Password,
	})
	require.NoError(t, err)
	return s3.NewFromConfig(cfg, config.S3Options("http://"+addr)...)
}

func TestMinIO_ProvisionAndTeardown(t *testing.T) {
	ctx := context.Background()
	client := newMinIOClient(t)
	c := New(client, WithPageSize(2))

	o := c.EnsureBucket(ctx, "lake-data", "us-east-1")
	require.Equal(t, datalake.StatusSucceeded, o.Status, o.Err)
	assert.Equal(t, datalake.StatusAlreadyExists, c.EnsureBucket(ctx, "lake-data", "us-east-1").Status)

	require.True(t, c.EnableVersioning(ctx, "lake-data").OK())

	root := writeTree(t, map[string]string{
		"customer/landing/c1.json":      `{"email":"a@example.com"}`,
		"accelerometer/landing/a1.json": `{"user":"a@example.com","x":1}`,
		"step_trainer/landing/s1.json":  `{"serialNumber":"s-1"}`,
	})
	// Upload twice so every key has two versions.
	require.True(t, c.UploadTree(ctx, root, "lake-data").OK())
	up := c.UploadTree(ctx, root, "lake-data")
	require.True(t, up.OK(), up.Err())

	out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: aws.String("lake-data")})
	require.NoError(t, err)
	assert.Len(t, out.Contents, 3)

	r := c.PurgeAndDeleteBucket(ctx, "lake-data")
	require.True(t, r.OK(), r.Err())
	assert.Len(t, r.Of(datalake.KindVersion), 6)
	assert.Len(t, r.Of(datalake.KindDeleteMarker), 3)

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String("lake-data")})
	var notFound *s3types.NotFound
	assert.ErrorAs(t, err, &notFound)
}
