package storage

import (
	"context"
	"errors"

	"github.com/acksell/datalake"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// defaultRegion is the one region S3 refuses as an explicit location constraint.
const defaultRegion = "us-east-1"

// EnsureBucket creates a bucket in region. A bucket that already exists and
// belongs to the caller counts as success; one owned by another account is a
// failure. Failures are logged and returned, never raised, so the caller can
// carry on with the next step regardless.
func (c *Client) EnsureBucket(ctx context.Context, name, region string) datalake.Outcome {
	in := &s3.CreateBucketInput{Bucket: aws.String(name)}
	if region != "" && region != defaultRegion {
		in.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(region),
		}
	}

	c.logger.Info("creating bucket", "bucket", name, "region", region)
	_, err := c.s3.CreateBucket(ctx, in)

	var owned *s3types.BucketAlreadyOwnedByYou
	var taken *s3types.BucketAlreadyExists
	switch {
	case err == nil:
		c.logger.Info("bucket created", "bucket", name)
		return datalake.Succeeded(datalake.KindBucket, name)
	case errors.As(err, &owned):
		c.logger.Info("bucket already exists", "bucket", name)
		return datalake.AlreadyExists(datalake.KindBucket, name)
	case errors.As(err, &taken):
		c.logger.Error("bucket name is owned by another account", "bucket", name, "error", err)
		return datalake.Failed(datalake.KindBucket, name, err)
	default:
		c.logger.Error("create bucket failed", "bucket", name, "error", err)
		return datalake.Failed(datalake.KindBucket, name, err)
	}
}

// EnableVersioning turns on object versioning for bucket. Teardown removes
// every version, so a versioned bucket can still be deleted cleanly.
func (c *Client) EnableVersioning(ctx context.Context, bucket string) datalake.Outcome {
	_, err := c.s3.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
		Bucket:              aws.String(bucket),
		ExpectedBucketOwner: c.owner(),
		VersioningConfiguration: &s3types.VersioningConfiguration{
			Status: s3types.BucketVersioningStatusEnabled,
		},
	})
	if err != nil {
		c.logger.Error("enable versioning failed", "bucket", bucket, "error", err)
		return datalake.Failed(datalake.KindVersioning, bucket, err)
	}
	c.logger.Info("versioning enabled", "bucket", bucket)
	return datalake.Succeeded(datalake.KindVersioning, bucket)
}
