package storage

import (
	"context"
	"fmt"

	"github.com/acksell/datalake"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PurgeAndDeleteBucket empties a bucket and deletes it. It runs three steps:
//
//  1. delete every current object by key,
//  2. delete every object version and delete marker by (key, version),
//  3. delete the bucket.
//
// Step 2 is what purges a versioned bucket; step 1 alone only stacks delete
// markers on top of the history. Each step is best-effort: a failed listing
// is recorded and the next step still runs, and the bucket delete is always
// attempted. Listings follow continuation tokens until exhausted.
func (c *Client) PurgeAndDeleteBucket(ctx context.Context, bucket string) datalake.Report {
	var r datalake.Report

	c.logger.Info("deleting all objects", "bucket", bucket)
	r.Merge(c.deleteCurrentObjects(ctx, bucket))

	c.logger.Info("deleting object versions and delete markers", "bucket", bucket)
	r.Merge(c.deleteAllVersions(ctx, bucket))

	r.Add(c.deleteBucket(ctx, bucket))
	c.logger.Info("teardown finished", "bucket", bucket, "result", r.Summary())
	return r
}

func (c *Client) deleteCurrentObjects(ctx context.Context, bucket string) datalake.Report {
	var r datalake.Report
	p := s3.NewListObjectsV2Paginator(c.s3, &s3.ListObjectsV2Input{
		Bucket:              aws.String(bucket),
		MaxKeys:             c.maxKeys(),
		ExpectedBucketOwner: c.owner(),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			c.logger.Error("list objects failed", "bucket", bucket, "error", err)
			r.Add(datalake.Failed(datalake.KindListing, bucket+" objects", err))
			return r
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			r.Add(c.deleteObject(ctx, bucket, key, nil, datalake.KindObject))
		}
	}
	return r
}

func (c *Client) deleteAllVersions(ctx context.Context, bucket string) datalake.Report {
	var r datalake.Report
	in := &s3.ListObjectVersionsInput{
		Bucket:              aws.String(bucket),
		MaxKeys:             c.maxKeys(),
		ExpectedBucketOwner: c.owner(),
	}
	for {
		page, err := c.s3.ListObjectVersions(ctx, in)
		if err != nil {
			c.logger.Error("list object versions failed", "bucket", bucket, "error", err)
			r.Add(datalake.Failed(datalake.KindListing, bucket+" versions", err))
			return r
		}
		for _, v := range page.Versions {
			r.Add(c.deleteObject(ctx, bucket, aws.ToString(v.Key), v.VersionId, datalake.KindVersion))
		}
		for _, m := range page.DeleteMarkers {
			r.Add(c.deleteObject(ctx, bucket, aws.ToString(m.Key), m.VersionId, datalake.KindDeleteMarker))
		}
		if !aws.ToBool(page.IsTruncated) {
			return r
		}
		if page.NextKeyMarker == nil && page.NextVersionIdMarker == nil {
			// A truncated page without markers would loop forever.
			r.Add(datalake.Failed(datalake.KindListing, bucket+" versions",
				fmt.Errorf("truncated listing without continuation markers")))
			return r
		}
		in.KeyMarker = page.NextKeyMarker
		in.VersionIdMarker = page.NextVersionIdMarker
	}
}

func (c *Client) deleteObject(ctx context.Context, bucket, key string, versionID *string, kind datalake.Kind) datalake.Outcome {
	name := key
	if versionID != nil {
		name = fmt.Sprintf("%s@%s", key, aws.ToString(versionID))
	}
	c.logger.Debug("deleting", "kind", kind, "bucket", bucket, "key", key, "version", aws.ToString(versionID))

	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket:              aws.String(bucket),
		Key:                 aws.String(key),
		VersionId:           versionID,
		ExpectedBucketOwner: c.owner(),
	})
	if err != nil {
		c.logger.Error("delete failed", "kind", kind, "bucket", bucket, "key", key, "version", aws.ToString(versionID), "error", err)
		return datalake.Failed(kind, name, err)
	}
	return datalake.Succeeded(kind, name)
}

func (c *Client) deleteBucket(ctx context.Context, bucket string) datalake.Outcome {
	c.logger.Info("deleting bucket", "bucket", bucket)
	_, err := c.s3.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket:              aws.String(bucket),
		ExpectedBucketOwner: c.owner(),
	})
	if err != nil {
		c.logger.Error("delete bucket failed", "bucket", bucket, "error", err)
		return datalake.Failed(datalake.KindBucket, bucket, err)
	}
	c.logger.Info("bucket deleted", "bucket", bucket)
	return datalake.Succeeded(datalake.KindBucket, bucket)
}
