package storage

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/acksell/datalake"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectKey maps a file below root to its object key: the relative path with
// forward slashes.
func ObjectKey(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is not below %s", path, root)
	}
	return filepath.ToSlash(rel), nil
}

// UploadTree uploads every regular file under root to bucket, keyed by its
// path relative to root. Existing objects are overwritten. Each file is
// attempted regardless of earlier failures.
func (c *Client) UploadTree(ctx context.Context, root, bucket string) datalake.Report {
	var r datalake.Report

	info, err := os.Stat(root)
	if err != nil {
		c.logger.Error("upload root is not readable", "dir", root, "error", err)
		r.Add(datalake.Failed(datalake.KindObject, root, err))
		return r
	}
	if !info.IsDir() {
		err := fmt.Errorf("%s is not a directory", root)
		c.logger.Error("upload root is not a directory", "dir", root)
		r.Add(datalake.Failed(datalake.KindObject, root, err))
		return r
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// Unreadable entry: record it and keep walking its siblings.
			c.logger.Error("walk failed", "path", path, "error", err)
			r.Add(datalake.Failed(datalake.KindObject, path, err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !isRegularFile(path, d) {
			return nil
		}
		key, err := ObjectKey(root, path)
		if err != nil {
			r.Add(datalake.Failed(datalake.KindObject, path, err))
			return nil
		}
		r.Add(c.uploadFile(ctx, path, bucket, key))
		return nil
	})
	if walkErr != nil {
		r.Add(datalake.Failed(datalake.KindObject, root, walkErr))
	}

	c.logger.Info("upload finished", "bucket", bucket, "dir", root, "result", r.Summary())
	return r
}

func isRegularFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (c *Client) uploadFile(ctx context.Context, path, bucket, key string) datalake.Outcome {
	c.logger.Debug("uploading", "file", path, "bucket", bucket, "key", key)

	f, err := os.Open(path)
	if err != nil {
		c.logger.Error("open file failed", "file", path, "error", err)
		return datalake.Failed(datalake.KindObject, key, err)
	}
	defer f.Close()

	in := &s3.PutObjectInput{
		Bucket:              aws.String(bucket),
		Key:                 aws.String(key),
		Body:                f,
		ExpectedBucketOwner: c.owner(),
	}
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		in.ContentType = aws.String(ct)
	}
	if _, err := c.s3.PutObject(ctx, in); err != nil {
		c.logger.Error("upload failed", "file", path, "bucket", bucket, "key", key, "error", err)
		return datalake.Failed(datalake.KindObject, key, err)
	}
	c.logger.Info("uploaded", "bucket", bucket, "key", key)
	return datalake.Succeeded(datalake.KindObject, key)
}
