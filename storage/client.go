// Package storage provisions the S3 side of the data lake: bucket creation,
// uploading a local directory tree, and purging a bucket on teardown.
package storage

import (
	"log/slog"

	"github.com/acksell/datalake/awsiface"
	"github.com/aws/aws-sdk-go-v2/aws"
)

type Option func(*Client)

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithExpectedOwner makes S3 reject object and bucket operations when the
// bucket is owned by an account other than accountID.
func WithExpectedOwner(accountID string) Option {
	return func(c *Client) { c.expectedOwner = accountID }
}

// WithPageSize caps the number of keys requested per listing page.
// Zero leaves the service default (1000).
func WithPageSize(n int32) Option {
	return func(c *Client) { c.pageSize = n }
}

type Client struct {
	s3            awsiface.S3API
	logger        *slog.Logger
	expectedOwner string
	pageSize      int32
}

func New(s3 awsiface.S3API, opts ...Option) *Client {
	c := &Client{s3: s3, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "storage")
	return c
}

func (c *Client) owner() *string {
	if c.expectedOwner == "" {
		return nil
	}
	return aws.String(c.expectedOwner)
}

func (c *Client) maxKeys() *int32 {
	if c.pageSize <= 0 {
		return nil
	}
	return aws.Int32(c.pageSize)
}
