// Package awsiface provides the client interfaces the provisioning code
// depends on. Each interface mirrors the method signatures of the matching
// AWS SDK v2 client, so it is satisfied both by the real clients and by
// lakestore.Store, allowing the same code to run against AWS or against the
// local BadgerDB-backed emulator.
package awsiface

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// S3API is the subset of *s3.Client used for bucket provisioning, upload and teardown.
type S3API interface {
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error)
	PutBucketVersioning(ctx context.Context, params *s3.PutBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.PutBucketVersioningOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	ListObjectVersions(ctx context.Context, params *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error)
}

// GlueAPI is the subset of *glue.Client used to build the data catalog.
type GlueAPI interface {
	CreateDatabase(ctx context.Context, params *glue.CreateDatabaseInput, optFns ...func(*glue.Options)) (*glue.CreateDatabaseOutput, error)
	CreateTable(ctx context.Context, params *glue.CreateTableInput, optFns ...func(*glue.Options)) (*glue.CreateTableOutput, error)
	GetTable(ctx context.Context, params *glue.GetTableInput, optFns ...func(*glue.Options)) (*glue.GetTableOutput, error)
}

// AthenaAPI is the subset of *athena.Client used to configure query results.
type AthenaAPI interface {
	UpdateWorkGroup(ctx context.Context, params *athena.UpdateWorkGroupInput, optFns ...func(*athena.Options)) (*athena.UpdateWorkGroupOutput, error)
	GetWorkGroup(ctx context.Context, params *athena.GetWorkGroupInput, optFns ...func(*athena.Options)) (*athena.GetWorkGroupOutput, error)
}

// STSAPI resolves the account the credentials belong to.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// DynamoAPI is the subset of *dynamodb.Client used by the run ledger.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Clients bundles the service clients a command needs.
type Clients struct {
	S3     S3API
	Glue   GlueAPI
	Athena AthenaAPI
	STS    STSAPI
	// Dynamo is nil unless a run ledger is configured.
	Dynamo DynamoAPI
}

var (
	_ S3API     = (*s3.Client)(nil)
	_ GlueAPI   = (*glue.Client)(nil)
	_ AthenaAPI = (*athena.Client)(nil)
	_ STSAPI    = (*sts.Client)(nil)
	_ DynamoAPI = (*dynamodb.Client)(nil)
)
