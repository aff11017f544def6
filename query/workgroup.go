// Package query points Athena at a results bucket.
package query

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/acksell/datalake"
	"github.com/acksell/datalake/awsiface"
	"github.com/acksell/datalake/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	athenatypes "github.com/aws/aws-sdk-go-v2/service/athena/types"
)

// Configurator creates the results bucket and sets a workgroup's output location.
type Configurator struct {
	athena  awsiface.AthenaAPI
	buckets *storage.Client
	logger  *slog.Logger
}

func New(a awsiface.AthenaAPI, buckets *storage.Client, logger *slog.Logger) *Configurator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Configurator{
		athena:  a,
		buckets: buckets,
		logger:  logger.With("component", "query"),
	}
}

// OutputLocation is the result URI for bucket.
func OutputLocation(bucket string) string {
	return fmt.Sprintf("s3://%s/", bucket)
}

// EnsureResultsBucket creates the bucket query results are written to, with
// the same idempotency rules as any other bucket.
func (c *Configurator) EnsureResultsBucket(ctx context.Context, name, region string) datalake.Outcome {
	return c.buckets.EnsureBucket(ctx, name, region)
}

// SetWorkgroupOutput points the workgroup's result configuration at bucket.
func (c *Configurator) SetWorkgroupOutput(ctx context.Context, workgroup, bucket string) datalake.Outcome {
	loc := OutputLocation(bucket)
	_, err := c.athena.UpdateWorkGroup(ctx, &athena.UpdateWorkGroupInput{
		WorkGroup: aws.String(workgroup),
		ConfigurationUpdates: &athenatypes.WorkGroupConfigurationUpdates{
			ResultConfigurationUpdates: &athenatypes.ResultConfigurationUpdates{
				OutputLocation: aws.String(loc),
			},
		},
	})
	if err != nil {
		c.logger.Error("update athena workgroup failed", "workgroup", workgroup, "error", err)
		return datalake.Failed(datalake.KindWorkgroup, workgroup, err)
	}
	c.logger.Info("athena workgroup configured", "workgroup", workgroup, "output_location", loc)
	return datalake.Succeeded(datalake.KindWorkgroup, workgroup)
}

// Configure runs both steps. The workgroup is updated even if the bucket
// could not be created.
func (c *Configurator) Configure(ctx context.Context, workgroup, bucket, region string) datalake.Report {
	var r datalake.Report
	r.Add(c.EnsureResultsBucket(ctx, bucket, region))
	r.Add(c.SetWorkgroupOutput(ctx, workgroup, bucket))
	return r
}
