package main

import (
	"context"

	"github.com/acksell/datalake"
	"github.com/spf13/cobra"
)

func newTeardownCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "teardown",
		Short: "Empty the lake bucket, including all versions, and delete it",
		Long: `teardown deletes every current object in the lake bucket, then every object
version and delete marker, then the bucket itself. The bucket delete is
attempted even if some objects could not be removed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, rt *runtime) (datalake.Report, error) {
				return rt.storage().PurgeAndDeleteBucket(ctx, rt.project.Bucket), nil
			})
		},
	}
}
