package main

import (
	"context"

	"github.com/acksell/datalake"
	"github.com/spf13/cobra"
)

func newBucketCmd(opts *rootOptions) *cobra.Command {
	var (
		dir        string
		versioning bool
	)
	cmd := &cobra.Command{
		Use:   "bucket",
		Short: "Create the lake bucket and upload the local data tree",
		Long: `bucket creates the lake bucket in the configured region and uploads every
file under the upload directory, keyed by its path relative to that
directory. Upload runs even when the bucket already exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, rt *runtime) (datalake.Report, error) {
				root := dir
				if root == "" {
					root = rt.project.Resolve(rt.project.UploadDir)
				}
				buckets := rt.storage()

				var r datalake.Report
				r.Add(buckets.EnsureBucket(ctx, rt.project.Bucket, rt.project.Region))
				if versioning {
					r.Add(buckets.EnableVersioning(ctx, rt.project.Bucket))
				}
				r.Merge(buckets.UploadTree(ctx, root, rt.project.Bucket))
				return r, nil
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "local directory to upload (default: uploadDir from the project file)")
	cmd.Flags().BoolVar(&versioning, "versioning", false, "enable object versioning on the bucket")
	return cmd
}
