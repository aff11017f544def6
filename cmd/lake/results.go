package main

import (
	"context"

	"github.com/acksell/datalake"
	"github.com/acksell/datalake/query"
	"github.com/spf13/cobra"
)

func newResultsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "results",
		Short: "Create the results bucket and point the Athena workgroup at it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, rt *runtime) (datalake.Report, error) {
				c := query.New(rt.clients.Athena, rt.storage(), rt.logger)
				return c.Configure(ctx, rt.project.Workgroup, rt.project.ResultsBucket, rt.project.Region), nil
			})
		},
	}
}
