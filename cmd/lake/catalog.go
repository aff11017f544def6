package main

import (
	"context"

	"github.com/acksell/datalake"
	"github.com/acksell/datalake/catalog"
	"github.com/acksell/datalake/config"
	"github.com/spf13/cobra"
)

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	var catalogID string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Create the Glue database and register the zone tables",
		Long: `catalog creates the Glue database and registers one external JSON table
per landing, trusted and curated zone, each located at its prefix in the
lake bucket. Landing tables are registered first and use the schema of their
trusted counterpart. Existing tables are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, rt *runtime) (datalake.Report, error) {
				plan, err := tablePlan(rt.project)
				if err != nil {
					return datalake.Report{}, err
				}
				p := catalog.New(rt.clients.Glue,
					catalog.WithLogger(rt.logger),
					catalog.WithCatalogID(catalogID),
				)
				return p.Provision(ctx, rt.project.Database, plan), nil
			})
		},
	}
	cmd.Flags().StringVar(&catalogID, "catalog-id", "", "Glue catalog ID (default: the caller's account)")
	return cmd
}

// tablePlan resolves the table registry of the project into the ordered
// list of tables to register.
func tablePlan(p config.Project) ([]catalog.TableSpec, error) {
	reg := catalog.DefaultRegistry()
	if p.TablesFile != "" {
		var err error
		reg, err = catalog.LoadRegistry(p.Resolve(p.TablesFile))
		if err != nil {
			return nil, err
		}
	}
	return reg.Plan(p.Bucket)
}
