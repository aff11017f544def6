package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newTablesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "Print the tables the catalog command would register",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := opts.loadProject()
			if err != nil {
				return err
			}
			plan, err := tablePlan(project)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TABLE\tZONE\tLOCATION\tCOLUMNS")
			for _, t := range plan {
				cols := "-"
				if len(t.Schema) > 0 {
					parts := make([]string, len(t.Schema))
					for i, c := range t.Schema {
						parts[i] = c.Name + ":" + string(c.Type)
					}
					cols = strings.Join(parts, ",")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Name, t.Zone, t.Location, cols)
			}
			return w.Flush()
		},
	}
}
