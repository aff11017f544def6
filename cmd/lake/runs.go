package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newRunsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "runs <run-id>",
		Short: "Show the outcomes recorded for a run",
		Long: `runs reads the outcomes of a previous run back from the run ledger. The run
ID is logged by every command as "run".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := opts.open(ctx, cmd.Name())
			if err != nil {
				return err
			}
			defer rt.close()
			if rt.ledger == nil {
				return fmt.Errorf("no run ledger configured (set ledgerTable or --ledger-table)")
			}

			outcomes, err := rt.ledger.Outcomes(ctx, args[0])
			if err != nil {
				return err
			}
			if len(outcomes) == 0 {
				return fmt.Errorf("no outcomes recorded for run %s", args[0])
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tNAME\tSTATUS\tERROR")
			for _, o := range outcomes {
				msg := ""
				if o.Err != nil {
					msg = o.Err.Error()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", o.Kind, o.Name, o.Status, msg)
			}
			return w.Flush()
		},
	}
}
