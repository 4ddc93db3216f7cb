package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stackatlas/cfn-depgraph/internal/common"
	"github.com/stackatlas/cfn-depgraph/internal/discover"
)

func newExportsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exports",
		Short: "List cross-stack exports and the stacks importing them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess, err := newSession(ctx, opts)
			if err != nil {
				return err
			}

			d := &discover.Discoverer{
				API:     sess.client,
				Cache:   sess.cache,
				Logger:  sess.logger,
				Account: sess.client.Account,
				Region:  sess.client.Region,
			}
			topo, err := d.Topology(ctx)
			if err != nil {
				return err
			}

			stackByID := map[string]common.StackName{}
			for _, s := range topo.Stacks {
				stackByID[s.ID] = s.Name
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EXPORT\tSTACK\tIMPORTED BY")
			for _, e := range topo.Exports {
				exporter := stackByID[e.ExportingStackID]
				importers := make([]string, 0, len(e.Importers))
				for _, i := range e.Importers {
					importers = append(importers, string(i))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, exporter, strings.Join(importers, ", "))
			}
			return w.Flush()
		},
	}
}
