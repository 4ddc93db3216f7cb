package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stackatlas/cfn-depgraph/internal/cache"
	"github.com/stackatlas/cfn-depgraph/internal/cfn"
	"github.com/stackatlas/cfn-depgraph/internal/common"
)

func newResourcesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resources <stack>",
		Short: "List the resources of a stack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := newSession(ctx, opts)
			if err != nil {
				return err
			}
			stack := common.StackName(args[0])

			var resources []cfn.StackResource
			key := cache.Key("list-stack-resources", string(stack))
			err = sess.cache.Do(key, &resources, func() (any, error) {
				return sess.client.ListStackResources(ctx, stack)
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LOGICAL ID\tTYPE\tPHYSICAL ID\tSTATUS")
			for _, r := range resources {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.LogicalID, r.Type, r.PhysicalID, r.Status)
			}
			return w.Flush()
		},
	}
}
