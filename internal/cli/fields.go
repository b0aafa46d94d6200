package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/westmoney/batchsync/internal/domain/batch/field"
)

func newFieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List updatable fields and their permitted values",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, f := range field.All() {
				vals := f.Values()
				names := make([]string, len(vals))
				for i, v := range vals {
					names[i] = v.String()
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", f, strings.Join(names, ", "))
			}
		},
	}
}
