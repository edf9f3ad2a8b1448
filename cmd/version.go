package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smazurov/camctl/internal/version"
)

func newVersionCmd() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			if long {
				fmt.Fprintln(cmd.OutOrStdout(), version.Get().Long())
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "include build date, Go version and platform")
	return cmd
}
