package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"faculty-availability-backend/internal/status"
)

func statusCodesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status-codes",
		Short: "Print the status code table",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tBINARY\tKEY\t\tMESSAGE")
			for _, info := range status.All() {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", info.Code, info.Binary, info.Key, info.Icon, info.Message)
			}
			return tw.Flush()
		},
	}
}
